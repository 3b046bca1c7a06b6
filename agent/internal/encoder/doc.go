// Package encoder converts raw GC events into the JSON documents the agent
// ships.
//
// Encode looks the event kind up in a closed table of eight extractors, one
// per supported kind. Each extractor fills the matching pkg/types struct,
// whose embedded Meta puts startTime, host, eventName and the optional label
// ahead of the kind-specific fields. A kind outside the table fails with
// ErrUnsupportedKind; a missing or mistyped field, or a marshal failure,
// fails with ErrEncode. Either way only that event is lost.
package encoder
