// Package types defines the wire schema of the documents the agent ships.
//
// Every document carries the Meta fields (startTime, host, eventName and an
// optional label) followed by the fields of exactly one event kind. There is
// one struct per supported kind; each embeds Meta so encoding/json flattens
// the metadata into the top-level object ahead of the kind-specific fields.
//
// Consumers that receive documents can call Decode to get the concrete
// struct for the document's eventName.
package types
