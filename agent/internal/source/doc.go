// Package source provides the event streams the pipeline subscribes to.
//
// Every stream reads newline-delimited JSON events in the shape printed by
// `jfr print --json` and hands each decoded event to the handler registered
// for its kind. Only kinds that were both enabled and given a handler are
// dispatched; anything else is dropped silently. Lines that fail to decode
// are logged and skipped without stopping the stream.
//
// Implemented streams: reader (stdin or any io.Reader, ends at EOF),
// file (tails a file with fsnotify, follows rotation and truncation) and
// nats (subscribes to a subject). Factory: New(Options) returns the stream
// selected by Options.Location.
//
// Start blocks until the stream ends, ctx is cancelled or Close is called.
// Handlers run on the goroutine that called Start.
package source
