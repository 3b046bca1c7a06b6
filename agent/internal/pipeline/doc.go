// Package pipeline connects an event stream to the encoder and the shipper.
//
// A Driver moves through Idle -> Running -> Terminated exactly once. Run
// enables the eight GC kinds on the stream, registers one handler for all of
// them and blocks in Stream.Start. Each event is encoded on the stream's
// goroutine and handed to the Publisher, which must not block.
//
// A failure while handling one event (unsupported kind, encode error, panic)
// is logged and counted and never stops the stream. A stream error ends Run
// and is returned. The stream is closed on every exit path.
package pipeline
