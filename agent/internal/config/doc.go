// Package config builds the agent configuration and resolves the delivery URI.
//
// Two inputs produce the same Config:
//   - Parse(args) reads the comma-separated argument string
//     "uri=...,label=...,connect_timeout=<ms>,request_timeout=<ms>"
//   - Load(path) reads a YAML file with the same four keys
//
// Unknown keys, a missing uri and bad timeouts fail with ErrInvalidArgument.
// Timeouts default to 1000ms.
//
// The uri is a template. %h (hostname) and %l (label, or empty) are
// substituted once when the Config is built. %y, %m and %d (local date,
// zero-padded) are substituted by URI(), which caches the result for the
// current calendar day and recomputes it on the first call of a new day.
// URI() is safe for concurrent use and fails with ErrInvalidURI when the
// result is not an absolute http(s) URI.
package config
