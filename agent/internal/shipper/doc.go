// Package shipper delivers encoded GC documents to the collector endpoint.
//
// Shipper.Publish() is non-blocking: it resolves today's URI, then POSTs the
// document (Content-Type: application/json, X-Request-Id: <uuid>) on its own
// goroutine and returns immediately. There is no queue, no retry and no bound
// on in-flight requests; the shared http.Transport pools connections.
//
// Outcomes are only logged and counted. A status >= 400 logs the status,
// the final request URI and up to 4 KiB of the response body. A transport
// failure logs its kind (timeout, dns, connect, transport), message and URI.
// A URI that cannot be resolved logs the error and drops the document.
//
// Each request is bounded by the configured connect timeout (dial and TLS
// handshake) and request timeout (whole exchange). Redirects are followed up
// to 10 hops, never from https to http.
//
// Flush waits for in-flight deliveries; it is meant for shutdown and tests
// and must not run concurrently with Publish.
package shipper
