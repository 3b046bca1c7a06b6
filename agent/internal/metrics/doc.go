// Package metrics instruments the agent with Prometheus counters.
//
// Each Metrics value owns a private registry so tests and multiple agents in
// one process do not collide. Handler exposes it for scraping; WriteText
// dumps it in the text exposition format, which the command does on exit.
package metrics
