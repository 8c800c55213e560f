// Package api implements the HTTP surface: state queries, capability
// matching, inbound change events, the SSE telemetry stream, and the
// Prometheus endpoint.
package api
