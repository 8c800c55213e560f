// Package telemetry streams profile change events to SSE clients with
// Last-Event-ID replay and periodic heartbeats.
package telemetry
