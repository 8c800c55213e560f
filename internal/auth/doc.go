// Package auth implements bearer-token verification and the middleware
// gating the mutating profile endpoints. Viewers read state and subscribe
// to telemetry; operators additionally deliver change events and
// connectivity signals.
package auth
