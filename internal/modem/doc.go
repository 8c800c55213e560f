// Package modem defines the modem service boundary for the Profile Control Container.
//
// The modem service owns its own retry and acknowledgement semantics, so
// pushes from this container are asynchronous fire-and-forget: the Pusher
// hands snapshots to the service on background goroutines and reports
// failures only through metrics and logs. Vendor error strings are
// normalized to stable codes through table-driven matching.
package modem
