// Package metrics defines the Prometheus collectors for the Profile Control Container.
//
// Modem pushes are fire-and-forget; their outcomes surface here instead of
// as errors to the reconciler. Rebuild outcomes and skipped rows are
// counted so operators can spot a misbehaving store without log diving.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rebuild outcomes.
const (
	OutcomeUpdated   = "updated"
	OutcomeUnchanged = "unchanged"
	OutcomeAborted   = "aborted"
)

// Modem push operations.
const (
	PushOpProfiles      = "profiles"
	PushOpInitialAttach = "initial_attach"
)

var (
	// RebuildsTotal counts reconciliation passes by outcome.
	RebuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pcc",
		Name:      "rebuilds_total",
		Help:      "Profile set rebuild passes by outcome.",
	}, []string{"outcome"})

	// MalformedRowsTotal counts store rows skipped during conversion.
	MalformedRowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pcc",
		Name:      "malformed_rows_total",
		Help:      "Store rows skipped because they could not be converted into profiles.",
	})

	// ProfileCount tracks the size of the reconciled profile set.
	ProfileCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pcc",
		Name:      "profile_count",
		Help:      "Number of profiles in the current reconciled set.",
	})

	// ModemPushesTotal counts modem sync pushes by operation and outcome.
	// Outcome is "ok" or a normalized modem error code.
	ModemPushesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pcc",
		Name:      "modem_pushes_total",
		Help:      "Modem sync pushes by operation and outcome.",
	}, []string{"op", "outcome"})

	// ChangeNotificationsTotal counts change events fanned out to observers.
	ChangeNotificationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pcc",
		Name:      "change_notifications_total",
		Help:      "Profile change events fanned out to registered observers.",
	})
)
