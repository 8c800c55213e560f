package api

import (
	"context"
	"net/http"

	"github.com/profile-control/pcc/internal/config"
	"github.com/profile-control/pcc/internal/manager"
	"github.com/profile-control/pcc/internal/profile"
	"github.com/profile-control/pcc/internal/telemetry"
)

// ManagerPort is the minimal interface the API needs from the profile
// manager.
type ManagerPort interface {
	Snapshot() manager.Snapshot
	Dump() (manager.Snapshot, []string)
	Preferred() *profile.Profile
	InitialAttach() *profile.Profile
	Match(caps profile.Capability, networkType profile.NetworkType) (*profile.Profile, error)
	MatchAll(caps profile.Capability) []*profile.Profile
	Notify(trigger manager.Trigger)
	OnInternetConnected(rowIDs []int64) error
	MarkUsed(rowID int64) bool
}

// TelemetryPort is the minimal interface the API needs from the
// telemetry hub.
type TelemetryPort interface {
	Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error
	ClientCount() int
}

// RoamingControl exposes the runtime data-roaming flag.
type RoamingControl interface {
	DataRoaming() bool
	SetDataRoaming(roaming bool)
}

// Compile-time assertions for port conformance
var _ ManagerPort = (*manager.Manager)(nil)
var _ TelemetryPort = (*telemetry.Hub)(nil)
var _ RoamingControl = (*config.Provider)(nil)
