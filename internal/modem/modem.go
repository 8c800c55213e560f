package modem

import (
	"context"

	"github.com/profile-control/pcc/internal/profile"
)

// Service is the southbound contract to the modem data service. Both calls
// are semantically asynchronous on the modem side; no acknowledgement is
// consumed by this container.
type Service interface {
	// SetProfiles announces the full reconciled profile set. Idempotent on
	// the modem side.
	SetProfiles(ctx context.Context, profiles []*profile.Profile, roaming bool) error

	// SetInitialAttach announces the profile to use for the device's first
	// network registration.
	SetInitialAttach(ctx context.Context, p *profile.Profile, roaming bool) error
}
