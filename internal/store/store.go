package store

import (
	"context"
	"fmt"

	"github.com/profile-control/pcc/internal/profile"
)

// Row is a raw profile row as read from the store, before conversion into
// a profile. Masks and protocols are kept in their stored representation
// so that conversion failures can be detected per row.
type Row struct {
	ID              int64
	SubscriptionID  int
	EntryName       string
	Name            string
	TypeMask        int64
	NetworkTypeMask int64
	Protocol        string
	RoamingProtocol string
	Enabled         bool
	SetID           int
}

// Client is the query interface over the external profile store.
type Client interface {
	// QueryProfiles returns all rows for the subscription ordered by row id.
	QueryProfiles(ctx context.Context, subscriptionID int) ([]Row, error)

	// QueryPreferredOverride returns the row id of the explicit preferred
	// override, or 0 when none is recorded.
	QueryPreferredOverride(ctx context.Context, subscriptionID int) (int64, error)

	// QueryPreferredSetID returns the set id of the preferred override row,
	// or profile.NoSetID when no override exists.
	QueryPreferredSetID(ctx context.Context, subscriptionID int) (int, error)

	// WritePreferredOverride clears any existing override for the
	// subscription and, when rowID is non-zero, records rowID as the new
	// override.
	WritePreferredOverride(ctx context.Context, subscriptionID int, rowID int64) error
}

// ToProfile converts a raw row into a network profile. The traffic
// descriptor mirrors the access point name, matching how store-backed
// profiles are announced to the modem.
func (r Row) ToProfile() (*profile.Profile, error) {
	if r.Name == "" {
		return nil, fmt.Errorf("%w: row %d has empty access point name", ErrMalformedRow, r.ID)
	}
	if r.TypeMask <= 0 {
		return nil, fmt.Errorf("%w: row %d has type mask %d", ErrMalformedRow, r.ID, r.TypeMask)
	}
	proto := profile.Protocol(r.Protocol)
	if !proto.Valid() {
		return nil, fmt.Errorf("%w: row %d has protocol %q", ErrMalformedRow, r.ID, r.Protocol)
	}
	roamingProto := profile.Protocol(r.RoamingProtocol)
	if !roamingProto.Valid() {
		return nil, fmt.Errorf("%w: row %d has roaming protocol %q", ErrMalformedRow, r.ID, r.RoamingProtocol)
	}
	if r.NetworkTypeMask < 0 {
		return nil, fmt.Errorf("%w: row %d has network type mask %d", ErrMalformedRow, r.ID, r.NetworkTypeMask)
	}

	return &profile.Profile{
		AccessPoint: profile.AccessPoint{
			RowID:           r.ID,
			EntryName:       r.EntryName,
			Name:            r.Name,
			TypeMask:        profile.AccessPointType(r.TypeMask),
			NetworkTypeMask: profile.NetworkType(r.NetworkTypeMask),
			Protocol:        proto,
			RoamingProtocol: roamingProto,
			Enabled:         r.Enabled,
			SetID:           r.SetID,
		},
		TrafficDescriptor: &profile.TrafficDescriptor{DNN: r.Name},
	}, nil
}
