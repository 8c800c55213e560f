package manager

import (
	"github.com/profile-control/pcc/internal/profile"
)

// ConfigSource supplies carrier policy. Implemented by config.Provider.
type ConfigSource interface {
	SubscriptionID() int
	CarrierSpecific() bool
	DefaultPreferredAccessPoint() string
	AllowedInitialAttachTypes() []profile.AccessPointType
	DataRoaming() bool
}

// ModemPusher delivers profile state to the modem without blocking the
// caller. Implemented by modem.Pusher.
type ModemPusher interface {
	PushProfiles(profiles []*profile.Profile, roaming bool)
	PushInitialAttach(prof *profile.Profile, roaming bool)
}

// AuditLogger records state-changing actions. Implemented by audit.Logger.
type AuditLogger interface {
	LogAction(action string, subscriptionID int, params map[string]interface{}, err error)
}

// Trigger identifies the upstream event that caused a rebuild.
type Trigger string

// Rebuild triggers.
const (
	TriggerStoreChanged  Trigger = "store-changed"
	TriggerConfigUpdated Trigger = "config-updated"
	TriggerSIMRefresh    Trigger = "sim-refresh"
	TriggerPreference    Trigger = "preference-updated"
	TriggerStartup       Trigger = "startup"
)
