package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/profile-control/pcc/internal/profile"
)

// CarrierConfig holds carrier policy plus the container's own tunables.
type CarrierConfig struct {
	// SubscriptionID is the active subscription. Values <= 0 mean no valid
	// subscription is provisioned.
	SubscriptionID int `json:"subscriptionId"`

	// CarrierSpecific reports whether the loaded configuration is for a
	// specific carrier. When false the store is not consulted at all and
	// only synthesized default profiles exist.
	CarrierSpecific bool `json:"carrierSpecific"`

	// DefaultPreferredAccessPoint names the access point to prefer when the
	// store records no explicit override. Empty disables the fallback.
	DefaultPreferredAccessPoint string `json:"defaultPreferredAccessPoint"`

	// AllowedInitialAttachTypes is the ordered list of access point types
	// eligible for initial attach, highest priority first.
	AllowedInitialAttachTypes []profile.AccessPointType `json:"-"`

	// DataRoaming is the roaming flag forwarded on every modem push.
	DataRoaming bool `json:"dataRoaming"`

	// HeartbeatInterval paces SSE keep-alive events.
	HeartbeatInterval time.Duration `json:"-"`

	// EventBufferSize bounds the telemetry replay buffer.
	EventBufferSize int `json:"eventBufferSize"`
}

// fileConfig is the JSON representation; attach types and durations use
// string forms in the file.
type fileConfig struct {
	SubscriptionID              *int    `json:"subscriptionId"`
	CarrierSpecific             *bool   `json:"carrierSpecific"`
	DefaultPreferredAccessPoint *string `json:"defaultPreferredAccessPoint"`
	AllowedInitialAttachTypes   []string `json:"allowedInitialAttachTypes"`
	DataRoaming                 *bool   `json:"dataRoaming"`
	HeartbeatInterval           string  `json:"heartbeatInterval"`
	EventBufferSize             *int    `json:"eventBufferSize"`
}

// Defaults returns the baseline configuration: a single valid subscription,
// carrier-specific profiles, and the conventional ia-then-default attach
// order.
func Defaults() *CarrierConfig {
	return &CarrierConfig{
		SubscriptionID:            1,
		CarrierSpecific:           true,
		AllowedInitialAttachTypes: []profile.AccessPointType{profile.TypeIA, profile.TypeDefault},
		HeartbeatInterval:         15 * time.Second,
		EventBufferSize:           64,
	}
}

// Load merges Defaults() + PCC_CARRIER_* env overrides + the optional JSON
// file at path (skipped when path is empty or the file does not exist).
func Load(path string) (*CarrierConfig, error) {
	cfg := Defaults()

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := mergeFromFile(cfg, path); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", path, err)
			}
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies PCC_CARRIER_* environment variables.
func applyEnvOverrides(cfg *CarrierConfig) error {
	if val := os.Getenv("PCC_CARRIER_SUBSCRIPTION_ID"); val != "" {
		id, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("PCC_CARRIER_SUBSCRIPTION_ID: %w", err)
		}
		cfg.SubscriptionID = id
	}

	if val := os.Getenv("PCC_CARRIER_SPECIFIC"); val != "" {
		specific, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("PCC_CARRIER_SPECIFIC: %w", err)
		}
		cfg.CarrierSpecific = specific
	}

	if val := os.Getenv("PCC_CARRIER_DEFAULT_PREFERRED_APN"); val != "" {
		cfg.DefaultPreferredAccessPoint = val
	}

	if val := os.Getenv("PCC_CARRIER_ALLOWED_ATTACH_TYPES"); val != "" {
		types, err := parseAttachTypes(strings.Split(val, ","))
		if err != nil {
			return fmt.Errorf("PCC_CARRIER_ALLOWED_ATTACH_TYPES: %w", err)
		}
		cfg.AllowedInitialAttachTypes = types
	}

	if val := os.Getenv("PCC_CARRIER_DATA_ROAMING"); val != "" {
		roaming, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("PCC_CARRIER_DATA_ROAMING: %w", err)
		}
		cfg.DataRoaming = roaming
	}

	if val := os.Getenv("PCC_HEARTBEAT_INTERVAL"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			cfg.HeartbeatInterval = duration
		}
	}

	if val := os.Getenv("PCC_EVENT_BUFFER_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			cfg.EventBufferSize = size
		}
	}

	return nil
}

// mergeFromFile applies the JSON file at path on top of cfg. File values
// take precedence over current values; absent fields are left alone.
func mergeFromFile(cfg *CarrierConfig, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	var fc fileConfig
	if err := json.NewDecoder(file).Decode(&fc); err != nil {
		return err
	}

	if fc.SubscriptionID != nil {
		cfg.SubscriptionID = *fc.SubscriptionID
	}
	if fc.CarrierSpecific != nil {
		cfg.CarrierSpecific = *fc.CarrierSpecific
	}
	if fc.DefaultPreferredAccessPoint != nil {
		cfg.DefaultPreferredAccessPoint = *fc.DefaultPreferredAccessPoint
	}
	if fc.AllowedInitialAttachTypes != nil {
		types, err := parseAttachTypes(fc.AllowedInitialAttachTypes)
		if err != nil {
			return err
		}
		cfg.AllowedInitialAttachTypes = types
	}
	if fc.DataRoaming != nil {
		cfg.DataRoaming = *fc.DataRoaming
	}
	if fc.HeartbeatInterval != "" {
		duration, err := time.ParseDuration(fc.HeartbeatInterval)
		if err != nil {
			return fmt.Errorf("heartbeatInterval: %w", err)
		}
		cfg.HeartbeatInterval = duration
	}
	if fc.EventBufferSize != nil {
		cfg.EventBufferSize = *fc.EventBufferSize
	}

	return nil
}

// parseAttachTypes converts type names into an ordered type list.
func parseAttachTypes(names []string) ([]profile.AccessPointType, error) {
	var types []profile.AccessPointType
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		t, err := profile.ParseAccessPointType(name)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

// Validate checks the final configuration for internal consistency.
func Validate(cfg *CarrierConfig) error {
	if len(cfg.AllowedInitialAttachTypes) == 0 {
		return fmt.Errorf("allowedInitialAttachTypes must not be empty")
	}
	seen := make(map[profile.AccessPointType]bool)
	for _, t := range cfg.AllowedInitialAttachTypes {
		if seen[t] {
			return fmt.Errorf("allowedInitialAttachTypes contains %s twice", t)
		}
		seen[t] = true
	}
	if cfg.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeatInterval must be positive, got %v", cfg.HeartbeatInterval)
	}
	if cfg.EventBufferSize <= 0 {
		return fmt.Errorf("eventBufferSize must be positive, got %d", cfg.EventBufferSize)
	}
	return nil
}

// Provider hands out the current carrier configuration and supports
// atomic replacement when the backing file changes.
type Provider struct {
	mu   sync.RWMutex
	cfg  *CarrierConfig
	path string
}

// NewProvider wraps an already loaded configuration.
func NewProvider(cfg *CarrierConfig, path string) *Provider {
	return &Provider{cfg: cfg, path: path}
}

// Reload re-runs the merge pipeline against the backing file. On failure
// the previous configuration stays in effect.
func (p *Provider) Reload() error {
	cfg, err := Load(p.path)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.cfg = cfg
	p.mu.Unlock()
	return nil
}

// Current returns the active configuration value.
func (p *Provider) Current() CarrierConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return *p.cfg
}

// SubscriptionID returns the active subscription id.
func (p *Provider) SubscriptionID() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg.SubscriptionID
}

// CarrierSpecific reports whether carrier profiles should be loaded from
// the store.
func (p *Provider) CarrierSpecific() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg.CarrierSpecific
}

// DefaultPreferredAccessPoint returns the configured fallback preferred
// access point name, empty if none.
func (p *Provider) DefaultPreferredAccessPoint() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg.DefaultPreferredAccessPoint
}

// AllowedInitialAttachTypes returns the ordered attach type list.
func (p *Provider) AllowedInitialAttachTypes() []profile.AccessPointType {
	p.mu.RLock()
	defer p.mu.RUnlock()
	types := make([]profile.AccessPointType, len(p.cfg.AllowedInitialAttachTypes))
	copy(types, p.cfg.AllowedInitialAttachTypes)
	return types
}

// DataRoaming returns the roaming flag for modem pushes.
func (p *Provider) DataRoaming() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg.DataRoaming
}

// SetDataRoaming updates the roaming flag at runtime.
func (p *Provider) SetDataRoaming(roaming bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.DataRoaming = roaming
}
