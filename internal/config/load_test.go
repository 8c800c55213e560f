package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/profile-control/pcc/internal/profile"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.SubscriptionID != 1 {
		t.Errorf("Default subscription id = %d, want 1", cfg.SubscriptionID)
	}
	if !cfg.CarrierSpecific {
		t.Error("Defaults should be carrier specific")
	}
	if len(cfg.AllowedInitialAttachTypes) != 2 ||
		cfg.AllowedInitialAttachTypes[0] != profile.TypeIA ||
		cfg.AllowedInitialAttachTypes[1] != profile.TypeDefault {
		t.Errorf("Default attach types = %v, want [ia default]", cfg.AllowedInitialAttachTypes)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Defaults should validate, got %v", err)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	if cfg.DefaultPreferredAccessPoint != "" {
		t.Errorf("Unexpected default preferred access point %q", cfg.DefaultPreferredAccessPoint)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PCC_CARRIER_SUBSCRIPTION_ID", "7")
	t.Setenv("PCC_CARRIER_SPECIFIC", "false")
	t.Setenv("PCC_CARRIER_DEFAULT_PREFERRED_APN", "fast-internet")
	t.Setenv("PCC_CARRIER_ALLOWED_ATTACH_TYPES", "default,ims")
	t.Setenv("PCC_CARRIER_DATA_ROAMING", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.SubscriptionID != 7 {
		t.Errorf("Subscription id = %d, want 7", cfg.SubscriptionID)
	}
	if cfg.CarrierSpecific {
		t.Error("CarrierSpecific should be overridden to false")
	}
	if cfg.DefaultPreferredAccessPoint != "fast-internet" {
		t.Errorf("Default preferred APN = %q, want fast-internet", cfg.DefaultPreferredAccessPoint)
	}
	if len(cfg.AllowedInitialAttachTypes) != 2 ||
		cfg.AllowedInitialAttachTypes[0] != profile.TypeDefault ||
		cfg.AllowedInitialAttachTypes[1] != profile.TypeIMS {
		t.Errorf("Attach types = %v, want [default ims]", cfg.AllowedInitialAttachTypes)
	}
	if !cfg.DataRoaming {
		t.Error("DataRoaming should be overridden to true")
	}
}

func TestLoadEnvOverrideInvalid(t *testing.T) {
	t.Setenv("PCC_CARRIER_ALLOWED_ATTACH_TYPES", "default,bogus")

	if _, err := Load(""); err == nil {
		t.Error("Load() should fail on an unknown attach type")
	}
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carrier.json")
	content := `{
		"subscriptionId": 3,
		"defaultPreferredAccessPoint": "internet",
		"allowedInitialAttachTypes": ["ia", "default", "ims"],
		"heartbeatInterval": "30s"
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.SubscriptionID != 3 {
		t.Errorf("Subscription id = %d, want 3", cfg.SubscriptionID)
	}
	if cfg.DefaultPreferredAccessPoint != "internet" {
		t.Errorf("Default preferred APN = %q, want internet", cfg.DefaultPreferredAccessPoint)
	}
	if len(cfg.AllowedInitialAttachTypes) != 3 {
		t.Errorf("Attach types = %v, want three entries", cfg.AllowedInitialAttachTypes)
	}
	if cfg.HeartbeatInterval != 30*time.Second {
		t.Errorf("Heartbeat interval = %v, want 30s", cfg.HeartbeatInterval)
	}
	// Fields absent from the file keep their defaults.
	if !cfg.CarrierSpecific {
		t.Error("CarrierSpecific should keep its default when absent from the file")
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	cfg := Defaults()
	cfg.AllowedInitialAttachTypes = nil
	if err := Validate(cfg); err == nil {
		t.Error("Validate should reject an empty attach type list")
	}

	cfg = Defaults()
	cfg.AllowedInitialAttachTypes = []profile.AccessPointType{profile.TypeIA, profile.TypeIA}
	if err := Validate(cfg); err == nil {
		t.Error("Validate should reject duplicate attach types")
	}

	cfg = Defaults()
	cfg.EventBufferSize = 0
	if err := Validate(cfg); err == nil {
		t.Error("Validate should reject a non-positive event buffer size")
	}
}

func TestProviderReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carrier.json")
	if err := os.WriteFile(path, []byte(`{"subscriptionId": 1}`), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	provider := NewProvider(cfg, path)

	if err := os.WriteFile(path, []byte(`{"subscriptionId": 9}`), 0o644); err != nil {
		t.Fatalf("rewrite config file: %v", err)
	}
	if err := provider.Reload(); err != nil {
		t.Fatalf("Reload() failed: %v", err)
	}
	if provider.SubscriptionID() != 9 {
		t.Errorf("Subscription id after reload = %d, want 9", provider.SubscriptionID())
	}

	// A broken file leaves the previous configuration in effect.
	if err := os.WriteFile(path, []byte(`{"allowedInitialAttachTypes": []`), 0o644); err != nil {
		t.Fatalf("rewrite config file: %v", err)
	}
	if err := provider.Reload(); err == nil {
		t.Error("Reload() should fail on a broken file")
	}
	if provider.SubscriptionID() != 9 {
		t.Error("Failed reload should not replace the active configuration")
	}
}

func TestProviderAttachTypesCopied(t *testing.T) {
	provider := NewProvider(Defaults(), "")
	types := provider.AllowedInitialAttachTypes()
	types[0] = profile.TypeEnterprise

	if provider.AllowedInitialAttachTypes()[0] != profile.TypeIA {
		t.Error("Mutating the returned slice should not affect the provider")
	}
}
