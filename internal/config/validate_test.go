package config

import "testing"

// helper to build a normalized config quickly
func valid() *Config {
	cfg := &Config{
		Registry: RegistryConfig{URL: "http://registry:5000"},
		Channel:  ChannelConfig{ID: 7, URL: "http://cdn/live/index.m3u8"},
	}
	Normalize(cfg)
	return cfg
}

// ---- tests ----

func TestValidate_DefaultsAccepted(t *testing.T) {
	cfg := valid()

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateController(cfg); err != nil {
		t.Fatalf("unexpected controller error: %v", err)
	}
	if err := ValidateMonitor(cfg); err != nil {
		t.Fatalf("unexpected monitor error: %v", err)
	}
}

func TestValidate_RetryBaseAboveMaxRejected(t *testing.T) {
	cfg := valid()
	cfg.Prober.Retry.BaseDelay = cfg.Prober.Retry.MaxDelay + 1

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected retry delay error, got nil")
	}
}

func TestValidate_ZeroAttemptsRejected(t *testing.T) {
	cfg := valid()
	cfg.Prober.Retry.MaxAttempts = -1

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected max_attempts error, got nil")
	}
}

func TestValidate_BadRegistryURLRejected(t *testing.T) {
	cfg := valid()
	cfg.Registry.URL = "registry:5000"

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected url error, got nil")
	}
}

func TestValidate_UnknownLogFormatRejected(t *testing.T) {
	cfg := valid()
	cfg.Log.Format = "xml"

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected log format error, got nil")
	}
}

func TestValidateController_RegistryRequired(t *testing.T) {
	cfg := valid()
	cfg.Registry.URL = ""

	if err := ValidateController(cfg); err == nil {
		t.Fatalf("expected registry error, got nil")
	}
}

func TestValidateMonitor_ChannelRequired(t *testing.T) {
	cfg := valid()
	cfg.Channel.ID = 0

	if err := ValidateMonitor(cfg); err == nil {
		t.Fatalf("expected channel id error, got nil")
	}
}

func TestValidateMonitor_StatusSlotRange(t *testing.T) {
	cfg := valid()
	cfg.Status.Endpoint = "plc:502"
	Normalize(cfg)

	cfg.Channel.ID = MaxStatusChannelID
	if err := ValidateMonitor(cfg); err != nil {
		t.Fatalf("last slot should fit: %v", err)
	}

	cfg.Channel.ID = MaxStatusChannelID + 1
	if err := ValidateMonitor(cfg); err == nil {
		t.Fatalf("expected status range error, got nil")
	}
}
