package config

import (
	"fmt"
	"net/url"
)

// MaxStatusChannelID is the highest channel id whose 20-slot status block
// still fits inside the 16-bit Modbus address space.
const MaxStatusChannelID = 65535/20 - 1

// Validate checks configuration correctness shared by every role.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	c := cfg.Controller
	if c.PollIntervalSeconds <= 0 {
		return fmt.Errorf("controller: poll_interval_seconds must be > 0, got %d", c.PollIntervalSeconds)
	}
	if c.ShutdownGraceSeconds <= 0 {
		return fmt.Errorf("controller: shutdown_grace_seconds must be > 0, got %d", c.ShutdownGraceSeconds)
	}

	if cfg.Registry.URL != "" {
		if err := checkHTTPURL(cfg.Registry.URL); err != nil {
			return fmt.Errorf("registry: url: %w", err)
		}
	}
	if cfg.Registry.TimeoutMs <= 0 {
		return fmt.Errorf("registry: timeout_ms must be > 0, got %d", cfg.Registry.TimeoutMs)
	}

	// ------------------------------------------------------------
	// PROBER POLICY
	// ------------------------------------------------------------

	p := cfg.Prober
	if p.IntervalSeconds <= 0 {
		return fmt.Errorf("prober: interval_seconds must be > 0, got %d", p.IntervalSeconds)
	}
	if p.TimeoutMs <= 0 {
		return fmt.Errorf("prober: timeout_ms must be > 0, got %d", p.TimeoutMs)
	}
	if p.Retry.MaxAttempts < 1 {
		return fmt.Errorf("prober: retry.max_attempts must be >= 1, got %d", p.Retry.MaxAttempts)
	}
	if p.Retry.BaseDelay < 0 || p.Retry.MaxDelay < 0 {
		return fmt.Errorf("prober: retry delays must not be negative")
	}
	if p.Retry.BaseDelay > p.Retry.MaxDelay {
		return fmt.Errorf(
			"prober: retry.base_delay %s exceeds retry.max_delay %s",
			p.Retry.BaseDelay.Std(),
			p.Retry.MaxDelay.Std(),
		)
	}
	if p.Breaker.FailureThreshold < 1 {
		return fmt.Errorf("prober: breaker.failure_threshold must be >= 1, got %d", p.Breaker.FailureThreshold)
	}
	if p.Breaker.CooldownSeconds <= 0 {
		return fmt.Errorf("prober: breaker.cooldown_seconds must be > 0, got %d", p.Breaker.CooldownSeconds)
	}

	switch cfg.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log: format must be json or console, got %q", cfg.Log.Format)
	}

	return nil
}

// ValidateController checks what the controller role needs on top of Validate.
func ValidateController(cfg *Config) error {
	if cfg.Registry.URL == "" {
		return fmt.Errorf("registry: url is required (REGISTRY_URL)")
	}
	if cfg.Runtime.Image == "" {
		return fmt.Errorf("runtime: image is required")
	}
	return nil
}

// ValidateMonitor checks what the monitor (worker) role needs on top of Validate.
func ValidateMonitor(cfg *Config) error {
	ch := cfg.Channel
	if ch.ID <= 0 {
		return fmt.Errorf("channel: id must be > 0 (CHANNEL_ID), got %d", ch.ID)
	}
	if ch.URL == "" {
		return fmt.Errorf("channel: url is required (CHANNEL_URL)")
	}
	if err := checkHTTPURL(ch.URL); err != nil {
		return fmt.Errorf("channel %d: url: %w", ch.ID, err)
	}

	// status block is opt-in
	if cfg.Status.Enabled() && ch.ID > MaxStatusChannelID {
		return fmt.Errorf(
			"channel %d: status block out of range (max channel id %d)",
			ch.ID,
			MaxStatusChannelID,
		)
	}
	return nil
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
