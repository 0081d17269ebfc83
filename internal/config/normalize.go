package config

import "time"

// Defaults. Zero values in a loaded config are replaced by these.
const (
	DefaultPollIntervalSeconds  = 10
	DefaultShutdownGraceSeconds = 5
	DefaultRegistryTimeoutMs    = 5000

	DefaultImage = "monitor_service_image"

	DefaultProbeIntervalSeconds = 10
	DefaultProbeTimeoutMs       = 5000
	DefaultRetryMaxAttempts     = 3
	DefaultRetryBaseDelay       = 4 * time.Second
	DefaultRetryMaxDelay        = 10 * time.Second
	DefaultBreakerThreshold     = 5
	DefaultBreakerCooldown      = 60

	DefaultStatusUnitID    = 1
	DefaultStatusTimeoutMs = 2000

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Normalize fills defaults for every unset field.
// It is allowed to mutate configuration and runs before Validate.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	setInt(&cfg.Controller.PollIntervalSeconds, DefaultPollIntervalSeconds)
	setInt(&cfg.Controller.ShutdownGraceSeconds, DefaultShutdownGraceSeconds)
	setInt(&cfg.Registry.TimeoutMs, DefaultRegistryTimeoutMs)

	if cfg.Runtime.Image == "" {
		cfg.Runtime.Image = DefaultImage
	}

	p := &cfg.Prober
	setInt(&p.IntervalSeconds, DefaultProbeIntervalSeconds)
	setInt(&p.TimeoutMs, DefaultProbeTimeoutMs)
	if p.CheckSegment == nil {
		on := true
		p.CheckSegment = &on
	}
	setInt(&p.Retry.MaxAttempts, DefaultRetryMaxAttempts)
	if p.Retry.BaseDelay == 0 {
		p.Retry.BaseDelay = Duration(DefaultRetryBaseDelay)
	}
	if p.Retry.MaxDelay == 0 {
		p.Retry.MaxDelay = Duration(DefaultRetryMaxDelay)
	}
	setInt(&p.Breaker.FailureThreshold, DefaultBreakerThreshold)
	setInt(&p.Breaker.CooldownSeconds, DefaultBreakerCooldown)

	// Status block is opt-in; only fill its defaults when enabled.
	if cfg.Status.Enabled() {
		if cfg.Status.UnitID == 0 {
			cfg.Status.UnitID = DefaultStatusUnitID
		}
		setInt(&cfg.Status.TimeoutMs, DefaultStatusTimeoutMs)
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

func setInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}
