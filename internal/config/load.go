package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads the optional YAML file at path, overlays the environment,
// normalizes defaults and validates the result.
// An empty path means environment and defaults only.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	Normalize(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

// applyEnv overlays environment variables on top of file values.
// Env always wins when set and non-empty.
func applyEnv(cfg *Config, lookup lookupFunc) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
			return
		}
		*dst = n
	}
	dur := func(key string, dst *Duration) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		d, err := parseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
			return
		}
		*dst = Duration(d)
	}
	flag := func(key string, dst **bool) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
			return
		}
		*dst = &b
	}

	num("POLL_INTERVAL_SECONDS", &cfg.Controller.PollIntervalSeconds)
	num("SHUTDOWN_GRACE_SECONDS", &cfg.Controller.ShutdownGraceSeconds)

	str("DATABASE_SERVICE_URL", &cfg.Registry.URL)
	str("REGISTRY_URL", &cfg.Registry.URL)
	num("REGISTRY_TIMEOUT_MS", &cfg.Registry.TimeoutMs)

	str("MONITOR_IMAGE", &cfg.Runtime.Image)
	str("DOCKER_NETWORK", &cfg.Runtime.Network)

	num("PROBE_INTERVAL_SECONDS", &cfg.Prober.IntervalSeconds)
	num("PROBE_TIMEOUT_MS", &cfg.Prober.TimeoutMs)
	flag("PROBE_CHECK_SEGMENT", &cfg.Prober.CheckSegment)
	num("RETRY_MAX_ATTEMPTS", &cfg.Prober.Retry.MaxAttempts)
	dur("RETRY_BASE_DELAY", &cfg.Prober.Retry.BaseDelay)
	dur("RETRY_MAX_DELAY", &cfg.Prober.Retry.MaxDelay)
	num("BREAKER_FAILURE_THRESHOLD", &cfg.Prober.Breaker.FailureThreshold)
	num("BREAKER_COOLDOWN_SECONDS", &cfg.Prober.Breaker.CooldownSeconds)

	str("STATUS_ENDPOINT", &cfg.Status.Endpoint)
	if v, ok := lookup("STATUS_UNIT_ID"); ok && v != "" {
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 8)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: STATUS_UNIT_ID: %w", err))
		} else {
			cfg.Status.UnitID = uint8(n)
		}
	}
	num("STATUS_TIMEOUT_MS", &cfg.Status.TimeoutMs)

	str("METRICS_LISTEN", &cfg.Metrics.Listen)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)

	num("CHANNEL_ID", &cfg.Channel.ID)
	str("CHANNEL_URL", &cfg.Channel.URL)

	return errors.Join(errs...)
}

// parseDuration accepts "4s", "1500ms" or bare seconds "4".
func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("empty duration")
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(n * float64(time.Second)), nil
	}
	return time.ParseDuration(raw)
}
