package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Registry setting keys understood by the monitor.
const (
	SettingMonitorInterval = "monitor_interval"
	SettingAlertThreshold  = "alert_threshold"
)

// ApplySettings overlays registry settings onto the prober policy:
// monitor_interval (seconds) replaces the probe interval and
// alert_threshold replaces the breaker failure threshold.
// Unknown keys are ignored. Invalid values are reported and skipped.
// Returns the keys that were applied.
func ApplySettings(cfg *Config, settings map[string]string) ([]string, error) {
	var (
		applied []string
		bad     []string
	)

	positive := func(key string, dst *int) {
		raw, ok := settings[key]
		if !ok {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n <= 0 {
			bad = append(bad, fmt.Sprintf("%s=%q", key, raw))
			return
		}
		*dst = n
		applied = append(applied, key)
	}

	positive(SettingMonitorInterval, &cfg.Prober.IntervalSeconds)
	positive(SettingAlertThreshold, &cfg.Prober.Breaker.FailureThreshold)

	if len(bad) > 0 {
		return applied, fmt.Errorf("config: invalid registry settings: %s", strings.Join(bad, ", "))
	}
	return applied, nil
}
