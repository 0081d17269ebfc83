package config

import "time"

type Config struct {
	Controller ControllerConfig `yaml:"controller"`
	Registry   RegistryConfig   `yaml:"registry"`
	Runtime    RuntimeConfig    `yaml:"runtime"`
	Prober     ProberConfig     `yaml:"prober"`
	Status     StatusConfig     `yaml:"status"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Log        LogConfig        `yaml:"log"`
	Channel    ChannelConfig    `yaml:"channel"`
}

// ---- CONTROLLER ----

type ControllerConfig struct {
	PollIntervalSeconds  int `yaml:"poll_interval_seconds"`
	ShutdownGraceSeconds int `yaml:"shutdown_grace_seconds"`
}

// ---- REGISTRY ----

type RegistryConfig struct {
	URL       string `yaml:"url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ---- RUNTIME ----

type RuntimeConfig struct {
	Host    string `yaml:"host"`
	Image   string `yaml:"image"`
	Network string `yaml:"network"`
}

// ---- PROBER ----

type ProberConfig struct {
	IntervalSeconds int           `yaml:"interval_seconds"`
	TimeoutMs       int           `yaml:"timeout_ms"`
	CheckSegment    *bool         `yaml:"check_segment"`
	Retry           RetryConfig   `yaml:"retry"`
	Breaker         BreakerConfig `yaml:"breaker"`
}

type RetryConfig struct {
	MaxAttempts int      `yaml:"max_attempts"`
	BaseDelay   Duration `yaml:"base_delay"`
	MaxDelay    Duration `yaml:"max_delay"`
}

type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold"`
	CooldownSeconds  int `yaml:"cooldown_seconds"`
}

// ---- STATUS SIDE CHANNEL ----

// StatusConfig is opt-in: an empty endpoint disables the status block.
type StatusConfig struct {
	Endpoint  string `yaml:"endpoint"`
	UnitID    uint8  `yaml:"unit_id"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ---- METRICS / LOG ----

type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---- CHANNEL (monitor only) ----

type ChannelConfig struct {
	ID  int    `yaml:"id"`
	URL string `yaml:"url"`
}

// Duration accepts either a Go duration string ("4s") or bare seconds ("4").
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	v, err := parseDuration(raw)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// ---- derived values ----

func (c ControllerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c ControllerConfig) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownGraceSeconds) * time.Second
}

func (c RegistryConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func (c ProberConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

func (c ProberConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func (c BreakerConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

func (c StatusConfig) Enabled() bool { return c.Endpoint != "" }

func (c StatusConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}
