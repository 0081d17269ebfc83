package prober

import (
	"context"
	"errors"
	"time"

	"github.com/tamzrod/hlsfleet/internal/prober/hls"
)

// Phase is the channel-level outcome of the most recent cycle.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseProbing
	PhaseHealthy
	PhaseDegraded
	PhaseUnavailable
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseProbing:
		return "probing"
	case PhaseHealthy:
		return "healthy"
	case PhaseDegraded:
		return "degraded"
	case PhaseUnavailable:
		return "unavailable"
	case PhaseStopped:
		return "stopped"
	}
	return "unknown"
}

// BreakerState is the circuit breaker position.
type BreakerState uint8

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// Reasons attached to non-healthy outcomes.
const (
	ReasonTransport          = "transport error"
	ReasonParse              = "parse error"
	ReasonNoSegments         = "no segments"
	ReasonCircuitOpen        = "circuit open"
	ReasonSegmentUnreachable = "segment unreachable"
)

var (
	ErrTransport   = hls.ErrTransport
	ErrParse       = hls.ErrParse
	ErrNoSegments  = errors.New("prober: playlist declares no segments")
	ErrCircuitOpen = errors.New("prober: circuit open")
	ErrSegment     = errors.New("prober: segment unreachable")
)

// Result is the outcome of one probe cycle.
type Result struct {
	Phase    Phase
	Reason   string
	Err      error
	Attempts int

	// Playlist is the media playlist URL that was validated (variant or manifest).
	Playlist string
	Segments int
}

// ProbeFunc is the shape shared by the raw check and every wrapper around it.
type ProbeFunc func(ctx context.Context) Result

// HealthState is owned by one Prober. Everyone else gets copies.
type HealthState struct {
	ChannelID int

	Phase               Phase
	Reason              string
	LastErr             error
	ConsecutiveFailures int

	Breaker         BreakerState
	BreakerOpenedAt time.Time // zero => never opened

	LastProbeAt time.Time
	Segments    int
}

// Healthy reports whether the last completed cycle was healthy.
func (s HealthState) Healthy() bool { return s.Phase == PhaseHealthy }
