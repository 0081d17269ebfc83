package prober

import (
	"context"
	"errors"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
)

// Breaker is a consecutive-failure circuit breaker.
//
// Closed: every call passes; Threshold consecutive failures open it.
// Open: calls are rejected until Cooldown has elapsed since it opened.
// HalfOpen: exactly one trial call passes; its outcome closes or reopens.
//
// Safe for concurrent use.
type Breaker struct {
	threshold int
	cooldown  time.Duration
	clock     clock.Clock

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
}

func NewBreaker(threshold int, cooldown time.Duration, clk clock.Clock) (*Breaker, error) {
	if threshold < 1 {
		return nil, errors.New("prober: breaker threshold must be >= 1")
	}
	if cooldown <= 0 {
		return nil, errors.New("prober: breaker cooldown must be > 0")
	}
	if clk == nil {
		clk = clock.NewClock()
	}
	return &Breaker{threshold: threshold, cooldown: cooldown, clock: clk}, nil
}

// Allow reports whether a call may proceed. A rejected call counts as a
// failed cycle but never moves the breaker.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true

	case BreakerOpen:
		if b.clock.Since(b.openedAt) >= b.cooldown {
			b.state = BreakerHalfOpen
			return true
		}

	case BreakerHalfOpen:
		// the single trial is already in flight
	}

	b.failures++
	return false
}

// Record feeds the outcome of an allowed call.
func (b *Breaker) Record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		b.state = BreakerClosed
		b.failures = 0
		return
	}

	b.failures++

	switch b.state {
	case BreakerClosed:
		if b.failures >= b.threshold {
			b.open()
		}
	case BreakerHalfOpen:
		b.open()
	}
}

func (b *Breaker) open() {
	b.state = BreakerOpen
	b.openedAt = b.clock.Now()
}

// Snapshot returns state, consecutive failures and the last open time.
func (b *Breaker) Snapshot() (BreakerState, int, time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state, b.failures, b.openedAt
}

// WithBreaker fails fast while b is open and feeds every real outcome back.
// Only a Healthy result counts as success.
func WithBreaker(b *Breaker, fn ProbeFunc) ProbeFunc {
	return func(ctx context.Context) Result {
		if !b.Allow() {
			return Result{
				Phase:  PhaseUnavailable,
				Reason: ReasonCircuitOpen,
				Err:    ErrCircuitOpen,
			}
		}
		res := fn(ctx)
		b.Record(res.Phase == PhaseHealthy)
		return res
	}
}
