package prober

import (
	"context"
	"errors"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds in-cycle retries of transport failures.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (p RetryPolicy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithMaxRetries(b, uint64(attempts-1))
}

// WithRetry re-runs fn while it reports a transport failure, up to
// MaxAttempts calls in total. Parse failures and every other outcome are
// returned as-is after the first call. Waits run on clk; nil means the
// wall clock.
func WithRetry(policy RetryPolicy, clk clock.Clock, fn ProbeFunc) ProbeFunc {
	if clk == nil {
		clk = clock.NewClock()
	}
	return func(ctx context.Context) Result {
		var (
			res      Result
			attempts int
		)

		op := func() error {
			attempts++
			res = fn(ctx)
			if errors.Is(res.Err, ErrTransport) {
				return res.Err
			}
			return nil
		}

		// The final transport error is already carried by res.
		_ = backoff.RetryNotifyWithTimer(op, backoff.WithContext(policy.backOff(), ctx), nil, &clockTimer{clock: clk})

		res.Attempts = attempts
		return res
	}
}

// clockTimer runs backoff waits on a clock.Clock.
type clockTimer struct {
	clock clock.Clock
	timer clock.Timer
}

func (t *clockTimer) Start(d time.Duration) {
	if t.timer == nil {
		t.timer = t.clock.NewTimer(d)
		return
	}
	t.timer.Reset(d)
}

func (t *clockTimer) Stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
}

func (t *clockTimer) C() <-chan time.Time { return t.timer.C() }
