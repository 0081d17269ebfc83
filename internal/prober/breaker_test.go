package prober

import (
	"context"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(t *testing.T, threshold int) (*Breaker, *fakeclock.FakeClock) {
	t.Helper()
	clk := fakeclock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	b, err := NewBreaker(threshold, time.Minute, clk)
	require.NoError(t, err)
	return b, clk
}

func TestBreaker_OpensExactlyOnThreshold(t *testing.T) {
	const n = 5
	b, clk := newTestBreaker(t, n)

	for i := 1; i < n; i++ {
		require.True(t, b.Allow())
		b.Record(false)

		state, failures, _ := b.Snapshot()
		require.Equal(t, BreakerClosed, state, "failure %d", i)
		require.Equal(t, i, failures)
	}

	require.True(t, b.Allow())
	b.Record(false)

	state, failures, openedAt := b.Snapshot()
	require.Equal(t, BreakerOpen, state)
	require.Equal(t, n, failures)
	require.Equal(t, clk.Now(), openedAt)
}

func TestBreaker_SuccessResetsCounter(t *testing.T) {
	b, _ := newTestBreaker(t, 3)

	b.Record(false)
	b.Record(false)
	b.Record(true)

	state, failures, _ := b.Snapshot()
	require.Equal(t, BreakerClosed, state)
	require.Equal(t, 0, failures)
}

func TestBreaker_RejectsUntilCooldown(t *testing.T) {
	b, clk := newTestBreaker(t, 1)
	b.Record(false)

	clk.Increment(59 * time.Second)
	require.False(t, b.Allow())

	state, failures, _ := b.Snapshot()
	require.Equal(t, BreakerOpen, state)
	require.Equal(t, 2, failures, "rejected cycles still count as failures")

	clk.Increment(time.Second)
	require.True(t, b.Allow())

	state, _, _ = b.Snapshot()
	require.Equal(t, BreakerHalfOpen, state)
}

func TestBreaker_HalfOpenAdmitsSingleTrial(t *testing.T) {
	b, clk := newTestBreaker(t, 1)
	b.Record(false)
	clk.Increment(time.Minute)

	require.True(t, b.Allow())
	require.False(t, b.Allow(), "second caller while the trial is in flight")
	require.False(t, b.Allow())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, clk := newTestBreaker(t, 1)
	b.Record(false)
	clk.Increment(2 * time.Minute)

	require.True(t, b.Allow())
	b.Record(false)

	state, _, openedAt := b.Snapshot()
	require.Equal(t, BreakerOpen, state)
	require.Equal(t, clk.Now(), openedAt, "opened-at is reset to the trial failure")
	require.False(t, b.Allow())
}

func TestBreaker_HalfOpenSuccessCloses(t *testing.T) {
	b, clk := newTestBreaker(t, 2)
	b.Record(false)
	b.Record(false)
	clk.Increment(time.Minute)

	require.True(t, b.Allow())
	b.Record(true)

	state, failures, _ := b.Snapshot()
	require.Equal(t, BreakerClosed, state)
	require.Equal(t, 0, failures)
}

func TestWithBreaker_SkipsCallWhileOpen(t *testing.T) {
	b, _ := newTestBreaker(t, 1)

	calls := 0
	probe := WithBreaker(b, func(context.Context) Result {
		calls++
		return Result{Phase: PhaseUnavailable, Reason: ReasonTransport, Err: ErrTransport}
	})

	res := probe(context.Background())
	require.Equal(t, PhaseUnavailable, res.Phase)
	require.Equal(t, 1, calls)

	for i := 0; i < 10; i++ {
		res = probe(context.Background())
		require.Equal(t, ReasonCircuitOpen, res.Reason)
		require.ErrorIs(t, res.Err, ErrCircuitOpen)
	}
	require.Equal(t, 1, calls)
}

func TestWithBreaker_DegradedCountsAsFailure(t *testing.T) {
	b, _ := newTestBreaker(t, 2)

	probe := WithBreaker(b, func(context.Context) Result {
		return Result{Phase: PhaseDegraded, Reason: ReasonSegmentUnreachable}
	})
	probe(context.Background())
	probe(context.Background())

	state, _, _ := b.Snapshot()
	require.Equal(t, BreakerOpen, state)
}
