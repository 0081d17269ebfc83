package status

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tamzrod/hlsfleet/internal/prober"
)

func TestFromHealth(t *testing.T) {
	s := FromHealth(prober.HealthState{
		Phase:               prober.PhaseUnavailable,
		Reason:              prober.ReasonCircuitOpen,
		ConsecutiveFailures: 70000,
		Breaker:             prober.BreakerOpen,
	})

	require.Equal(t, HealthUnavailable, s.Health)
	require.Equal(t, ReasonCircuitOpen, s.ReasonCode)
	require.Equal(t, uint16(MaxCounter), s.ConsecutiveFailures)
	require.Equal(t, uint16(1), s.Breaker)
}

func TestFromHealth_HealthyClearsReason(t *testing.T) {
	s := FromHealth(prober.HealthState{Phase: prober.PhaseHealthy, Reason: prober.ReasonTransport})
	require.Equal(t, HealthOK, s.Health)
	require.Equal(t, ReasonNone, s.ReasonCode)
}

func TestEncode_Layout(t *testing.T) {
	regs := Encode(Snapshot{Health: HealthDegraded, ReasonCode: ReasonSegmentUnreachable, SecondsInError: 9, ConsecutiveFailures: 2, Breaker: 0})

	require.Len(t, regs, SlotsPerChannel)
	require.Equal(t, HealthDegraded, regs[SlotHealthCode])
	require.Equal(t, ReasonSegmentUnreachable, regs[SlotReasonCode])
	require.Equal(t, uint16(9), regs[SlotSecondsInError])
	require.Equal(t, uint16(2), regs[SlotConsecutiveFailures])
	for i := SlotReservedStart; i <= SlotNameEnd; i++ {
		require.Zero(t, regs[i], "slot %d", i)
	}
}

func TestTracker_SecondsInErrorLifecycle(t *testing.T) {
	tr := NewTracker()

	require.False(t, tr.Tick(), "unknown state does not count")

	require.True(t, tr.Observe(prober.HealthState{Phase: prober.PhaseUnavailable, Reason: prober.ReasonTransport, ConsecutiveFailures: 1}))
	require.True(t, tr.Tick())
	require.True(t, tr.Tick())
	require.Equal(t, uint16(2), tr.Snapshot().SecondsInError)

	// still failing: counter is kept
	tr.Observe(prober.HealthState{Phase: prober.PhaseUnavailable, Reason: prober.ReasonTransport, ConsecutiveFailures: 2})
	require.Equal(t, uint16(2), tr.Snapshot().SecondsInError)

	// recovery resets
	require.True(t, tr.Observe(prober.HealthState{Phase: prober.PhaseHealthy}))
	require.Equal(t, uint16(0), tr.Snapshot().SecondsInError)
	require.False(t, tr.Tick())

	// identical state is not a change
	require.False(t, tr.Observe(prober.HealthState{Phase: prober.PhaseHealthy}))
}

func TestTracker_SecondsInErrorSaturates(t *testing.T) {
	tr := NewTracker()
	tr.Observe(prober.HealthState{Phase: prober.PhaseDegraded, Reason: prober.ReasonSegmentUnreachable})
	tr.snap.SecondsInError = MaxCounter - 1

	require.True(t, tr.Tick())
	require.False(t, tr.Tick())
	require.Equal(t, uint16(MaxCounter), tr.Snapshot().SecondsInError)
}
