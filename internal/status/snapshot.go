package status

import "github.com/tamzrod/hlsfleet/internal/prober"

// Snapshot represents exactly what the writer is allowed to deliver.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	Health              uint16
	ReasonCode          uint16
	SecondsInError      uint16
	ConsecutiveFailures uint16
	Breaker             uint16
}

// FromHealth maps a prober state onto the wire codes.
// SecondsInError is not derived here; the Tracker owns it.
func FromHealth(st prober.HealthState) Snapshot {
	s := Snapshot{
		Health:              healthCode(st.Phase),
		ConsecutiveFailures: saturate(st.ConsecutiveFailures),
		Breaker:             uint16(st.Breaker),
	}
	if st.Phase != prober.PhaseHealthy {
		s.ReasonCode = reasonCode(st.Reason)
	}
	return s
}

func healthCode(p prober.Phase) uint16 {
	switch p {
	case prober.PhaseHealthy:
		return HealthOK
	case prober.PhaseUnavailable:
		return HealthUnavailable
	case prober.PhaseDegraded:
		return HealthDegraded
	case prober.PhaseStopped:
		return HealthStopped
	}
	return HealthUnknown
}

func reasonCode(reason string) uint16 {
	switch reason {
	case prober.ReasonTransport:
		return ReasonTransport
	case prober.ReasonParse:
		return ReasonParse
	case prober.ReasonNoSegments:
		return ReasonNoSegments
	case prober.ReasonCircuitOpen:
		return ReasonCircuitOpen
	case prober.ReasonSegmentUnreachable:
		return ReasonSegmentUnreachable
	}
	return ReasonNone
}

func saturate(n int) uint16 {
	if n < 0 {
		return 0
	}
	if n > MaxCounter {
		return MaxCounter
	}
	return uint16(n)
}
