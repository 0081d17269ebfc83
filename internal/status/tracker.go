package status

import "github.com/tamzrod/hlsfleet/internal/prober"

// Tracker is the runner-owned status state for one channel.
// Not safe for concurrent use: exactly one goroutine feeds it.
type Tracker struct {
	snap Snapshot
}

// NewTracker starts in the unknown (boot) state.
func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{Health: HealthUnknown}}
}

func (t *Tracker) Snapshot() Snapshot { return t.snap }

// Observe folds one prober state into the snapshot.
// Reports whether anything the writer delivers has changed.
func (t *Tracker) Observe(st prober.HealthState) bool {
	next := FromHealth(st)

	// Recovery resets seconds-in-error; otherwise it keeps counting.
	if next.Health != HealthOK {
		next.SecondsInError = t.snap.SecondsInError
	}

	changed := next != t.snap
	t.snap = next
	return changed
}

// Tick advances seconds-in-error by one while the channel is unhealthy.
// Call at 1 Hz. Saturates at MaxCounter and never wraps.
func (t *Tracker) Tick() bool {
	switch t.snap.Health {
	case HealthUnavailable, HealthDegraded:
	default:
		return false
	}
	if t.snap.SecondsInError >= MaxCounter {
		return false
	}
	t.snap.SecondsInError++
	return true
}
