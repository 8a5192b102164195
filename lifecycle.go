package reactor

import "sync/atomic"

// LifecycleState is one of the three states a Frame passes through exactly
// once each, in order: Fresh -> Running -> Terminated.
type LifecycleState uint32

const (
	// Fresh is the state a Frame starts in: the reactor object has not
	// been constructed yet.
	Fresh LifecycleState = iota
	// Running is entered inside the first batch, under the Frame's
	// monitor, immediately before the reactor object is constructed.
	Running
	// Terminated is terminal: no further batch ever runs, no further
	// enqueue is accepted, and the registry slot is (eventually) released.
	Terminated
)

// String returns a human-readable representation of the state.
func (s LifecycleState) String() string {
	switch s {
	case Fresh:
		return "Fresh"
	case Running:
		return "Running"
	case Terminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// lifecycle is a small atomic state machine for the Fresh/Running/Terminated
// progression, in the spirit of the teacher's FastState: a CAS-based
// transition primitive with no internal locking, cheap enough to poll from
// the enqueue fast path. Unlike FastState's five-state loop machine, this
// one is monotonic - Store is never used to move backwards.
type lifecycle struct {
	v atomic.Uint32
}

func newLifecycle() *lifecycle {
	l := &lifecycle{}
	l.v.Store(uint32(Fresh))
	return l
}

// Load returns the current state atomically.
func (l *lifecycle) Load() LifecycleState {
	return LifecycleState(l.v.Load())
}

// TryTransition attempts an atomic CAS from `from` to `to`. Returns true on
// success. Most transitions in this package additionally happen under the
// Frame's monitor for compound correctness (spec.md invariant 2 requires
// that Terminated, once observed, never schedules another batch); the CAS
// here exists so hasTerminated-style reads stay lock-free.
func (l *lifecycle) TryTransition(from, to LifecycleState) bool {
	return l.v.CompareAndSwap(uint32(from), uint32(to))
}

// IsTerminated reports whether the state has reached Terminated.
func (l *lifecycle) IsTerminated() bool {
	return l.Load() == Terminated
}
