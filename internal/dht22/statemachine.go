package dht22

import "sync/atomic"

// stateMachine tracks the decoder lifecycle. Flags are set from the edge
// path (MarkFinished, MarkError) and from the worker (MarkTriggered); the
// resulting transition is computed by Advance, which is cheap enough to run
// in either context. Acting on a transition (decoding, cleanup) happens
// only on the worker.
type stateMachine struct {
	state     atomic.Int32
	triggered atomic.Bool
	finished  atomic.Bool
	errored   atomic.Bool
}

// MarkTriggered records that a trigger waveform is about to be sent. Set
// before the pin is touched so no edge can race ahead of the state change.
func (m *stateMachine) MarkTriggered() { m.triggered.Store(true) }

// MarkFinished records that the capture buffer is full.
func (m *stateMachine) MarkFinished() { m.finished.Store(true) }

// MarkError records an unexpected edge or a forced abort.
func (m *stateMachine) MarkError() { m.errored.Store(true) }

// Triggered reports whether a trigger cycle is in flight.
func (m *stateMachine) Triggered() bool { return m.triggered.Load() }

// State returns the current lifecycle state.
func (m *stateMachine) State() State { return State(m.state.Load()) }

// Advance applies the pending flags to the current state and returns the
// new state. It performs no side effects.
func (m *stateMachine) Advance() State {
	next := nextState(m.State(), m.triggered.Load(), m.finished.Load(), m.errored.Load())
	m.state.Store(int32(next))
	return next
}

// Reset returns the machine to idle and clears all pending flags.
func (m *stateMachine) Reset() {
	m.triggered.Store(false)
	m.finished.Store(false)
	m.errored.Store(false)
	m.state.Store(int32(StateIdle))
}

// nextState is the pure transition function. Error outranks everything: a
// stray edge while idle, or after the buffer filled, still needs a cleanup
// pass to clear the flags.
func nextState(s State, triggered, finished, errored bool) State {
	switch s {
	case StateIdle:
		if errored {
			return StateError
		}
		if triggered {
			return StateResponding
		}
	case StateResponding:
		if errored {
			return StateError
		}
		if finished {
			return StateFinished
		}
	case StateFinished:
		// An edge beyond the expected count poisons the capture even if
		// the buffer already filled.
		if errored {
			return StateError
		}
	}
	// Error is terminal until Reset.
	return s
}
