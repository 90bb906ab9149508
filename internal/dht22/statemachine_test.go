package dht22

import "testing"

func TestStateMachineHappyPath(t *testing.T) {
	var m stateMachine

	if m.State() != StateIdle {
		t.Fatalf("initial state: got %v, want idle", m.State())
	}

	m.MarkTriggered()
	if got := m.Advance(); got != StateResponding {
		t.Fatalf("after trigger: got %v, want responding", got)
	}
	if !m.Triggered() {
		t.Error("Triggered should report true while responding")
	}

	m.MarkFinished()
	if got := m.Advance(); got != StateFinished {
		t.Fatalf("after finish: got %v, want finished", got)
	}

	m.Reset()
	if m.State() != StateIdle {
		t.Errorf("after reset: got %v, want idle", m.State())
	}
	if m.Triggered() {
		t.Error("reset should clear the triggered flag")
	}
}

func TestStateMachineErrorOutranksFinished(t *testing.T) {
	var m stateMachine
	m.MarkTriggered()
	m.Advance()

	m.MarkFinished()
	m.MarkError()
	if got := m.Advance(); got != StateError {
		t.Errorf("got %v, want error when both flags set", got)
	}
}

func TestStateMachineStrayEdgeWhileIdle(t *testing.T) {
	var m stateMachine
	m.MarkError()
	if got := m.Advance(); got != StateError {
		t.Errorf("got %v, want error for stray edge while idle", got)
	}
}

func TestStateMachineErrorAfterFinished(t *testing.T) {
	var m stateMachine
	m.MarkTriggered()
	m.Advance()
	m.MarkFinished()
	m.Advance()

	m.MarkError()
	if got := m.Advance(); got != StateError {
		t.Errorf("got %v, want error after late stray edge", got)
	}
}

func TestStateMachineAdvanceWithoutFlags(t *testing.T) {
	var m stateMachine
	if got := m.Advance(); got != StateIdle {
		t.Errorf("idle with no flags: got %v, want idle", got)
	}

	m.MarkTriggered()
	m.Advance()
	if got := m.Advance(); got != StateResponding {
		t.Errorf("responding with no new flags: got %v, want responding", got)
	}
}

func TestStateMachineResetIsIdempotent(t *testing.T) {
	var m stateMachine
	m.Reset()
	m.Reset()
	if m.State() != StateIdle {
		t.Errorf("got %v, want idle", m.State())
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateIdle:       "idle",
		StateResponding: "responding",
		StateFinished:   "finished",
		StateError:      "error",
		State(99):       "unknown",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String(): got %q, want %q", s, got, want)
		}
	}
}
