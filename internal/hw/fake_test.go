package hw

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestFakePinRecordsOps(t *testing.T) {
	p := NewFakePin(6)

	if err := p.DriveLow(); err != nil {
		t.Fatalf("DriveLow: %v", err)
	}
	if err := p.Input(); err != nil {
		t.Fatalf("Input: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	want := []string{"low", "input", "close"}
	if len(p.Ops) != len(want) {
		t.Fatalf("ops: got %v, want %v", p.Ops, want)
	}
	for i := range want {
		if p.Ops[i] != want[i] {
			t.Errorf("op %d: got %q, want %q", i, p.Ops[i], want[i])
		}
	}
	if !p.Closed {
		t.Error("Closed not set")
	}
	if p.Offset() != 6 {
		t.Errorf("Offset: got %d, want 6", p.Offset())
	}
}

func TestFakePinErrors(t *testing.T) {
	p := NewFakePin(6)
	wantErr := errors.New("line busy")
	p.InputErr = wantErr
	p.DriveErr = wantErr

	if err := p.Input(); !errors.Is(err, wantErr) {
		t.Errorf("Input: got %v, want %v", err, wantErr)
	}
	if err := p.DriveLow(); !errors.Is(err, wantErr) {
		t.Errorf("DriveLow: got %v, want %v", err, wantErr)
	}
	if len(p.Ops) != 0 {
		t.Errorf("failed ops must not be recorded: %v", p.Ops)
	}
}

func TestFakePinFireDeliversEdges(t *testing.T) {
	p := NewFakePin(6)

	// Fire before Notify must not panic.
	p.Fire(time.Now())

	var mu sync.Mutex
	var got []time.Time
	p.Notify(func(ts time.Time) {
		mu.Lock()
		got = append(got, ts)
		mu.Unlock()
	})

	ts1 := time.Unix(100, 0)
	ts2 := ts1.Add(80 * time.Microsecond)
	p.Fire(ts1)
	p.Fire(ts2)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("edges delivered: got %d, want 2", len(got))
	}
	if !got[0].Equal(ts1) || !got[1].Equal(ts2) {
		t.Errorf("timestamps: got %v", got)
	}
}

func TestFakePinOpCount(t *testing.T) {
	p := NewFakePin(6)
	p.DriveLow()
	p.Input()
	p.DriveLow()

	if n := p.OpCount("low"); n != 2 {
		t.Errorf("low count: got %d, want 2", n)
	}
	if n := p.OpCount("input"); n != 1 {
		t.Errorf("input count: got %d, want 1", n)
	}
	if n := p.OpCount("close"); n != 0 {
		t.Errorf("close count: got %d, want 0", n)
	}
}
