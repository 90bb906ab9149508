package hw

import (
	"sync"
	"time"
)

// FakePin is a test double for the sensor line. It records the direction
// changes the driver performs and lets tests deliver scripted edges.
type FakePin struct {
	mu sync.Mutex

	// Ops records direction changes in order: "input", "low", "close".
	Ops []string

	// InputErr, if set, is returned by Input.
	InputErr error

	// DriveErr, if set, is returned by DriveLow.
	DriveErr error

	// Line is the reported offset.
	Line int

	// Closed tracks if Close was called.
	Closed bool

	handler EdgeHandler
}

// NewFakePin creates a FakePin reporting the given offset.
func NewFakePin(offset int) *FakePin {
	return &FakePin{Line: offset}
}

// Notify installs the edge handler, mirroring RealLine.
func (p *FakePin) Notify(h EdgeHandler) {
	p.mu.Lock()
	p.handler = h
	p.mu.Unlock()
}

// Fire delivers one edge with the given timestamp to the handler.
func (p *FakePin) Fire(ts time.Time) {
	p.mu.Lock()
	h := p.handler
	p.mu.Unlock()
	if h != nil {
		h(ts)
	}
}

// Input records the direction change.
func (p *FakePin) Input() error {
	if p.InputErr != nil {
		return p.InputErr
	}
	p.mu.Lock()
	p.Ops = append(p.Ops, "input")
	p.mu.Unlock()
	return nil
}

// DriveLow records the direction change.
func (p *FakePin) DriveLow() error {
	if p.DriveErr != nil {
		return p.DriveErr
	}
	p.mu.Lock()
	p.Ops = append(p.Ops, "low")
	p.mu.Unlock()
	return nil
}

// Offset returns the configured offset.
func (p *FakePin) Offset() int { return p.Line }

// Close marks the pin as closed.
func (p *FakePin) Close() error {
	p.mu.Lock()
	p.Ops = append(p.Ops, "close")
	p.Closed = true
	p.mu.Unlock()
	return nil
}

// OpCount returns how many times the given op was recorded.
func (p *FakePin) OpCount(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, o := range p.Ops {
		if o == op {
			n++
		}
	}
	return n
}
