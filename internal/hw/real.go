//go:build linux

package hw

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RealLine is the sensor line on actual hardware, requested from the Linux
// GPIO character device with both-edge event detection.
type RealLine struct {
	chip    *gpiocdev.Chip
	line    *gpiocdev.Line
	offset  int
	handler atomic.Pointer[EdgeHandler]
}

// NewRealLine opens the chip and requests the line as a pulled-up input
// with edge events enabled. Edges are dropped until Notify installs a
// handler.
func NewRealLine(chipName string, offset int) (*RealLine, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	r := &RealLine{chip: chip, offset: offset}

	line, err := chip.RequestLine(offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(r.handleEvent),
	)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request line %d: %w", offset, err)
	}
	r.line = line

	return r, nil
}

// Notify installs the edge handler. Must be called before the first trigger
// cycle.
func (r *RealLine) Notify(h EdgeHandler) {
	r.handler.Store(&h)
}

func (r *RealLine) handleEvent(evt gpiocdev.LineEvent) {
	h := r.handler.Load()
	if h == nil {
		return
	}
	// The kernel stamps events on the monotonic clock. Only inter-edge
	// deltas matter downstream, so anchor the stamp at the zero time
	// rather than converting to wall time.
	(*h)(time.Unix(0, int64(evt.Timestamp)))
}

// Input returns the line to passive input. Pull-up and edge detection are
// part of the line config, so they are re-applied on every reconfigure.
func (r *RealLine) Input() error {
	err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.WithBothEdges)
	if err != nil {
		return fmt.Errorf("reconfigure line %d as input: %w", r.offset, err)
	}
	return nil
}

// DriveLow holds the line low for the trigger pulse.
func (r *RealLine) DriveLow() error {
	if err := r.line.Reconfigure(gpiocdev.AsOutput(0)); err != nil {
		return fmt.Errorf("reconfigure line %d as output: %w", r.offset, err)
	}
	return nil
}

// Offset returns the line offset within the chip.
func (r *RealLine) Offset() int { return r.offset }

// Close releases the line and the chip. The line is left as a pulled-up
// input so the sensor sees an idle bus across restarts.
func (r *RealLine) Close() error {
	var errs []error

	if r.line != nil {
		if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line %d: %w", r.offset, err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line %d: %w", r.offset, err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
