// Package dht22 decodes readings from a DHT22 temperature/humidity sensor
// driven over a single GPIO line. The host wakes the sensor with a timed
// pull-low pulse, then measures the spacing of the edges the sensor produces
// in response. Edge timestamps arrive on the hot path (OnEdge); everything
// that may block or allocate runs on a single worker goroutine.
package dht22

import "time"

// One reading produces 85 observable edges: the trigger waveform and the
// sensor's start response (5 edges carrying no data), then 2 edges per bit
// for 40 bits. Deltas are measured between consecutive edges, so the data
// region is read as (prep, pulse) pairs where only the pulse width encodes
// the bit.
const (
	expectedEdgeCount = 85
	preambleEdgeCount = 5
	dataEdgeCount     = 80

	bitsPerByte     = 8
	bytesPerReading = 5
)

// bitThresholdUS separates a "0" pulse (~26us) from a "1" pulse (~70us).
// The sensor's fixed 50us prep pulse sits conveniently between the two.
const bitThresholdUS = 50

// Trigger waveform per the datasheet: hold the line passive high, pull it
// low for at least 1ms (we use a wide margin), release and wait for the
// sensor to take over.
const (
	defaultPreDelay    = 100 * time.Millisecond
	defaultPullLow     = 10 * time.Millisecond
	defaultPostRelease = 40 * time.Microsecond
)

// MinInterval is the shortest allowed spacing between trigger cycles. The
// sensor needs 2s to recover between readings; manual trigger requests
// inside this window are dropped.
const MinInterval = 2 * time.Second

// MaxInterval caps the auto-update cadence.
const MaxInterval = 10 * time.Minute

const (
	defaultRetryTimeout  = 2 * time.Second
	maxRetryCount        = 5
	defaultStuckCooldown = time.Second

	// First cadence fire happens almost immediately after Start so the
	// daemon has a reading as soon as the sensor allows.
	defaultInitialDelay = 100 * time.Microsecond
)

// State is the decoder lifecycle state.
type State int32

const (
	// StateIdle means no trigger cycle is in flight.
	StateIdle State = iota
	// StateResponding means a trigger was sent and edges are expected.
	StateResponding
	// StateFinished means the capture buffer holds a complete edge set.
	StateFinished
	// StateError means an unexpected edge or forced reset ended the cycle.
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResponding:
		return "responding"
	case StateFinished:
		return "finished"
	case StateError:
		return "error"
	}
	return "unknown"
}

// ClampInterval forces an auto-update interval into the supported range.
func ClampInterval(d time.Duration) time.Duration {
	if d < MinInterval {
		return MinInterval
	}
	if d > MaxInterval {
		return MaxInterval
	}
	return d
}
