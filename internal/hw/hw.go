// Package hw abstracts the single GPIO line the sensor hangs off.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package hw

import "time"

// EdgeHandler receives the timestamp of one electrical edge. Handlers must
// be fast and non-blocking: they run on the event delivery path.
type EdgeHandler func(ts time.Time)

// EdgeSource delivers edge timestamps to an installed handler. Both the
// real line and the fake implement it alongside Pin.
type EdgeSource interface {
	// Notify installs the handler. Edges arriving before the first call
	// are dropped.
	Notify(h EdgeHandler)
}

// Pin controls the direction and level of the sensor line. The line idles
// as a pulled-up input; the trigger waveform briefly drives it low.
type Pin interface {
	// Input returns the line to passive input with pull-up and both-edge
	// event detection.
	Input() error

	// DriveLow reconfigures the line as an output held low.
	DriveLow() error

	// Offset returns the line offset within its chip.
	Offset() int

	// Close releases the line.
	Close() error
}

// Default wiring (BCM numbering).
const (
	DefaultChip = "gpiochip0"
	DefaultPin  = 6 // DHT22 data line
)
