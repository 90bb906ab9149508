//go:build !linux

package hw

import "errors"

// RealLine is not available on non-Linux platforms.
type RealLine struct{}

// NewRealLine returns an error on non-Linux platforms.
func NewRealLine(chipName string, offset int) (*RealLine, error) {
	return nil, errors.New("hw: not supported on this platform (requires Linux)")
}

// Notify is not implemented on non-Linux platforms.
func (r *RealLine) Notify(h EdgeHandler) {}

// Input is not implemented on non-Linux platforms.
func (r *RealLine) Input() error {
	return errors.New("hw: not supported")
}

// DriveLow is not implemented on non-Linux platforms.
func (r *RealLine) DriveLow() error {
	return errors.New("hw: not supported")
}

// Offset is not implemented on non-Linux platforms.
func (r *RealLine) Offset() int { return 0 }

// Close is not implemented on non-Linux platforms.
func (r *RealLine) Close() error { return nil }
