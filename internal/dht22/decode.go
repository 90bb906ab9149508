package dht22

import (
	"fmt"
	"sync"
	"time"
)

// ErrChecksum is returned when a fully captured edge set fails validation.
var ErrChecksum = fmt.Errorf("checksum mismatch")

// Reading is one calibrated measurement. Both values are fixed-point tenths:
// Temperature 251 means 25.1 degrees C, Humidity 400 means 40.0%.
type Reading struct {
	Temperature int
	Humidity    int
}

// TemperatureString formats the temperature as signed tenths, e.g. "-3.4".
func (r Reading) TemperatureString() string {
	return formatTenths(r.Temperature)
}

// HumidityString formats the humidity as unsigned tenths, e.g. "40.0".
func (r Reading) HumidityString() string {
	return formatTenths(r.Humidity)
}

func formatTenths(v int) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%d", sign, v/10, v%10)
}

// decode turns a full capture buffer into a Reading. The preamble deltas are
// skipped; the remaining deltas are consumed two at a time, the second of
// each pair being the data pulse. Bits arrive most significant first.
func decode(deltas *[expectedEdgeCount]int32) (Reading, error) {
	var data [bytesPerReading]byte

	for i := preambleEdgeCount; i < preambleEdgeCount+dataEdgeCount; i += 2 {
		var bit byte
		if deltas[i+1] > bitThresholdUS {
			bit = 1
		}
		byteIdx := (i - preambleEdgeCount) / (bitsPerByte * 2)
		bitIdx := 7 - ((i-preambleEdgeCount)%(bitsPerByte*2))/2
		data[byteIdx] |= bit << bitIdx
	}

	sum := (int(data[0]) + int(data[1]) + int(data[2]) + int(data[3])) & 0xFF
	if sum != int(data[4]) {
		return Reading{}, fmt.Errorf("%w (%d, %d, %d, %d, %d)",
			ErrChecksum, data[0], data[1], data[2], data[3], data[4])
	}

	humidity := int(data[0])<<bitsPerByte | int(data[1])
	temperature := int(data[2]&0x7F)<<bitsPerByte | int(data[3])
	if data[2]&0x80 != 0 {
		temperature = -temperature
	}

	return Reading{Temperature: temperature, Humidity: humidity}, nil
}

// readingStore holds the last checksum-valid reading. Overwritten only on a
// valid decode; read concurrently by the control surface.
type readingStore struct {
	mu    sync.Mutex
	last  Reading
	at    time.Time
	valid bool
}

func (s *readingStore) Set(r Reading, at time.Time) {
	s.mu.Lock()
	s.last = r
	s.at = at
	s.valid = true
	s.mu.Unlock()
}

func (s *readingStore) Get() (Reading, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.at, s.valid
}
