// Package status provides a thread-safe status tracker for the dht22-sensor
// daemon. It is read by the HTTP control surface and embedded in MQTT
// system event payloads.
package status

import (
	"sync"
	"time"

	"github.com/KingBrewer/DHT22-sensor-driver/internal/dht22"
)

// Config contains daemon configuration for display.
type Config struct {
	Chip        string
	Pin         int
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
}

// Schedule is the externally mutable part of the driver configuration.
type Schedule struct {
	AutoUpdate bool
	IntervalMs int64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Reading       dht22.Reading
	ReadingAt     time.Time
	HaveReading   bool
	Counters      dht22.Counters
	Schedule      Schedule
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// SetReading records a checksum-valid reading.
func (t *Tracker) SetReading(r dht22.Reading, at time.Time) {
	t.mu.Lock()
	t.snap.Reading = r
	t.snap.ReadingAt = at
	t.snap.HaveReading = true
	t.mu.Unlock()
}

// SetCounters refreshes the diagnostic counters.
func (t *Tracker) SetCounters(c dht22.Counters) {
	t.mu.Lock()
	t.snap.Counters = c
	t.mu.Unlock()
}

// SetSchedule records the current auto-update configuration.
func (t *Tracker) SetSchedule(autoUpdate bool, interval time.Duration) {
	t.mu.Lock()
	t.snap.Schedule = Schedule{AutoUpdate: autoUpdate, IntervalMs: interval.Milliseconds()}
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
