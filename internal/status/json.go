package status

import (
	"encoding/json"
	"time"

	"github.com/KingBrewer/DHT22-sensor-driver/internal/dht22"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string         `json:"event,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	Temperature   string         `json:"temperature"`
	Humidity      string         `json:"humidity"`
	HaveReading   bool           `json:"have_reading"`
	ReadingAge    int64          `json:"reading_age_seconds"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Counters      dht22.Counters `json:"counters"`
	Schedule      ScheduleJSON   `json:"schedule"`
	Config        ConfigJSON     `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ScheduleJSON is the JSON representation of the driver schedule.
type ScheduleJSON struct {
	AutoUpdate bool  `json:"autoupdate"`
	IntervalMs int64 `json:"interval_ms"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Chip        string `json:"chip"`
	Pin         int    `json:"pin"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	age := int64(0)
	if snap.HaveReading {
		age = int64(snap.Now.Sub(snap.ReadingAt).Truncate(time.Second).Seconds())
	}

	return StatusInner{
		Temperature:   snap.Reading.TemperatureString(),
		Humidity:      snap.Reading.HumidityString(),
		HaveReading:   snap.HaveReading,
		ReadingAge:    age,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counters:      snap.Counters,
		Schedule: ScheduleJSON{
			AutoUpdate: snap.Schedule.AutoUpdate,
			IntervalMs: snap.Schedule.IntervalMs,
		},
		Config: ConfigJSON{
			Chip:        snap.Config.Chip,
			Pin:         snap.Config.Pin,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
