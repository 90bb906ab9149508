// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/KingBrewer/DHT22-sensor-driver/internal/dht22"
)

// Topic is the MQTT topic for sensor readings.
const Topic = "sensors/dht22/readings"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "sensors/dht22/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishReading sends a sensor reading to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishReading(event ReadingEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// ReadingEvent is one checksum-valid reading to be published.
type ReadingEvent struct {
	Timestamp time.Time
	Reading   dht22.Reading
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	DHT22 ReadingPayload `json:"dht22"`
}

// ReadingPayload contains the reading details. Values are decimal strings
// in tenths so subscribers never see float rounding artifacts.
type ReadingPayload struct {
	Timestamp   string `json:"timestamp"`
	Temperature string `json:"temperature"`
	Humidity    string `json:"humidity"`
}

// FormatPayload creates the JSON payload for a reading event.
func FormatPayload(event ReadingEvent) ([]byte, error) {
	payload := Payload{
		DHT22: ReadingPayload{
			Timestamp:   event.Timestamp.UTC().Format(time.RFC3339),
			Temperature: event.Reading.TemperatureString(),
			Humidity:    event.Reading.HumidityString(),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
