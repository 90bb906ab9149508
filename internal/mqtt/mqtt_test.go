package mqtt

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/KingBrewer/DHT22-sensor-driver/internal/dht22"
)

func TestFormatPayload(t *testing.T) {
	event := ReadingEvent{
		Timestamp: time.Date(2026, 8, 2, 10, 30, 0, 0, time.UTC),
		Reading:   dht22.Reading{Temperature: 251, Humidity: 400},
	}

	data, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("FormatPayload: %v", err)
	}

	want := `{"dht22":{"timestamp":"2026-08-02T10:30:00Z","temperature":"25.1","humidity":"40.0"}}`
	if string(data) != want {
		t.Errorf("payload:\n got %s\nwant %s", data, want)
	}
}

func TestFormatPayloadNegativeTemperature(t *testing.T) {
	event := ReadingEvent{
		Timestamp: time.Date(2026, 1, 15, 3, 0, 0, 0, time.UTC),
		Reading:   dht22.Reading{Temperature: -105, Humidity: 812},
	}

	data, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("FormatPayload: %v", err)
	}

	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.DHT22.Temperature != "-10.5" {
		t.Errorf("temperature: got %q, want \"-10.5\"", payload.DHT22.Temperature)
	}
	if payload.DHT22.Humidity != "81.2" {
		t.Errorf("humidity: got %q, want \"81.2\"", payload.DHT22.Humidity)
	}
}

func TestFormatPayloadTimestampUTC(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	event := ReadingEvent{
		Timestamp: time.Date(2026, 8, 2, 12, 30, 0, 0, loc),
		Reading:   dht22.Reading{},
	}

	data, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("FormatPayload: %v", err)
	}

	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.DHT22.Timestamp != "2026-08-02T10:30:00Z" {
		t.Errorf("timestamp not normalized to UTC: got %q", payload.DHT22.Timestamp)
	}
}

func TestFormatSystemPayload(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 8, 2, 10, 30, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	data, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("FormatSystemPayload: %v", err)
	}

	want := `{"system":{"timestamp":"2026-08-02T10:30:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(data) != want {
		t.Errorf("payload:\n got %s\nwant %s", data, want)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 8, 2, 10, 30, 0, 0, time.UTC),
		Event:     "HEARTBEAT",
	}

	data, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("FormatSystemPayload: %v", err)
	}
	if bytes.Contains(data, []byte("reason")) {
		t.Errorf("empty reason should be omitted: %s", data)
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	event := SystemEvent{
		Timestamp:  time.Now(),
		Event:      "STARTUP",
		RawPayload: raw,
	}

	data, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("FormatSystemPayload: %v", err)
	}
	if !bytes.Equal(data, raw) {
		t.Errorf("raw payload not passed through: got %s", data)
	}
}

func TestFakePublisherRecordsEvents(t *testing.T) {
	fake := NewFakePublisher()

	event := ReadingEvent{
		Timestamp: time.Now(),
		Reading:   dht22.Reading{Temperature: 200, Humidity: 500},
	}
	if err := fake.PublishReading(event); err != nil {
		t.Fatalf("PublishReading: %v", err)
	}
	if len(fake.Events) != 1 || len(fake.Payloads) != 1 {
		t.Fatalf("expected 1 event and 1 payload, got %d/%d", len(fake.Events), len(fake.Payloads))
	}

	if err := fake.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "HEARTBEAT"}); err != nil {
		t.Fatalf("PublishSystem: %v", err)
	}
	if len(fake.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(fake.SystemEvents))
	}

	fake.Reset()
	if len(fake.Events) != 0 || len(fake.SystemEvents) != 0 {
		t.Error("Reset did not clear recorded events")
	}
}
