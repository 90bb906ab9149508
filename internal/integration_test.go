package internal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/KingBrewer/DHT22-sensor-driver/internal/dht22"
	"github.com/KingBrewer/DHT22-sensor-driver/internal/hw"
	"github.com/KingBrewer/DHT22-sensor-driver/internal/mqtt"
	"github.com/KingBrewer/DHT22-sensor-driver/internal/status"
)

// edgeSet returns timestamps for a full sensor response encoding the given
// bytes: 5 preamble edges, then a 50us prep pulse and a 70us/26us data
// pulse per bit, MSB first.
func edgeSet(base time.Time, data [5]byte) []time.Time {
	edges := []time.Time{base}
	ts := base
	push := func(us int) {
		ts = ts.Add(time.Duration(us) * time.Microsecond)
		edges = append(edges, ts)
	}
	for i := 0; i < 4; i++ {
		push(80)
	}
	for _, b := range data {
		for bit := 7; bit >= 0; bit-- {
			push(50)
			if b>>uint(bit)&1 == 1 {
				push(70)
			} else {
				push(26)
			}
		}
	}
	return edges
}

// TestIntegrationFullFlow drives a complete cycle from GPIO edges to the
// MQTT payload using fakes. The driver runs with real protocol timings, so
// the trigger waveform takes a bit over 100ms of wall time.
func TestIntegrationFullFlow(t *testing.T) {
	pin := hw.NewFakePin(6)
	readings := make(chan dht22.Reading, 1)
	drv := dht22.New(pin, dht22.Options{
		OnReading: func(r dht22.Reading) { readings <- r },
	})
	pin.Notify(drv.OnEdge)
	drv.Start()
	defer drv.Close()

	// The startup cycle fires on its own; wait for the waveform to finish.
	deadline := time.Now().Add(3 * time.Second)
	for pin.OpCount("input") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("trigger waveform never completed")
		}
		time.Sleep(time.Millisecond)
	}

	// humidity 40.0%, temperature 25.1 C
	for _, ts := range edgeSet(time.Unix(2000, 0), [5]byte{0x01, 0x90, 0x00, 0xFB, 0x8C}) {
		pin.Fire(ts)
	}

	var reading dht22.Reading
	select {
	case reading = <-readings:
	case <-time.After(3 * time.Second):
		t.Fatal("no reading produced")
	}

	if reading.Temperature != 251 || reading.Humidity != 400 {
		t.Fatalf("unexpected reading: %+v", reading)
	}

	// Publish the way the daemon loop does and check the wire format.
	publisher := mqtt.NewFakePublisher()
	at := time.Date(2026, 8, 2, 10, 30, 0, 0, time.UTC)
	if err := publisher.PublishReading(mqtt.ReadingEvent{Timestamp: at, Reading: reading}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(publisher.Payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(publisher.Payloads))
	}
	var payload struct {
		DHT22 struct {
			Timestamp   string `json:"timestamp"`
			Temperature string `json:"temperature"`
			Humidity    string `json:"humidity"`
		} `json:"dht22"`
	}
	if err := json.Unmarshal(publisher.Payloads[0], &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.DHT22.Temperature != "25.1" {
		t.Errorf("payload temperature: got %q, want \"25.1\"", payload.DHT22.Temperature)
	}
	if payload.DHT22.Humidity != "40.0" {
		t.Errorf("payload humidity: got %q, want \"40.0\"", payload.DHT22.Humidity)
	}
	if payload.DHT22.Timestamp != "2026-08-02T10:30:00Z" {
		t.Errorf("payload timestamp: got %q", payload.DHT22.Timestamp)
	}

	// And the status snapshot the control surface would serve.
	tracker := status.NewTracker(time.Now(), status.Config{Chip: "gpiochip0", Pin: 6})
	tracker.SetReading(reading, at)
	tracker.SetCounters(drv.Counters())
	snap := tracker.Snapshot()
	if !snap.HaveReading {
		t.Error("snapshot should report a reading")
	}
	if snap.Counters.Readings != 1 {
		t.Errorf("snapshot readings counter: got %d, want 1", snap.Counters.Readings)
	}
}

// TestIntegrationGuardDropsEarlyTrigger verifies a manual trigger inside
// the minimum re-read interval does not produce a second waveform.
func TestIntegrationGuardDropsEarlyTrigger(t *testing.T) {
	pin := hw.NewFakePin(6)
	drv := dht22.New(pin, dht22.Options{})
	pin.Notify(drv.OnEdge)
	drv.Start()
	defer drv.Close()

	deadline := time.Now().Add(3 * time.Second)
	for pin.OpCount("input") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("trigger waveform never completed")
		}
		time.Sleep(time.Millisecond)
	}

	if drv.TriggerNow() {
		t.Error("manual trigger right after a cycle must be dropped")
	}
	if got := pin.OpCount("low"); got != 1 {
		t.Errorf("waveform count: got %d, want 1", got)
	}
}
