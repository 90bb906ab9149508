// Command dht22-sensor reads a DHT22 temperature/humidity sensor over a
// GPIO line, publishes readings to MQTT and exposes an HTTP control surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/KingBrewer/DHT22-sensor-driver/internal/dht22"
	"github.com/KingBrewer/DHT22-sensor-driver/internal/hw"
	"github.com/KingBrewer/DHT22-sensor-driver/internal/mqtt"
	"github.com/KingBrewer/DHT22-sensor-driver/internal/status"
	"github.com/KingBrewer/DHT22-sensor-driver/internal/web"
)

func main() {
	chip := flag.String("chip", hw.DefaultChip, "GPIO chip device name")
	pin := flag.Int("pin", hw.DefaultPin, "Line offset of the sensor data pin")
	autoUpdate := flag.Bool("autoupdate", false, "Re-trigger the sensor automatically")
	interval := flag.Duration("interval", dht22.MinInterval, "Auto-update interval (clamped to [2s, 10m])")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", ":8080", "HTTP control surface address (empty to disable)")
	printReading := flag.Bool("print-reading", false, "Take one reading, print it and exit")

	flag.Parse()

	if err := run(*chip, *pin, *autoUpdate, *interval, *broker, *heartbeat, *httpAddr, *printReading); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(chip string, pin int, autoUpdate bool, interval time.Duration, broker string, heartbeat time.Duration, httpAddr string, printReading bool) error {
	// Initialize the sensor line
	line, err := hw.NewRealLine(chip, pin)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer line.Close()

	readings := make(chan dht22.Reading, 16)
	drv := dht22.New(line, dht22.Options{
		Clock:      clock.New(),
		AutoUpdate: autoUpdate,
		Interval:   interval,
		OnReading: func(r dht22.Reading) {
			// Never block the driver worker on a slow consumer.
			select {
			case readings <- r:
			default:
				log.Printf("reading dropped, consumer too slow")
			}
		},
	})
	line.Notify(drv.OnEdge)
	drv.Start()
	defer drv.Close()

	// One-shot mode: wait for the startup cycle to produce a reading.
	if printReading {
		select {
		case r := <-readings:
			fmt.Print(formatReading(r))
			return nil
		case <-time.After(10 * time.Second):
			return fmt.Errorf("no reading within 10s")
		}
	}

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(broker)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Chip:        chip,
		Pin:         pin,
		HeartbeatMs: heartbeat.Milliseconds(),
		Broker:      broker,
		HTTPAddr:    httpAddr,
	})
	tracker.SetSchedule(drv.AutoUpdate(), drv.Interval())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP control surface
	if httpAddr != "" {
		srv := web.New(httpAddr, tracker, drv)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http control surface listening on %s", httpAddr)
	}

	log.Printf("started: chip=%s pin=%d autoupdate=%v interval=%v broker=%s heartbeat=%v",
		chip, pin, autoUpdate, drv.Interval(), broker, heartbeat)

	var hb <-chan time.Time
	if heartbeat > 0 {
		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()
		hb = ticker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(drv, publisher, publisher, tracker, readings, hb, sigCh)
}

func runLoop(drv *dht22.Driver, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, readings <-chan dht22.Reading, hb <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: time.Now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				refreshTracker(drv, tracker, mqttStatus)
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case r := <-readings:
			now := time.Now()
			if tracker != nil {
				tracker.SetReading(r, now)
				refreshTracker(drv, tracker, mqttStatus)
			}
			event := mqtt.ReadingEvent{Timestamp: now, Reading: r}
			if err := publisher.PublishReading(event); err != nil {
				log.Printf("publish error: %v", err)
				// Don't crash on publish failure
			}

		case <-hb:
			if tracker != nil {
				refreshTracker(drv, tracker, mqttStatus)
			}
			c := drv.Counters()
			log.Printf("heartbeat: readings=%d checksum_errors=%d unexpected_edges=%d stuck_resets=%d retries=%d",
				c.Readings, c.ChecksumErrors, c.UnexpectedEdges, c.StuckResets, c.Retries)

			hbEvent := mqtt.SystemEvent{
				Timestamp: time.Now(),
				Event:     "HEARTBEAT",
			}
			if tracker != nil {
				snap := tracker.Snapshot()
				hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}
		}
	}
}

// refreshTracker pulls the driver-side state the tracker cannot observe on
// its own.
func refreshTracker(drv *dht22.Driver, tracker *status.Tracker, mqttStatus mqtt.ConnectionStatus) {
	tracker.SetCounters(drv.Counters())
	tracker.SetSchedule(drv.AutoUpdate(), drv.Interval())
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
}

// formatReading renders a reading for --print-reading mode.
func formatReading(r dht22.Reading) string {
	return fmt.Sprintf("temperature: %s C\nhumidity: %s %%\n",
		r.TemperatureString(), r.HumidityString())
}
