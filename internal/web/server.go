// Package web exposes the daemon's control points over HTTP: the status
// page, the last reading, and the trigger/auto-update knobs that mirror
// what a kernel driver would surface as sysfs attributes.
package web

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/KingBrewer/DHT22-sensor-driver/internal/dht22"
	"github.com/KingBrewer/DHT22-sensor-driver/internal/status"
)

// Controller is the write side of the control surface, implemented by the
// sensor driver.
type Controller interface {
	// TriggerNow requests a manual cycle; requests inside the minimum
	// re-read interval are dropped.
	TriggerNow() bool

	// AutoUpdate reports whether periodic re-triggering is enabled.
	AutoUpdate() bool

	// SetAutoUpdate toggles periodic re-triggering.
	SetAutoUpdate(enabled bool)

	// Interval returns the re-trigger interval.
	Interval() time.Duration

	// SetInterval sets the re-trigger interval and returns the clamped
	// value actually applied.
	SetInterval(d time.Duration) time.Duration

	// LastReading returns the last valid reading, if any.
	LastReading() (dht22.Reading, time.Time, bool)

	// Pin returns the configured line offset.
	Pin() int
}

// Server serves the control surface over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	ctrl       Controller
}

// New creates a Server backed by the given tracker and controller.
func New(addr string, tracker *status.Tracker, ctrl Controller) *Server {
	s := &Server{tracker: tracker, ctrl: ctrl}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/temperature", s.handleTemperature)
	mux.HandleFunc("/humidity", s.handleHumidity)
	mux.HandleFunc("/pin", s.handlePin)
	mux.HandleFunc("/autoupdate", s.handleAutoUpdate)
	mux.HandleFunc("/interval", s.handleInterval)
	mux.HandleFunc("/trigger", s.handleTrigger)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// handleTemperature serves the last valid temperature as signed tenths.
// A daemon that has not completed a reading yet reports "0.0", matching
// the store's zero value; there is no explicit failure flag here.
func (s *Server) handleTemperature(w http.ResponseWriter, r *http.Request) {
	reading, _, _ := s.ctrl.LastReading()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "%s\n", reading.TemperatureString())
}

func (s *Server) handleHumidity(w http.ResponseWriter, r *http.Request) {
	reading, _, _ := s.ctrl.LastReading()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "%s\n", reading.HumidityString())
}

func (s *Server) handlePin(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "%d\n", s.ctrl.Pin())
}

func (s *Server) handleAutoUpdate(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "%d\n", boolToInt(s.ctrl.AutoUpdate()))
	case http.MethodPost:
		body, err := readBody(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		enabled, err := parseBoolValue(body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.ctrl.SetAutoUpdate(enabled)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleInterval(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "%d\n", s.ctrl.Interval().Milliseconds())
	case http.MethodPost:
		body, err := readBody(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		d, err := parseInterval(body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		applied := s.ctrl.SetInterval(d)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "%d\n", applied.Milliseconds())
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleTrigger requests a manual cycle. Requests inside the minimum
// interval are dropped without an error, so the response is 204 either way.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.ctrl.TriggerNow()
	w.WriteHeader(http.StatusNoContent)
}

func readBody(r *http.Request) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, 64))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// parseBoolValue accepts sysfs-style values ("1"/"0") as well as the usual
// spellings.
func parseBoolValue(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "on", "yes":
		return true, nil
	case "0", "false", "off", "no":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

// parseInterval accepts a Go duration ("5s") or a bare millisecond count
// ("5000").
func parseInterval(s string) (time.Duration, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q", s)
	}
	return d, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
