package dht22

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/KingBrewer/DHT22-sensor-driver/internal/hw"
)

// task identifies a unit of deferred work. The edge path and the timer
// callbacks only ever submit tasks; the worker goroutine executes them.
type task int

const (
	taskTrigger task = iota
	taskProcess
	taskCleanup
)

// Counters is a snapshot of the driver's diagnostic counters.
type Counters struct {
	Readings        int64 `json:"readings"`
	ChecksumErrors  int64 `json:"checksum_errors"`
	UnexpectedEdges int64 `json:"unexpected_edges"`
	StuckResets     int64 `json:"stuck_resets"`
	Retries         int64 `json:"retries"`
	DroppedTasks    int64 `json:"dropped_tasks"`
}

type counters struct {
	readings        atomic.Int64
	checksumErrors  atomic.Int64
	unexpectedEdges atomic.Int64
	stuckResets     atomic.Int64
	retries         atomic.Int64
	droppedTasks    atomic.Int64
}

// timings groups the protocol delays so tests can shrink them. Production
// code always uses the defaults.
type timings struct {
	preDelay     time.Duration
	pullLow      time.Duration
	postRelease  time.Duration
	minInterval  time.Duration
	retryTimeout time.Duration
	cooldown     time.Duration
	initialDelay time.Duration
}

func defaultTimings() timings {
	return timings{
		preDelay:     defaultPreDelay,
		pullLow:      defaultPullLow,
		postRelease:  defaultPostRelease,
		minInterval:  MinInterval,
		retryTimeout: defaultRetryTimeout,
		cooldown:     defaultStuckCooldown,
		initialDelay: defaultInitialDelay,
	}
}

// Options configures a Driver.
type Options struct {
	// Clock supplies time and timers. Defaults to the wall clock; tests
	// inject a mock.
	Clock clock.Clock

	// AutoUpdate enables the cadence timer at startup.
	AutoUpdate bool

	// Interval is the cadence period, clamped to [MinInterval, MaxInterval].
	Interval time.Duration

	// OnReading, if set, is called from the worker goroutine after every
	// checksum-valid decode.
	OnReading func(Reading)
}

// Driver owns one sensor line: capture buffer, state machine, reading store,
// retry context and both timers. All collaborators share it by reference;
// its fields are internally synchronized.
type Driver struct {
	pin hw.Pin
	clk clock.Clock

	sm  stateMachine
	buf captureBuffer

	tasks     chan task
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	mu           sync.Mutex // guards schedule + retry state below
	autoUpdate   bool
	interval     time.Duration
	lastTrigger  time.Time
	cadence      *clock.Timer
	cadenceArmed bool
	retryTimer   *clock.Timer
	retryArmed   bool
	retry        bool
	retryCount   int

	store     readingStore
	stats     counters
	onReading func(Reading)

	timings timings
}

// New creates a Driver for the given pin. Start must be called before any
// edges are delivered.
func New(pin hw.Pin, opts Options) *Driver {
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Driver{
		pin:        pin,
		clk:        clk,
		tasks:      make(chan task, 32),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
		autoUpdate: opts.AutoUpdate,
		interval:   ClampInterval(opts.Interval),
		onReading:  opts.OnReading,
		timings:    defaultTimings(),
	}
}

// Start launches the worker goroutine and arms the cadence timer. The first
// cycle fires almost immediately; in manual mode the cadence timer does not
// re-arm after it.
func (d *Driver) Start() {
	go d.worker()

	d.mu.Lock()
	d.retryTimer = d.clk.AfterFunc(d.timings.retryTimeout, d.retryFire)
	d.retryTimer.Stop()
	d.cadence = d.clk.AfterFunc(d.timings.initialDelay, d.cadenceFire)
	d.cadenceArmed = true
	d.mu.Unlock()
}

// Close cancels both timers and stops the worker. The caller releases the
// pin afterwards, so no callback can fire against a torn-down line.
// Safe to call more than once.
func (d *Driver) Close() error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		if d.cadence != nil {
			d.cadence.Stop()
		}
		if d.retryTimer != nil {
			d.retryTimer.Stop()
		}
		d.cadenceArmed = false
		d.retryArmed = false
		d.mu.Unlock()

		close(d.done)
		<-d.stopped
	})
	return nil
}

// Pin returns the line offset the driver was built with.
func (d *Driver) Pin() int { return d.pin.Offset() }

// OnEdge records one edge timestamp. It is the hot path: O(1), non-blocking
// and allocation-free. Edges outside an armed cycle, or beyond the expected
// count, poison the cycle instead of touching the buffer.
func (d *Driver) OnEdge(ts time.Time) {
	if !d.sm.Triggered() || d.buf.Full() {
		d.stats.unexpectedEdges.Add(1)
		d.sm.MarkError()
		d.sm.Advance()
		d.submit(taskProcess)
		return
	}

	d.buf.Record(ts)

	if d.buf.Full() {
		d.sm.MarkFinished()
		d.sm.Advance()
		d.submit(taskProcess)
	}
}

// TriggerNow requests a manual cycle. Requests inside the minimum
// re-read interval are dropped silently; the return value exists for
// logging and tests, not for the control surface.
func (d *Driver) TriggerNow() bool {
	d.mu.Lock()
	ok := d.lastTrigger.IsZero() || d.clk.Now().Sub(d.lastTrigger) > d.timings.minInterval
	d.mu.Unlock()
	if !ok {
		return false
	}
	d.submit(taskTrigger)
	return true
}

// AutoUpdate reports whether the cadence timer is enabled.
func (d *Driver) AutoUpdate() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.autoUpdate
}

// SetAutoUpdate toggles the cadence timer. Enabling re-arms it if it is not
// already pending.
func (d *Driver) SetAutoUpdate(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.autoUpdate = enabled
	if enabled && !d.cadenceArmed && d.cadence != nil {
		d.cadence.Reset(d.interval)
		d.cadenceArmed = true
	}
}

// Interval returns the cadence period.
func (d *Driver) Interval() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.interval
}

// SetInterval sets the cadence period, clamped to the supported range, and
// returns the value actually stored. Takes effect on the next cadence fire.
func (d *Driver) SetInterval(interval time.Duration) time.Duration {
	clamped := ClampInterval(interval)
	d.mu.Lock()
	d.interval = clamped
	d.mu.Unlock()
	return clamped
}

// LastReading returns the most recent checksum-valid reading, its
// timestamp, and whether any reading has been produced yet.
func (d *Driver) LastReading() (Reading, time.Time, bool) {
	return d.store.Get()
}

// Counters returns a snapshot of the diagnostic counters.
func (d *Driver) Counters() Counters {
	return Counters{
		Readings:        d.stats.readings.Load(),
		ChecksumErrors:  d.stats.checksumErrors.Load(),
		UnexpectedEdges: d.stats.unexpectedEdges.Load(),
		StuckResets:     d.stats.stuckResets.Load(),
		Retries:         d.stats.retries.Load(),
		DroppedTasks:    d.stats.droppedTasks.Load(),
	}
}

// submit hands work to the worker without blocking. Dropping under pressure
// protects the edge path; the counter makes the drop observable.
func (d *Driver) submit(t task) {
	select {
	case d.tasks <- t:
	default:
		d.stats.droppedTasks.Add(1)
	}
}

func (d *Driver) worker() {
	defer close(d.stopped)
	for {
		select {
		case <-d.done:
			return
		case t := <-d.tasks:
			switch t {
			case taskTrigger:
				d.runTrigger()
			case taskProcess:
				d.process()
			case taskCleanup:
				d.cleanup()
			}
		}
	}
}

// runTrigger drives the wake-up waveform. Runs only on the worker because
// it blocks for over a hundred milliseconds.
func (d *Driver) runTrigger() {
	if d.sm.State() != StateIdle {
		// One cycle in flight at a time; the guard keeps this rare.
		log.Printf("dht22: trigger skipped, cycle in %s state", d.sm.State())
		return
	}

	// State first: no edge may race ahead of the arm.
	d.sm.MarkTriggered()
	d.sm.Advance()

	d.mu.Lock()
	d.lastTrigger = d.clk.Now()
	manual := !d.autoUpdate
	if manual && !d.retryArmed {
		// Safety net in case the sensor never answers.
		d.retry = true
		d.retryArmed = true
		d.retryTimer.Reset(d.timings.retryTimeout)
	}
	d.mu.Unlock()

	if !d.sleep(d.timings.preDelay) {
		return
	}
	if err := d.pin.DriveLow(); err != nil {
		log.Printf("dht22: drive low: %v", err)
		d.cleanup()
		return
	}
	if !d.sleep(d.timings.pullLow) {
		return
	}
	if err := d.pin.Input(); err != nil {
		log.Printf("dht22: release line: %v", err)
		d.cleanup()
		return
	}
	d.sleep(d.timings.postRelease)
}

// process handles a completed transition: decode on finished, cleanup on
// error. Runs only on the worker.
func (d *Driver) process() {
	switch d.sm.Advance() {
	case StateFinished:
		d.finishCycle()
	case StateError:
		d.cleanup()
	}
}

func (d *Driver) finishCycle() {
	frame := d.buf.snapshot()
	reading, err := decode(&frame)
	if err != nil {
		d.stats.checksumErrors.Add(1)
		log.Printf("dht22: %v", err)
		d.cleanup()
		return
	}

	d.store.Set(reading, d.clk.Now())
	d.stats.readings.Add(1)

	d.mu.Lock()
	d.retry = false
	d.retryCount = 0
	d.mu.Unlock()

	log.Printf("dht22: temperature %s C, humidity %s%%",
		reading.TemperatureString(), reading.HumidityString())

	if d.onReading != nil {
		d.onReading(reading)
	}
	d.cleanup()
}

// cleanup returns the decoder to idle. Safe to call on an already-idle
// driver; it never touches the reading store or the retry context.
func (d *Driver) cleanup() {
	d.buf.Reset()
	d.sm.Reset()
}

// cadenceFire runs in timer context: it only inspects cheap state, submits
// work and re-arms. If the previous cycle never completed, force a reset
// and push the next attempt out by a cooldown so errors don't compound.
func (d *Driver) cadenceFire() {
	d.mu.Lock()
	defer d.mu.Unlock()

	delay := d.interval
	if st := d.sm.State(); st != StateIdle || d.buf.Count() > 0 {
		// A cycle that never finished, including one where the sensor
		// produced no edges at all. Force it back to idle or the
		// trigger below is refused and the decoder stays wedged.
		log.Printf("dht22: resetting stuck cycle in %s state, captured %d of %d edges",
			st, d.buf.Count(), expectedEdgeCount)
		d.stats.stuckResets.Add(1)
		d.submit(taskCleanup)
		delay += d.timings.cooldown
	}

	d.submit(taskTrigger)

	if d.autoUpdate {
		d.cadence.Reset(delay)
		return
	}
	d.cadenceArmed = false
}

// retryFire runs in timer context. Bounded re-trigger after a failed manual
// cycle; once retries are exhausted or no retry is pending, the retry
// context resets and the timer stays disarmed.
func (d *Driver) retryFire() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.autoUpdate && d.retry && d.retryCount < maxRetryCount {
		d.retryCount++
		d.stats.retries.Add(1)
		log.Printf("dht22: no valid reading, retrying (attempt %d of %d)", d.retryCount, maxRetryCount)
		d.submit(taskCleanup)
		d.submit(taskTrigger)
		d.retryTimer.Reset(d.timings.retryTimeout)
		return
	}

	if d.retry {
		// Giving up on a failed cycle: return the decoder to idle so a
		// later manual trigger is not refused.
		d.submit(taskCleanup)
	}
	d.retry = false
	d.retryCount = 0
	d.retryArmed = false
}

// sleep waits on the injected clock, aborting early on Close.
func (d *Driver) sleep(dur time.Duration) bool {
	if dur <= 0 {
		return true
	}
	t := d.clk.Timer(dur)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-d.done:
		return false
	}
}
