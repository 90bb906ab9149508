package dht22

import (
	"math"
	"sync/atomic"
	"time"
)

// captureBuffer records the microsecond spacing of consecutive edges for one
// trigger cycle. Records arrive on the edge path while Reset runs on the
// worker (the stuck-cycle path resets exactly when a misbehaving sensor may
// still be clocking out edges), so the slots are atomics, not just the
// write position.
type captureBuffer struct {
	deltas   [expectedEdgeCount]atomic.Int32
	count    atomic.Int32
	lastEdge time.Time
}

// Record stores the delta between ts and the previous edge and advances the
// write position. The caller must have checked Full first. O(1) and
// allocation-free: this runs on the edge delivery path. The position is
// published with a compare-and-swap so an edge that straddles a concurrent
// Reset is dropped instead of resurrecting a stale index.
func (b *captureBuffer) Record(ts time.Time) {
	n := b.count.Load()
	if n >= expectedEdgeCount {
		return
	}
	b.deltas[n].Store(clampUS(ts.Sub(b.lastEdge)))
	b.lastEdge = ts
	b.count.CompareAndSwap(n, n+1)
}

// Full reports whether the expected edge count has been captured.
func (b *captureBuffer) Full() bool {
	return b.count.Load() >= expectedEdgeCount
}

// Count returns the number of deltas captured so far. A non-zero count seen
// by the cadence timer means the previous cycle never completed.
func (b *captureBuffer) Count() int {
	return int(b.count.Load())
}

// Reset discards the captured deltas. The previous-edge reference is kept;
// the first delta of the next cycle lands in the preamble region, which the
// decoder skips.
func (b *captureBuffer) Reset() {
	b.count.Store(0)
	for i := range b.deltas {
		b.deltas[i].Store(0)
	}
}

// snapshot copies the captured deltas out for decoding. Called on the
// worker after the finished flag is observed, when no edge is in flight.
func (b *captureBuffer) snapshot() [expectedEdgeCount]int32 {
	var out [expectedEdgeCount]int32
	for i := range b.deltas {
		out[i] = b.deltas[i].Load()
	}
	return out
}

// clampUS converts a duration to whole microseconds, saturating instead of
// overflowing. The very first delta of a cycle is measured against a stale
// reference and can be arbitrarily large.
func clampUS(d time.Duration) int32 {
	us := d.Microseconds()
	if us > math.MaxInt32 {
		return math.MaxInt32
	}
	if us < 0 {
		return 0
	}
	return int32(us)
}
