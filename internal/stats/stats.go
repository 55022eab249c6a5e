// Package stats accumulates per-worker counters and a latency reservoir,
// folding local per-iteration counts into shared atomics at batch
// boundaries so the hot path pays for at most one atomic add per counter
// per batch rather than one per op.
package stats

import (
	"sync"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
	"sync/atomic"
)

// Latency reservoir bounds: 1 microsecond to 60 seconds, recorded in
// nanoseconds, with 3 significant decimal digits of precision — enough to
// distinguish microsecond-scale latencies from second-scale stalls without
// the unbounded memory growth of recording every raw sample.
const (
	latencyMinNs int64 = 1_000
	latencyMaxNs int64 = 60_000_000_000
	latencySigFigs     = 3
)

// Shared holds the counters and latency reservoir visible to callers
// outside the worker (monitors, reporters, a Fleet aggregator). Writers are
// worker goroutines; readers may observe any consistent per-field prefix
// but no cross-field atomicity, per the concurrency model.
type Shared struct {
	BytesRead    atomic.Uint64
	BytesWritten atomic.Uint64
	OpsCompleted atomic.Uint64
	Errors       atomic.Uint64

	mu   sync.Mutex
	hist *hdrhistogram.Histogram

	start time.Time
}

// NewShared builds a Shared ready to accumulate from the given start time.
func NewShared(start time.Time) *Shared {
	return &Shared{
		hist:  hdrhistogram.New(latencyMinNs, latencyMaxNs, latencySigFigs),
		start: start,
	}
}

// RecordLatency inserts a sampled latency (in nanoseconds) into the shared
// reservoir under a short-held lock; only sampled ops ever call this.
func (s *Shared) RecordLatency(ns int64) {
	if ns < latencyMinNs {
		ns = latencyMinNs
	} else if ns > latencyMaxNs {
		ns = latencyMaxNs
	}
	s.mu.Lock()
	_ = s.hist.RecordValue(ns)
	s.mu.Unlock()
}

// Local accumulates counts within a single steady-state iteration before
// they are folded into Shared at a batch boundary. It is owned exclusively
// by one worker goroutine and needs no synchronization.
type Local struct {
	BytesRead    uint64
	BytesWritten uint64
	OpsCompleted uint64
	Errors       uint64
}

// Flush folds l into shared with one atomic add per non-zero counter, then
// resets l to zero.
func (l *Local) Flush(shared *Shared) {
	if l.BytesRead != 0 {
		shared.BytesRead.Add(l.BytesRead)
	}
	if l.BytesWritten != 0 {
		shared.BytesWritten.Add(l.BytesWritten)
	}
	if l.OpsCompleted != 0 {
		shared.OpsCompleted.Add(l.OpsCompleted)
	}
	if l.Errors != 0 {
		shared.Errors.Add(l.Errors)
	}
	*l = Local{}
}

// LatencySummary is the computed percentile breakdown of sampled latencies.
type LatencySummary struct {
	Min  time.Duration
	Mean time.Duration
	P50  time.Duration
	P95  time.Duration
	P99  time.Duration
	Max  time.Duration
}

// Snapshot is the point-in-time view of a worker's statistics.
type Snapshot struct {
	Elapsed      time.Duration
	BytesRead    uint64
	BytesWritten uint64
	OpsCompleted uint64
	Errors       uint64
	Latency      LatencySummary
}

// Snapshot produces a consistent-enough view of shared for reporting.
// Counters are read independently (no cross-field atomicity is promised by
// the concurrency model), and the latency summary is computed from the
// reservoir under its lock.
func (s *Shared) Snapshot(now time.Time) Snapshot {
	snap := Snapshot{
		Elapsed:      now.Sub(s.start),
		BytesRead:    s.BytesRead.Load(),
		BytesWritten: s.BytesWritten.Load(),
		OpsCompleted: s.OpsCompleted.Load(),
		Errors:       s.Errors.Load(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hist.TotalCount() > 0 {
		snap.Latency = LatencySummary{
			Min:  time.Duration(s.hist.Min()),
			Mean: time.Duration(s.hist.Mean()),
			P50:  time.Duration(s.hist.ValueAtQuantile(50)),
			P95:  time.Duration(s.hist.ValueAtQuantile(95)),
			P99:  time.Duration(s.hist.ValueAtQuantile(99)),
			Max:  time.Duration(s.hist.Max()),
		}
	}
	return snap
}
