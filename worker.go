package ringbench

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/blockbench/ringbench/internal/bufpool"
	"github.com/blockbench/ringbench/internal/device"
	"github.com/blockbench/ringbench/internal/inflight"
	"github.com/blockbench/ringbench/internal/logging"
	"github.com/blockbench/ringbench/internal/pattern"
	"github.com/blockbench/ringbench/internal/ring"
	"github.com/blockbench/ringbench/internal/stats"
	"golang.org/x/sys/unix"
)

// ExitReason names why Worker.Run returned.
type ExitReason string

const (
	ExitDeadline ExitReason = "deadline"
	ExitStopped  ExitReason = "stopped"
	ExitFatal    ExitReason = "fatal_error"
)

// Result is the aggregate outcome of a worker run.
type Result struct {
	ExitReason ExitReason
	Snapshot   stats.Snapshot
	Err        error // set when ExitReason == ExitFatal
}

// Worker drives one block device through a ring, end to end, per a fixed
// Config. A Worker is not safe for concurrent Run calls, and Run must not
// be called more than once; Stop may be called from any goroutine at any
// time.
type Worker struct {
	cfg     Config
	logger  *logging.Logger
	closeFn func() error
	r       ring.Ring
	bufs    *bufpool.Pool
	gen     pattern.Generator
	tracker *inflight.Tracker
	sampler inflight.Sampler
	shared  *stats.Shared

	nextToken  uint64
	stopFlag   atomic.Bool
	nowFunc    func() time.Time
	clockCalls atomic.Uint64 // test hook: counts calls attributed to sampling
}

// NewWorker opens cfg.DevicePath, allocates and registers the buffer pool
// and fixed-file table, and constructs a ready-to-run Worker. Every
// failure here is a Setup error: no partial worker is returned, and
// whatever was already opened/registered is torn down before returning.
func NewWorker(cfg Config) (*Worker, error) {
	f, geom, err := device.Open(cfg.DevicePath)
	if err != nil {
		return nil, WrapError("open_device", KindSetup, err)
	}

	if cfg.DeviceSize == 0 {
		cfg.DeviceSize = geom.SizeBytes
	}
	if err := cfg.Validate(geom.LogicalBlockSize); err != nil {
		f.Close()
		return nil, err
	}

	alignment := int(geom.LogicalBlockSize)
	if alignment < bufpool.MinAlignment {
		alignment = bufpool.MinAlignment
	}
	pool, err := bufpool.New(cfg.QueueDepth, int(cfg.BlockSize), alignment)
	if err != nil {
		f.Close()
		return nil, WrapError("allocate_buffer_pool", KindSetup, err)
	}

	r, err := ring.New(ring.Config{QueueDepth: cfg.QueueDepth, FD: int(f.Fd())})
	if err != nil {
		pool.Close()
		f.Close()
		return nil, WrapError("create_ring", KindSetup, err)
	}

	if err := r.RegisterBuffers(pool.Iovecs()); err != nil {
		r.Close()
		pool.Close()
		f.Close()
		return nil, WrapError("register_buffers", KindSetup, err)
	}
	if err := r.RegisterFiles([]int{int(f.Fd())}); err != nil {
		r.Close()
		pool.Close()
		f.Close()
		return nil, WrapError("register_files", KindSetup, err)
	}

	w, err := newWorker(cfg, f.Close, r, pool)
	if err != nil {
		r.Close()
		pool.Close()
		f.Close()
		return nil, err
	}
	return w, nil
}

// newWorker builds the Worker from already-opened collaborators. It is
// also used directly by tests with a ring.Ring test double (e.g.
// internal/ringtest.FakeRing), skipping real device/ring construction.
func newWorker(cfg Config, closeFn func() error, r ring.Ring, pool *bufpool.Pool) (*Worker, error) {
	if err := cfg.Validate(0); err != nil {
		return nil, err
	}
	if cfg.DeviceSize <= 0 {
		return nil, NewError("validate_config", KindSetup, "device_size must be positive")
	}

	gen := pattern.New(cfg.Pattern, cfg.BlockSize, cfg.DeviceSize, cfg.WorkerID, time.Now().UnixNano(), cfg.MixedReadRatio)

	w := &Worker{
		cfg:     cfg,
		logger:  logging.Default().WithQueue(cfg.WorkerID),
		closeFn: closeFn,
		r:       r,
		bufs:    pool,
		gen:     gen,
		tracker: inflight.New(cfg.QueueDepth),
		sampler: inflight.NewSampler(cfg.LatencySampleRate),
		shared:  stats.NewShared(time.Now()),
		nowFunc: time.Now,
	}
	return w, nil
}

// Stop sets the shared stop flag; thread-safe, may be called at any time.
func (w *Worker) Stop() {
	w.stopFlag.Store(true)
}

// waitThreshold is recommended as queue_depth/16, minimum 1.
func (w *Worker) waitThreshold() int {
	t := w.cfg.QueueDepth / 16
	if t < 1 {
		t = 1
	}
	return t
}

// Run drives the steady-state loop until the deadline expires or Stop is
// called, then drains outstanding ops and returns the aggregate result.
func (w *Worker) Run(ctx context.Context) (Result, error) {
	if len(w.cfg.CPUAffinity) > 0 {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := pinToCPU(w.cfg.CPUAffinity); err != nil {
			w.logger.Warn("cpu affinity not applied", "error", err)
		}
	}

	deadline := time.Now().Add(w.cfg.Duration)
	queueDepth := w.cfg.QueueDepth

	var local stats.Local
	var pendingOps, queuedOps int
	iterations := 0
	consecutiveFailures := 0

	exitReason := ExitDeadline
	completionBuf := make([]ring.Completion, queueDepth)

loop:
	for {
		iterations++

		// (a) Time/stop check, every DeadlinePollInterval iterations.
		if iterations%DeadlinePollInterval == 0 {
			if w.stopFlag.Load() {
				exitReason = ExitStopped
				break loop
			}
			if time.Now().After(deadline) {
				exitReason = ExitDeadline
				break loop
			}
			select {
			case <-ctx.Done():
				exitReason = ExitStopped
				break loop
			default:
			}
		}

		// (b) Completion reap (non-blocking). Every completion peeked out
		// of the ring this iteration is already dequeued and will never be
		// seen again, so the whole batch is processed (slot released,
		// pendingOps decremented) even once escalation triggers partway
		// through it -- otherwise drain() would spin out its full grace
		// period waiting for completions the ring already handed over.
		n := w.r.PeekCompletions(completionBuf[:pendingOps])
		escalating := false
		var escalateErr error
		for i := 0; i < n; i++ {
			c := completionBuf[i]
			slot := w.tracker.Slot(c.UserData)

			if c.Result < 0 {
				local.Errors++
				consecutiveFailures++
				if !escalating && consecutiveFailures > queueDepth {
					escalating = true
					escalateErr = fmt.Errorf("sustained error rate: %d consecutive failures", consecutiveFailures)
				}
			} else {
				consecutiveFailures = 0
				if slot.IsRead {
					local.BytesRead += uint64(c.Result)
				} else {
					local.BytesWritten += uint64(c.Result)
				}
				if slot.Sampled {
					now := w.now()
					local.OpsCompleted++
					w.shared.RecordLatency(int64(now.Sub(slot.SubmitTS)))
				} else {
					local.OpsCompleted++
				}
			}
			w.tracker.Release(c.UserData)
			pendingOps--
		}
		if escalating {
			local.Flush(w.shared)
			return w.escalate(pendingOps, escalateErr)
		}

		// (c) Submission refill.
		for pendingOps+queuedOps < queueDepth {
			token := w.nextToken
			w.nextToken++
			i := w.tracker.Index(token)

			offset, isRead := w.gen.Next()
			sampled := w.sampler.Sample(token)

			var submitTS time.Time
			if sampled {
				submitTS = w.now()
			}
			w.tracker.Reserve(token, isRead, submitTS, sampled)

			op := ring.OpRead
			if !isRead {
				op = ring.OpWrite
			}
			sub := ring.Submission{
				Op:        op,
				FileIndex: 0,
				BufIndex:  i,
				Offset:    offset,
				Length:    int(w.cfg.BlockSize),
				UserData:  token,
			}
			if err := w.r.Prepare(sub); err != nil {
				w.tracker.Release(token)
				w.nextToken--
				break
			}
			queuedOps++
		}

		// (d) Submit batch.
		submittedThisIter := false
		if queuedOps >= SubmitBatchMin || pendingOps+queuedOps >= queueDepth {
			if queuedOps > 0 {
				if _, err := w.r.Submit(); err != nil {
					local.Errors += uint64(queuedOps)
					queuedOps = 0
				} else {
					pendingOps += queuedOps
					queuedOps = 0
					submittedThisIter = true
				}
			}
		}

		// (e) Conditional wait.
		if submittedThisIter && pendingOps < w.waitThreshold() {
			if _, err := w.r.SubmitAndWait(1); err != nil {
				w.logger.Warn("submit_and_wait failed", "error", err)
			}
		}

		// (f) Stats flush.
		local.Flush(w.shared)
	}

	w.drain(&local, &pendingOps)
	local.Flush(w.shared)

	return Result{
		ExitReason: exitReason,
		Snapshot:   w.shared.Snapshot(time.Now()),
	}, nil
}

// drain reaps outstanding ops until pending_ops == 0 or a bounded grace
// period elapses; anything still outstanding after grace is counted as an
// error. Deregistration happens after drain, on every exit path.
func (w *Worker) drain(local *stats.Local, pendingOps *int) {
	deadline := time.Now().Add(DrainGrace)
	for *pendingOps > 0 && time.Now().Before(deadline) {
		completions := make([]ring.Completion, *pendingOps)
		n := w.r.PeekCompletions(completions)
		if n == 0 {
			time.Sleep(time.Millisecond)
			continue
		}
		for i := 0; i < n; i++ {
			c := completions[i]
			slot := w.tracker.Slot(c.UserData)
			if c.Result < 0 {
				local.Errors++
			} else {
				if slot.IsRead {
					local.BytesRead += uint64(c.Result)
				} else {
					local.BytesWritten += uint64(c.Result)
				}
				local.OpsCompleted++
			}
			w.tracker.Release(c.UserData)
			*pendingOps--
		}
	}
	if *pendingOps > 0 {
		local.Errors += uint64(*pendingOps)
		*pendingOps = 0
	}

	if w.closeFn != nil {
		_ = w.closeFn()
	}
	_ = w.r.Close()
	_ = w.bufs.Close()
}

func (w *Worker) escalate(pendingOps int, err error) (Result, error) {
	var local stats.Local
	w.drain(&local, &pendingOps)
	local.Flush(w.shared)

	e := WrapError("steady_state_loop", KindEscalated, err)
	w.logger.WithError(e).Error("escalating after sustained per-op failures")
	return Result{
		ExitReason: ExitFatal,
		Snapshot:   w.shared.Snapshot(time.Now()),
		Err:        e,
	}, e
}

func (w *Worker) now() time.Time {
	w.clockCalls.Add(1)
	return w.nowFunc()
}

// pinToCPU applies cfg.CPUAffinity to the calling OS thread, best-effort;
// pinning is a cache-locality optimization, not a correctness requirement.
func pinToCPU(cpus []int) error {
	if len(cpus) == 0 {
		return nil
	}
	var set unix.CPUSet
	set.Zero()
	for _, cpu := range cpus {
		set.Set(cpu)
	}
	return unix.SchedSetaffinity(0, &set)
}

// ClockCalls reports how many times the monotonic clock has been read for
// latency sampling. Used by tests to verify unsampled completions never
// touch the clock.
func (w *Worker) ClockCalls() uint64 {
	return w.clockCalls.Load()
}
