package ringbench

import (
	"time"

	"github.com/blockbench/ringbench/internal/pattern"
)

// PatternKind names a workload shape; re-exported from internal/pattern so
// callers never import an internal package.
type PatternKind = pattern.Kind

const (
	SequentialRead  = pattern.SequentialRead
	SequentialWrite = pattern.SequentialWrite
	RandomRead      = pattern.RandomRead
	RandomWrite     = pattern.RandomWrite
	Mixed           = pattern.Mixed
)

// Tuning defaults and constants from the steady-state loop design.
const (
	// DeadlinePollInterval is how often (in loop iterations) the worker
	// checks the wall-clock deadline and stop flag.
	DeadlinePollInterval = 1000

	// SubmitBatchMin is the minimum number of queued SQEs that triggers a
	// submit call before the submission queue is full.
	SubmitBatchMin = 4

	// DefaultLatencySampleRate is the fraction of ops timed end-to-end
	// when Config.LatencySampleRate is left at zero.
	DefaultLatencySampleRate = 0.01

	// DefaultMixedReadRatio is the read fraction of a Mixed pattern when
	// Config.MixedReadRatio is left at zero.
	DefaultMixedReadRatio = pattern.DefaultMixedReadRatio

	// DrainGrace bounds how long shutdown waits for outstanding ops to
	// complete before counting them as errors.
	DrainGrace = 5 * time.Second
)

// Config is a worker's immutable configuration, built via functional
// options and validated once by NewWorker.
type Config struct {
	DevicePath        string
	BlockSize         int64
	QueueDepth        int
	Duration          time.Duration
	Pattern           PatternKind
	DeviceSize        int64 // 0 => query the device
	LatencySampleRate float64
	MixedReadRatio    float64
	WorkerID          int
	CPUAffinity       []int
}

// Option mutates a Config at construction time.
type Option func(*Config)

func WithBlockSize(n int64) Option         { return func(c *Config) { c.BlockSize = n } }
func WithQueueDepth(n int) Option          { return func(c *Config) { c.QueueDepth = n } }
func WithDuration(d time.Duration) Option  { return func(c *Config) { c.Duration = d } }
func WithPattern(k PatternKind) Option     { return func(c *Config) { c.Pattern = k } }
func WithDeviceSize(n int64) Option        { return func(c *Config) { c.DeviceSize = n } }
func WithWorkerID(id int) Option           { return func(c *Config) { c.WorkerID = id } }
func WithCPUAffinity(cpus []int) Option    { return func(c *Config) { c.CPUAffinity = cpus } }

func WithLatencySampleRate(rate float64) Option {
	return func(c *Config) { c.LatencySampleRate = rate }
}

func WithMixedReadRatio(ratio float64) Option {
	return func(c *Config) { c.MixedReadRatio = ratio }
}

// NewConfig builds a Config for devicePath with defaults filled in, then
// applies opts in order.
func NewConfig(devicePath string, opts ...Option) Config {
	c := Config{
		DevicePath:        devicePath,
		BlockSize:         4096,
		QueueDepth:        128,
		Duration:          10 * time.Second,
		Pattern:           SequentialRead,
		LatencySampleRate: DefaultLatencySampleRate,
		MixedReadRatio:    DefaultMixedReadRatio,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Validate checks invariants required before a worker can run. Failures
// here are Setup errors: fatal, no partial worker is returned.
func (c Config) Validate(deviceBlockSize int64) error {
	if c.QueueDepth < 1 {
		return NewError("validate_config", KindSetup, "queue_depth must be >= 1")
	}
	if c.BlockSize < 512 {
		return NewError("validate_config", KindSetup, "block_size must be >= 512")
	}
	if deviceBlockSize > 0 && c.BlockSize%deviceBlockSize != 0 {
		return NewError("validate_config", KindSetup, "block_size must be a multiple of the device's logical block size")
	}
	if c.Duration <= 0 {
		return NewError("validate_config", KindSetup, "duration must be positive")
	}
	if c.LatencySampleRate < 0 || c.LatencySampleRate > 1 {
		return NewError("validate_config", KindSetup, "latency_sample_rate must be in [0, 1]")
	}
	return nil
}
