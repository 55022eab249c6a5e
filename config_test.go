package ringbench

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfigAppliesDefaults(t *testing.T) {
	c := NewConfig("/dev/sdx")
	assert.Equal(t, int64(4096), c.BlockSize)
	assert.Equal(t, 128, c.QueueDepth)
	assert.Equal(t, SequentialRead, c.Pattern)
	assert.Equal(t, DefaultLatencySampleRate, c.LatencySampleRate)
	assert.Equal(t, DefaultMixedReadRatio, c.MixedReadRatio)
}

func TestOptionsOverrideDefaults(t *testing.T) {
	c := NewConfig("/dev/sdx",
		WithBlockSize(512),
		WithQueueDepth(4),
		WithDuration(2*time.Second),
		WithPattern(RandomWrite),
		WithDeviceSize(1<<20),
		WithLatencySampleRate(0.5),
		WithMixedReadRatio(0.9),
		WithWorkerID(3),
		WithCPUAffinity([]int{0, 1}),
	)

	assert.Equal(t, int64(512), c.BlockSize)
	assert.Equal(t, 4, c.QueueDepth)
	assert.Equal(t, 2*time.Second, c.Duration)
	assert.Equal(t, RandomWrite, c.Pattern)
	assert.Equal(t, int64(1<<20), c.DeviceSize)
	assert.Equal(t, 0.5, c.LatencySampleRate)
	assert.Equal(t, 0.9, c.MixedReadRatio)
	assert.Equal(t, 3, c.WorkerID)
	assert.Equal(t, []int{0, 1}, c.CPUAffinity)
}

func TestValidateRejectsBadQueueDepth(t *testing.T) {
	c := NewConfig("/dev/sdx", WithQueueDepth(0))
	err := c.Validate(512)
	assert.True(t, IsKind(err, KindSetup))
}

func TestValidateRejectsBlockSizeNotMultipleOfDeviceBlockSize(t *testing.T) {
	c := NewConfig("/dev/sdx", WithBlockSize(1000))
	err := c.Validate(512)
	assert.True(t, IsKind(err, KindSetup))
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	c := NewConfig("/dev/sdx")
	assert.NoError(t, c.Validate(512))
}

func TestValidateRejectsOutOfRangeSampleRate(t *testing.T) {
	c := NewConfig("/dev/sdx", WithLatencySampleRate(1.5))
	assert.True(t, IsKind(c.Validate(512), KindSetup))
}
