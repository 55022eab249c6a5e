package inflight

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIndexUsesBitmaskForPowerOfTwo(t *testing.T) {
	tr := New(16)
	assert.Equal(t, 0, tr.Index(16))
	assert.Equal(t, 1, tr.Index(17))
	assert.Equal(t, 15, tr.Index(31))
}

func TestIndexUsesModuloForNonPowerOfTwo(t *testing.T) {
	tr := New(6)
	assert.Equal(t, 0, tr.Index(6))
	assert.Equal(t, 1, tr.Index(7))
	assert.Equal(t, 5, tr.Index(11))
}

func TestReserveAndRelease(t *testing.T) {
	tr := New(4)
	ts := time.Now()
	tr.Reserve(5, true, ts, true)

	s := tr.Slot(5)
	assert.True(t, s.IsRead)
	assert.True(t, s.Sampled)
	assert.Equal(t, ts, s.SubmitTS)

	tr.Release(5)
	s = tr.Slot(5)
	assert.False(t, s.Sampled)
}

func TestSlotIndicesDistinctForOutstandingTokens(t *testing.T) {
	const depth = 8
	tr := New(depth)

	// tokens 0..depth-1 are all "outstanding" simultaneously; their slot
	// indices must be pairwise distinct, matching the pending_ops invariant.
	seen := map[int]bool{}
	for tok := uint64(0); tok < depth; tok++ {
		idx := tr.Index(tok)
		assert.False(t, seen[idx], "slot index %d reused while still outstanding", idx)
		seen[idx] = true
	}
}

func TestSamplerConvergesToConfiguredRate(t *testing.T) {
	s := NewSampler(0.01)
	const n = 10000
	sampled := 0
	for tok := uint64(0); tok < n; tok++ {
		if s.Sample(tok) {
			sampled++
		}
	}
	assert.InDelta(t, 100, sampled, 1)
}

func TestSamplerClampsOutOfRangeRates(t *testing.T) {
	// A non-positive rate falls back to the 1% default (period 100); a rate
	// above 1 is clamped to 1 (every op sampled).
	assert.Equal(t, uint64(100), NewSampler(0).Period())
	assert.Equal(t, uint64(1), NewSampler(1.5).Period())
}
