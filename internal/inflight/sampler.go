package inflight

import "math"

// Sampler decides, deterministically and without per-op randomness,
// whether a given token should be latency-sampled. Every sample_period-th
// token is sampled, where sample_period = round(1 / rate). This yields an
// approximately uniform sample across time for any steady-state workload
// and, critically, never calls the monotonic clock to make the decision.
type Sampler struct {
	period uint64
}

// NewSampler builds a Sampler for the given sample rate (e.g. 0.01 for 1%).
// A non-positive rate falls back to 0.01; a rate above 1 is clamped to 1.
func NewSampler(rate float64) Sampler {
	if rate <= 0 {
		rate = 0.01
	}
	if rate > 1 {
		rate = 1
	}
	period := uint64(math.Round(1 / rate))
	if period == 0 {
		period = 1
	}
	return Sampler{period: period}
}

// Sample reports whether token should be latency-sampled.
func (s Sampler) Sample(token uint64) bool {
	return token%s.period == 0
}

// Period returns the sampler's computed sample_period.
func (s Sampler) Period() uint64 {
	return s.period
}
