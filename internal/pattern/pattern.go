// Package pattern generates the (offset, is_read) sequence a worker submits
// against a device, per the configured workload shape.
package pattern

import "math/rand/v2"

// Kind names a workload shape.
type Kind int

const (
	SequentialRead Kind = iota
	SequentialWrite
	RandomRead
	RandomWrite
	Mixed
)

// DefaultMixedReadRatio is the fraction of mixed-pattern ops that are reads
// when the caller does not override it.
const DefaultMixedReadRatio = 0.70

// Generator produces the next submission and reports whether it is
// operating in fast-mode: true iff direction is constant and offsets are
// sequential, letting the caller inline the hot path and skip per-op
// direction queries.
type Generator interface {
	// Next returns the offset (a multiple of blockSize, in [0, deviceSize))
	// and whether the op is a read.
	Next() (offset int64, isRead bool)
	// FastMode reports whether direction is constant and offsets advance
	// sequentially, i.e. the caller may specialize its hot path.
	FastMode() bool
}

// New builds a Generator for kind, seeded for workerID where randomness is
// needed. seedTime should be a caller-supplied nanosecond timestamp (e.g.
// time.Now().UnixNano()) mixed with workerID so that sibling workers do not
// trivially collide; it is taken as a parameter rather than read internally
// so the generator remains a pure function of its constructor arguments.
func New(kind Kind, blockSize, deviceSize int64, workerID int, seedTime int64, mixedReadRatio float64) Generator {
	switch kind {
	case SequentialRead:
		return &sequential{blockSize: blockSize, deviceSize: deviceSize, isRead: true}
	case SequentialWrite:
		return &sequential{blockSize: blockSize, deviceSize: deviceSize, isRead: false}
	case RandomRead:
		return &random{blockSize: blockSize, deviceSize: deviceSize, isRead: true, rng: newRNG(workerID, seedTime)}
	case RandomWrite:
		return &random{blockSize: blockSize, deviceSize: deviceSize, isRead: false, rng: newRNG(workerID, seedTime)}
	case Mixed:
		ratio := mixedReadRatio
		if ratio <= 0 {
			ratio = DefaultMixedReadRatio
		}
		return &mixed{
			readRatio: ratio,
			rng:       newRNG(workerID, seedTime),
			seq:       &sequential{blockSize: blockSize, deviceSize: deviceSize, isRead: true},
			rnd:       &random{blockSize: blockSize, deviceSize: deviceSize, isRead: false, rng: newRNG(workerID+1, seedTime)},
		}
	default:
		return &sequential{blockSize: blockSize, deviceSize: deviceSize, isRead: true}
	}
}

// newRNG mixes workerID and seedTime through xxhash so that two workers
// started at the same instant with adjacent ids do not produce correlated
// streams; xxhash is used purely as a fast integer mixer here, not for its
// hashing properties over arbitrary data.
func newRNG(workerID int, seedTime int64) *rand.Rand {
	seed1, seed2 := mixSeed(workerID, seedTime)
	return rand.New(rand.NewPCG(seed1, seed2))
}

type sequential struct {
	blockSize  int64
	deviceSize int64
	isRead     bool
	cursor     int64
}

func (s *sequential) Next() (int64, bool) {
	off := s.cursor
	s.cursor += s.blockSize
	if s.cursor+s.blockSize > s.deviceSize {
		s.cursor = 0
	}
	return off, s.isRead
}

func (s *sequential) FastMode() bool { return true }

type random struct {
	blockSize  int64
	deviceSize int64
	isRead     bool
	rng        *rand.Rand
}

func (r *random) Next() (int64, bool) {
	numBlocks := r.deviceSize / r.blockSize
	block := int64(r.rng.Uint64N(uint64(numBlocks)))
	return block * r.blockSize, r.isRead
}

func (r *random) FastMode() bool { return false }

type mixed struct {
	readRatio float64
	rng       *rand.Rand
	seq       *sequential
	rnd       *random
}

func (m *mixed) Next() (int64, bool) {
	isRead := m.rng.Float64() < m.readRatio
	if isRead {
		off, _ := m.seq.Next()
		return off, true
	}
	off, _ := m.rnd.Next()
	return off, false
}

func (m *mixed) FastMode() bool { return false }
