// Package ringtest provides a device emulator satisfying the ring.Ring
// interface, for driving the real steady-state loop against recorded,
// synthetic completions instead of a kernel.
package ringtest

import (
	"sync"

	"github.com/blockbench/ringbench/internal/ring"
)

// Submitted is one observed submission, recorded for test assertions.
type Submitted struct {
	Op       ring.Op
	Offset   int64
	Length   int
	BufIndex int
	UserData uint64
}

// FakeRing is a ring.Ring that completes every op with result = length
// (i.e. block_size, per the spec's emulator contract), optionally failing
// every Nth submission with -EIO. It records every submission it sees so
// tests can assert on offsets, directions, and slot reuse.
type FakeRing struct {
	mu           sync.Mutex
	queueDepth   int
	registeredBufs  [][]byte
	registeredFiles []int

	prepared []ring.Submission
	ready    []ring.Completion

	Submissions []Submitted

	// ErrorEveryN, when > 0, fails every Nth submission (1-indexed) with
	// result -EIO, emulating scenario 4's error injection.
	ErrorEveryN int
	submitCount int
}

// New builds a FakeRing for the given queue depth.
func New(queueDepth int) *FakeRing {
	return &FakeRing{queueDepth: queueDepth}
}

func (f *FakeRing) RegisterBuffers(bufs [][]byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registeredBufs = bufs
	return nil
}

func (f *FakeRing) RegisterFiles(fds []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registeredFiles = fds
	return nil
}

func (f *FakeRing) Prepare(sub ring.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prepared) >= f.queueDepth {
		return ring.ErrRingFull
	}
	f.prepared = append(f.prepared, sub)
	return nil
}

func (f *FakeRing) Submit() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.prepared)
	for _, sub := range f.prepared {
		f.submitCount++
		result := int32(sub.Length)
		if f.ErrorEveryN > 0 && f.submitCount%f.ErrorEveryN == 0 {
			result = -5 // -EIO
		}
		f.Submissions = append(f.Submissions, Submitted{
			Op:       sub.Op,
			Offset:   sub.Offset,
			Length:   sub.Length,
			BufIndex: sub.BufIndex,
			UserData: sub.UserData,
		})
		f.ready = append(f.ready, ring.Completion{UserData: sub.UserData, Result: result})
	}
	f.prepared = f.prepared[:0]
	return n, nil
}

func (f *FakeRing) SubmitAndWait(minComplete int) (int, error) {
	return f.Submit()
}

func (f *FakeRing) PeekCompletions(dst []ring.Completion) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := copy(dst, f.ready)
	f.ready = f.ready[n:]
	return n
}

func (f *FakeRing) Close() error {
	return nil
}

var _ ring.Ring = (*FakeRing)(nil)
