// Package ring defines the fixed-buffer/fixed-file submission/completion
// ring interface the steady-state loop drives, and the giouring-backed
// implementation of it.
package ring

import "errors"

// ErrRingFull is returned by Prepare when the submission queue has no room
// for another SQE. The steady-state loop's refill phase never exceeds
// queue_depth outstanding SQEs, so this should not occur in normal
// operation; it is surfaced rather than silently dropped so a caller bug
// is visible.
var ErrRingFull = errors.New("ring: submission queue full")

// Op names a fixed-buffer operation kind.
type Op uint8

const (
	OpRead Op = iota
	OpWrite
)

// Submission describes one fixed-buffer, fixed-file operation: offset and
// length into the registered file at FileIndex, using the registered
// buffer at BufIndex, tagged with UserData for completion correlation.
type Submission struct {
	Op       Op
	FileIndex int
	BufIndex  int
	Offset    int64
	Length    int
	UserData  uint64
}

// Completion is one reaped completion queue entry.
type Completion struct {
	UserData uint64
	Result   int32 // bytes transferred on success, -errno on failure
}

// Ring owns one kernel submission/completion ring of a fixed queue depth.
// It is driven by exactly one goroutine; there is no internal
// synchronization and none is required.
type Ring interface {
	// RegisterBuffers registers bufs as fixed buffers, in order, so a
	// Submission's BufIndex addresses bufs[BufIndex]. Called once at
	// startup.
	RegisterBuffers(bufs [][]byte) error

	// RegisterFiles registers fds as a fixed-file table, in order. This
	// module always registers exactly one fd at index 0.
	RegisterFiles(fds []int) error

	// Prepare enqueues an SQE for sub without making it visible to the
	// kernel. Returns ErrRingFull if the submission queue has no room.
	Prepare(sub Submission) error

	// Submit makes all prepared SQEs visible to the kernel with a single
	// non-blocking io_uring_enter call and returns how many were
	// submitted.
	Submit() (int, error)

	// SubmitAndWait behaves like Submit but blocks until at least
	// minComplete completions are available.
	SubmitAndWait(minComplete int) (int, error)

	// PeekCompletions drains up to len(dst) ready completions into dst
	// without blocking, returning the count filled.
	PeekCompletions(dst []Completion) int

	// Close unregisters buffers/files and releases the ring. Safe to call
	// once, unconditionally, on every exit path.
	Close() error
}

// Config configures a new Ring.
type Config struct {
	QueueDepth int
	FD         int // the registered device file descriptor
}
