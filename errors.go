package ringbench

import (
	"errors"
	"fmt"
	"syscall"
)

// ErrorKind categorizes a worker error along the fatal/recoverable split:
// setup and escalated errors are fatal and surfaced to the caller, per-op,
// submission, and drain-timeout errors are recovered locally and reflected
// only in counters.
type ErrorKind string

const (
	KindSetup        ErrorKind = "setup"
	KindPerOp        ErrorKind = "per_op"
	KindSubmission   ErrorKind = "submission"
	KindDrainTimeout ErrorKind = "drain_timeout"
	KindEscalated    ErrorKind = "escalated"
)

// Error is a structured worker error with enough context for a caller to
// branch on without parsing a message string.
type Error struct {
	Op    string // operation that failed, e.g. "open_device", "register_buffers"
	Kind  ErrorKind
	Errno syscall.Errno // kernel errno, 0 if not applicable
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Inner != nil {
		msg = e.Inner.Error()
	}
	if e.Errno != 0 {
		return fmt.Sprintf("ringbench: %s: %s (errno=%d)", e.Op, msg, e.Errno)
	}
	return fmt.Sprintf("ringbench: %s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Inner
}

// Is compares by kind, so callers can do errors.Is(err, &Error{Kind: KindSetup}).
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == te.Kind
}

// NewError builds a structured error for a given op and kind.
func NewError(op string, kind ErrorKind, msg string) *Error {
	return &Error{Op: op, Kind: kind, Msg: msg}
}

// WrapError wraps an existing error with worker context. If inner already
// carries a syscall.Errno, it is extracted onto the wrapping error.
func WrapError(op string, kind ErrorKind, inner error) *Error {
	if inner == nil {
		return nil
	}
	e := &Error{Op: op, Kind: kind, Inner: inner, Msg: inner.Error()}
	var errno syscall.Errno
	if errors.As(inner, &errno) {
		e.Errno = errno
	}
	return e
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
