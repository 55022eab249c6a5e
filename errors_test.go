package ringbench

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredError(t *testing.T) {
	err := NewError("open_device", KindSetup, "block_size not a multiple of device block size")

	assert.Equal(t, "open_device", err.Op)
	assert.Equal(t, KindSetup, err.Kind)
	assert.Equal(t, "ringbench: open_device: block_size not a multiple of device block size", err.Error())
}

func TestWrapErrorExtractsErrno(t *testing.T) {
	inner := syscall.ENOENT
	err := WrapError("open_device", KindSetup, inner)
	require.NotNil(t, err)

	assert.Equal(t, syscall.ENOENT, err.Errno)
	assert.True(t, errors.Is(err, syscall.ENOENT))
}

func TestWrapErrorNilIsNil(t *testing.T) {
	assert.Nil(t, WrapError("op", KindPerOp, nil))
}

func TestIsKind(t *testing.T) {
	err := WrapError("submit", KindSubmission, syscall.EAGAIN)

	assert.True(t, IsKind(err, KindSubmission))
	assert.False(t, IsKind(err, KindSetup))
	assert.False(t, IsKind(nil, KindSubmission))
}

func TestErrorIsComparesByKind(t *testing.T) {
	a := NewError("drain", KindDrainTimeout, "outstanding ops at grace expiry")
	b := &Error{Kind: KindDrainTimeout}

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, &Error{Kind: KindEscalated}))
}
