package bufpool

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type uintptrKey = uintptr

func addrOf(b []byte) uintptrKey {
	return uintptr(unsafe.Pointer(&b[0]))
}

func TestNewProducesDistinctAlignedBuffers(t *testing.T) {
	const depth = 8
	const blockSize = 4096

	p, err := New(depth, blockSize, 512)
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, depth, p.Depth())

	seen := map[uintptrKey]bool{}
	for i := 0; i < depth; i++ {
		buf := p.Buffer(i)
		assert.Len(t, buf, blockSize)
		key := addrOf(buf)
		assert.False(t, seen[key], "slot %d address collides with another slot", i)
		seen[key] = true
		assert.Zero(t, key%512, "slot %d is not aligned to 512 bytes", i)
	}
}

func TestIovecsMatchesBufferOrder(t *testing.T) {
	p, err := New(4, 512, 512)
	require.NoError(t, err)
	defer p.Close()

	iovecs := p.Iovecs()
	require.Len(t, iovecs, 4)
	for i, v := range iovecs {
		assert.Equal(t, addrOf(p.Buffer(i)), addrOf(v))
	}
}

func TestAlignmentLargerThanPageFails(t *testing.T) {
	_, err := New(4, 4096, 1<<30)
	assert.Error(t, err)
}

func TestCloseIsIdempotent(t *testing.T) {
	p, err := New(2, 512, 512)
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
}
