package device

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRegularFileFallsBackToStatGeometry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture")
	require.NoError(t, os.WriteFile(path, make([]byte, 8192), 0o644))

	f, geom, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, int64(512), geom.LogicalBlockSize)
	assert.Equal(t, int64(8192), geom.SizeBytes)
}

func TestOpenNonexistentPathFails(t *testing.T) {
	_, _, err := Open(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}

func TestQueryGeometryFallsBackOnNonBlockDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture")
	require.NoError(t, os.WriteFile(path, make([]byte, 4096), 0o644))

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	defer f.Close()

	geom, err := queryGeometry(f)
	require.NoError(t, err)
	assert.Equal(t, int64(512), geom.LogicalBlockSize)
	assert.Equal(t, int64(4096), geom.SizeBytes)
}

func TestQueryGeometryFallbackErrorsIfStatFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = queryGeometry(f)
	assert.Error(t, err, "stat on an already-closed file descriptor must surface as an error, not a zeroed geometry")
}
