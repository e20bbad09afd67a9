package disk_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/downfa11-org/mapped-queue/pkg/disk"
	"github.com/downfa11-org/mapped-queue/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMappedFile_WriteFlushReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor")

	f, err := disk.OpenMappedFile(path, 8, true)
	require.NoError(t, err)
	assert.Equal(t, 8, f.Len())

	n, err := f.WriteAt([]byte{1, 2, 3}, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, f.Flush())
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 1, 2, 3, 0, 0, 0}, raw)

	g, err := disk.OpenMappedFile(path, 8, false)
	require.NoError(t, err)
	defer g.Close()

	buf := make([]byte, 4)
	_, err = g.ReadAt(buf, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 3}, buf)

	_, err = g.ReadAt(buf, 6)
	assert.ErrorIs(t, err, io.EOF)
}

func TestMappedFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := disk.OpenMappedFile(filepath.Join(dir, "missing"), 8, false)
	assert.True(t, os.IsNotExist(err))

	_, err = disk.OpenMappedFile(filepath.Join(dir, "zero"), 0, true)
	assert.ErrorIs(t, err, types.ErrConfiguration)

	f, err := disk.OpenMappedFile(filepath.Join(dir, "small"), 4, true)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte{1, 2}, 3)
	assert.ErrorIs(t, err, types.ErrOutOfRange)
	require.NoError(t, f.Close())

	_, err = f.WriteAt([]byte{1}, 0)
	assert.ErrorIs(t, err, types.ErrDisposed)
	assert.ErrorIs(t, f.Flush(), types.ErrDisposed)
}
