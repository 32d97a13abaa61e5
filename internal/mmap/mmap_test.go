package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenReadClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob")
	require.NoError(t, os.WriteFile(path, []byte("hello mmap"), 0o644))

	m, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, int64(10), m.Size())
	assert.Equal(t, []byte("hello mmap"), m.Bytes())

	p := make([]byte, 5)
	n, err := m.ReadAt(p, 6)
	assert.ErrorIs(t, err, io.EOF, "short read past the end reports EOF")
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte("mmap"), p[:n])

	n, err = m.ReadAt(p[:4], 6)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	require.NoError(t, m.Close())
	assert.Nil(t, m.Bytes())
	_, err = m.ReadAt(p, 0)
	assert.ErrorIs(t, err, ErrClosed)
	// Close is idempotent.
	assert.NoError(t, m.Close())
}

func TestOpenEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	m, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), m.Size())
	require.NoError(t, m.Close())
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
