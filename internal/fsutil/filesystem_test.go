package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileSystem(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "sim.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	data, ext, err := ReadBounded(OSFileSystem{}, path, 1024, ".json")
	require.NoError(t, err)
	assert.Equal(t, ".json", ext)
	assert.Equal(t, "{}", string(data))

	_, _, err = ReadBounded(OSFileSystem{}, dir+"/missing.json", 1024, ".json")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestReadBounded(t *testing.T) {
	t.Parallel()
	mfs := NewMemoryFileSystem()
	mfs.WriteFile("/cfg/a.YAML", []byte("x: 1"))
	mfs.WriteFile("/cfg/big.json", []byte(strings.Repeat("a", 64)))
	mfs.WriteFile("/cfg/a.txt", []byte("x"))

	t.Run("accepts allowed extension case-insensitively", func(t *testing.T) {
		t.Parallel()
		data, ext, err := ReadBounded(mfs, "/cfg/../cfg/a.YAML", 1024, ".yaml", ".json")
		require.NoError(t, err)
		assert.Equal(t, ".yaml", ext)
		assert.Equal(t, "x: 1", string(data))
	})

	t.Run("rejects extension", func(t *testing.T) {
		t.Parallel()
		_, _, err := ReadBounded(mfs, "/cfg/a.txt", 1024, ".json")
		assert.ErrorContains(t, err, "extensions")
	})

	t.Run("rejects oversize", func(t *testing.T) {
		t.Parallel()
		_, _, err := ReadBounded(mfs, "/cfg/big.json", 10, ".json")
		assert.ErrorContains(t, err, "too large")
	})
}

func TestMemoryFileSystemCopies(t *testing.T) {
	t.Parallel()
	mfs := NewMemoryFileSystem()
	src := []byte("abc")
	mfs.WriteFile("f.json", src)
	src[0] = 'z'
	got, err := mfs.ReadFile("f.json")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
	got[1] = 'z'
	again, _ := mfs.ReadFile("f.json")
	assert.Equal(t, "abc", string(again))
}
