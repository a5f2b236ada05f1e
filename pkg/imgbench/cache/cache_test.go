package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func writeFile(t *testing.T, path string, size int) os.FileInfo {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	info, err := os.Stat(path)
	require.NoError(t, err)
	return info
}

func TestCache_LookupRecord(t *testing.T) {
	c := openTestCache(t)
	path := filepath.Join(t.TempDir(), "a.png")
	info := writeFile(t, path, 128)

	_, ok := c.Lookup(path, info.Size(), info.ModTime().UnixNano())
	assert.False(t, ok, "empty cache")

	require.NoError(t, c.Record(path, &Entry{
		Size:   info.Size(),
		Mtime:  info.ModTime().UnixNano(),
		Width:  64,
		Height: 32,
		Format: "png",
	}))

	got, ok := c.Lookup(path, info.Size(), info.ModTime().UnixNano())
	require.True(t, ok)
	assert.Equal(t, 64, got.Width)
	assert.Equal(t, 32, got.Height)
	assert.Equal(t, CacheVersion, got.Version)

	_, ok = c.Lookup(path, info.Size()+1, info.ModTime().UnixNano())
	assert.False(t, ok, "size change invalidates")

	assert.Equal(t, Stats{Hits: 1, Misses: 2}, c.Stats())
}

func TestCache_UpdateAndClear(t *testing.T) {
	c := openTestCache(t)
	root := t.TempDir()
	other := t.TempDir()

	entries := map[string]*Entry{
		filepath.Join(root, "a.png"):        {Size: 1, Width: 1, Height: 1},
		filepath.Join(root, "sub", "b.png"): {Size: 2, Width: 2, Height: 2},
		filepath.Join(other, "c.png"):       {Size: 3, Width: 3, Height: 3},
	}
	require.NoError(t, c.Update(entries))

	n, err := c.Clear(root)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok := c.Lookup(filepath.Join(other, "c.png"), 3, 0)
	assert.True(t, ok, "entries outside root survive")

	n, err = c.ClearAll()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCache_Forget(t *testing.T) {
	c := openTestCache(t)
	root := t.TempDir()

	file := filepath.Join(root, "a.png")
	require.NoError(t, c.Update(map[string]*Entry{
		file:                                {Size: 1},
		filepath.Join(root, "dir", "b.png"): {Size: 2},
		filepath.Join(root, "dir", "c.png"): {Size: 3},
	}))

	n, err := c.Forget(file)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, ok := c.Lookup(file, 1, 0)
	assert.False(t, ok)

	n, err = c.Forget(filepath.Join(root, "dir"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = c.Forget(filepath.Join(root, "missing.png"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCache_Prune(t *testing.T) {
	c := openTestCache(t)
	root := t.TempDir()

	keep := filepath.Join(root, "keep.png")
	gone := filepath.Join(root, "gone.png")
	changed := filepath.Join(root, "sub", "changed.png")

	for _, p := range []string{keep, gone, changed} {
		info := writeFile(t, p, 10)
		require.NoError(t, c.Record(p, &Entry{Size: info.Size(), Mtime: info.ModTime().UnixNano(), Width: 1, Height: 1}))
	}

	require.NoError(t, os.Remove(gone))
	require.NoError(t, os.WriteFile(changed, make([]byte, 20), 0o644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(changed, future, future))

	result, err := c.Prune(root)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Checked)
	assert.Equal(t, []string{gone}, result.Deleted)
	assert.Equal(t, []string{changed}, result.Changed)

	info, err := os.Stat(keep)
	require.NoError(t, err)
	_, ok := c.Lookup(keep, info.Size(), info.ModTime().UnixNano())
	assert.True(t, ok)

	_, err = c.store.Get(gone)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCache_InMemory(t *testing.T) {
	c, err := OpenInMemory()
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Record("/x/y.png", &Entry{Size: 5, Mtime: 6, Unreadable: true}))
	got, ok := c.Lookup("/x/y.png", 5, 6)
	require.True(t, ok)
	assert.True(t, got.Unreadable)
}
