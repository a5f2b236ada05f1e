package scanner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"

	"github.com/jamesainslie/imgbench/pkg/imgbench/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTree builds:
//
//	root/
//	  b.png
//	  a.JPG
//	  notes.txt
//	  thumbs/
//	    t1.gif
//	    deeper/
//	      t2.png
//	  .cache/
//	    c.png
func createTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	files := []string{
		"b.png",
		"a.JPG",
		"notes.txt",
		filepath.Join("thumbs", "t1.gif"),
		filepath.Join("thumbs", "deeper", "t2.png"),
		filepath.Join(".cache", "c.png"),
	}
	for _, f := range files {
		path := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
	return root
}

func collect(t *testing.T, s *Scanner, roots ...string) []string {
	t.Helper()
	return slices.Collect(s.Paths(context.Background(), roots...))
}

func rel(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		r, err := filepath.Rel(root, p)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(r))
	}
	return out
}

func TestPaths_NonRecursiveByDefault(t *testing.T) {
	root := createTree(t)
	s, err := New(DefaultOptions())
	require.NoError(t, err)

	got := rel(t, root, collect(t, s, root))
	assert.Equal(t, []string{"a.JPG", "b.png"}, got)
	require.NoError(t, s.Err())
}

func TestPaths_BoundedDepth(t *testing.T) {
	root := createTree(t)

	tests := []struct {
		depth int
		want  []string
	}{
		{0, []string{"a.JPG", "b.png"}},
		{1, []string{".cache/c.png", "a.JPG", "b.png", "thumbs/t1.gif"}},
		{2, []string{".cache/c.png", "a.JPG", "b.png", "thumbs/deeper/t2.png", "thumbs/t1.gif"}},
	}

	for _, tt := range tests {
		s, err := New(Options{MaxDepth: tt.depth})
		require.NoError(t, err)
		assert.Equal(t, tt.want, rel(t, root, collect(t, s, root)), "depth %d", tt.depth)
	}
}

func TestPaths_Exclude(t *testing.T) {
	root := createTree(t)
	s, err := New(Options{MaxDepth: 2, Exclude: []string{".*", "**/deeper/**", "b.*"}})
	require.NoError(t, err)

	got := rel(t, root, collect(t, s, root))
	assert.Equal(t, []string{"a.JPG", "thumbs/t1.gif"}, got)
}

func TestPaths_Extensions(t *testing.T) {
	root := createTree(t)
	s, err := New(Options{Extensions: []string{"PNG", "txt"}})
	require.NoError(t, err)

	got := rel(t, root, collect(t, s, root))
	assert.Equal(t, []string{"b.png", "notes.txt"}, got)
}

func TestPaths_RootOrderAndMissingRoots(t *testing.T) {
	first := createTree(t)
	second := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(second, "z.png"), []byte("x"), 0o644))

	s, err := New(DefaultOptions())
	require.NoError(t, err)

	missing := filepath.Join(t.TempDir(), "does-not-exist")
	got := collect(t, s, missing, second, first)
	require.Len(t, got, 3)
	assert.Equal(t, filepath.Join(second, "z.png"), got[0])
	assert.Equal(t, filepath.Join(first, "a.JPG"), got[1])

	require.NoError(t, s.Err(), "one unreadable root is not a scan failure")
	assert.Len(t, s.RootErrors(), 1)
	assert.Equal(t, int64(2), s.Stats().RootsScanned)
	assert.Equal(t, int64(1), s.Stats().RootsFailed)
}

func TestPaths_AllRootsFail(t *testing.T) {
	s, err := New(DefaultOptions())
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	got := collect(t, s, filepath.Join(t.TempDir(), "missing"), file)
	assert.Empty(t, got)
	assert.ErrorIs(t, s.Err(), types.ErrScanFailed)
}

func TestPaths_EmptyRootIsNotFailure(t *testing.T) {
	s, err := New(DefaultOptions())
	require.NoError(t, err)

	assert.Empty(t, collect(t, s, t.TempDir()))
	assert.NoError(t, s.Err())
}

func TestPaths_UnreadableRoot(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits not enforced")
	}

	root := t.TempDir()
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Mkdir(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	s, err := New(DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, collect(t, s, locked))
	assert.ErrorIs(t, s.Err(), types.ErrScanFailed)
}

func TestPaths_LazyEarlyStop(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"1.png", "2.png", "3.png", "4.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), nil, 0o644))
	}

	s, err := New(DefaultOptions())
	require.NoError(t, err)

	var got []string
	for p := range s.Paths(context.Background(), root) {
		got = append(got, filepath.Base(p))
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"1.png", "2.png"}, got)
	assert.Equal(t, int64(2), s.Stats().FilesMatched)

	// Re-invocation restarts from the beginning.
	assert.Len(t, collect(t, s, root), 4)
}

func TestPaths_Cancelled(t *testing.T) {
	root := createTree(t)
	s, err := New(DefaultOptions())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Empty(t, slices.Collect(s.Paths(ctx, root)))
}

func TestNew_InvalidPattern(t *testing.T) {
	_, err := New(Options{Exclude: []string{"[unclosed"}})
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestOptions_Validate(t *testing.T) {
	o := Options{MaxDepth: 100, Extensions: []string{"PNG", " .Jpg ", ""}}
	_, err := o.Validate()
	require.NoError(t, err)
	assert.Equal(t, MaxDepthLimit, o.MaxDepth)
	assert.Equal(t, []string{".png", ".jpg"}, o.Extensions)

	neg := Options{MaxDepth: -3}
	_, err = neg.Validate()
	require.NoError(t, err)
	assert.Equal(t, 0, neg.MaxDepth)
	assert.Equal(t, DefaultExtensions, neg.Extensions)
}
