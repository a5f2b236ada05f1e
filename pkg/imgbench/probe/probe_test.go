package probe

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/jamesainslie/imgbench/pkg/imgbench/cache"
	"github.com/jamesainslie/imgbench/pkg/imgbench/imagetest"
	"github.com/jamesainslie/imgbench/pkg/imgbench/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeader_ReadImageInfo(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name   string
		path   string
		width  int
		height int
		format types.ImageFormat
	}{
		{"png", imagetest.WritePNG(t, filepath.Join(dir, "a.png"), 40, 30), 40, 30, types.FormatPNG},
		{"jpeg", imagetest.WriteJPEG(t, filepath.Join(dir, "b.jpg"), 16, 8), 16, 8, types.FormatJPEG},
		{"gif", imagetest.WriteGIF(t, filepath.Join(dir, "c.gif"), 5, 7), 5, 7, types.FormatGIF},
		{"bmp", imagetest.WriteBMP(t, filepath.Join(dir, "d.bmp"), 9, 3), 9, 3, types.FormatBMP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := Header{}.ReadImageInfo(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.width, info.Width)
			assert.Equal(t, tt.height, info.Height)
			assert.Equal(t, tt.format, info.Format)
		})
	}
}

func TestHeader_Unreadable(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(dir, "missing.png")},
		{"corrupt", imagetest.WriteBytes(t, filepath.Join(dir, "bad.png"), []byte("not an image at all"))},
		{"empty", imagetest.WriteBytes(t, filepath.Join(dir, "empty.jpg"), nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Header{}.ReadImageInfo(tt.path)
			assert.ErrorIs(t, err, types.ErrMetadataUnreadable)
		})
	}
}

func TestValidate_DegenerateDimensions(t *testing.T) {
	for _, info := range []Info{{Width: 0, Height: 10}, {Width: 10, Height: 0}, {Width: -1, Height: 5}} {
		_, err := validate(info, "x.png")
		assert.ErrorIs(t, err, types.ErrMetadataUnreadable, "%+v", info)
	}

	got, err := validate(Info{Width: 2000, Height: 1000}, "x.png")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, got.Megapixels(), 1e-9)
}

func TestCached_ReadImageInfo(t *testing.T) {
	c, err := cache.OpenInMemory()
	require.NoError(t, err)
	defer c.Close()

	dir := t.TempDir()
	good := imagetest.WritePNG(t, filepath.Join(dir, "good.png"), 12, 6)
	bad := imagetest.WriteBytes(t, filepath.Join(dir, "bad.png"), []byte("garbage"))

	calls := map[string]int{}
	counting := ProberFunc(func(path string) (Info, error) {
		calls[path]++
		return Header{}.ReadImageInfo(path)
	})
	p := NewCached(counting, c)

	for range 3 {
		info, err := p.ReadImageInfo(good)
		require.NoError(t, err)
		assert.Equal(t, 12, info.Width)
		assert.Equal(t, types.FormatPNG, info.Format)

		_, err = p.ReadImageInfo(bad)
		assert.True(t, errors.Is(err, types.ErrMetadataUnreadable))
	}

	assert.Equal(t, 1, calls[good], "readable header probed once")
	assert.Equal(t, 1, calls[bad], "unreadable header probed once")
	assert.Equal(t, cache.Stats{Hits: 4, Misses: 2}, c.Stats())

	// Rewriting the file invalidates the entry.
	imagetest.WritePNG(t, good, 20, 20)
	imagetest.Pad(t, good, 4096)
	info, err := p.ReadImageInfo(good)
	require.NoError(t, err)
	assert.Equal(t, 20, info.Width)
	assert.Equal(t, 2, calls[good])
}

func TestCached_MissingFile(t *testing.T) {
	c, err := cache.OpenInMemory()
	require.NoError(t, err)
	defer c.Close()

	_, err = NewCached(Header{}, c).ReadImageInfo(filepath.Join(t.TempDir(), "nope.png"))
	assert.ErrorIs(t, err, types.ErrMetadataUnreadable)
}
