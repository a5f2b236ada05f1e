package decoder

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jamesainslie/imgbench/pkg/imgbench/imagetest"
	"github.com/jamesainslie/imgbench/pkg/imgbench/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImage_Decode(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name   string
		path   string
		format types.ImageFormat
	}{
		{"png", imagetest.WritePNG(t, filepath.Join(dir, "a.png"), 64, 48), types.FormatPNG},
		{"jpeg", imagetest.WriteJPEG(t, filepath.Join(dir, "a.jpg"), 64, 48), types.FormatJPEG},
		{"gif", imagetest.WriteGIF(t, filepath.Join(dir, "a.gif"), 64, 48), types.FormatGIF},
		{"bmp", imagetest.WriteBMP(t, filepath.Join(dir, "a.bmp"), 64, 48), types.FormatBMP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := New().Decode(context.Background(), tt.path)
			require.NoError(t, err)
			assert.Equal(t, 64, res.Width)
			assert.Equal(t, 48, res.Height)
			assert.Equal(t, tt.format, res.Format)
			assert.Equal(t, 64, res.TextureWidth)
			assert.GreaterOrEqual(t, res.Total(), res.DecodeDuration)
		})
	}
}

func TestImage_TextureDownscale(t *testing.T) {
	path := imagetest.WritePNG(t, filepath.Join(t.TempDir(), "wide.png"), 200, 100)

	d := &Image{TextureStage: true, MaxTextureSize: 50}
	res, err := d.Decode(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 200, res.Width, "decoded size is reported unscaled")
	assert.Equal(t, 50, res.TextureWidth)
	assert.Equal(t, 25, res.TextureHeight)
}

func TestImage_NoTextureStage(t *testing.T) {
	path := imagetest.WritePNG(t, filepath.Join(t.TempDir(), "a.png"), 10, 10)

	res, err := (&Image{}).Decode(context.Background(), path)
	require.NoError(t, err)
	assert.Zero(t, res.TextureDuration)
	assert.Equal(t, res.DecodeDuration, res.Total())
}

func TestImage_DecodeFailure(t *testing.T) {
	dir := t.TempDir()
	corrupt := imagetest.WriteBytes(t, filepath.Join(dir, "bad.png"), []byte("\x89PNG\r\n\x1a\ntruncated"))

	_, err := New().Decode(context.Background(), corrupt)
	assert.ErrorIs(t, err, types.ErrDecodeFailure)

	_, err = New().Decode(context.Background(), filepath.Join(dir, "missing.png"))
	assert.ErrorIs(t, err, types.ErrDecodeFailure)
}

func TestImage_Cancelled(t *testing.T) {
	path := imagetest.WritePNG(t, filepath.Join(t.TempDir(), "a.png"), 10, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Decode(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}
