// Package imagetest writes small real image files for tests.
package imagetest

import (
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
)

// Gradient returns a w x h RGBA image with a simple gradient.
func Gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x + y), A: 255})
		}
	}
	return img
}

func create(tb testing.TB, path string) *os.File {
	tb.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		tb.Fatal(err)
	}
	return f
}

func finish(tb testing.TB, f *os.File, err error) {
	tb.Helper()
	if err != nil {
		_ = f.Close()
		tb.Fatal(err)
	}
	if err := f.Close(); err != nil {
		tb.Fatal(err)
	}
}

// WritePNG writes a w x h PNG to path.
func WritePNG(tb testing.TB, path string, w, h int) string {
	tb.Helper()
	f := create(tb, path)
	finish(tb, f, png.Encode(f, Gradient(w, h)))
	return path
}

// WriteJPEG writes a w x h JPEG to path.
func WriteJPEG(tb testing.TB, path string, w, h int) string {
	tb.Helper()
	f := create(tb, path)
	finish(tb, f, jpeg.Encode(f, Gradient(w, h), &jpeg.Options{Quality: 80}))
	return path
}

// WriteGIF writes a w x h GIF to path.
func WriteGIF(tb testing.TB, path string, w, h int) string {
	tb.Helper()
	f := create(tb, path)
	finish(tb, f, gif.Encode(f, Gradient(w, h), nil))
	return path
}

// WriteBMP writes a w x h BMP to path.
func WriteBMP(tb testing.TB, path string, w, h int) string {
	tb.Helper()
	f := create(tb, path)
	finish(tb, f, bmp.Encode(f, Gradient(w, h)))
	return path
}

// WriteBytes writes raw content to path, for corrupt or non-image files.
func WriteBytes(tb testing.TB, path string, data []byte) string {
	tb.Helper()
	f := create(tb, path)
	_, err := f.Write(data)
	finish(tb, f, err)
	return path
}

// Pad appends zero bytes to path until it is at least size bytes long.
// Decoders ignore trailing data, so the image stays valid.
func Pad(tb testing.TB, path string, size int64) {
	tb.Helper()
	info, err := os.Stat(path)
	if err != nil {
		tb.Fatal(err)
	}
	if info.Size() >= size {
		return
	}
	if err := os.Truncate(path, size); err != nil {
		tb.Fatal(err)
	}
}
