// Package probe reads image dimensions from file headers without decoding
// pixel data.
package probe

import (
	"bufio"
	"fmt"
	"image"
	"os"

	// Registered header readers.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/jamesainslie/imgbench/pkg/imgbench/types"
)

// Info is the header information of an image.
type Info struct {
	Width  int
	Height int
	Format types.ImageFormat
}

// Megapixels returns width*height/1e6.
func (i Info) Megapixels() float64 {
	return float64(i.Width) * float64(i.Height) / 1e6
}

// Prober reads image header information. Implementations must not decode
// pixel data. Errors wrap types.ErrMetadataUnreadable.
type Prober interface {
	ReadImageInfo(path string) (Info, error)
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(path string) (Info, error)

// ReadImageInfo calls f(path).
func (f ProberFunc) ReadImageInfo(path string) (Info, error) {
	return f(path)
}

// headerBufferSize is large enough for the headers of every registered format.
const headerBufferSize = 64 * 1024

// Header is the Prober backed by image.DecodeConfig.
type Header struct{}

// ReadImageInfo reads the image header at path. Zero or negative dimensions
// are reported as unreadable.
func (Header) ReadImageInfo(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %w", types.ErrMetadataUnreadable, err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(bufio.NewReaderSize(f, headerBufferSize))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s: %w", types.ErrMetadataUnreadable, path, err)
	}

	return validate(Info{Width: cfg.Width, Height: cfg.Height, Format: types.ParseFormat(format)}, path)
}

func validate(info Info, path string) (Info, error) {
	if info.Width <= 0 || info.Height <= 0 {
		return Info{}, fmt.Errorf("%w: %s: degenerate dimensions %dx%d",
			types.ErrMetadataUnreadable, path, info.Width, info.Height)
	}
	return info, nil
}
