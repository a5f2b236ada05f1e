// Package decoder fully decodes images for timing. Decoded pixels are
// discarded; only dimensions and stage durations are returned.
package decoder

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/draw"
	"os"
	"time"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/nfnt/resize"

	"github.com/jamesainslie/imgbench/pkg/imgbench/types"
)

// DefaultMaxTextureSize is the largest texture edge produced by the texture
// stage.
const DefaultMaxTextureSize = 16384

// Result describes a completed decode.
type Result struct {
	Width  int
	Height int
	Format types.ImageFormat

	// DecodeDuration covers reading and decoding the file.
	DecodeDuration time.Duration

	// TextureDuration covers RGBA conversion and downscaling. Zero when the
	// texture stage is disabled.
	TextureDuration time.Duration

	// TextureWidth and TextureHeight are the final texture dimensions.
	TextureWidth  int
	TextureHeight int
}

// Total returns the combined duration of both stages.
func (r Result) Total() time.Duration {
	return r.DecodeDuration + r.TextureDuration
}

// Decoder decodes one image. Errors wrap types.ErrDecodeFailure unless the
// context ended first, in which case the context error is returned.
type Decoder interface {
	Decode(ctx context.Context, path string) (Result, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(ctx context.Context, path string) (Result, error)

// Decode calls f(ctx, path).
func (f DecoderFunc) Decode(ctx context.Context, path string) (Result, error) {
	return f(ctx, path)
}

// Image decodes with the standard image decoders.
type Image struct {
	// TextureStage converts the decoded image to RGBA and downsizes it to
	// MaxTextureSize, as a renderer would before upload.
	TextureStage bool

	// MaxTextureSize bounds the texture edge. Zero uses DefaultMaxTextureSize.
	MaxTextureSize int
}

// New returns an Image decoder with the texture stage enabled.
func New() *Image {
	return &Image{TextureStage: true, MaxTextureSize: DefaultMaxTextureSize}
}

// Decode decodes path and, when enabled, runs the texture stage.
func (d *Image) Decode(ctx context.Context, path string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	start := time.Now()
	img, format, err := decodeFile(path)
	if err != nil {
		return Result{}, err
	}

	bounds := img.Bounds()
	res := Result{
		Width:          bounds.Dx(),
		Height:         bounds.Dy(),
		Format:         types.ParseFormat(format),
		DecodeDuration: time.Since(start),
		TextureWidth:   bounds.Dx(),
		TextureHeight:  bounds.Dy(),
	}

	if !d.TextureStage {
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	start = time.Now()
	tex := d.texture(img)
	res.TextureDuration = time.Since(start)
	res.TextureWidth = tex.Bounds().Dx()
	res.TextureHeight = tex.Bounds().Dy()

	return res, nil
}

func decodeFile(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", types.ErrDecodeFailure, err)
	}
	defer f.Close()

	img, format, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %w", types.ErrDecodeFailure, path, err)
	}
	return img, format, nil
}

// texture returns an RGBA image no larger than MaxTextureSize on either edge.
func (d *Image) texture(img image.Image) image.Image {
	limit := d.MaxTextureSize
	if limit <= 0 {
		limit = DefaultMaxTextureSize
	}

	rgba, ok := img.(*image.RGBA)
	if !ok {
		b := img.Bounds()
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}

	b := rgba.Bounds()
	if b.Dx() <= limit && b.Dy() <= limit {
		return rgba
	}
	return resize.Thumbnail(uint(limit), uint(limit), rgba, resize.Bilinear)
}
