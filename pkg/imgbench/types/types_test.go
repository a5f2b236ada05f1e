package types

import (
	"context"
	"errors"
	"testing"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr error
	}{
		{name: "plain bytes", input: "1024", want: 1024},
		{name: "zero bytes", input: "0", want: 0},
		{name: "kilobytes", input: "512K", want: 512 * KiB},
		{name: "megabytes with B", input: "2MB", want: 2 * MiB},
		{name: "megabytes with iB", input: "50MiB", want: 50 * MiB},
		{name: "gigabytes lowercase", input: "2g", want: 2 * GiB},
		{name: "decimal truncated", input: "1.5M", want: 1572864},
		{name: "whitespace", input: "  10MB  ", want: 10 * MiB},

		{name: "empty string", input: "", wantErr: ErrInvalidSize},
		{name: "invalid suffix", input: "100X", wantErr: ErrInvalidSize},
		{name: "negative value", input: "-2MB", wantErr: ErrNegativeSize},
		{name: "suffix only", input: "MB", wantErr: ErrInvalidSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseSize(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSize(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseSize(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{bytes: 0, want: "0 B"},
		{bytes: 500, want: "500 B"},
		{bytes: 2 * MiB, want: "2.0 MiB"},
		{bytes: 1536 * KiB, want: "1.5 MiB"},
	}

	for _, tt := range tests {
		if got := FormatSize(tt.bytes); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]ImageFormat{
		"photo.jpg":        FormatJPEG,
		"photo.JPEG":       FormatJPEG,
		"dir/scan.tif":     FormatTIFF,
		"icon.png":         FormatPNG,
		"anim.gif":         FormatGIF,
		"legacy.bmp":       FormatBMP,
		"modern.webp":      FormatWebP,
		"vector.svg":       FormatUnknown,
		"no-extension":     FormatUnknown,
		"archive.tar.gz":   FormatUnknown,
		"assets/tiny.jpeg": FormatJPEG,
	}

	for path, want := range tests {
		if got := FormatFromPath(path); got != want {
			t.Errorf("FormatFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestImageCandidate_Megapixels(t *testing.T) {
	c := ImageCandidate{Width: 2000, Height: 1500}
	if got := c.Megapixels(); got != 3.0 {
		t.Errorf("Megapixels() = %v, want 3.0", got)
	}

	var zero ImageCandidate
	if got := zero.Megapixels(); got != 0 {
		t.Errorf("zero candidate Megapixels() = %v, want 0", got)
	}
}

func TestImageCandidate_FormatName(t *testing.T) {
	withHeader := ImageCandidate{Path: "a.jpg", Format: FormatPNG}
	if got := withHeader.FormatName(); got != FormatPNG {
		t.Errorf("FormatName() = %q, want header format png", got)
	}

	suffixOnly := ImageCandidate{Path: "a.jpg"}
	if got := suffixOnly.FormatName(); got != FormatJPEG {
		t.Errorf("FormatName() = %q, want jpeg from suffix", got)
	}
}

func TestFailureKind_Err(t *testing.T) {
	tests := []struct {
		kind FailureKind
		want error
	}{
		{FailureNone, nil},
		{FailureMetadataUnreadable, ErrMetadataUnreadable},
		{FailureDecode, ErrDecodeFailure},
		{FailureTimeout, ErrDecodeTimeout},
		{FailureCancelled, context.Canceled},
	}

	for _, tt := range tests {
		if got := tt.kind.Err(); !errors.Is(got, tt.want) || (tt.want == nil && got != nil) {
			t.Errorf("%q.Err() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}
