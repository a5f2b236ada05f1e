package types

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"
)

// Error kinds produced by the benchmarking pipeline. None of them is fatal to a
// run; they degrade the result instead.
var (
	// ErrMetadataUnreadable means the image header could not be read or
	// reported degenerate dimensions.
	ErrMetadataUnreadable = errors.New("image metadata unreadable")

	// ErrDecodeFailure means the decoder rejected the image.
	ErrDecodeFailure = errors.New("image decode failed")

	// ErrDecodeTimeout means the decode did not finish within the per-image timeout.
	ErrDecodeTimeout = errors.New("image decode timed out")

	// ErrNoCandidatesFound means the scan succeeded but nothing survived filtering.
	// Profiles report this as a state; profile.Profile.Err wraps it.
	ErrNoCandidatesFound = errors.New("no benchmark candidates found")

	// ErrScanFailed means none of the search roots could be enumerated.
	ErrScanFailed = errors.New("scan failed: no search root could be read")
)

// FailureKind classifies why a sample failed or a candidate was rejected.
type FailureKind string

const (
	// FailureNone marks a successful sample.
	FailureNone FailureKind = ""
	// FailureMetadataUnreadable marks an unreadable or degenerate header.
	FailureMetadataUnreadable FailureKind = "metadata_unreadable"
	// FailureDecode marks a decoder error.
	FailureDecode FailureKind = "decode_failure"
	// FailureTimeout marks a decode that exceeded the per-image timeout.
	FailureTimeout FailureKind = "decode_timeout"
	// FailureCancelled marks a decode abandoned because the caller cancelled.
	FailureCancelled FailureKind = "cancelled"
)

// Err returns the sentinel error for the failure kind, or nil for FailureNone.
func (k FailureKind) Err() error {
	switch k {
	case FailureMetadataUnreadable:
		return ErrMetadataUnreadable
	case FailureDecode:
		return ErrDecodeFailure
	case FailureTimeout:
		return ErrDecodeTimeout
	case FailureCancelled:
		return context.Canceled
	default:
		return nil
	}
}

// ImageFormat is a normalized image format name.
type ImageFormat string

// Known image formats.
const (
	FormatJPEG    ImageFormat = "jpeg"
	FormatPNG     ImageFormat = "png"
	FormatGIF     ImageFormat = "gif"
	FormatBMP     ImageFormat = "bmp"
	FormatTIFF    ImageFormat = "tiff"
	FormatWebP    ImageFormat = "webp"
	FormatUnknown ImageFormat = "unknown"
)

// FormatFromPath derives the format from the file suffix. "jpg" is reported as
// jpeg and "tif" as tiff.
func FormatFromPath(path string) ImageFormat {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return ParseFormat(ext)
}

// ParseFormat normalizes a format name or suffix (with or without a dot).
func ParseFormat(s string) ImageFormat {
	switch strings.TrimPrefix(strings.ToLower(s), ".") {
	case "jpg", "jpeg":
		return FormatJPEG
	case "png":
		return FormatPNG
	case "gif":
		return FormatGIF
	case "bmp":
		return FormatBMP
	case "tif", "tiff":
		return FormatTIFF
	case "webp":
		return FormatWebP
	default:
		return FormatUnknown
	}
}

// ImageCandidate is a file considered for benchmarking.
type ImageCandidate struct {
	// Path is the file path as produced by the scanner.
	Path string `json:"path" yaml:"path"`

	// FileSizeBytes is the on-disk size reported by the filesystem.
	FileSizeBytes int64 `json:"file_size_bytes" yaml:"file_size_bytes"`

	// Width and Height come from the image header, not from a full decode.
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`

	// IsRemotePlaceholder is true for cloud files not materialized locally.
	IsRemotePlaceholder bool `json:"is_remote_placeholder" yaml:"is_remote_placeholder"`

	// Format is the header-reported format, or the suffix-derived one.
	Format ImageFormat `json:"format" yaml:"format"`
}

// Megapixels returns width*height/1e6 from header dimensions.
func (c ImageCandidate) Megapixels() float64 {
	return float64(c.Width) * float64(c.Height) / 1e6
}

// FormatName returns the candidate format, falling back to the path suffix.
func (c ImageCandidate) FormatName() ImageFormat {
	if c.Format != "" && c.Format != FormatUnknown {
		return c.Format
	}
	return FormatFromPath(c.Path)
}

// BenchmarkSample records one attempted decode. Samples are never mutated
// after the runner appends them.
type BenchmarkSample struct {
	Candidate ImageCandidate `json:"candidate" yaml:"candidate"`

	// DecodeDurationMicros is the wall time of decode plus texture stage.
	DecodeDurationMicros int64 `json:"decode_duration_micros" yaml:"decode_duration_micros"`

	// TextureDurationMicros is the part of DecodeDurationMicros spent converting
	// and downscaling the decoded pixels. Zero when the stage is disabled.
	TextureDurationMicros int64 `json:"texture_duration_micros,omitempty" yaml:"texture_duration_micros,omitempty"`

	Succeeded     bool        `json:"succeeded" yaml:"succeeded"`
	FailureReason FailureKind `json:"failure_reason,omitempty" yaml:"failure_reason,omitempty"`

	// Detail carries the underlying error text for failed samples.
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Duration returns the sample duration as a time.Duration.
func (s BenchmarkSample) Duration() time.Duration {
	return time.Duration(s.DecodeDurationMicros) * time.Microsecond
}

// Rejection records why the safety filter dropped a path.
type Rejection struct {
	Path   string       `json:"path" yaml:"path"`
	Reason RejectReason `json:"reason" yaml:"reason"`
	Detail string       `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// RejectReason classifies safety filter rejections.
type RejectReason string

// Rejection reasons, in the order the filter checks them.
const (
	RejectStatFailed         RejectReason = "stat_failed"
	RejectNotRegular         RejectReason = "not_regular"
	RejectTooLarge           RejectReason = "too_large"
	RejectRemotePlaceholder  RejectReason = "remote_placeholder"
	RejectMetadataUnreadable RejectReason = "metadata_unreadable"
	RejectTooManyMegapixels  RejectReason = "too_many_megapixels"
	RejectChangedSinceSelect RejectReason = "changed_since_select"
)
