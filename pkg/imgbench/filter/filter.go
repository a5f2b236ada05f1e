// Package filter implements the safety filter and selector: it turns scanned
// paths into image candidates that fit a tier's limits without ever reading a
// cloud placeholder, then orders and truncates them for benchmarking.
package filter

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"

	"github.com/jamesainslie/imgbench/pkg/imgbench/limits"
	"github.com/jamesainslie/imgbench/pkg/imgbench/locality"
	"github.com/jamesainslie/imgbench/pkg/imgbench/logging"
	"github.com/jamesainslie/imgbench/pkg/imgbench/probe"
	"github.com/jamesainslie/imgbench/pkg/imgbench/types"
)

// Filter checks paths against a set of limits.
type Filter struct {
	limits   limits.BenchmarkLimits
	prober   probe.Prober
	locality locality.Checker
	onReject func(types.Rejection)
	maxPaths int
	log      *logging.Logger
}

// Option is a functional option for configuring a Filter.
type Option func(*Filter)

// WithProber sets the metadata prober. The default reads image headers.
func WithProber(p probe.Prober) Option {
	return func(f *Filter) {
		f.prober = p
	}
}

// WithLocality sets the placeholder check. The default uses file metadata.
func WithLocality(c locality.Checker) Option {
	return func(f *Filter) {
		f.locality = c
	}
}

// WithRejectHandler sets a callback invoked for every rejected path.
func WithRejectHandler(fn func(types.Rejection)) Option {
	return func(f *Filter) {
		f.onReject = fn
	}
}

// WithMaxPaths stops Accept after examining n paths. Zero or negative means
// no limit.
func WithMaxPaths(n int) Option {
	return func(f *Filter) {
		f.maxPaths = max(n, 0)
	}
}

// New creates a Filter for the given limits.
func New(l limits.BenchmarkLimits, opts ...Option) *Filter {
	f := &Filter{
		limits:   l,
		prober:   probe.Header{},
		locality: locality.FS{},
		log:      logging.Get("filter"),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Limits returns the limits the filter enforces.
func (f *Filter) Limits() limits.BenchmarkLimits {
	return f.limits
}

// Check runs the safety checks on one path, cheapest first:
//
//  1. file size from filesystem metadata
//  2. cloud placeholder status, before anything reads the content
//  3. header dimensions via the prober
//  4. megapixels against the limit
//
// It returns the accepted candidate, or a rejection.
func (f *Filter) Check(path string) (types.ImageCandidate, *types.Rejection) {
	info, err := os.Stat(path)
	if err != nil {
		return types.ImageCandidate{}, f.reject(path, types.RejectStatFailed, err.Error())
	}
	if !info.Mode().IsRegular() {
		return types.ImageCandidate{}, f.reject(path, types.RejectNotRegular, info.Mode().Type().String())
	}

	size := info.Size()
	if !f.limits.AllowsSize(size) {
		return types.ImageCandidate{}, f.reject(path, types.RejectTooLarge,
			fmt.Sprintf("%s > %s", types.FormatSize(size), types.FormatSize(f.limits.MaxFileSizeBytes)))
	}

	if status, err := f.status(path); err != nil {
		return types.ImageCandidate{}, f.reject(path, types.RejectStatFailed, err.Error())
	} else if !status.Safe() {
		return types.ImageCandidate{}, f.reject(path, types.RejectRemotePlaceholder, status.String())
	}

	header, err := f.prober.ReadImageInfo(path)
	if err != nil {
		return types.ImageCandidate{}, f.reject(path, types.RejectMetadataUnreadable, err.Error())
	}
	if header.Width <= 0 || header.Height <= 0 {
		return types.ImageCandidate{}, f.reject(path, types.RejectMetadataUnreadable,
			fmt.Sprintf("degenerate dimensions %dx%d", header.Width, header.Height))
	}

	c := types.ImageCandidate{
		Path:          path,
		FileSizeBytes: size,
		Width:         header.Width,
		Height:        header.Height,
		Format:        header.Format,
	}
	if c.Format == "" || c.Format == types.FormatUnknown {
		c.Format = types.FormatFromPath(path)
	}

	if mp := c.Megapixels(); !f.limits.AllowsMegapixels(mp) {
		return types.ImageCandidate{}, f.reject(path, types.RejectTooManyMegapixels,
			fmt.Sprintf("%.2fMP > %.2fMP", mp, f.limits.MaxMegapixels))
	}

	return c, nil
}

// Accept lazily filters paths, yielding accepted candidates in input order.
func (f *Filter) Accept(ctx context.Context, paths iter.Seq[string]) iter.Seq[types.ImageCandidate] {
	return func(yield func(types.ImageCandidate) bool) {
		examined := 0
		for path := range paths {
			if ctx.Err() != nil {
				return
			}
			if f.maxPaths > 0 && examined >= f.maxPaths {
				f.log.Info("path limit reached, stopping filter", "examined", examined)
				return
			}
			examined++

			c, rej := f.Check(path)
			if rej != nil {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}

// ErrChanged reports that a selected candidate no longer matches what was
// selected.
var ErrChanged = errors.New("candidate changed since selection")

// Revalidate re-checks a selected candidate with a stat and a placeholder
// check before it is decoded. It fails when the file is gone, has changed
// size, or no longer fits the limits.
func (f *Filter) Revalidate(c types.ImageCandidate) error {
	info, err := os.Stat(c.Path)
	if err != nil {
		return f.revalidationFailed(c.Path, err.Error())
	}
	if info.Size() != c.FileSizeBytes {
		return f.revalidationFailed(c.Path, fmt.Sprintf("size %d != %d", info.Size(), c.FileSizeBytes))
	}
	if !f.limits.AllowsSize(info.Size()) {
		return f.revalidationFailed(c.Path, "exceeds size limit")
	}
	if status, err := f.status(c.Path); err != nil {
		return f.revalidationFailed(c.Path, err.Error())
	} else if !status.Safe() {
		return f.revalidationFailed(c.Path, "locality "+status.String())
	}
	return nil
}

// status reports the locality of the file path resolves to. Placeholder
// flags live on the target, so a link to an on-demand file must be judged
// by the target or reading through the link would fetch it.
func (f *Filter) status(path string) (locality.Status, error) {
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return locality.Unknown, err
	}
	return f.locality.Status(target), nil
}

func (f *Filter) revalidationFailed(path, detail string) error {
	f.reject(path, types.RejectChangedSinceSelect, detail)
	return fmt.Errorf("%w: %s: %s", ErrChanged, path, detail)
}

func (f *Filter) reject(path string, reason types.RejectReason, detail string) *types.Rejection {
	r := types.Rejection{Path: path, Reason: reason, Detail: detail}
	f.log.Debug("rejected candidate", "path", path, "reason", reason, "detail", detail)
	if f.onReject != nil {
		f.onReject(r)
	}
	return &r
}
