// Package limits maps performance tiers to the safety limits used when
// selecting benchmark images: maximum file size, maximum megapixels and the
// maximum number of images to test.
package limits

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jamesainslie/imgbench/pkg/imgbench/tuner"
	"github.com/jamesainslie/imgbench/pkg/imgbench/types"
)

// BenchmarkLimits bounds which images are safe to benchmark on a tier.
type BenchmarkLimits struct {
	// MaxFileSizeBytes is the largest on-disk size accepted.
	MaxFileSizeBytes int64 `json:"max_file_size_bytes" yaml:"max_file_size_bytes" validate:"gt=0"`

	// MaxMegapixels is compared against width*height/1e6 from the image header.
	MaxMegapixels float64 `json:"max_megapixels" yaml:"max_megapixels" validate:"gt=0"`

	// MaxCandidateCount is the number of images the selector keeps.
	MaxCandidateCount int `json:"max_candidate_count" yaml:"max_candidate_count" validate:"gt=0"`
}

// AllowsSize reports whether size is within the file size limit.
func (l BenchmarkLimits) AllowsSize(size int64) bool {
	return size <= l.MaxFileSizeBytes
}

// AllowsMegapixels reports whether mp is within the megapixel limit.
func (l BenchmarkLimits) AllowsMegapixels(mp float64) bool {
	return mp <= l.MaxMegapixels
}

// Table is a complete tier -> limits mapping.
type Table map[tuner.Tier]BenchmarkLimits

// DefaultTable returns the canonical limits for every tier.
func DefaultTable() Table {
	return Table{
		tuner.TierLow:       {MaxFileSizeBytes: 2 * types.MiB, MaxMegapixels: 4, MaxCandidateCount: 3},
		tuner.TierModerate:  {MaxFileSizeBytes: 5 * types.MiB, MaxMegapixels: 8, MaxCandidateCount: 5},
		tuner.TierGood:      {MaxFileSizeBytes: 10 * types.MiB, MaxMegapixels: 16, MaxCandidateCount: 8},
		tuner.TierHigh:      {MaxFileSizeBytes: 20 * types.MiB, MaxMegapixels: 32, MaxCandidateCount: 10},
		tuner.TierExcellent: {MaxFileSizeBytes: 50 * types.MiB, MaxMegapixels: 64, MaxCandidateCount: 15},
	}
}

// For returns the limits for tier. Tiers missing from the table, including
// TierUnknown, fall back to the TierLow entry and then to the canonical
// TierLow limits, so the lookup is total.
func (t Table) For(tier tuner.Tier) BenchmarkLimits {
	if l, ok := t[tier]; ok {
		return l
	}
	if l, ok := t[tuner.TierLow]; ok {
		return l
	}
	return DefaultTable()[tuner.TierLow]
}

// Override replaces individual fields of a tier's limits. Zero fields keep
// the existing value.
type Override struct {
	MaxFileSizeBytes  int64
	MaxMegapixels     float64
	MaxCandidateCount int
}

// WithOverrides returns a copy of the table with overrides applied.
func (t Table) WithOverrides(overrides map[tuner.Tier]Override) Table {
	out := make(Table, len(t))
	for tier, l := range t {
		out[tier] = l
	}

	for tier, o := range overrides {
		l := out.For(tier)
		if o.MaxFileSizeBytes > 0 {
			l.MaxFileSizeBytes = o.MaxFileSizeBytes
		}
		if o.MaxMegapixels > 0 {
			l.MaxMegapixels = o.MaxMegapixels
		}
		if o.MaxCandidateCount > 0 {
			l.MaxCandidateCount = o.MaxCandidateCount
		}
		out[tier] = l
	}

	return out
}

// ErrInvalidTable is returned when a table is incomplete, has non-positive
// values or is not non-decreasing across the tier ordering.
var ErrInvalidTable = errors.New("invalid limit table")

var validate = validator.New()

// Validate checks that every tier is present with positive values and that
// each limit is non-decreasing from TierLow to TierExcellent.
func (t Table) Validate() error {
	var prev *BenchmarkLimits
	var prevTier tuner.Tier

	for _, tier := range tuner.All() {
		l, ok := t[tier]
		if !ok {
			return fmt.Errorf("%w: missing tier %s", ErrInvalidTable, tier)
		}
		if err := validate.Struct(l); err != nil {
			return fmt.Errorf("%w: tier %s: %w", ErrInvalidTable, tier, err)
		}

		if prev != nil {
			switch {
			case l.MaxFileSizeBytes < prev.MaxFileSizeBytes:
				return fmt.Errorf("%w: max file size of %s (%s) is below %s (%s)",
					ErrInvalidTable, tier, types.FormatSize(l.MaxFileSizeBytes),
					prevTier, types.FormatSize(prev.MaxFileSizeBytes))
			case l.MaxMegapixels < prev.MaxMegapixels:
				return fmt.Errorf("%w: max megapixels of %s (%g) is below %s (%g)",
					ErrInvalidTable, tier, l.MaxMegapixels, prevTier, prev.MaxMegapixels)
			case l.MaxCandidateCount < prev.MaxCandidateCount:
				return fmt.Errorf("%w: max candidates of %s (%d) is below %s (%d)",
					ErrInvalidTable, tier, l.MaxCandidateCount, prevTier, prev.MaxCandidateCount)
			}
		}

		prev = &l
		prevTier = tier
	}

	return nil
}
