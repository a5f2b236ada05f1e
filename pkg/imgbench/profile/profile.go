// Package profile aggregates benchmark samples into a read-only performance
// profile.
package profile

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jamesainslie/imgbench/pkg/imgbench/limits"
	"github.com/jamesainslie/imgbench/pkg/imgbench/runner"
	"github.com/jamesainslie/imgbench/pkg/imgbench/tuner"
	"github.com/jamesainslie/imgbench/pkg/imgbench/types"
)

// Stats summarizes successful samples. The zero value is NoData.
type Stats struct {
	// HasData is false when there were no successful samples; every other
	// field is then zero.
	HasData bool `json:"has_data" yaml:"has_data"`

	Successes int `json:"successes" yaml:"successes"`
	Failures  int `json:"failures" yaml:"failures"`
	Timeouts  int `json:"timeouts" yaml:"timeouts"`

	MeanMicros int64 `json:"mean_micros" yaml:"mean_micros"`
	MaxMicros  int64 `json:"max_micros" yaml:"max_micros"`
	MinMicros  int64 `json:"min_micros" yaml:"min_micros"`

	// PerFormatMeans is the mean duration per image format.
	PerFormatMeans map[types.ImageFormat]int64 `json:"per_format_means,omitempty" yaml:"per_format_means,omitempty"`

	// MaxSuccessfulMegapixels is the largest image decoded successfully.
	MaxSuccessfulMegapixels float64 `json:"max_successful_megapixels" yaml:"max_successful_megapixels"`

	// MicrosPerMegapixel is total successful duration over total megapixels.
	MicrosPerMegapixel float64 `json:"micros_per_megapixel" yaml:"micros_per_megapixel"`

	// TextureMicrosPerMegapixel is the texture stage share of the rate.
	TextureMicrosPerMegapixel float64 `json:"texture_micros_per_megapixel" yaml:"texture_micros_per_megapixel"`

	// PerFormatMicrosPerMegapixel is the rate per image format.
	PerFormatMicrosPerMegapixel map[types.ImageFormat]float64 `json:"per_format_micros_per_megapixel,omitempty" yaml:"per_format_micros_per_megapixel,omitempty"`
}

// NoData is the aggregate of a run without successful samples.
var NoData = Stats{}

// IsNoData reports whether s carries no measurements.
func (s Stats) IsNoData() bool {
	return !s.HasData
}

// Mean returns MeanMicros as a duration.
func (s Stats) Mean() time.Duration { return time.Duration(s.MeanMicros) * time.Microsecond }

// Max returns MaxMicros as a duration.
func (s Stats) Max() time.Duration { return time.Duration(s.MaxMicros) * time.Microsecond }

// Profile is an immutable snapshot of one benchmark run.
type Profile struct {
	Tier   tuner.Tier             `json:"tier" yaml:"tier"`
	Limits limits.BenchmarkLimits `json:"limits" yaml:"limits"`

	// Roots lists the search roots that were scanned.
	Roots []string `json:"roots,omitempty" yaml:"roots,omitempty"`

	// Accepted and Rejected count safety filter outcomes across the scan.
	Accepted int `json:"accepted" yaml:"accepted"`
	Rejected int `json:"rejected" yaml:"rejected"`

	// Selected is the size of the selected set the runner received.
	Selected int `json:"selected" yaml:"selected"`

	Samples []types.BenchmarkSample `json:"samples" yaml:"samples"`
	Stats   Stats                   `json:"stats" yaml:"stats"`

	// Incomplete is set when the run stopped before attempting every
	// selected candidate.
	Incomplete      bool `json:"incomplete" yaml:"incomplete"`
	BudgetExhausted bool `json:"budget_exhausted,omitempty" yaml:"budget_exhausted,omitempty"`
	Cancelled       bool `json:"cancelled,omitempty" yaml:"cancelled,omitempty"`

	// Skipped counts selected candidates that failed revalidation.
	Skipped int `json:"skipped,omitempty" yaml:"skipped,omitempty"`

	Elapsed   time.Duration `json:"elapsed" yaml:"elapsed"`
	CreatedAt time.Time     `json:"created_at" yaml:"created_at"`
}

// Build aggregates samples for tier. It never fails: an empty sample list
// yields NoData stats.
func Build(tier tuner.Tier, samples []types.BenchmarkSample) Profile {
	return Profile{
		Tier:      tier,
		Selected:  len(samples),
		Samples:   slices.Clone(samples),
		Stats:     Aggregate(samples),
		CreatedAt: time.Now(),
	}
}

// FromRun builds a profile from a runner result.
func FromRun(tier tuner.Tier, l limits.BenchmarkLimits, selected int, res runner.Result) Profile {
	p := Build(tier, res.Samples)
	p.Limits = l
	p.Selected = selected
	p.Incomplete = res.Incomplete
	p.BudgetExhausted = res.BudgetExhausted
	p.Cancelled = res.Cancelled
	p.Skipped = res.Skipped
	p.Elapsed = res.Elapsed
	return p
}

// NoCandidates reports that nothing was selected for benchmarking.
func (p Profile) NoCandidates() bool {
	return p.Selected == 0
}

// Err returns an error wrapping types.ErrNoCandidatesFound when nothing was
// selected, and nil otherwise. The profile itself is still well-formed.
func (p Profile) Err() error {
	if !p.NoCandidates() {
		return nil
	}
	if len(p.Roots) == 0 {
		return types.ErrNoCandidatesFound
	}
	return fmt.Errorf("%w under %s", types.ErrNoCandidatesFound, strings.Join(p.Roots, ", "))
}

type accumulator struct {
	count   int64
	micros  int64
	texture int64
	mp      float64
}

func (a *accumulator) add(s types.BenchmarkSample) {
	a.count++
	a.micros += s.DecodeDurationMicros
	a.texture += s.TextureDurationMicros
	a.mp += s.Candidate.Megapixels()
}

func (a *accumulator) rate() float64 {
	if a.mp <= 0 {
		return 0
	}
	return float64(a.micros) / a.mp
}

// Aggregate computes stats over the successful samples.
func Aggregate(samples []types.BenchmarkSample) Stats {
	var st Stats
	var all accumulator
	formats := map[types.ImageFormat]*accumulator{}

	for _, s := range samples {
		if !s.Succeeded {
			st.Failures++
			if s.FailureReason == types.FailureTimeout {
				st.Timeouts++
			}
			continue
		}

		st.Successes++
		all.add(s)

		f := s.Candidate.FormatName()
		if formats[f] == nil {
			formats[f] = &accumulator{}
		}
		formats[f].add(s)

		if all.count == 1 || s.DecodeDurationMicros < st.MinMicros {
			st.MinMicros = s.DecodeDurationMicros
		}
		st.MaxMicros = max(st.MaxMicros, s.DecodeDurationMicros)
		st.MaxSuccessfulMegapixels = max(st.MaxSuccessfulMegapixels, s.Candidate.Megapixels())
	}

	if all.count == 0 {
		failures, timeouts := st.Failures, st.Timeouts
		st = NoData
		st.Failures, st.Timeouts = failures, timeouts
		return st
	}

	st.HasData = true
	st.MeanMicros = all.micros / all.count
	st.MicrosPerMegapixel = all.rate()
	if all.mp > 0 {
		st.TextureMicrosPerMegapixel = float64(all.texture) / all.mp
	}

	st.PerFormatMeans = make(map[types.ImageFormat]int64, len(formats))
	st.PerFormatMicrosPerMegapixel = make(map[types.ImageFormat]float64, len(formats))
	for f, acc := range formats {
		st.PerFormatMeans[f] = acc.micros / acc.count
		if r := acc.rate(); r > 0 {
			st.PerFormatMicrosPerMegapixel[f] = r
		}
	}

	return st
}

// EstimateDecode predicts how long c would take to decode using the
// per-format rate, falling back to the overall rate. It returns false when
// the profile has no data.
func (p Profile) EstimateDecode(c types.ImageCandidate) (time.Duration, bool) {
	if p.Stats.IsNoData() {
		return 0, false
	}

	rate, ok := p.Stats.PerFormatMicrosPerMegapixel[c.FormatName()]
	if !ok {
		rate = p.Stats.MicrosPerMegapixel
	}
	if rate <= 0 {
		return 0, false
	}

	return time.Duration(rate*c.Megapixels()) * time.Microsecond, true
}

// IsSlow reports whether c is estimated to take longer than threshold to
// decode. Without data nothing is considered slow.
func (p Profile) IsSlow(c types.ImageCandidate, threshold time.Duration) bool {
	est, ok := p.EstimateDecode(c)
	return ok && est > threshold
}

// SortedFormats returns the formats with data in name order.
func (s Stats) SortedFormats() []types.ImageFormat {
	formats := make([]types.ImageFormat, 0, len(s.PerFormatMeans))
	for f := range s.PerFormatMeans {
		formats = append(formats, f)
	}
	slices.Sort(formats)
	return formats
}
