// Package engine composes the tier classifier, limit table, scanner, safety
// filter, selector, benchmark runner and profile builder into a single call.
// A run owns all of its state; concurrent runs are independent.
package engine

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/jamesainslie/imgbench/pkg/imgbench/filter"
	"github.com/jamesainslie/imgbench/pkg/imgbench/limits"
	"github.com/jamesainslie/imgbench/pkg/imgbench/logging"
	"github.com/jamesainslie/imgbench/pkg/imgbench/profile"
	"github.com/jamesainslie/imgbench/pkg/imgbench/runner"
	"github.com/jamesainslie/imgbench/pkg/imgbench/scanner"
	"github.com/jamesainslie/imgbench/pkg/imgbench/tuner"
	"github.com/jamesainslie/imgbench/pkg/imgbench/types"
)

// Selection is the outcome of scanning, filtering and selecting.
type Selection struct {
	Tier   tuner.Tier
	Limits limits.BenchmarkLimits

	// Roots lists the roots that were scanned, in order.
	Roots []string

	// Candidates is the selected set, ascending by size then path.
	Candidates []types.ImageCandidate

	Accepted int
	Rejected int

	// RootErrors lists roots that could not be enumerated.
	RootErrors []scanner.RootError
}

// Select classifies the host, scans roots and returns the selected set
// without decoding anything. It returns an error wrapping
// types.ErrScanFailed when no root could be enumerated; an empty selection
// is not an error.
func Select(ctx context.Context, roots []string, signals tuner.HostSignals, opts Options) (Selection, error) {
	return newRun(signals, &opts).selectCandidates(ctx, roots)
}

// RunSafeBenchmark selects safe candidates under roots and benchmarks them
// within budget. The returned profile is always well formed: no candidates,
// failed decodes and an exhausted budget are reported on the profile, not
// as errors. The only error is an unreadable set of roots, which wraps
// types.ErrScanFailed.
func RunSafeBenchmark(ctx context.Context, roots []string, signals tuner.HostSignals, budget runner.Budget, opts Options) (profile.Profile, error) {
	r := newRun(signals, &opts)

	sel, err := r.selectCandidates(ctx, roots)
	if err != nil {
		p := profile.Build(r.tier, nil)
		p.Limits = r.limits
		p.Roots = sel.Roots
		return p, err
	}

	if len(sel.Candidates) == 0 {
		r.log.Info("no benchmark candidates found", "roots", sel.Roots, "rejected", sel.Rejected)
	}

	rn := runner.New(opts.decoder(), r.runnerOptions()...)
	res := rn.Run(ctx, sel.Candidates, budget)

	p := profile.FromRun(r.tier, r.limits, len(sel.Candidates), res)
	p.Roots = sel.Roots
	p.Accepted = sel.Accepted
	p.Rejected = sel.Rejected

	opts.Metrics.ObserveRun(int(r.tier), p.Incomplete, float64(p.CreatedAt.Unix()))
	opts.progress(Progress{Phase: PhaseDone, Index: len(res.Samples), Total: len(sel.Candidates),
		Accepted: sel.Accepted, Rejected: sel.Rejected})

	r.log.Info("benchmark finished",
		"tier", r.tier,
		"selected", p.Selected,
		"samples", len(p.Samples),
		"successes", p.Stats.Successes,
		"incomplete", p.Incomplete,
		"elapsed", p.Elapsed.Round(time.Millisecond))

	return p, nil
}

// run carries the per-invocation state.
type run struct {
	opts   *Options
	tier   tuner.Tier
	limits limits.BenchmarkLimits
	filter *filter.Filter
	log    *logging.Logger

	accepted int
	rejected int
}

func newRun(signals tuner.HostSignals, opts *Options) *run {
	tier := tuner.Classify(signals)
	r := &run{
		opts:   opts,
		tier:   tier,
		limits: opts.table().For(tier),
		log:    logging.Get("engine"),
	}

	r.filter = filter.New(r.limits,
		filter.WithProber(opts.prober()),
		filter.WithLocality(opts.locality()),
		filter.WithMaxPaths(opts.MaxPaths),
		filter.WithRejectHandler(r.onReject),
	)

	r.log.Debug("classified host", "tier", tier,
		"cores", signals.CPUCores, "ram", types.FormatSize(signals.TotalRAM),
		"calibration", signals.CalibrationScore)

	return r
}

func (r *run) onReject(rej types.Rejection) {
	if rej.Reason != types.RejectChangedSinceSelect {
		r.rejected++
	}
	r.opts.Metrics.ObserveRejection(rej)
	if r.opts.OnReject != nil {
		r.opts.OnReject(rej)
	}
}

func (r *run) selectCandidates(ctx context.Context, roots []string) (Selection, error) {
	if len(roots) == 0 {
		roots = scanner.DefaultRoots
	}

	sel := Selection{Tier: r.tier, Limits: r.limits}

	sc, err := scanner.New(r.opts.Scan)
	if err != nil {
		return sel, err
	}

	var accepted []types.ImageCandidate
	for _, root := range roots {
		if ctx.Err() != nil {
			break
		}
		if r.opts.FallbackOnly && len(accepted) > 0 {
			r.log.Debug("skipping fallback root", "root", root, "accepted", len(accepted))
			break
		}

		sel.Roots = append(sel.Roots, root)
		r.opts.progress(Progress{Phase: PhaseScanning, Root: root, Accepted: r.accepted, Rejected: r.rejected})

		for c := range r.filter.Accept(ctx, sc.Paths(ctx, root)) {
			accepted = append(accepted, c)
			r.accepted++
		}
	}

	sel.Accepted = r.accepted
	sel.Rejected = r.rejected
	sel.RootErrors = sc.RootErrors()

	if err := sc.Err(); err != nil {
		r.log.Error("no search root could be scanned", "roots", roots, "error", err)
		return sel, fmt.Errorf("scanning %v: %w", roots, err)
	}

	sel.Candidates = filter.Select(accepted, r.limits)

	r.log.Info("selected benchmark candidates",
		"tier", r.tier,
		"roots", sel.Roots,
		"accepted", sel.Accepted,
		"rejected", sel.Rejected,
		"selected", len(sel.Candidates))

	return sel, nil
}

func (r *run) runnerOptions() []runner.Option {
	opts := []runner.Option{
		runner.WithRevalidator(r.filter),
		runner.WithStartHandler(func(i, total int, c types.ImageCandidate) {
			r.opts.progress(Progress{Phase: PhaseBenchmarking, Index: i, Total: total, Path: c.Path,
				Accepted: r.accepted, Rejected: r.rejected})
		}),
		runner.WithSampleHandler(func(i, total int, s types.BenchmarkSample) {
			r.opts.Metrics.ObserveSample(s)
			r.opts.progress(Progress{Phase: PhaseBenchmarking, Index: i + 1, Total: total, Path: s.Candidate.Path,
				Accepted: r.accepted, Rejected: r.rejected, Sample: &s})
		}),
	}
	if r.opts.Clock != nil {
		opts = append(opts, runner.WithClock(r.opts.Clock))
	}
	return opts
}

// Equal reports whether two selections picked the same candidates in the
// same order.
func (s Selection) Equal(other Selection) bool {
	return slices.EqualFunc(s.Candidates, other.Candidates, func(a, b types.ImageCandidate) bool {
		return a.Path == b.Path && a.FileSizeBytes == b.FileSizeBytes
	})
}
