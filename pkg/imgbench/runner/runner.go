// Package runner benchmarks selected candidates one at a time, smallest
// first, under a per-image timeout and a total time budget.
//
// A decode that exceeds its timeout is abandoned, not interrupted: the
// decoding goroutine keeps running in the background until the decoder
// returns, while the runner records a timeout and moves on.
package runner

import (
	"context"
	"errors"
	"time"

	"github.com/jamesainslie/imgbench/pkg/imgbench/decoder"
	"github.com/jamesainslie/imgbench/pkg/imgbench/logging"
	"github.com/jamesainslie/imgbench/pkg/imgbench/types"
)

// Budget bounds a run.
type Budget struct {
	// PerImageTimeout bounds each decode. Zero disables the timeout.
	PerImageTimeout time.Duration `json:"per_image_timeout" yaml:"per_image_timeout"`

	// TotalTimeBudget bounds the whole run; it is checked after each sample.
	// Zero disables the budget.
	TotalTimeBudget time.Duration `json:"total_time_budget" yaml:"total_time_budget"`
}

// DefaultBudget returns a 5s per-image timeout and a 30s total budget.
func DefaultBudget() Budget {
	return Budget{PerImageTimeout: 5 * time.Second, TotalTimeBudget: 30 * time.Second}
}

// Revalidator re-checks a candidate immediately before it is decoded.
type Revalidator interface {
	Revalidate(c types.ImageCandidate) error
}

// Result is the outcome of a run.
type Result struct {
	// Samples holds one entry per attempted decode, in run order.
	Samples []types.BenchmarkSample

	// Incomplete is set when the run stopped before attempting every
	// candidate: the total budget was exceeded or the caller cancelled.
	Incomplete bool

	// BudgetExhausted is set when the total budget was exceeded.
	BudgetExhausted bool

	// Cancelled is set when the context ended the run.
	Cancelled bool

	// Skipped counts candidates that failed revalidation and have no sample.
	Skipped int

	// Elapsed is the wall time of the run.
	Elapsed time.Duration
}

// Runner executes benchmarks.
type Runner struct {
	decoder     decoder.Decoder
	revalidator Revalidator
	now         func() time.Time
	onStart     func(index, total int, c types.ImageCandidate)
	onSample    func(index, total int, s types.BenchmarkSample)
	log         *logging.Logger
}

// Option is a functional option for configuring a Runner.
type Option func(*Runner)

// WithRevalidator re-checks each candidate before decoding it.
func WithRevalidator(v Revalidator) Option {
	return func(r *Runner) {
		r.revalidator = v
	}
}

// WithClock replaces time.Now for elapsed time measurement.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// WithStartHandler is called before each decode starts.
func WithStartHandler(fn func(index, total int, c types.ImageCandidate)) Option {
	return func(r *Runner) {
		r.onStart = fn
	}
}

// WithSampleHandler is called after each sample is recorded.
func WithSampleHandler(fn func(index, total int, s types.BenchmarkSample)) Option {
	return func(r *Runner) {
		r.onSample = fn
	}
}

// New creates a Runner using dec for decoding.
func New(dec decoder.Decoder, opts ...Option) *Runner {
	r := &Runner{
		decoder: dec,
		now:     time.Now,
		log:     logging.Get("runner"),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run benchmarks selected in order. A failed or timed-out decode is
// recorded and the run continues. After each sample the elapsed time is
// compared with the total budget; once exceeded, no further candidate is
// attempted. Cancellation is checked before each decode and honored during
// a decode within the per-image timeout.
func (r *Runner) Run(ctx context.Context, selected []types.ImageCandidate, budget Budget) Result {
	start := r.now()
	res := Result{Samples: make([]types.BenchmarkSample, 0, len(selected))}
	total := len(selected)

	r.log.Info("benchmark started", "candidates", total,
		"per_image", budget.PerImageTimeout, "total", budget.TotalTimeBudget)

	for i, c := range selected {
		if ctx.Err() != nil {
			res.Cancelled = true
			res.Incomplete = true
			r.log.Info("benchmark cancelled", "completed", len(res.Samples), "remaining", total-i)
			break
		}

		if r.revalidator != nil {
			if err := r.revalidator.Revalidate(c); err != nil {
				res.Skipped++
				r.log.Warn("skipping candidate that changed since selection", "path", c.Path, "error", err)
				continue
			}
		}

		if r.onStart != nil {
			r.onStart(i, total, c)
		}

		sample := r.measure(ctx, c, budget.PerImageTimeout)
		res.Samples = append(res.Samples, sample)

		if r.onSample != nil {
			r.onSample(i, total, sample)
		}

		if sample.FailureReason == types.FailureCancelled {
			res.Cancelled = true
			res.Incomplete = true
			break
		}

		if elapsed := r.now().Sub(start); budget.TotalTimeBudget > 0 && elapsed > budget.TotalTimeBudget {
			res.BudgetExhausted = true
			res.Incomplete = true
			r.log.Info("time budget exhausted", "elapsed", elapsed,
				"budget", budget.TotalTimeBudget, "completed", len(res.Samples), "remaining", total-i-1)
			break
		}
	}

	res.Elapsed = r.now().Sub(start)
	return res
}

type outcome struct {
	res decoder.Result
	err error
}

// measure decodes one candidate under the per-image timeout.
func (r *Runner) measure(ctx context.Context, c types.ImageCandidate, timeout time.Duration) types.BenchmarkSample {
	dctx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		dctx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	done := make(chan outcome, 1)
	begin := r.now()

	go func() {
		res, err := r.decoder.Decode(dctx, c.Path)
		done <- outcome{res: res, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-dctx.Done():
		out.err = dctx.Err()
	}

	sample := types.BenchmarkSample{
		Candidate:            c,
		DecodeDurationMicros: r.now().Sub(begin).Microseconds(),
	}

	switch {
	case out.err == nil:
		sample.Succeeded = true
		sample.TextureDurationMicros = out.res.TextureDuration.Microseconds()
		r.log.Debug("decoded", "path", c.Path, "duration", sample.Duration())
	case ctx.Err() != nil:
		sample.FailureReason = types.FailureCancelled
		sample.Detail = ctx.Err().Error()
	case errors.Is(out.err, context.DeadlineExceeded):
		sample.FailureReason = types.FailureTimeout
		sample.Detail = types.ErrDecodeTimeout.Error() + " after " + timeout.String()
		r.log.Warn("decode timed out", "path", c.Path, "timeout", timeout)
	default:
		sample.FailureReason = types.FailureDecode
		sample.Detail = out.err.Error()
		r.log.Warn("decode failed", "path", c.Path, "error", out.err)
	}

	return sample
}
