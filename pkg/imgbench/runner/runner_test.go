package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jamesainslie/imgbench/pkg/imgbench/decoder"
	"github.com/jamesainslie/imgbench/pkg/imgbench/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when a fake decode runs.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// timedDecoder advances the clock by a fixed cost per path.
func timedDecoder(clock *fakeClock, costs map[string]time.Duration, fail map[string]bool) decoder.Decoder {
	return decoder.DecoderFunc(func(_ context.Context, path string) (decoder.Result, error) {
		clock.Advance(costs[path])
		if fail[path] {
			return decoder.Result{}, fmt.Errorf("%w: %s", types.ErrDecodeFailure, path)
		}
		return decoder.Result{Width: 10, Height: 10, DecodeDuration: costs[path]}, nil
	})
}

func candidates(paths ...string) []types.ImageCandidate {
	out := make([]types.ImageCandidate, len(paths))
	for i, p := range paths {
		out[i] = types.ImageCandidate{Path: p, FileSizeBytes: int64(i + 1), Width: 10, Height: 10}
	}
	return out
}

func TestRun_AllSucceed(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	costs := map[string]time.Duration{"a": 10 * time.Millisecond, "b": 20 * time.Millisecond}

	var seen []int
	r := New(timedDecoder(clock, costs, nil),
		WithClock(clock.Now),
		WithSampleHandler(func(i, total int, _ types.BenchmarkSample) {
			seen = append(seen, i)
			assert.Equal(t, 2, total)
		}))

	res := r.Run(context.Background(), candidates("a", "b"), DefaultBudget())

	require.Len(t, res.Samples, 2)
	assert.False(t, res.Incomplete)
	assert.Equal(t, []int{0, 1}, seen)
	assert.Equal(t, int64(10_000), res.Samples[0].DecodeDurationMicros)
	assert.Equal(t, int64(20_000), res.Samples[1].DecodeDurationMicros)
	assert.True(t, res.Samples[1].Succeeded)
	assert.Equal(t, 30*time.Millisecond, res.Elapsed)
}

func TestRun_BudgetExhaustedAfterSampleK(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	costs := map[string]time.Duration{
		"1": 400 * time.Millisecond,
		"2": 400 * time.Millisecond,
		"3": 400 * time.Millisecond, // elapsed 1.2s, over budget
		"4": time.Millisecond,
		"5": time.Millisecond,
	}

	var attempted []string
	r := New(timedDecoder(clock, costs, nil),
		WithClock(clock.Now),
		WithStartHandler(func(_, _ int, c types.ImageCandidate) { attempted = append(attempted, c.Path) }))

	res := r.Run(context.Background(), candidates("1", "2", "3", "4", "5"),
		Budget{PerImageTimeout: time.Minute, TotalTimeBudget: time.Second})

	assert.True(t, res.Incomplete)
	assert.True(t, res.BudgetExhausted)
	assert.False(t, res.Cancelled)
	assert.Len(t, res.Samples, 3)
	assert.Equal(t, []string{"1", "2", "3"}, attempted, "no further candidates attempted")
}

func TestRun_BudgetExactlyMetIsNotExceeded(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	costs := map[string]time.Duration{"a": 500 * time.Millisecond, "b": 500 * time.Millisecond}

	r := New(timedDecoder(clock, costs, nil), WithClock(clock.Now))
	res := r.Run(context.Background(), candidates("a", "b"), Budget{TotalTimeBudget: time.Second})

	assert.False(t, res.Incomplete)
	assert.Len(t, res.Samples, 2)
}

func TestRun_DecodeFailureContinues(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	r := New(timedDecoder(clock, nil, map[string]bool{"bad": true}), WithClock(clock.Now))

	res := r.Run(context.Background(), candidates("ok1", "bad", "ok2"), DefaultBudget())

	require.Len(t, res.Samples, 3)
	assert.True(t, res.Samples[0].Succeeded)
	assert.False(t, res.Samples[1].Succeeded)
	assert.Equal(t, types.FailureDecode, res.Samples[1].FailureReason)
	assert.ErrorIs(t, res.Samples[1].FailureReason.Err(), types.ErrDecodeFailure)
	assert.True(t, res.Samples[2].Succeeded)
	assert.False(t, res.Incomplete)
}

func TestScenarioD_TimeoutContinues(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	// The slow decode ignores its context, like a decoder without
	// cancellation points.
	dec := decoder.DecoderFunc(func(_ context.Context, path string) (decoder.Result, error) {
		if path == "slow.png" {
			select {
			case <-release:
			case <-time.After(10 * time.Second):
			}
		}
		return decoder.Result{Width: 1, Height: 1}, nil
	})

	r := New(dec)
	budget := Budget{PerImageTimeout: 50 * time.Millisecond, TotalTimeBudget: time.Minute}

	begin := time.Now()
	res := r.Run(context.Background(), candidates("fast.png", "slow.png", "after.png"), budget)
	took := time.Since(begin)

	require.Len(t, res.Samples, 3)
	slow := res.Samples[1]
	assert.False(t, slow.Succeeded)
	assert.Equal(t, types.FailureTimeout, slow.FailureReason)
	assert.GreaterOrEqual(t, slow.DecodeDurationMicros, int64(50_000))

	assert.True(t, res.Samples[2].Succeeded, "runner proceeds to the next candidate")
	assert.False(t, res.Incomplete)
	assert.Less(t, took, 5*time.Second, "caller is not blocked by the abandoned decode")
}

func TestRun_CancelledBetweenCandidates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	dec := decoder.DecoderFunc(func(_ context.Context, path string) (decoder.Result, error) {
		if path == "first" {
			cancel()
		}
		return decoder.Result{}, nil
	})

	res := New(dec).Run(ctx, candidates("first", "second", "third"), DefaultBudget())

	assert.True(t, res.Cancelled)
	assert.True(t, res.Incomplete)
	assert.LessOrEqual(t, len(res.Samples), 1)
}

func TestRun_CancelledDuringDecode(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	dec := decoder.DecoderFunc(func(dctx context.Context, _ string) (decoder.Result, error) {
		cancel()
		<-dctx.Done()
		return decoder.Result{}, dctx.Err()
	})

	res := New(dec).Run(ctx, candidates("a", "b"), DefaultBudget())

	require.Len(t, res.Samples, 1)
	assert.Equal(t, types.FailureCancelled, res.Samples[0].FailureReason)
	assert.True(t, errors.Is(res.Samples[0].FailureReason.Err(), context.Canceled))
	assert.True(t, res.Cancelled)
}

type revalidatorFunc func(types.ImageCandidate) error

func (f revalidatorFunc) Revalidate(c types.ImageCandidate) error { return f(c) }

func TestRun_RevalidationSkips(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	changed := revalidatorFunc(func(c types.ImageCandidate) error {
		if c.Path == "moved" {
			return errors.New("gone")
		}
		return nil
	})

	res := New(timedDecoder(clock, nil, nil), WithClock(clock.Now), WithRevalidator(changed)).
		Run(context.Background(), candidates("a", "moved", "b"), DefaultBudget())

	require.Len(t, res.Samples, 2)
	assert.Equal(t, 1, res.Skipped)
	assert.False(t, res.Incomplete)
	assert.Equal(t, "b", res.Samples[1].Candidate.Path)
}

func TestRun_Empty(t *testing.T) {
	res := New(decoder.New()).Run(context.Background(), nil, DefaultBudget())
	assert.Empty(t, res.Samples)
	assert.NotNil(t, res.Samples)
	assert.False(t, res.Incomplete)
}
