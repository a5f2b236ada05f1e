package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/imgbench/pkg/imgbench/types"
)

func TestRecorder_Samples(t *testing.T) {
	r := New()

	r.ObserveSample(types.BenchmarkSample{
		Candidate:            types.ImageCandidate{Path: "a.png"},
		DecodeDurationMicros: 2000,
		Succeeded:            true,
	})
	r.ObserveSample(types.BenchmarkSample{
		Candidate:     types.ImageCandidate{Path: "b.jpg"},
		FailureReason: types.FailureTimeout,
	})
	r.ObserveSample(types.BenchmarkSample{
		Candidate:     types.ImageCandidate{Path: "c.jpg"},
		FailureReason: types.FailureTimeout,
	})

	assert.InDelta(t, 1.0, testutil.ToFloat64(r.samples.WithLabelValues("success")), 0)
	assert.InDelta(t, 2.0, testutil.ToFloat64(r.samples.WithLabelValues("decode_timeout")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(r.decodeDuration, "imgbench_decode_duration_seconds"))
}

func TestRecorder_RejectionsAndRun(t *testing.T) {
	r := New()
	r.ObserveRejection(types.Rejection{Reason: types.RejectTooLarge})
	r.ObserveRejection(types.Rejection{Reason: types.RejectTooLarge})
	r.ObserveRejection(types.Rejection{Reason: types.RejectRemotePlaceholder})
	r.ObserveRun(3, true, float64(time.Unix(1700000000, 0).Unix()))

	assert.InDelta(t, 2.0, testutil.ToFloat64(r.rejected.WithLabelValues("too_large")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(r.rejected.WithLabelValues("remote_placeholder")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(r.incomplete), 0)
	assert.InDelta(t, 3.0, testutil.ToFloat64(r.tier), 0)
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := New()
	r.ObserveRun(2, false, 1)

	path := filepath.Join(t.TempDir(), "imgbench.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "imgbench_performance_tier 2")
	assert.Contains(t, string(data), "imgbench_run_incomplete 0")
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder
	r.ObserveSample(types.BenchmarkSample{Succeeded: true})
	r.ObserveRejection(types.Rejection{})
	r.ObserveRun(1, true, 0)
	assert.Nil(t, r.Registry())
	assert.NoError(t, r.WriteTextfile("/nonexistent/x.prom"))
}
