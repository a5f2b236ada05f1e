// Package metrics records benchmark measurements in a private Prometheus
// registry that the CLI can write out in the node_exporter textfile format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jamesainslie/imgbench/pkg/imgbench/types"
)

const namespace = "imgbench"

// Result label values for imgbench_samples_total.
const (
	resultSuccess = "success"
)

// Recorder holds the run metrics. A nil *Recorder discards everything.
type Recorder struct {
	reg *prometheus.Registry

	decodeDuration *prometheus.HistogramVec
	samples        *prometheus.CounterVec
	rejected       *prometheus.CounterVec
	incomplete     prometheus.Gauge
	tier           prometheus.Gauge
	lastRun        prometheus.Gauge
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		reg: reg,
		decodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decode_duration_seconds",
			Help:      "Wall time to decode a benchmark image, including the texture stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"format"}),
		samples: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Benchmark samples by result.",
		}, []string{"result"}),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_rejected_total",
			Help:      "Candidates rejected by the safety filter, by reason.",
		}, []string{"reason"}),
		incomplete: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_incomplete",
			Help:      "1 if the last run stopped before benchmarking every selected image.",
		}),
		tier: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "performance_tier",
			Help:      "Performance tier of the host, 1 (low) to 5 (excellent).",
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// ObserveSample records one benchmark sample.
func (r *Recorder) ObserveSample(s types.BenchmarkSample) {
	if r == nil {
		return
	}

	if !s.Succeeded {
		r.samples.WithLabelValues(string(s.FailureReason)).Inc()
		return
	}

	r.samples.WithLabelValues(resultSuccess).Inc()
	r.decodeDuration.WithLabelValues(string(s.Candidate.FormatName())).Observe(s.Duration().Seconds())
}

// ObserveRejection records a safety filter rejection.
func (r *Recorder) ObserveRejection(rej types.Rejection) {
	if r == nil {
		return
	}
	r.rejected.WithLabelValues(string(rej.Reason)).Inc()
}

// ObserveRun records the run-level outcome.
func (r *Recorder) ObserveRun(tier int, incomplete bool, finishedUnix float64) {
	if r == nil {
		return
	}

	r.tier.Set(float64(tier))
	r.lastRun.Set(finishedUnix)
	if incomplete {
		r.incomplete.Set(1)
	} else {
		r.incomplete.Set(0)
	}
}

// WriteTextfile writes the metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.reg)
}
