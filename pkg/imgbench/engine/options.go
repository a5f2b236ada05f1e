package engine

import (
	"time"

	"github.com/jamesainslie/imgbench/pkg/imgbench/cache"
	"github.com/jamesainslie/imgbench/pkg/imgbench/decoder"
	"github.com/jamesainslie/imgbench/pkg/imgbench/limits"
	"github.com/jamesainslie/imgbench/pkg/imgbench/locality"
	"github.com/jamesainslie/imgbench/pkg/imgbench/metrics"
	"github.com/jamesainslie/imgbench/pkg/imgbench/probe"
	"github.com/jamesainslie/imgbench/pkg/imgbench/scanner"
	"github.com/jamesainslie/imgbench/pkg/imgbench/types"
)

// Phase identifies the stage a progress update belongs to.
type Phase string

// Phases reported through Options.OnProgress.
const (
	PhaseScanning     Phase = "scanning"
	PhaseBenchmarking Phase = "benchmarking"
	PhaseDone         Phase = "done"
)

// Progress is a snapshot of a running benchmark.
type Progress struct {
	Phase Phase

	// Root is the search root being scanned.
	Root string

	// Accepted and Rejected count safety filter outcomes so far.
	Accepted int
	Rejected int

	// Index and Total locate the current candidate in the selected set.
	Index int
	Total int

	// Path is the candidate being decoded.
	Path string

	// Sample is set for the update that follows a completed decode.
	Sample *types.BenchmarkSample
}

// Options configures RunSafeBenchmark. The zero value is usable; nil
// collaborators fall back to the real filesystem implementations.
type Options struct {
	// Scan configures candidate enumeration.
	Scan scanner.Options

	// Limits is the tier limit table. Nil uses limits.DefaultTable.
	Limits limits.Table

	// FallbackOnly scans later roots only while earlier roots produced no
	// accepted candidates.
	FallbackOnly bool

	// MaxPaths bounds how many paths the filter examines per root. Zero
	// means no bound.
	MaxPaths int

	// Prober reads image headers. Nil uses probe.Header.
	Prober probe.Prober

	// Cache, when set, wraps the prober with the persistent probe cache.
	Cache *cache.Cache

	// Locality detects cloud placeholders. Nil uses locality.FS.
	Locality locality.Checker

	// Decoder is timed by the runner. Nil uses decoder.New.
	Decoder decoder.Decoder

	// Metrics receives samples and rejections when set.
	Metrics *metrics.Recorder

	// Clock replaces time.Now in the runner.
	Clock func() time.Time

	// OnReject is called for every rejected candidate.
	OnReject func(types.Rejection)

	// OnProgress is called as the run advances. It is called from the
	// goroutine running RunSafeBenchmark.
	OnProgress func(Progress)
}

// DefaultOptions returns non-recursive scanning of the default image
// formats with the canonical limit table and root fallback enabled.
func DefaultOptions() Options {
	return Options{
		Scan:         scanner.DefaultOptions(),
		Limits:       limits.DefaultTable(),
		FallbackOnly: true,
	}
}

func (o *Options) prober() probe.Prober {
	p := o.Prober
	if p == nil {
		p = probe.Header{}
	}
	if o.Cache != nil {
		p = probe.NewCached(p, o.Cache)
	}
	return p
}

func (o *Options) locality() locality.Checker {
	if o.Locality == nil {
		return locality.FS{}
	}
	return o.Locality
}

func (o *Options) decoder() decoder.Decoder {
	if o.Decoder == nil {
		return decoder.New()
	}
	return o.Decoder
}

func (o *Options) table() limits.Table {
	if o.Limits == nil {
		return limits.DefaultTable()
	}
	return o.Limits
}

func (o *Options) progress(p Progress) {
	if o.OnProgress != nil {
		o.OnProgress(p)
	}
}
