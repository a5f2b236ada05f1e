// Package history stores performance profiles as JSON snapshots so runs can
// be compared over time. It is opt-in: the engine never writes history, the
// CLI does when asked to.
package history

import (
	"time"

	"github.com/jamesainslie/imgbench/pkg/imgbench/profile"
	"github.com/jamesainslie/imgbench/pkg/imgbench/tuner"
)

// Entry is one saved profile.
type Entry struct {
	ID        string            `json:"id" yaml:"id"`
	Timestamp time.Time         `json:"timestamp" yaml:"timestamp"`
	Signals   tuner.HostSignals `json:"signals" yaml:"signals"`
	Summary   Summary           `json:"summary" yaml:"summary"`
	Profile   profile.Profile   `json:"profile" yaml:"profile"`
}

// Summary holds the headline numbers for listings.
type Summary struct {
	Tier       tuner.Tier `json:"tier" yaml:"tier"`
	Selected   int        `json:"selected" yaml:"selected"`
	Successes  int        `json:"successes" yaml:"successes"`
	Failures   int        `json:"failures" yaml:"failures"`
	MeanMicros int64      `json:"mean_micros" yaml:"mean_micros"`
	Incomplete bool       `json:"incomplete" yaml:"incomplete"`
}

func summarize(p profile.Profile) Summary {
	return Summary{
		Tier:       p.Tier,
		Selected:   p.Selected,
		Successes:  p.Stats.Successes,
		Failures:   p.Stats.Failures,
		MeanMicros: p.Stats.MeanMicros,
		Incomplete: p.Incomplete,
	}
}
