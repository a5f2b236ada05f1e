package output

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/jamesainslie/imgbench/pkg/imgbench/limits"
	"github.com/jamesainslie/imgbench/pkg/imgbench/profile"
	"github.com/jamesainslie/imgbench/pkg/imgbench/tuner"
	"github.com/jamesainslie/imgbench/pkg/imgbench/types"
)

// report is the document written by the json and yaml formatters.
type report struct {
	RunID   string                 `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Tier    tuner.Tier             `json:"tier" yaml:"tier"`
	Signals tuner.HostSignals      `json:"signals" yaml:"signals"`
	Limits  limits.BenchmarkLimits `json:"limits" yaml:"limits"`
	Samples []reportSample         `json:"samples" yaml:"samples"`
	Stats   profile.Stats          `json:"stats" yaml:"stats"`
	Meta    reportMeta             `json:"meta" yaml:"meta"`
}

type reportSample struct {
	Path          string  `json:"path" yaml:"path"`
	Size          int64   `json:"size" yaml:"size"`
	SizeHuman     string  `json:"size_human" yaml:"size_human"`
	Width         int     `json:"width" yaml:"width"`
	Height        int     `json:"height" yaml:"height"`
	Megapixels    float64 `json:"megapixels" yaml:"megapixels"`
	Format        string  `json:"format" yaml:"format"`
	DecodeMicros  int64   `json:"decode_micros" yaml:"decode_micros"`
	TextureMicros int64   `json:"texture_micros,omitempty" yaml:"texture_micros,omitempty"`
	Succeeded     bool    `json:"succeeded" yaml:"succeeded"`
	FailureReason string  `json:"failure_reason,omitempty" yaml:"failure_reason,omitempty"`
	Detail        string  `json:"detail,omitempty" yaml:"detail,omitempty"`
	Status        string  `json:"status" yaml:"status"`
}

type reportMeta struct {
	Roots           []string  `json:"roots,omitempty" yaml:"roots,omitempty"`
	Accepted        int       `json:"accepted" yaml:"accepted"`
	Rejected        int       `json:"rejected" yaml:"rejected"`
	Selected        int       `json:"selected" yaml:"selected"`
	Skipped         int       `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	NoCandidates    bool      `json:"no_candidates" yaml:"no_candidates"`
	Incomplete      bool      `json:"incomplete" yaml:"incomplete"`
	BudgetExhausted bool      `json:"budget_exhausted" yaml:"budget_exhausted"`
	Cancelled       bool      `json:"cancelled" yaml:"cancelled"`
	Elapsed         string    `json:"elapsed,omitempty" yaml:"elapsed,omitempty"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
	Warnings        []string  `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func buildReport(r *Result) report {
	p := r.Profile
	samples := make([]reportSample, len(p.Samples))
	for i, s := range p.Samples {
		c := s.Candidate
		samples[i] = reportSample{
			Path:          c.Path,
			Size:          c.FileSizeBytes,
			SizeHuman:     types.FormatSize(c.FileSizeBytes),
			Width:         c.Width,
			Height:        c.Height,
			Megapixels:    c.Megapixels(),
			Format:        string(c.FormatName()),
			DecodeMicros:  s.DecodeDurationMicros,
			TextureMicros: s.TextureDurationMicros,
			Succeeded:     s.Succeeded,
			FailureReason: string(s.FailureReason),
			Detail:        s.Detail,
			Status:        status(s, r.SlowThreshold),
		}
	}

	return report{
		RunID:   r.RunID,
		Tier:    p.Tier,
		Signals: r.Signals,
		Limits:  p.Limits,
		Samples: samples,
		Stats:   p.Stats,
		Meta: reportMeta{
			Roots:           p.Roots,
			Accepted:        p.Accepted,
			Rejected:        p.Rejected,
			Selected:        p.Selected,
			Skipped:         p.Skipped,
			NoCandidates:    p.NoCandidates(),
			Incomplete:      p.Incomplete,
			BudgetExhausted: p.BudgetExhausted,
			Cancelled:       p.Cancelled,
			Elapsed:         formatDurationString(p.Elapsed),
			CreatedAt:       p.CreatedAt,
			Warnings:        r.Warnings,
		},
	}
}

// JSONFormatter formats output as a single indented JSON object.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildReport(r))
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)
