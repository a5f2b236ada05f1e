package output

import (
	"fmt"
	"time"

	"github.com/jamesainslie/imgbench/pkg/imgbench/types"
)

// Sample statuses shown in tables.
const (
	statusOK   = "ok"
	statusSlow = "slow"
)

// row is one sample prepared for tabular output.
type row struct {
	Path       string
	Size       int64
	SizeHuman  string
	Dimensions string
	Megapixels float64
	Format     string
	Duration   time.Duration
	Status     string
	Detail     string
}

func rows(r *Result) []row {
	out := make([]row, len(r.Profile.Samples))
	for i, s := range r.Profile.Samples {
		c := s.Candidate
		out[i] = row{
			Path:       c.Path,
			Size:       c.FileSizeBytes,
			SizeHuman:  types.FormatSize(c.FileSizeBytes),
			Dimensions: fmt.Sprintf("%dx%d", c.Width, c.Height),
			Megapixels: c.Megapixels(),
			Format:     string(c.FormatName()),
			Duration:   s.Duration(),
			Status:     status(s, r.SlowThreshold),
			Detail:     s.Detail,
		}
	}
	return out
}

func status(s types.BenchmarkSample, slow time.Duration) string {
	if !s.Succeeded {
		return string(s.FailureReason)
	}
	if slow > 0 && s.Duration() > slow {
		return statusSlow
	}
	return statusOK
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000)
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	default:
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}

// micros formats a microsecond count as a duration.
func micros(us int64) string {
	return formatDuration(time.Duration(us) * time.Microsecond)
}

// formatDurationString formats a duration for machine-readable output.
func formatDurationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}
