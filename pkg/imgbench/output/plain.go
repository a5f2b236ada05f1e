package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"
)

// PlainFormatter formats samples as an aligned table without styling,
// followed by a one-line summary.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintln(tw, "SIZE\tDIMENSIONS\tFORMAT\tTIME\tSTATUS\tPATH"); err != nil {
		return err
	}
	for _, rw := range rows(r) {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			rw.SizeHuman, rw.Dimensions, rw.Format, formatDuration(rw.Duration), rw.Status, rw.Path); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	p := r.Profile
	fmt.Fprintf(w, "tier=%s selected=%d ok=%d failed=%d mean=%s incomplete=%t\n",
		p.Tier, p.Selected, p.Stats.Successes, p.Stats.Failures, formatDuration(p.Stats.Mean()), p.Incomplete)
	return nil
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
