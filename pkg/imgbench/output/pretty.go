package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// PrettyFormatter formats output with colors and styling using lipgloss.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatTable(r))
	w.WriteString(f.formatFooter(r))
	w.WriteString("\n")

	if warnings := f.warnings(r); len(warnings) > 0 {
		w.WriteString(f.formatWarnings(warnings))
	}
	return nil
}

func field(label, value string) string {
	return LabelStyle.Render(label) + " " + value
}

// formatHeader builds the header box with tier, host and limits.
func (f *PrettyFormatter) formatHeader(r *Result) string {
	p := r.Profile
	var lines []string

	lines = append(lines, field("Tier:", TitleStyle.Render(p.Tier.String())+" "+MutedStyle.Render(p.Tier.Description())))

	host := []string{
		field("Cores:", ValueStyle.Render(fmt.Sprintf("%d", r.Signals.CPUCores))),
		field("RAM:", ValueStyle.Render(humanize.IBytes(uint64(max(r.Signals.TotalRAM, 0))))),
	}
	if r.Signals.CalibrationScore > 0 {
		host = append(host, field("Calibration:", ValueStyle.Render(humanize.Comma(int64(r.Signals.CalibrationScore)))))
	}
	lines = append(lines, strings.Join(host, "  "))

	lines = append(lines, strings.Join([]string{
		field("Max size:", ValueStyle.Render(humanize.IBytes(uint64(max(p.Limits.MaxFileSizeBytes, 0))))),
		field("Max MP:", ValueStyle.Render(fmt.Sprintf("%g", p.Limits.MaxMegapixels))),
		field("Max images:", ValueStyle.Render(fmt.Sprintf("%d", p.Limits.MaxCandidateCount))),
	}, "  "))

	if len(p.Roots) > 0 {
		lines = append(lines, field("Roots:", PathStyle.Render(strings.Join(p.Roots, ", "))))
	}
	if r.RunID != "" {
		lines = append(lines, field("Run:", MutedStyle.Render(r.RunID)))
	}

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

// formatTable builds the sample table.
func (f *PrettyFormatter) formatTable(r *Result) string {
	if r.Profile.NoCandidates() {
		return MutedStyle.Render("  No safe images found to benchmark") + "\n"
	}

	rs := rows(r)
	headers := []string{"SIZE", "DIMENSIONS", "FORMAT", "TIME", "STATUS", "PATH"}
	cells := make([][]string, len(rs))
	for i, rw := range rs {
		cells[i] = []string{rw.SizeHuman, rw.Dimensions, rw.Format, formatDuration(rw.Duration), rw.Status, rw.Path}
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, c := range cells {
		for i, v := range c {
			widths[i] = max(widths[i], lipgloss.Width(v))
		}
	}

	var sb strings.Builder
	sb.WriteString("  ")
	for i, h := range headers {
		sb.WriteString(TableHeaderStyle.Render(padRight(h, widths[i])))
		sb.WriteString("  ")
	}
	sb.WriteString("\n")

	for _, c := range cells {
		sb.WriteString("  ")
		sb.WriteString(SizeStyle.Render(padLeft(c[0], widths[0])))
		sb.WriteString("  ")
		sb.WriteString(ValueStyle.Render(padRight(c[1], widths[1])))
		sb.WriteString("  ")
		sb.WriteString(MutedStyle.Render(padRight(c[2], widths[2])))
		sb.WriteString("  ")
		sb.WriteString(ValueStyle.Render(padLeft(c[3], widths[3])))
		sb.WriteString("  ")
		sb.WriteString(statusStyle(c[4]).Render(padRight(c[4], widths[4])))
		sb.WriteString("  ")
		sb.WriteString(PathStyle.Render(c[5]))
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatFooter builds the footer box with aggregate statistics.
func (f *PrettyFormatter) formatFooter(r *Result) string {
	p := r.Profile
	st := p.Stats

	counts := []string{
		field("Selected:", ValueStyle.Render(fmt.Sprintf("%d of %d", p.Selected, p.Accepted))),
		field("Rejected:", ValueStyle.Render(fmt.Sprintf("%d", p.Rejected))),
		field("OK:", SuccessStyle.Render(fmt.Sprintf("%d", st.Successes))),
		field("Failed:", failedStyle(st.Failures).Render(fmt.Sprintf("%d", st.Failures))),
		field("Elapsed:", ValueStyle.Render(formatDuration(p.Elapsed))),
	}
	lines := []string{strings.Join(counts, "  ")}

	if st.IsNoData() {
		lines = append(lines, MutedStyle.Render("No decode measurements"))
	} else {
		lines = append(lines, strings.Join([]string{
			field("Mean:", SizeStyle.Render(formatDuration(st.Mean()))),
			field("Max:", SizeStyle.Render(formatDuration(st.Max()))),
			field("Per MP:", ValueStyle.Render(micros(int64(st.MicrosPerMegapixel)))),
			field("Largest:", ValueStyle.Render(fmt.Sprintf("%.2f MP", st.MaxSuccessfulMegapixels))),
		}, "  "))

		var formats []string
		for _, fm := range st.SortedFormats() {
			formats = append(formats, fmt.Sprintf("%s %s", fm, micros(st.PerFormatMeans[fm])))
		}
		if len(formats) > 0 {
			lines = append(lines, field("By format:", ValueStyle.Render(strings.Join(formats, ", "))))
		}
	}

	return FooterBox.Render(strings.Join(lines, "\n"))
}

func failedStyle(n int) lipgloss.Style {
	if n > 0 {
		return ErrorStyle
	}
	return ValueStyle
}

// warnings returns the run notices followed by caller warnings.
func (f *PrettyFormatter) warnings(r *Result) []string {
	var out []string
	p := r.Profile
	switch {
	case p.Cancelled:
		out = append(out, "Benchmark cancelled; results are partial")
	case p.BudgetExhausted:
		out = append(out, fmt.Sprintf("Time budget exhausted after %d of %d images; results are partial",
			len(p.Samples), p.Selected))
	}
	if p.Skipped > 0 {
		out = append(out, fmt.Sprintf("%d selected images changed before decoding and were skipped", p.Skipped))
	}
	return append(out, r.Warnings...)
}

// formatWarnings builds a warning block.
func (f *PrettyFormatter) formatWarnings(warnings []string) string {
	var sb strings.Builder
	sb.WriteString(WarningStyle.Bold(true).Render("Warnings:"))
	sb.WriteString("\n")
	for _, warning := range warnings {
		sb.WriteString(WarningStyle.Render("  " + warning))
		sb.WriteString("\n")
	}
	return sb.String()
}

// padLeft pads s with spaces on the left to width.
func padLeft(s string, width int) string {
	if n := lipgloss.Width(s); n < width {
		return strings.Repeat(" ", width-n) + s
	}
	return s
}

// padRight pads s with spaces on the right to width.
func padRight(s string, width int) string {
	if n := lipgloss.Width(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
