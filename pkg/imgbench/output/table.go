package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

var tableHeader = []string{"PATH", "SIZE", "WIDTH", "HEIGHT", "FORMAT", "DECODE_US", "STATUS"}

func tableRecords(r *Result) [][]string {
	records := make([][]string, len(r.Profile.Samples))
	for i, s := range r.Profile.Samples {
		c := s.Candidate
		records[i] = []string{
			c.Path,
			strconv.FormatInt(c.FileSizeBytes, 10),
			strconv.Itoa(c.Width),
			strconv.Itoa(c.Height),
			string(c.FormatName()),
			strconv.FormatInt(s.DecodeDurationMicros, 10),
			status(s, r.SlowThreshold),
		}
	}
	return records
}

// TSVFormatter formats samples as tab-separated values with raw numbers.
type TSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TSVFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(strings.Join(tableHeader, "\t"))
	w.WriteByte('\n')
	for _, rec := range tableRecords(r) {
		w.WriteString(strings.Join(rec, "\t"))
		w.WriteByte('\n')
	}
	return nil
}

// CSVFormatter formats samples as RFC 4180 comma-separated values.
type CSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *CSVFormatter) Format(w *bytes.Buffer, r *Result) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(tableHeader); err != nil {
		return err
	}
	if err := writer.WriteAll(tableRecords(r)); err != nil {
		return err
	}
	return writer.Error()
}

// MarkdownFormatter formats samples as a GitHub-flavored Markdown table.
type MarkdownFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *MarkdownFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString("| " + strings.Join(tableHeader, " | ") + " |\n")
	w.WriteString(strings.Repeat("|---", len(tableHeader)) + "|\n")
	for _, rec := range tableRecords(r) {
		for i, v := range rec {
			rec[i] = escapeMarkdownPipe(v)
		}
		fmt.Fprintf(w, "| %s |\n", strings.Join(rec, " | "))
	}
	return nil
}

// escapeMarkdownPipe escapes pipe characters for Markdown tables.
func escapeMarkdownPipe(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func init() {
	Register("tsv", func() Formatter { return &TSVFormatter{} })
	Register("csv", func() Formatter { return &CSVFormatter{} })
	Register("markdown", func() Formatter { return &MarkdownFormatter{} })
}

var (
	_ Formatter = (*TSVFormatter)(nil)
	_ Formatter = (*CSVFormatter)(nil)
	_ Formatter = (*MarkdownFormatter)(nil)
)
