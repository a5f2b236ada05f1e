package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/imgbench/pkg/imgbench/logging"
)

// logLevelStyle returns the style for a log level.
func logLevelStyle(level logging.Level) lipgloss.Style {
	switch level {
	case logging.LevelDebug:
		return logDebugStyle
	case logging.LevelInfo:
		return logInfoStyle
	case logging.LevelWarn:
		return logWarnStyle
	case logging.LevelError:
		return logErrorStyle
	default:
		return logInfoStyle
	}
}

// logLevelChar returns a single character for the log level.
func logLevelChar(level logging.Level) string {
	switch level {
	case logging.LevelDebug:
		return "D"
	case logging.LevelInfo:
		return "I"
	case logging.LevelWarn:
		return "W"
	case logging.LevelError:
		return "E"
	default:
		return "?"
	}
}

// renderLogPane renders the last rows entries under a title bar.
func renderLogPane(entries []logging.Entry, width, rows int) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(" Logs "))
	b.WriteString(mutedTextStyle.Render(fmt.Sprintf("(%d)", len(entries))))
	b.WriteString("\n")
	b.WriteString(renderDivider(width))
	b.WriteString("\n")

	start := max(len(entries)-rows, 0)
	visible := entries[start:]
	for _, e := range visible {
		b.WriteString(renderLogEntry(e, width))
		b.WriteString("\n")
	}
	for i := len(visible); i < rows; i++ {
		b.WriteString("\n")
	}

	return b.String()
}

// renderLogEntry renders one entry as "HH:MM:SS [L] component: message".
func renderLogEntry(entry logging.Entry, width int) string {
	comp := entry.Component
	if len(comp) > 10 {
		comp = comp[:10]
	}

	prefixWidth := 8 + 1 + 3 + 1 + len(comp) + 2
	msgWidth := max(width-prefixWidth, 10)

	msg := entry.Message
	if len(msg) > msgWidth {
		msg = msg[:msgWidth-3] + "..."
	}

	return fmt.Sprintf("%s %s %s: %s",
		logTimeStyle.Render(entry.Time.Format("15:04:05")),
		logLevelStyle(entry.Level).Render("["+logLevelChar(entry.Level)+"]"),
		logComponentStyle.Render(comp),
		msg)
}
