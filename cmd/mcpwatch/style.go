package main

import (
	"strings"

	"github.com/blackcoderx/mcpwatch/internal/comparator"
	"github.com/charmbracelet/lipgloss"
)

var (
	breakingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F38BA8"))
	warningStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F9E2AF"))
	infoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#89DDFF"))
	noneStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A6E3A1"))
)

// styleSeverityLine colorizes the leading "Severity: ..." line a
// formatted diff starts with, leaving the rest of the report untouched.
// The tool output itself stays plain text so it remains usable when piped
// to an LLM agent loop; this styling is applied only for a human reading
// the terminal directly.
func styleSeverityLine(report string) string {
	lines := strings.SplitN(report, "\n", 2)
	if len(lines) == 0 {
		return report
	}

	var style lipgloss.Style
	switch {
	case strings.HasPrefix(lines[0], "Severity: "+string(comparator.SeverityBreaking)):
		style = breakingStyle
	case strings.HasPrefix(lines[0], "Severity: "+string(comparator.SeverityWarning)):
		style = warningStyle
	case strings.HasPrefix(lines[0], "Severity: "+string(comparator.SeverityInfo)):
		style = infoStyle
	default:
		style = noneStyle
	}

	lines[0] = style.Render(lines[0])
	return strings.Join(lines, "\n")
}
