// Package tui provides the terminal dashboard for today's doses.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/manav03panchal/medtime/internal/model"
)

// Color palette for the TUI dashboard.
var (
	ColorPrimary = lipgloss.Color("#2563EB") // Blue
	ColorMuted   = lipgloss.Color("#6B7280") // Gray
	ColorWarning = lipgloss.Color("#F59E0B") // Yellow
	ColorError   = lipgloss.Color("#EF4444") // Red
	ColorSuccess = lipgloss.Color("#10B981") // Green
	ColorDue     = lipgloss.Color("#EC4899") // Pink
	ColorBorder  = lipgloss.Color("#4B5563") // Dark gray
)

// Base styles for the TUI.
var (
	// StyleTitle is used for section titles.
	StyleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// StyleSubtitle is used for secondary information.
	StyleSubtitle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// StyleMedication is used for medication names.
	StyleMedication = lipgloss.NewStyle().
			Bold(true)

	StyleNote = lipgloss.NewStyle().
			Italic(true).
			Foreground(ColorMuted)

	// StyleCursor marks the selected dose.
	StyleCursor = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError)

	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// StyleHelp is used for help text at the bottom.
	StyleHelp = lipgloss.NewStyle().
			Foreground(ColorMuted).
			MarginTop(1)

	StyleHelpKey = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	StyleHelpDesc = lipgloss.NewStyle().
			Foreground(ColorMuted)
)

// Box styles for the dashboard sections.
var (
	StyleDosesBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(1, 2).
			MarginBottom(1)

	// StyleDueBox is used while a dose is waiting for an answer.
	StyleDueBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorDue).
			Padding(1, 2).
			MarginBottom(1)

	StyleSummaryBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 2).
			MarginBottom(1)
)

// DoseStateStyle returns the style for a dose state.
func DoseStateStyle(s DoseState) lipgloss.Style {
	switch s {
	case DoseDue:
		return lipgloss.NewStyle().Bold(true).Foreground(ColorDue)
	case DoseState(model.StatusTaken):
		return StyleSuccess
	case DoseState(model.StatusSnoozed), DoseMissed:
		return StyleWarning
	case DoseState(model.StatusSkipped):
		return StyleError
	default:
		return StyleSubtitle
	}
}

// ProgressBar creates a coloured progress bar string.
func ProgressBar(percentage float64, width int) string {
	if percentage > 100 {
		percentage = 100
	}
	if percentage < 0 {
		percentage = 0
	}

	filled := int(float64(width) * percentage / 100)
	empty := width - filled

	filledStyle := lipgloss.NewStyle().Foreground(ColorSuccess)
	emptyStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	return filledStyle.Render(strings.Repeat("█", filled)) +
		emptyStyle.Render(strings.Repeat("░", empty))
}
