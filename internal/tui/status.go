package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/manav03panchal/medtime/internal/output"
)

// DosesComponent lists today's doses with a cursor.
type DosesComponent struct {
	Doses  []Dose
	Cursor int
	Width  int
	Now    time.Time
}

// NewDosesComponent creates a new doses component.
func NewDosesComponent(doses []Dose, cursor, width int, now time.Time) *DosesComponent {
	return &DosesComponent{Doses: doses, Cursor: cursor, Width: width, Now: now}
}

// View renders the doses component.
func (dc *DosesComponent) View() string {
	var content strings.Builder

	content.WriteString(StyleTitle.Render("Today"))
	content.WriteString("\n\n")

	due := false
	if len(dc.Doses) == 0 {
		content.WriteString(StyleSubtitle.Render("Nothing scheduled today"))
	}
	for i, d := range dc.Doses {
		if i > 0 {
			content.WriteString("\n")
		}
		content.WriteString(dc.renderDose(i, d))
		due = due || d.State == DoseDue
	}

	box := StyleDosesBox
	if due {
		box = StyleDueBox
	}
	return box.Width(boxWidth(dc.Width)).Render(content.String())
}

func (dc *DosesComponent) renderDose(i int, d Dose) string {
	cursor := "  "
	if i == dc.Cursor {
		cursor = StyleCursor.Render("> ")
	}
	state := DoseStateStyle(d.State).Render(fmt.Sprintf("%-9s", d.State))

	line := fmt.Sprintf("%s%s  %s  %s %s",
		cursor, d.TimeOfDay, state,
		StyleMedication.Render(d.Reminder.MedicationName), d.Reminder.Dosage)
	if d.State == DoseUpcoming {
		line += "  " + StyleSubtitle.Render(output.FormatRelative(d.At, dc.Now))
	}
	if i == dc.Cursor && d.Reminder.Instructions != "" {
		line += "\n     " + StyleNote.Render(d.Reminder.Instructions)
	}
	return line
}

// SummaryComponent shows how many of today's doses were taken.
type SummaryComponent struct {
	Doses []Dose
	Width int
}

// View renders the summary component.
func (sc *SummaryComponent) View() string {
	answered, taken := Summary(sc.Doses)
	total := len(sc.Doses)
	pct := 0.0
	if total > 0 {
		pct = float64(taken) / float64(total) * 100
	}

	barWidth := sc.Width - 30
	if barWidth < 10 {
		barWidth = 10
	}
	text := fmt.Sprintf("%d/%d taken, %d answered", taken, total, answered)
	return StyleSummaryBox.Width(boxWidth(sc.Width)).
		Render(ProgressBar(pct, barWidth) + "  " + StyleSubtitle.Render(text))
}

func boxWidth(width int) int {
	if width-4 < 20 {
		return 20
	}
	return width - 4
}

// HelpBar renders the help bar at the bottom.
func HelpBar() string {
	keys := []struct {
		key  string
		desc string
	}{
		{"↑/↓", "select"},
		{"t", "taken"},
		{"s", "snooze"},
		{"x", "skip"},
		{"r", "refresh"},
		{"q", "quit"},
	}

	var parts []string
	for _, k := range keys {
		parts = append(parts, StyleHelpKey.Render(k.key)+" "+StyleHelpDesc.Render(k.desc))
	}

	return StyleHelp.Render(strings.Join(parts, "  •  "))
}
