package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/manav03panchal/medtime/internal/logging"
	"github.com/manav03panchal/medtime/internal/model"
	"github.com/manav03panchal/medtime/internal/scheduler"
)

// Styles for CLI output.
var (
	colorPrimary = lipgloss.Color("#2563EB") // Blue
	colorMuted   = lipgloss.Color("#6B7280") // Gray
	colorWarning = lipgloss.Color("#F59E0B") // Yellow
	colorError   = lipgloss.Color("#EF4444") // Red
	colorSuccess = lipgloss.Color("#10B981") // Green

	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	styleSuccess = lipgloss.NewStyle().
			Foreground(colorSuccess)

	styleWarning = lipgloss.NewStyle().
			Foreground(colorWarning)

	styleError = lipgloss.NewStyle().
			Foreground(colorError)

	styleMuted = lipgloss.NewStyle().
			Foreground(colorMuted)

	styleBold = lipgloss.NewStyle().
			Bold(true)

	styleMedication = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	styleNote = lipgloss.NewStyle().
			Italic(true).
			Foreground(colorMuted)
)

// CLIFormatter provides CLI-specific formatting.
type CLIFormatter struct {
	*Formatter
}

// NewCLIFormatter creates a new CLI formatter.
func NewCLIFormatter(f *Formatter) *CLIFormatter {
	return &CLIFormatter{Formatter: f}
}

func (c *CLIFormatter) render(s lipgloss.Style, text string) string {
	if c.IsColorEnabled() {
		return s.Render(text)
	}
	return text
}

// Title prints a title.
func (c *CLIFormatter) Title(text string) {
	c.Println(c.render(styleTitle, text))
}

// Success prints a success message.
func (c *CLIFormatter) Success(text string) {
	c.Println(c.render(styleSuccess, "✓ "+text))
}

// Warning prints a warning message.
func (c *CLIFormatter) Warning(text string) {
	c.Println(c.render(styleWarning, "⚠ "+text))
}

// Error prints an error message.
func (c *CLIFormatter) Error(text string) {
	c.Println(c.render(styleError, "✗ "+text))
}

// Muted prints muted text.
func (c *CLIFormatter) Muted(text string) {
	c.Println(c.render(styleMuted, text))
}

// Medication formats a medication name.
func (c *CLIFormatter) Medication(name string) string {
	return c.render(styleMedication, name)
}

// Note formats instructions or other secondary text.
func (c *CLIFormatter) Note(text string) string {
	return c.render(styleNote, text)
}

// Status colours an adherence status.
func (c *CLIFormatter) Status(s model.AdherenceStatus) string {
	switch s {
	case model.StatusTaken:
		return c.render(styleSuccess, string(s))
	case model.StatusSnoozed:
		return c.render(styleWarning, string(s))
	case model.StatusSkipped:
		return c.render(styleError, string(s))
	}
	return string(s)
}

func formatTimes(times []model.TimeOfDay) string {
	parts := make([]string, len(times))
	for i, t := range times {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

func activeLabel(r *model.MedicationReminder, now time.Time) string {
	switch {
	case !r.IsActive:
		return "disabled"
	case r.IsEnded(now):
		return "ended"
	default:
		return "active"
	}
}

// PrintReminders prints reminders as a table.
func (c *CLIFormatter) PrintReminders(reminders []*model.MedicationReminder, now time.Time) {
	if len(reminders) == 0 {
		c.Muted("No reminders yet.")
		c.Muted("Use 'medtime remind add <medication> --dosage <dose> --at 08:00' to create one.")
		return
	}
	rows := make([]TableRow, len(reminders))
	for i, r := range reminders {
		rows[i] = TableRow{Columns: []string{
			r.ID, r.MedicationName, r.Dosage, formatTimes(r.TimesOfDay),
			r.Recurrence.String(), activeLabel(r, now),
		}}
	}
	c.PrintTable([]string{"ID", "MEDICATION", "DOSAGE", "TIMES", "REPEATS", "STATE"}, rows)
}

// PrintReminder prints one reminder. next maps each time of day to its
// upcoming occurrences.
func (c *CLIFormatter) PrintReminder(r *model.MedicationReminder, next map[model.TimeOfDay][]time.Time, now time.Time) {
	c.Printf("%s %s\n", c.Medication(r.MedicationName), r.Dosage)
	c.Printf("  ID:      %s\n", r.ID)
	c.Printf("  Times:   %s\n", formatTimes(r.TimesOfDay))
	c.Printf("  Repeats: %s\n", r.Recurrence.String())
	c.Printf("  Start:   %s\n", r.StartDate)
	if r.EndDate != nil {
		c.Printf("  End:     %s\n", r.EndDate)
	}
	if r.Instructions != "" {
		c.Printf("  Notes:   %s\n", c.Note(r.Instructions))
	}
	c.Printf("  State:   %s\n", activeLabel(r, now))

	if len(next) == 0 {
		return
	}
	c.Println()
	c.Println(c.render(styleBold, "Upcoming"))
	for _, tod := range r.TimesOfDay {
		for _, t := range next[tod] {
			c.Printf("  %s  %s\n", FormatDateTime(t, c.loc()), c.render(styleMuted, FormatRelative(t, now)))
		}
	}
}

// PrintSaved reports a saved reminder and the alarm ids it owns.
func (c *CLIFormatter) PrintSaved(r *model.MedicationReminder, created bool) {
	verb := "Updated"
	if created {
		verb = "Added"
	}
	c.Success(fmt.Sprintf("%s %s %s (%s)", verb, c.Medication(r.MedicationName), r.Dosage, r.ID))
	c.Printf("  Times:   %s, %s\n", formatTimes(r.TimesOfDay), r.Recurrence.String())
}

// PrintAlarms prints scheduled registrations and fired alarms awaiting a
// response.
func (c *CLIFormatter) PrintAlarms(alarms []model.ScheduledAlarm, pending []model.PendingFiring, now time.Time) {
	if len(alarms) == 0 && len(pending) == 0 {
		c.Muted("No alarms scheduled.")
		return
	}
	if len(pending) > 0 {
		c.Title("Awaiting response")
		rows := make([]TableRow, len(pending))
		for i, p := range pending {
			rows[i] = TableRow{Columns: []string{
				p.AlarmID, FormatDateTime(p.FiredAt, c.loc()), "expires " + FormatRelative(p.Deadline, now),
			}}
		}
		c.PrintTable([]string{"ALARM", "FIRED", "DEADLINE"}, rows)
		c.Println()
	}
	if len(alarms) > 0 {
		c.Title("Scheduled")
		rows := make([]TableRow, len(alarms))
		for i, a := range alarms {
			rows[i] = TableRow{Columns: []string{
				a.AlarmID, FormatDateTime(a.FireAt, c.loc()), FormatRelative(a.FireAt, now),
			}}
		}
		c.PrintTable([]string{"ALARM", "FIRES", "WHEN"}, rows)
	}
}

// PrintAdherence prints a medication's log followed by its summary.
func (c *CLIFormatter) PrintAdherence(name string, entries []model.AdherenceLogEntry) {
	if len(entries) == 0 {
		c.Muted("No doses recorded for " + name + ".")
		return
	}
	c.Title("Adherence: " + name)
	rows := make([]TableRow, len(entries))
	for i, e := range entries {
		rows[i] = TableRow{Columns: []string{
			FormatDateTime(e.ActedAt, c.loc()), e.ScheduledTimeOfDay.String(), string(e.Status),
		}}
	}
	c.PrintTable([]string{"WHEN", "DOSE", "STATUS"}, rows)

	s := model.Summarize(entries)
	c.Println()
	c.Printf("Taken %d  Snoozed %d  Skipped %d\n", s.Taken, s.Snoozed, s.Skipped)
	if s.Taken+s.Skipped > 0 {
		c.Printf("%s %s\n", ProgressBar(s.Rate()*100, 20), FormatPercent(s.Rate()))
	}
}

// PrintOutcome reports the result of a take, snooze or skip.
func (c *CLIFormatter) PrintOutcome(alarmID string, out scheduler.Outcome) {
	switch {
	case out.Discarded:
		c.Warning("Alarm " + alarmID + " no longer belongs to a reminder; nothing recorded.")
	case out.SnoozeAlarmID != "":
		c.Success(fmt.Sprintf("Snoozed until %s", FormatClock(out.SnoozeFireAt, c.loc())))
	case out.Downgraded:
		c.Warning("Already snoozed once; recorded as " + c.Status(out.Status) + ".")
	default:
		c.Success("Recorded " + c.Status(out.Status) + ".")
	}
}

// PrintSyncReport summarizes a sync pass.
func (c *CLIFormatter) PrintSyncReport(r scheduler.SyncReport) {
	c.Success(fmt.Sprintf("Synced %d reminder(s)", r.Synced))
	if r.Failed > 0 {
		c.Warning(fmt.Sprintf("%d reminder(s) could not be synced; see the log for details", r.Failed))
	}
	if r.Orphaned > 0 {
		c.Muted(fmt.Sprintf("Removed %d orphaned alarm(s)", r.Orphaned))
	}
}

// PrintPreferences prints the notification preferences.
func (c *CLIFormatter) PrintPreferences(p model.NotificationPreferences) {
	enabled := "on"
	if !p.RemindersEnabled {
		enabled = "off"
	}
	quiet := "off"
	if p.QuietHours.Enabled {
		quiet = p.QuietHours.Start.String() + "-" + p.QuietHours.End.String()
	}
	c.Printf("Reminders:   %s\n", enabled)
	c.Printf("Quiet hours: %s\n", quiet)
	c.Printf("Detail:      %s\n", p.FrequencyMode)
}

// PrintWebhooks prints webhooks with masked URLs.
func (c *CLIFormatter) PrintWebhooks(hooks []*model.Webhook) {
	if len(hooks) == 0 {
		c.Muted("No webhooks configured.")
		c.Muted("Use 'medtime webhook add <name> <url>' to add one.")
		return
	}
	rows := make([]TableRow, len(hooks))
	for i, w := range hooks {
		state := "enabled"
		if !w.Enabled {
			state = "disabled"
		}
		if w.LastError != "" {
			state += " (last error)"
		}
		rows[i] = TableRow{Columns: []string{w.Name, w.Type, logging.MaskURL(w.URL), state}}
	}
	c.PrintTable([]string{"NAME", "TYPE", "URL", "STATE"}, rows)
}

// ProgressBar creates a simple progress bar.
func ProgressBar(percentage float64, width int) string {
	if percentage > 100 {
		percentage = 100
	}
	if percentage < 0 {
		percentage = 0
	}

	filled := int(float64(width) * percentage / 100)
	empty := width - filled

	return strings.Repeat("█", filled) + strings.Repeat("░", empty)
}

// TableRow is one row of a CLI table.
type TableRow struct {
	Columns []string
}

// PrintTable prints a simple table. The last column is truncated to fit
// the terminal width.
func (c *CLIFormatter) PrintTable(headers []string, rows []TableRow) {
	if len(rows) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, col := range row.Columns {
			if i < len(widths) && len(col) > widths[i] {
				widths[i] = len(col)
			}
		}
	}
	if last := len(widths) - 1; last >= 0 {
		used := 0
		for _, w := range widths[:last] {
			used += w + 2
		}
		if room := c.Width() - used; room >= 8 && widths[last] > room {
			widths[last] = room
		}
	}

	var headerLine strings.Builder
	for i, h := range headers {
		headerLine.WriteString(fmt.Sprintf("%-*s  ", widths[i], h))
	}
	c.Println(c.render(styleBold, strings.TrimRight(headerLine.String(), " ")))

	var sep strings.Builder
	for _, w := range widths {
		sep.WriteString(strings.Repeat("─", w) + "  ")
	}
	c.Println(strings.TrimRight(sep.String(), " "))

	for _, row := range rows {
		var rowLine strings.Builder
		for i, col := range row.Columns {
			if i < len(widths) {
				rowLine.WriteString(fmt.Sprintf("%-*s  ", widths[i], truncate(col, widths[i])))
			}
		}
		c.Println(strings.TrimRight(rowLine.String(), " "))
	}
}

func truncate(s string, width int) string {
	if len(s) <= width || width < 2 {
		return s
	}
	return s[:width-1] + "…"
}
