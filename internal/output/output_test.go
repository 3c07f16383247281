package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/medtime/internal/errors"
	"github.com/manav03panchal/medtime/internal/model"
	"github.com/manav03panchal/medtime/internal/scheduler"
)

var now = time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)

func newCLI() (*CLIFormatter, *bytes.Buffer) {
	var buf bytes.Buffer
	f := &Formatter{Writer: &buf, Format: FormatCLI, ColorMode: ColorNever, Location: time.UTC}
	return NewCLIFormatter(f), &buf
}

func newJSON() (*JSONFormatter, *bytes.Buffer) {
	var buf bytes.Buffer
	f := &Formatter{Writer: &buf, Format: FormatJSON, Location: time.UTC}
	return NewJSONFormatter(f), &buf
}

func metformin() *model.MedicationReminder {
	r := model.NewMedicationReminder("Metformin", "500mg",
		[]model.TimeOfDay{model.MustTimeOfDay("20:00"), model.MustTimeOfDay("08:00")},
		model.Daily(), model.Date{Year: 2026, Month: time.March, Day: 1})
	r.ID = "met"
	r.Instructions = "with food"
	return r
}

// =============================================================================
// Formatter Tests
// =============================================================================

func TestNewFormatter(t *testing.T) {
	f := NewFormatter()
	assert.NotNil(t, f)
	assert.Equal(t, FormatCLI, f.Format)
	assert.Equal(t, ColorAuto, f.ColorMode)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatCLI, "cli": FormatCLI, "json": FormatJSON, "plain": FormatPlain} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("yaml")
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestFormatterIsColorEnabled(t *testing.T) {
	t.Run("color_always", func(t *testing.T) {
		f := &Formatter{ColorMode: ColorAlways}
		assert.True(t, f.IsColorEnabled())
	})

	t.Run("color_never", func(t *testing.T) {
		f := &Formatter{ColorMode: ColorNever}
		assert.False(t, f.IsColorEnabled())
	})

	t.Run("plain_wins", func(t *testing.T) {
		f := &Formatter{Format: FormatPlain, ColorMode: ColorAlways}
		assert.False(t, f.IsColorEnabled())
	})

	t.Run("color_auto_non_terminal", func(t *testing.T) {
		var buf bytes.Buffer
		f := &Formatter{Writer: &buf, ColorMode: ColorAuto}
		assert.False(t, f.IsColorEnabled())
	})
}

func TestFormatterWidthOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	f := &Formatter{Writer: &buf}
	assert.Equal(t, DefaultWidth, f.Width())
	assert.False(t, f.IsTerminal())
}

func TestFormatterJSON(t *testing.T) {
	var buf bytes.Buffer
	f := &Formatter{Writer: &buf}

	require.NoError(t, f.JSON(map[string]string{"key": "value"}))
	assert.Contains(t, buf.String(), `"key": "value"`)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{5 * time.Minute, "5m"},
		{2 * time.Hour, "2h"},
		{2*time.Hour + 15*time.Minute, "2h 15m"},
		{-90 * time.Minute, "1h 30m"},
		{72 * time.Hour, "3d"},
		{50 * time.Hour, "2d 2h"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.d), tt.d.String())
	}
}

func TestFormatRelative(t *testing.T) {
	assert.Equal(t, "now", FormatRelative(now.Add(20*time.Second), now))
	assert.Equal(t, "in 1h", FormatRelative(now.Add(time.Hour), now))
	assert.Equal(t, "10m ago", FormatRelative(now.Add(-10*time.Minute), now))
}

func TestFormatDateTime(t *testing.T) {
	assert.Equal(t, "Mon 02 Mar 07:00", FormatDateTime(now, time.UTC))
	assert.Equal(t, "07:00", FormatClock(now, time.UTC))
	assert.Equal(t, "75%", FormatPercent(0.75))
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "█████░░░░░", ProgressBar(50, 10))
	assert.Equal(t, "░░░░░░░░░░", ProgressBar(-5, 10))
	assert.Equal(t, "██████████", ProgressBar(150, 10))
}

// =============================================================================
// CLI Formatter Tests
// =============================================================================

func TestCLIMessages(t *testing.T) {
	c, buf := newCLI()
	c.Success("done")
	c.Warning("careful")
	c.Error("broken")
	assert.Equal(t, "✓ done\n⚠ careful\n✗ broken\n", buf.String())
}

func TestPrintReminders(t *testing.T) {
	c, buf := newCLI()
	disabled := metformin()
	disabled.ID = "old"
	disabled.IsActive = false

	c.PrintReminders([]*model.MedicationReminder{metformin(), disabled}, now)
	out := buf.String()
	assert.Contains(t, out, "MEDICATION")
	assert.Contains(t, out, "08:00, 20:00")
	assert.Contains(t, out, "active")
	assert.Contains(t, out, "disabled")
}

func TestPrintRemindersEmpty(t *testing.T) {
	c, buf := newCLI()
	c.PrintReminders(nil, now)
	assert.Contains(t, buf.String(), "No reminders yet.")
}

func TestPrintReminder(t *testing.T) {
	c, buf := newCLI()
	r := metformin()
	next := map[model.TimeOfDay][]time.Time{
		model.MustTimeOfDay("08:00"): {now.Add(time.Hour)},
	}
	c.PrintReminder(r, next, now)
	out := buf.String()
	assert.Contains(t, out, "Metformin 500mg")
	assert.Contains(t, out, "Notes:   with food")
	assert.Contains(t, out, "Upcoming")
	assert.Contains(t, out, "Mon 02 Mar 08:00  in 1h")
}

func TestPrintAlarms(t *testing.T) {
	c, buf := newCLI()
	c.PrintAlarms(
		[]model.ScheduledAlarm{{AlarmID: "met:20:00", FireAt: now.Add(13 * time.Hour)}},
		[]model.PendingFiring{{AlarmID: "met:08:00", FiredAt: now, Deadline: now.Add(time.Hour)}},
		now,
	)
	out := buf.String()
	assert.Contains(t, out, "Awaiting response")
	assert.Contains(t, out, "expires in 1h")
	assert.Contains(t, out, "met:20:00")
	assert.Less(t, strings.Index(out, "Awaiting response"), strings.Index(out, "Scheduled"))
}

func TestPrintAdherence(t *testing.T) {
	c, buf := newCLI()
	tod := model.MustTimeOfDay("08:00")
	c.PrintAdherence("Metformin", []model.AdherenceLogEntry{
		{MedicationID: "met", ScheduledTimeOfDay: tod, ActedAt: now, Status: model.StatusTaken},
		{MedicationID: "met", ScheduledTimeOfDay: tod, ActedAt: now.Add(24 * time.Hour), Status: model.StatusSnoozed},
		{MedicationID: "met", ScheduledTimeOfDay: tod, ActedAt: now.Add(25 * time.Hour), Status: model.StatusTaken},
		{MedicationID: "met", ScheduledTimeOfDay: tod, ActedAt: now.Add(48 * time.Hour), Status: model.StatusSkipped},
	})
	out := buf.String()
	assert.Contains(t, out, "Taken 2  Snoozed 1  Skipped 1")
	assert.Contains(t, out, "67%")
}

func TestPrintOutcome(t *testing.T) {
	tests := []struct {
		name string
		out  scheduler.Outcome
		want string
	}{
		{"taken", scheduler.Outcome{Status: model.StatusTaken}, "✓ Recorded taken."},
		{"snoozed", scheduler.Outcome{Status: model.StatusSnoozed, SnoozeAlarmID: "x", SnoozeFireAt: now.Add(10 * time.Minute)}, "✓ Snoozed until 07:10"},
		{"downgraded", scheduler.Outcome{Status: model.StatusSkipped, Downgraded: true}, "recorded as skipped"},
		{"discarded", scheduler.Outcome{Discarded: true}, "nothing recorded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, buf := newCLI()
			c.PrintOutcome("met:08:00", tt.out)
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestPrintSyncReport(t *testing.T) {
	c, buf := newCLI()
	c.PrintSyncReport(scheduler.SyncReport{Synced: 3, Failed: 1, Orphaned: 2})
	out := buf.String()
	assert.Contains(t, out, "Synced 3 reminder(s)")
	assert.Contains(t, out, "1 reminder(s) could not be synced")
	assert.Contains(t, out, "Removed 2 orphaned alarm(s)")
}

func TestPrintPreferences(t *testing.T) {
	c, buf := newCLI()
	p := model.DefaultNotificationPreferences()
	p.QuietHours.Enabled = true
	c.PrintPreferences(p)
	assert.Contains(t, buf.String(), "Quiet hours: 22:00-07:00")
	assert.Contains(t, buf.String(), "Detail:      balanced")
}

func TestPrintWebhooksMasksURL(t *testing.T) {
	c, buf := newCLI()
	c.PrintWebhooks([]*model.Webhook{{
		Name: "phone", Type: "discord", Enabled: true,
		URL: "https://discord.com/api/webhooks/123456/secret-token-value",
	}})
	assert.Contains(t, buf.String(), "phone")
	assert.NotContains(t, buf.String(), "secret-token-value")
}

func TestPrintTableTruncatesLastColumn(t *testing.T) {
	c, buf := newCLI()
	long := strings.Repeat("x", 200)
	c.PrintTable([]string{"A", "B"}, []TableRow{{Columns: []string{"1", long}}})
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), DefaultWidth)
	}
	assert.Contains(t, buf.String(), "…")
}

// =============================================================================
// JSON Formatter Tests
// =============================================================================

func TestJSONReminders(t *testing.T) {
	j, buf := newJSON()
	require.NoError(t, j.PrintReminders(nil))

	var resp RemindersResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, 0, resp.Count)
	assert.NotNil(t, resp.Reminders)
}

func TestJSONAdherence(t *testing.T) {
	j, buf := newJSON()
	tod := model.MustTimeOfDay("08:00")
	require.NoError(t, j.PrintAdherence("met", []model.AdherenceLogEntry{
		{MedicationID: "met", ScheduledTimeOfDay: tod, ActedAt: now, Status: model.StatusTaken},
		{MedicationID: "met", ScheduledTimeOfDay: tod, ActedAt: now, Status: model.StatusSkipped},
	}))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	summary := resp["summary"].(map[string]any)
	assert.Equal(t, float64(1), summary["taken"])
	assert.Equal(t, 0.5, summary["rate"])
}

func TestJSONOutcome(t *testing.T) {
	j, buf := newJSON()
	require.NoError(t, j.PrintOutcome("met:08:00", scheduler.Outcome{Status: model.StatusTaken}))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "met:08:00", resp["alarm_id"])
	assert.Equal(t, "taken", resp["status"])
}

func TestJSONError(t *testing.T) {
	j, buf := newJSON()
	require.NoError(t, j.PrintError("error", "boom", "try again"))
	assert.Contains(t, buf.String(), `"suggestion": "try again"`)
}
