package mcpserver

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/medtime/internal/config"
	"github.com/manav03panchal/medtime/internal/model"
	"github.com/manav03panchal/medtime/internal/service"
	"github.com/manav03panchal/medtime/internal/storage"
)

// Monday 2 March 2026, 07:00 UTC.
var monday0700 = time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Timezone = "UTC"
	cfg.Notifications.LogOnly = true

	db, err := storage.Open(storage.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	now := func() time.Time { return monday0700 }
	engine, err := service.NewEngine(cfg, db, service.WithEngineClock(now))
	require.NoError(t, err)
	svc := service.NewLocal(engine, service.WithPreferenceSaver(func(model.NotificationPreferences) error { return nil }))
	return NewServer(svc, "test", WithClock(now))
}

func call(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), name string, args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{Params: mcp.CallToolParams{Name: name, Arguments: args}}
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func addMetformin(t *testing.T, s *Server) {
	t.Helper()
	text, isErr := call(t, s.handleAddReminder, "add_reminder", map[string]any{
		"id":           "met",
		"medication":   "Metformin",
		"dosage":       "500mg",
		"times":        "20:00, 8am",
		"start_date":   "2026-03-01",
		"instructions": "with food",
	})
	require.False(t, isErr, text)
}

func TestNewServer(t *testing.T) {
	s := newTestServer(t)
	assert.NotNil(t, s.MCPServer())
}

func TestAddAndGetReminder(t *testing.T) {
	s := newTestServer(t)
	addMetformin(t, s)

	text, isErr := call(t, s.handleGetReminder, "get_reminder", map[string]any{"id": "met"})
	require.False(t, isErr, text)

	var r model.MedicationReminder
	require.NoError(t, json.Unmarshal([]byte(text), &r))
	assert.Equal(t, "Metformin", r.MedicationName)
	assert.Equal(t, "with food", r.Instructions)
	assert.Equal(t, []model.TimeOfDay{model.MustTimeOfDay("08:00"), model.MustTimeOfDay("20:00")}, r.TimesOfDay)

	text, isErr = call(t, s.handleListReminders, "list_reminders", nil)
	require.False(t, isErr)
	assert.Contains(t, text, `"met"`)
}

func TestAddReminderValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing dosage", map[string]any{"medication": "A", "times": "08:00"}, "required"},
		{"bad times", map[string]any{"medication": "A", "dosage": "1", "times": "25:00"}, "invalid times"},
		{"bad recurrence", map[string]any{"medication": "A", "dosage": "1", "times": "08:00", "recurrence": "hourly"}, "invalid recurrence"},
		{"bad date", map[string]any{"medication": "A", "dosage": "1", "times": "08:00", "start_date": "2026-02-30"}, "invalid start_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := call(t, s.handleAddReminder, "add_reminder", tt.args)
			assert.True(t, isErr)
			assert.Contains(t, text, tt.want)
		})
	}
}

func TestListAlarms(t *testing.T) {
	s := newTestServer(t)
	addMetformin(t, s)

	text, isErr := call(t, s.handleListAlarms, "list_alarms", nil)
	require.False(t, isErr, text)

	var out struct {
		Scheduled []model.ScheduledAlarm `json:"scheduled"`
		Pending   []model.PendingFiring  `json:"pending"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	ids := make([]string, 0, len(out.Scheduled))
	for _, a := range out.Scheduled {
		ids = append(ids, a.AlarmID)
	}
	assert.ElementsMatch(t, []string{"met:08:00", "met:20:00"}, ids)
	assert.Empty(t, out.Pending)
}

func TestRecordDose(t *testing.T) {
	s := newTestServer(t)
	addMetformin(t, s)

	text, isErr := call(t, s.handleRecordDose, "record_dose", map[string]any{
		"alarm_id": "met:08:00", "action": "snooze", "minutes": float64(15),
	})
	require.False(t, isErr, text)
	assert.Equal(t, "Snoozed until 07:15.", text)

	text, isErr = call(t, s.handleRecordDose, "record_dose", map[string]any{
		"alarm_id": "met:08:00", "action": "snooze",
	})
	require.False(t, isErr, text)
	assert.Contains(t, text, "recorded as skipped")

	text, isErr = call(t, s.handleAdherence, "adherence", map[string]any{"medication_id": "met"})
	require.False(t, isErr, text)
	var log []model.AdherenceLogEntry
	require.NoError(t, json.Unmarshal([]byte(text), &log))
	require.Len(t, log, 2)
	assert.Equal(t, model.StatusSnoozed, log[0].Status)
	assert.Equal(t, model.StatusSkipped, log[1].Status)
}

func TestRecordDoseErrors(t *testing.T) {
	s := newTestServer(t)
	addMetformin(t, s)

	_, isErr := call(t, s.handleRecordDose, "record_dose", map[string]any{"alarm_id": "met:08:00"})
	assert.True(t, isErr)

	text, isErr := call(t, s.handleRecordDose, "record_dose", map[string]any{"alarm_id": "met:08:00", "action": "dance"})
	assert.True(t, isErr)
	assert.Contains(t, text, "failed to record dose")

	text, isErr = call(t, s.handleRecordDose, "record_dose", map[string]any{"alarm_id": "gone:08:00", "action": "taken"})
	assert.False(t, isErr)
	assert.Contains(t, text, "nothing recorded")
}

func TestDeleteReminder(t *testing.T) {
	s := newTestServer(t)
	addMetformin(t, s)

	text, isErr := call(t, s.handleDeleteReminder, "delete_reminder", map[string]any{"id": "met"})
	require.False(t, isErr, text)

	text, isErr = call(t, s.handleGetReminder, "get_reminder", map[string]any{"id": "met"})
	assert.True(t, isErr)
	assert.Contains(t, text, "failed to get reminder")

	text, isErr = call(t, s.handleListReminders, "list_reminders", nil)
	assert.False(t, isErr)
	assert.Equal(t, "No reminders found.", text)
}

func TestSync(t *testing.T) {
	s := newTestServer(t)
	addMetformin(t, s)

	text, isErr := call(t, s.handleSync, "sync", nil)
	require.False(t, isErr, text)
	assert.Contains(t, text, `"synced": 1`)
}
