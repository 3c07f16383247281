package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/medtime/internal/config"
	"github.com/manav03panchal/medtime/internal/model"
	"github.com/manav03panchal/medtime/internal/service"
	"github.com/manav03panchal/medtime/internal/storage"
)

// Monday 2 March 2026, 09:00 UTC.
var monday0900 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func reminder(id, name string, times ...string) *model.MedicationReminder {
	tods := make([]model.TimeOfDay, len(times))
	for i, s := range times {
		tods[i] = model.MustTimeOfDay(s)
	}
	r := model.NewMedicationReminder(name, "1 tablet", tods, model.Daily(),
		model.Date{Year: 2026, Month: time.March, Day: 1})
	r.ID = id
	return r
}

// =============================================================================
// TodayDoses Tests
// =============================================================================

func TestTodayDosesStates(t *testing.T) {
	met := reminder("met", "Metformin", "08:00", "20:00")
	vit := reminder("vit", "Vitamin D", "08:00")
	asp := reminder("asp", "Aspirin", "07:00")

	adherence := map[string][]model.AdherenceLogEntry{
		"vit": {{MedicationID: "vit", ScheduledTimeOfDay: model.MustTimeOfDay("08:00"),
			ActedAt: monday0900.Add(-30 * time.Minute), Status: model.StatusTaken}},
	}
	pending := []model.PendingFiring{{AlarmID: "met:08:00", FiredAt: monday0900.Add(-time.Hour), Deadline: monday0900}}

	doses := TodayDoses([]*model.MedicationReminder{met, vit, asp}, adherence, nil, pending, monday0900)
	require.Len(t, doses, 4)

	assert.Equal(t, "asp", doses[0].Reminder.ID)
	assert.Equal(t, DoseMissed, doses[0].State)

	assert.Equal(t, "met", doses[1].Reminder.ID)
	assert.Equal(t, DoseDue, doses[1].State)
	assert.Equal(t, "met:08:00", doses[1].AlarmID)

	assert.Equal(t, "vit", doses[2].Reminder.ID)
	assert.Equal(t, DoseState(model.StatusTaken), doses[2].State)

	assert.Equal(t, DoseUpcoming, doses[3].State)
	assert.Equal(t, time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC), doses[3].At)
}

func TestTodayDosesSkipsOtherDays(t *testing.T) {
	weekly, err := model.Weekly(time.Tuesday)
	require.NoError(t, err)
	tue := reminder("tue", "Weekly", "08:00")
	tue.Recurrence = weekly

	future := reminder("later", "Later", "08:00")
	future.StartDate = model.Date{Year: 2026, Month: time.March, Day: 10}

	off := reminder("off", "Off", "08:00")
	off.IsActive = false

	doses := TodayDoses([]*model.MedicationReminder{tue, future, off}, nil, nil, nil, monday0900)
	assert.Empty(t, doses)
}

func TestTodayDosesTargetsSnooze(t *testing.T) {
	met := reminder("met", "Metformin", "08:00")
	snoozeID := model.SnoozeAlarmID("met:08:00", monday0900.Add(-5*time.Minute))
	adherence := map[string][]model.AdherenceLogEntry{
		"met": {{MedicationID: "met", ScheduledTimeOfDay: model.MustTimeOfDay("08:00"),
			ActedAt: monday0900.Add(-5 * time.Minute), Status: model.StatusSnoozed}},
	}
	alarms := []model.ScheduledAlarm{{AlarmID: snoozeID, FireAt: monday0900.Add(5 * time.Minute)}}

	doses := TodayDoses([]*model.MedicationReminder{met}, adherence, alarms, nil, monday0900)
	require.Len(t, doses, 1)
	assert.Equal(t, DoseState(model.StatusSnoozed), doses[0].State)
	assert.Equal(t, snoozeID, doses[0].AlarmID)
	assert.True(t, doses[0].Answerable())
}

func TestSummary(t *testing.T) {
	doses := []Dose{
		{State: DoseState(model.StatusTaken)},
		{State: DoseState(model.StatusSkipped)},
		{State: DoseUpcoming},
	}
	answered, taken := Summary(doses)
	assert.Equal(t, 2, answered)
	assert.Equal(t, 1, taken)
}

// =============================================================================
// Component Tests
// =============================================================================

func TestDosesComponentView(t *testing.T) {
	met := reminder("met", "Metformin", "08:00")
	met.Instructions = "with food"
	doses := []Dose{{Reminder: met, TimeOfDay: model.MustTimeOfDay("08:00"), State: DoseDue, AlarmID: "met:08:00"}}

	view := NewDosesComponent(doses, 0, 80, monday0900).View()
	assert.Contains(t, view, "Today")
	assert.Contains(t, view, "Metformin")
	assert.Contains(t, view, "due")
	assert.Contains(t, view, "with food")
}

func TestDosesComponentEmpty(t *testing.T) {
	view := NewDosesComponent(nil, 0, 80, monday0900).View()
	assert.Contains(t, view, "Nothing scheduled today")
}

func TestSummaryComponentView(t *testing.T) {
	view := (&SummaryComponent{Doses: []Dose{{State: DoseState(model.StatusTaken)}, {State: DoseUpcoming}}, Width: 80}).View()
	assert.Contains(t, view, "1/2 taken, 1 answered")
}

func TestHelpBar(t *testing.T) {
	help := HelpBar()
	for _, key := range []string{"taken", "snooze", "skip", "quit"} {
		assert.Contains(t, help, key)
	}
}

func TestProgressBarWidth(t *testing.T) {
	assert.Greater(t, len(ProgressBar(50, 20)), len(ProgressBar(50, 10)))
	assert.NotEmpty(t, ProgressBar(150, 10))
}

// =============================================================================
// Dashboard Model Tests
// =============================================================================

func newTestDashboard(t *testing.T) (*DashboardModel, *service.Local) {
	t.Helper()
	cfg := config.Default()
	cfg.Timezone = "UTC"
	cfg.Notifications.LogOnly = true

	db, err := storage.Open(storage.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	now := func() time.Time { return monday0900 }
	engine, err := service.NewEngine(cfg, db, service.WithEngineClock(now))
	require.NoError(t, err)
	svc := service.NewLocal(engine, service.WithPreferenceSaver(func(model.NotificationPreferences) error { return nil }))

	m := NewDashboardModel(context.Background(), DashboardConfig{
		Service: svc, Location: time.UTC, Now: now, SnoozeMinutes: 15,
	})
	return m, svc
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func run(t *testing.T, m *DashboardModel, cmd tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	m.Update(cmd())
}

func TestDashboardLoadAndAct(t *testing.T) {
	m, svc := newTestDashboard(t)
	ctx := context.Background()
	_, err := svc.SaveReminder(ctx, reminder("met", "Metformin", "08:00", "20:00"))
	require.NoError(t, err)

	run(t, m, m.loadCmd())
	require.Len(t, m.doses, 2)
	assert.Equal(t, DoseMissed, m.doses[0].State)

	_, cmd := m.Update(key("t"))
	run(t, m, cmd)
	assert.NoError(t, m.err)
	assert.Contains(t, m.message, "Metformin taken")

	log, err := svc.Adherence(ctx, "met")
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, model.StatusTaken, log[0].Status)
}

func TestDashboardSnoozeUsesConfiguredMinutes(t *testing.T) {
	m, svc := newTestDashboard(t)
	_, err := svc.SaveReminder(context.Background(), reminder("met", "Metformin", "08:00"))
	require.NoError(t, err)
	run(t, m, m.loadCmd())

	_, cmd := m.Update(key("s"))
	run(t, m, cmd)
	assert.Contains(t, m.message, "snoozed until 09:15")
}

func TestDashboardRefusesUpcoming(t *testing.T) {
	m, svc := newTestDashboard(t)
	_, err := svc.SaveReminder(context.Background(), reminder("met", "Metformin", "20:00"))
	require.NoError(t, err)
	run(t, m, m.loadCmd())

	_, cmd := m.Update(key("t"))
	assert.Nil(t, cmd)
	assert.Contains(t, m.message, "upcoming")
}

func TestDashboardCursor(t *testing.T) {
	m, _ := newTestDashboard(t)
	r := reminder("met", "Metformin", "08:00", "12:00", "20:00")
	m.doses = TodayDoses([]*model.MedicationReminder{r}, nil, nil, nil, monday0900)

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(key("j"))
	m.Update(key("j"))
	assert.Equal(t, 2, m.cursor)

	m.Update(key("k"))
	d, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, model.MustTimeOfDay("12:00"), d.TimeOfDay)
}

func TestDashboardView(t *testing.T) {
	m, _ := newTestDashboard(t)
	assert.Equal(t, "Loading...", m.View())

	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	view := m.View()
	assert.Contains(t, view, "medtime")
	assert.Contains(t, view, "Mon Mar 2, 09:00")
	assert.True(t, strings.Contains(view, "Nothing scheduled today"))
}

func TestDashboardQuit(t *testing.T) {
	m, _ := newTestDashboard(t)
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
