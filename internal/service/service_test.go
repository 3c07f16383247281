package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/medtime/internal/config"
	"github.com/manav03panchal/medtime/internal/errors"
	"github.com/manav03panchal/medtime/internal/model"
	"github.com/manav03panchal/medtime/internal/storage"
)

// Monday 2 March 2026, 07:00 UTC.
var monday0700 = time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func testConfig(logOnly bool) *config.Config {
	cfg := config.Default()
	cfg.Timezone = "UTC"
	cfg.Notifications.LogOnly = logOnly
	cfg.HTTP.MaxRetries = 0
	cfg.HTTP.Timeout = 2 * time.Second
	return cfg
}

func newLocal(t *testing.T, cfg *config.Config, db *storage.DB) (*Local, *testClock, *[]model.NotificationPreferences) {
	t.Helper()
	if db == nil {
		var err error
		db, err = storage.Open(storage.Options{InMemory: true})
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
	}
	clock := &testClock{now: monday0700}
	e, err := NewEngine(cfg, db, WithEngineClock(clock.Now))
	require.NoError(t, err)

	var saved []model.NotificationPreferences
	l := NewLocal(e, WithPreferenceSaver(func(p model.NotificationPreferences) error {
		saved = append(saved, p)
		return nil
	}))
	return l, clock, &saved
}

func reminder(id string, times ...string) *model.MedicationReminder {
	tods := make([]model.TimeOfDay, len(times))
	for i, s := range times {
		tods[i] = model.MustTimeOfDay(s)
	}
	r := model.NewMedicationReminder("Metformin", "500mg", tods, model.Daily(),
		model.Date{Year: 2026, Month: time.March, Day: 1})
	r.ID = id
	return r
}

func at(h, m int) time.Time {
	return time.Date(2026, 3, 2, h, m, 0, 0, time.UTC)
}

// =============================================================================
// Local
// =============================================================================

func TestSaveReminderAssignsIDAndSanitizes(t *testing.T) {
	l, _, _ := newLocal(t, testConfig(true), nil)
	ctx := context.Background()

	r := reminder("", "08:00")
	r.MedicationName = "  Metformin \x07 XR  "
	saved, err := l.SaveReminder(ctx, r)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "Metformin XR", saved.MedicationName)
	assert.Empty(t, r.ID, "input must not be mutated")

	alarms, err := l.Alarms(ctx)
	require.NoError(t, err)
	require.Len(t, alarms, 1)
	assert.Equal(t, saved.ID+":08:00", alarms[0].AlarmID)
}

func TestSaveReminderKeepsCreatedAt(t *testing.T) {
	l, clock, _ := newLocal(t, testConfig(true), nil)
	ctx := context.Background()

	first, err := l.SaveReminder(ctx, reminder("r1", "08:00"))
	require.NoError(t, err)
	assert.True(t, monday0700.Equal(first.CreatedAt))

	clock.Set(at(7, 30))
	edit := first.Clone()
	edit.CreatedAt = time.Time{}
	edit.TimesOfDay = []model.TimeOfDay{model.MustTimeOfDay("09:00")}
	second, err := l.SaveReminder(ctx, edit)
	require.NoError(t, err)
	assert.True(t, monday0700.Equal(second.CreatedAt))
	assert.True(t, at(7, 30).Equal(second.UpdatedAt))

	alarms, err := l.Alarms(ctx)
	require.NoError(t, err)
	require.Len(t, alarms, 1)
	assert.Equal(t, "r1:09:00", alarms[0].AlarmID)
}

func TestSaveReminderRejectsBadID(t *testing.T) {
	l, _, _ := newLocal(t, testConfig(true), nil)
	for _, id := range []string{"bad id", "a:snoozed:1"} {
		saved, err := l.SaveReminder(context.Background(), reminder(id, "08:00"))
		assert.True(t, errors.IsUserError(err), id)
		assert.Nil(t, saved, id)
	}

	list, err := l.ListReminders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSaveReminderWithoutPermissionStillStores(t *testing.T) {
	l, _, _ := newLocal(t, testConfig(false), nil)
	ctx := context.Background()

	saved, err := l.SaveReminder(ctx, reminder("r1", "08:00"))
	require.NotNil(t, saved)
	assert.True(t, errors.Is(err, errors.ErrPermissionDenied))

	got, err := l.GetReminder(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)
}

func TestActFiringThenSnooze(t *testing.T) {
	l, clock, _ := newLocal(t, testConfig(true), nil)
	ctx := context.Background()
	_, err := l.SaveReminder(ctx, reminder("r1", "08:00"))
	require.NoError(t, err)

	clock.Set(at(8, 0))
	out, err := l.Act(ctx, ActionRequest{AlarmID: "r1:08:00", FiredAt: at(8, 0).UnixMilli()})
	require.NoError(t, err)
	assert.False(t, out.Discarded)

	clock.Set(at(8, 2))
	out, err = l.Act(ctx, ActionRequest{AlarmID: "r1:08:00", Action: "snooze"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusSnoozed, out.Status)
	assert.True(t, at(8, 12).Equal(out.SnoozeFireAt), "default snooze is ten minutes")

	out, err = l.Act(ctx, ActionRequest{AlarmID: "zzz:08:00", FiredAt: 1})
	require.NoError(t, err)
	assert.True(t, out.Discarded)

	_, err = l.Act(ctx, ActionRequest{FiredAt: 1})
	assert.True(t, errors.IsUserError(err))
}

func TestSetPreferencesSavesAndResyncs(t *testing.T) {
	l, _, saved := newLocal(t, testConfig(true), nil)
	ctx := context.Background()
	_, err := l.SaveReminder(ctx, reminder("r1", "08:00"))
	require.NoError(t, err)

	p := model.DefaultNotificationPreferences()
	p.QuietHours = model.QuietHours{Enabled: true, Start: model.MustTimeOfDay("07:30"), End: model.MustTimeOfDay("09:00")}
	report, err := l.SetPreferences(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Synced)
	require.Len(t, *saved, 1)

	got, err := l.Preferences(ctx)
	require.NoError(t, err)
	assert.True(t, got.QuietHours.Enabled)

	bad := p
	bad.FrequencyMode = "loud"
	_, err = l.SetPreferences(ctx, bad)
	assert.True(t, errors.IsUserError(err))
	assert.Len(t, *saved, 1)
}

func TestWebhookLifecycleGrantsPermission(t *testing.T) {
	var hits int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	l, _, _ := newLocal(t, testConfig(false), nil)
	ctx := context.Background()

	_, err := l.SaveReminder(ctx, reminder("r1", "08:00"))
	assert.True(t, errors.Is(err, errors.ErrPermissionDenied))

	require.NoError(t, l.AddWebhook(ctx, &model.Webhook{Name: "phone", URL: srv.URL, Enabled: true}))
	err = l.AddWebhook(ctx, &model.Webhook{Name: "phone", URL: srv.URL, Enabled: true})
	assert.True(t, errors.IsUserError(err))

	hooks, err := l.ListWebhooks(ctx)
	require.NoError(t, err)
	require.Len(t, hooks, 1)
	assert.Equal(t, model.WebhookTypeGeneric, hooks[0].Type)

	report, err := l.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Synced)

	res, err := l.TestWebhook(ctx, "phone")
	require.NoError(t, err)
	assert.True(t, res.Success)
	mu.Lock()
	assert.Equal(t, 1, hits)
	mu.Unlock()

	_, err = l.TestWebhook(ctx, "nope")
	assert.True(t, errors.Is(err, errors.ErrWebhookNotFound))

	require.NoError(t, l.RemoveWebhook(ctx, "phone"))
	assert.True(t, errors.Is(l.RemoveWebhook(ctx, "phone"), errors.ErrWebhookNotFound))
}

func TestClearDataBacksUpOnDisk(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.Open(storage.Options{Path: filepath.Join(dir, "db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	l, _, _ := newLocal(t, testConfig(true), db)
	l.backupDir = filepath.Join(dir, "backups")
	ctx := context.Background()
	_, err = l.SaveReminder(ctx, reminder("r1", "08:00", "20:00"))
	require.NoError(t, err)

	res, err := l.ClearData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Cancelled)
	require.NotEmpty(t, res.BackupPath)
	_, err = os.Stat(res.BackupPath)
	require.NoError(t, err)

	reminders, err := l.ListReminders(ctx)
	require.NoError(t, err)
	assert.Empty(t, reminders)
	alarms, err := l.Alarms(ctx)
	require.NoError(t, err)
	assert.Empty(t, alarms)
}

// =============================================================================
// ActionRequest and wire errors
// =============================================================================

func TestActionRequestDecode(t *testing.T) {
	a, err := ActionRequest{AlarmID: "r1:08:00", Action: "Snooze"}.Decode(15)
	require.NoError(t, err)
	assert.Equal(t, model.ActionSnooze, a.Kind)
	assert.Equal(t, 15, a.Minutes)

	a, err = ActionRequest{AlarmID: "r1:08:00", Action: "snooze", Minutes: 5}.Decode(15)
	require.NoError(t, err)
	assert.Equal(t, 5, a.Minutes)

	_, err = ActionRequest{Action: "taken"}.Decode(10)
	assert.True(t, errors.IsUserError(err))

	assert.True(t, ActionRequest{AlarmID: "x", Action: "  "}.IsFiring())
	assert.True(t, monday0700.Equal(ActionRequest{}.FiredTime(monday0700)))
	assert.True(t, monday0700.Equal(ActionRequest{FiredAt: monday0700.UnixMilli()}.FiredTime(time.Time{})))
}

func TestErrorEnvelopeRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
		target error
	}{
		{"validation", errors.NewUserError("bad", "fix it"), http.StatusBadRequest, KindValidation, errors.ErrValidation},
		{"not found", errors.Wrap(errors.ErrReminderNotFound, "get"), http.StatusNotFound, KindNotFound, errors.ErrReminderNotFound},
		{"webhook", errors.Wrap(errors.ErrWebhookNotFound, "x"), http.StatusNotFound, KindWebhookGone, errors.ErrWebhookNotFound},
		{"permission", errors.ErrPermissionDenied, http.StatusConflict, KindPermission, errors.ErrPermissionDenied},
		{"quota", errors.ErrQuotaExceeded, http.StatusInsufficientStorage, KindQuota, errors.ErrQuotaExceeded},
		{"storage", errors.NewStorageUnavailable("get", errors.New("io")), http.StatusServiceUnavailable, KindStorage, errors.ErrStorageUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := EncodeError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.kind, body.Kind)
			assert.True(t, errors.Is(DecodeError(status, body), tt.target))
		})
	}

	status, body := EncodeError(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, KindInternal, body.Kind)
	assert.Contains(t, DecodeError(status, body).Error(), "boom")
}

func TestNewRemoteBaseURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:7473", NewRemote("127.0.0.1:7473", 0).BaseURL())
	assert.Equal(t, "https://medtime.example", NewRemote("https://medtime.example", 0).BaseURL())
}
