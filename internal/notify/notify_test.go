package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/medtime/internal/config"
	"github.com/manav03panchal/medtime/internal/errors"
	"github.com/manav03panchal/medtime/internal/model"
	"github.com/manav03panchal/medtime/internal/storage"
)

// =============================================================================
// Helpers
// =============================================================================

func setupTestDB(t *testing.T) *storage.DB {
	db, err := storage.Open(storage.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func fastHTTP() *HTTPClient {
	return NewHTTPClient(config.HTTPConfig{
		Timeout:     2 * time.Second,
		MaxRetries:  3,
		RetryDelays: []time.Duration{0, time.Millisecond, time.Millisecond},
	})
}

// recorder is a webhook endpoint that keeps every body it receives.
type recorder struct {
	mu     sync.Mutex
	bodies [][]byte
	status int
}

func newRecorder(t *testing.T, status int) (*recorder, *httptest.Server) {
	rec := &recorder{status: status}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.bodies = append(rec.bodies, b)
		rec.mu.Unlock()
		w.WriteHeader(rec.status)
	}))
	t.Cleanup(srv.Close)
	return rec, srv
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bodies)
}

func doseNotification() *model.Notification {
	n := model.NewNotification(model.NotifyDose, "Time for Metformin", "500mg with food")
	n.AlarmID = "r1:08:00"
	n.WithField("Medication", "Metformin").WithField("Dosage", "500mg")
	n.WithAction("Taken", "http://127.0.0.1:7473/v1/act?alarm=r1%3A08%3A00&action=taken")
	return n
}

// =============================================================================
// Formatter Tests
// =============================================================================

func TestGetFormatter(t *testing.T) {
	tests := []struct {
		webhookType string
		expected    string
	}{
		{model.WebhookTypeDiscord, "*notify.DiscordFormatter"},
		{model.WebhookTypeSlack, "*notify.SlackFormatter"},
		{model.WebhookTypeTeams, "*notify.TeamsFormatter"},
		{model.WebhookTypeGeneric, "*notify.GenericFormatter"},
		{"unknown", "*notify.GenericFormatter"},
		{"", "*notify.GenericFormatter"},
	}

	for _, tt := range tests {
		t.Run(tt.webhookType, func(t *testing.T) {
			formatter := GetFormatter(tt.webhookType)
			assert.NotNil(t, formatter)
			assert.Equal(t, tt.expected, fmt.Sprintf("%T", formatter))
			assert.Equal(t, "application/json", formatter.ContentType())
		})
	}
}

func TestDiscordFormatter(t *testing.T) {
	payload, err := (&DiscordFormatter{}).Format(doseNotification())
	require.NoError(t, err)

	var got discordPayload
	require.NoError(t, json.Unmarshal(payload, &got))
	require.Len(t, got.Embeds, 1)
	embed := got.Embeds[0]
	assert.Equal(t, "Time for Metformin", embed.Title)
	assert.Contains(t, embed.Description, "500mg with food")
	assert.Contains(t, embed.Description, "[Taken](")
	assert.Equal(t, model.ColorPrimary, embed.Color)
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "Dosage", embed.Fields[0].Name, "fields are sorted")
	assert.Equal(t, "medtime", embed.Footer.Text)
}

func TestSlackFormatter(t *testing.T) {
	n := doseNotification()
	n.Message = "take <2> & rest"
	payload, err := (&SlackFormatter{}).Format(n)
	require.NoError(t, err)

	body := string(payload)
	assert.Contains(t, body, `"type":"header"`)
	assert.Contains(t, body, `"type":"actions"`)
	assert.Contains(t, body, `"type":"button"`)
	assert.Contains(t, body, "take &lt;2&gt; &amp; rest")
	assert.Contains(t, body, "#3498DB")
}

func TestTeamsFormatter(t *testing.T) {
	payload, err := (&TeamsFormatter{}).Format(doseNotification())
	require.NoError(t, err)

	var got teamsPayload
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, "MessageCard", got.Type)
	assert.Equal(t, "3498DB", got.ThemeColor)
	require.Len(t, got.Sections, 1)
	assert.Len(t, got.Sections[0].Facts, 2)
	require.Len(t, got.PotentialAction, 1)
	assert.Equal(t, "OpenUri", got.PotentialAction[0].Type)
}

func TestGenericFormatter(t *testing.T) {
	payload, err := (&GenericFormatter{}).Format(doseNotification())
	require.NoError(t, err)

	var got genericPayload
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, "dose", got.Type)
	assert.Equal(t, "r1:08:00", got.AlarmID)
	assert.Equal(t, "Metformin", got.Fields["Medication"])
	require.Len(t, got.Actions, 1)
	assert.Equal(t, "Taken", got.Actions[0].Label)
}

func TestFormatterColorFallback(t *testing.T) {
	n := &model.Notification{Type: model.NotifyMissed, Title: "Missed"}
	assert.Equal(t, model.ColorError, colorOf(n))
	n.Color = 0x123456
	assert.Equal(t, 0x123456, colorOf(n))
}

// =============================================================================
// HTTP Client Tests
// =============================================================================

func TestHTTPClientSuccess(t *testing.T) {
	var ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	res := fastHTTP().Send(context.Background(), srv.URL, "application/json", []byte(`{}`))
	assert.NoError(t, res.Error)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, "medtime/1.0", ua.Load())
}

func TestHTTPClientRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	res := fastHTTP().Send(context.Background(), srv.URL, "application/json", []byte(`{}`))
	assert.NoError(t, res.Error)
	assert.Equal(t, 3, res.Attempts)
}

func TestHTTPClientGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	res := fastHTTP().Send(context.Background(), srv.URL, "application/json", []byte(`{}`))
	require.Error(t, res.Error)
	assert.True(t, errors.IsRecoverableError(res.Error))
	assert.Equal(t, 3, res.Attempts)
}

func TestHTTPClientNoRetryOnClientError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	res := fastHTTP().Send(context.Background(), srv.URL, "application/json", []byte(`{}`))
	require.Error(t, res.Error)
	assert.Contains(t, res.Error.Error(), "HTTP 400")
	assert.Equal(t, int32(1), hits.Load())
}

func TestHTTPClientCancelled(t *testing.T) {
	client := NewHTTPClient(config.HTTPConfig{
		Timeout:     time.Second,
		MaxRetries:  3,
		RetryDelays: []time.Duration{time.Hour},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := client.Send(ctx, "http://127.0.0.1:1", "application/json", nil)
	assert.ErrorIs(t, res.Error, context.Canceled)
}

// =============================================================================
// Dispatcher Tests
// =============================================================================

func TestDispatcherSendsToAcceptingWebhooks(t *testing.T) {
	db := setupTestDB(t)
	repo := storage.NewWebhookRepo(db)

	okRec, okSrv := newRecorder(t, http.StatusOK)
	_, badSrv := newRecorder(t, http.StatusBadRequest)
	mutedRec, mutedSrv := newRecorder(t, http.StatusOK)

	require.NoError(t, repo.Create(model.NewWebhook("ok", model.WebhookTypeGeneric, okSrv.URL)))
	require.NoError(t, repo.Create(model.NewWebhook("bad", model.WebhookTypeSlack, badSrv.URL)))
	muted := model.NewWebhook("missed-only", model.WebhookTypeDiscord, mutedSrv.URL)
	muted.Events = []model.NotificationType{model.NotifyMissed}
	require.NoError(t, repo.Create(muted))

	d := NewDispatcher(repo, fastHTTP())
	results := d.SendNotification(context.Background(), doseNotification())

	require.Len(t, results, 2)
	byName := map[string]DispatchResult{}
	for _, r := range results {
		byName[r.WebhookName] = r
	}
	assert.True(t, byName["ok"].Success)
	assert.False(t, byName["bad"].Success)
	assert.Equal(t, 1, okRec.count())
	assert.Equal(t, 0, mutedRec.count())

	bad, err := repo.Get("bad")
	require.NoError(t, err)
	assert.NotEmpty(t, bad.LastError)
	ok, err := repo.Get("ok")
	require.NoError(t, err)
	assert.False(t, ok.LastUsed.IsZero())
}

func TestDispatcherNoWebhooks(t *testing.T) {
	d := NewDispatcher(storage.NewWebhookRepo(setupTestDB(t)), fastHTTP())
	assert.Nil(t, d.SendNotification(context.Background(), doseNotification()))
	assert.Equal(t, 0, d.CountEnabledWebhooks())
}

func TestDispatcherTestWebhook(t *testing.T) {
	db := setupTestDB(t)
	repo := storage.NewWebhookRepo(db)
	rec, srv := newRecorder(t, http.StatusOK)
	require.NoError(t, repo.Create(model.NewWebhook("home", model.WebhookTypeGeneric, srv.URL)))

	d := NewDispatcher(repo, fastHTTP())
	res := d.TestWebhook(context.Background(), "home")
	assert.True(t, res.Success)
	require.Equal(t, 1, rec.count())
	assert.Contains(t, string(rec.bodies[0]), `"type":"test"`)

	res = d.TestWebhook(context.Background(), "missing")
	assert.ErrorIs(t, res.Error, errors.ErrWebhookNotFound)
}

// =============================================================================
// MemoryPort Tests
// =============================================================================

func TestMemoryPort(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPort()
	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	require.NoError(t, p.Schedule(ctx, "r1:08:00", at, model.AlarmPayload{Title: "a"}))
	require.NoError(t, p.Schedule(ctx, "r1:08:00", at.Add(time.Hour), model.AlarmPayload{Title: "b"}))
	require.NoError(t, p.Schedule(ctx, "r2:07:00", at.Add(-time.Hour), model.AlarmPayload{}))

	list, err := p.ListScheduled(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2, "schedule replaces")
	assert.Equal(t, "r2:07:00", list[0].AlarmID)

	fireAt, payload, ok := p.Lookup("r1:08:00")
	require.True(t, ok)
	assert.Equal(t, at.Add(time.Hour), fireAt)
	assert.Equal(t, "b", payload.Title)

	require.NoError(t, p.Cancel(ctx, "r1:08:00"))
	require.NoError(t, p.Cancel(ctx, "r1:08:00"), "cancel is idempotent")
	assert.Equal(t, []string{"r2:07:00"}, p.IDs(""))
	assert.Len(t, p.Calls(), 5)

	p.ResetCalls()
	assert.Empty(t, p.Calls())
}

func TestMemoryPortQuotaAndPermission(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPort()
	p.SetQuota(1)
	at := time.Now().Add(time.Hour)

	require.NoError(t, p.Schedule(ctx, "a:08:00", at, model.AlarmPayload{}))
	require.NoError(t, p.Schedule(ctx, "a:08:00", at, model.AlarmPayload{}), "replacing does not count")
	err := p.Schedule(ctx, "b:08:00", at, model.AlarmPayload{})
	assert.ErrorIs(t, err, errors.ErrQuotaExceeded)

	granted, err := p.PermissionGranted(ctx)
	require.NoError(t, err)
	assert.True(t, granted)
	p.SetPermission(false)
	granted, _ = p.PermissionGranted(ctx)
	assert.False(t, granted)
	assert.Equal(t, 2, p.PermissionChecks())

	boom := errors.New("boom")
	p.FailWith(boom)
	assert.ErrorIs(t, p.Cancel(ctx, "a:08:00"), boom)
	_, err = p.ListScheduled(ctx)
	assert.ErrorIs(t, err, boom)
}

// =============================================================================
// LocalPort Tests
// =============================================================================

func TestLocalPortScheduleCancelList(t *testing.T) {
	ctx := context.Background()
	p := NewLocalPort(setupTestDB(t), nil, WithQuota(2))
	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	require.NoError(t, p.Schedule(ctx, "r1:08:00", at, model.AlarmPayload{Title: "one"}))
	require.NoError(t, p.Schedule(ctx, "r1:20:00", at.Add(12*time.Hour), model.AlarmPayload{}))
	require.NoError(t, p.Schedule(ctx, "r1:08:00", at.Add(24*time.Hour), model.AlarmPayload{}))

	err := p.Schedule(ctx, "r2:09:00", at, model.AlarmPayload{})
	assert.ErrorIs(t, err, errors.ErrQuotaExceeded)

	list, err := p.ListScheduled(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r1:20:00", list[0].AlarmID)
	assert.True(t, list[1].FireAt.Equal(at.Add(24*time.Hour)))

	require.NoError(t, p.Cancel(ctx, "r1:20:00"))
	require.NoError(t, p.Cancel(ctx, "never-registered"))
	list, err = p.ListScheduled(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.Error(t, p.Schedule(ctx, "", at, model.AlarmPayload{}))
}

func TestLocalPortPermission(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	p := NewLocalPort(db, nil)
	granted, err := p.PermissionGranted(ctx)
	require.NoError(t, err)
	assert.False(t, granted, "no webhooks")

	granted, err = NewLocalPort(db, nil, WithLogOnly(true)).PermissionGranted(ctx)
	require.NoError(t, err)
	assert.True(t, granted)

	require.NoError(t, storage.NewWebhookRepo(db).Create(model.NewWebhook("w", model.WebhookTypeGeneric, "http://x")))
	granted, err = p.PermissionGranted(ctx)
	require.NoError(t, err)
	assert.True(t, granted)
}

func TestLocalPortFireDue(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	rec, srv := newRecorder(t, http.StatusOK)
	require.NoError(t, storage.NewWebhookRepo(db).Create(model.NewWebhook("w", model.WebhookTypeGeneric, srv.URL)))

	p := NewLocalPort(db, NewDispatcher(storage.NewWebhookRepo(db), fastHTTP()),
		WithActionBaseURL("http://127.0.0.1:7473"))

	now := time.Date(2026, 3, 2, 8, 1, 0, 0, time.UTC)
	require.NoError(t, p.Schedule(ctx, "r1:08:00", now.Add(-time.Minute), model.AlarmPayload{
		Title: "Metformin",
		Body:  "500mg",
		Data:  map[string]string{DataMedicationName: "Metformin", DataDosage: "500mg"},
	}))
	require.NoError(t, p.Schedule(ctx, "r1:07:30", now.Add(-31*time.Minute), model.AlarmPayload{
		Title:  "Vitamin D",
		Repeat: model.RepeatDaily,
	}))
	require.NoError(t, p.Schedule(ctx, "r1:20:00", now.Add(12*time.Hour), model.AlarmPayload{}))
	require.NoError(t, p.Schedule(ctx, "gone:09:00", now.Add(-time.Second), model.AlarmPayload{}))

	var fired []string
	onFired := func(_ context.Context, id string, at time.Time) error {
		assert.True(t, at.Equal(now))
		fired = append(fired, id)
		if id == "gone:09:00" {
			return fmt.Errorf("%w: %s", errors.ErrUnknownAlarmID, id)
		}
		return nil
	}

	report, err := p.FireDue(ctx, now, onFired)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Fired)
	assert.Equal(t, 1, report.Unknown)
	assert.Equal(t, 0, report.DeliveryFailures)
	assert.ElementsMatch(t, []string{"r1:07:30", "r1:08:00", "gone:09:00"}, fired)
	assert.Equal(t, 2, rec.count(), "alarms of unknown reminders are not delivered")

	list, err := p.ListScheduled(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2, "one-shots removed, daily re-armed")
	assert.Equal(t, "r1:20:00", list[0].AlarmID)
	assert.Equal(t, "r1:07:30", list[1].AlarmID)
	assert.True(t, list[1].FireAt.Equal(now.Add(-31*time.Minute).AddDate(0, 0, 1)))

	report, err = p.FireDue(ctx, now, onFired)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Fired)
}

func TestLocalPortFireDueRecordsBeforeDelivery(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	rec, srv := newRecorder(t, http.StatusOK)
	require.NoError(t, storage.NewWebhookRepo(db).Create(model.NewWebhook("w", model.WebhookTypeGeneric, srv.URL)))

	p := NewLocalPort(db, NewDispatcher(storage.NewWebhookRepo(db), fastHTTP()))
	now := time.Date(2026, 3, 2, 8, 0, 30, 0, time.UTC)
	require.NoError(t, p.Schedule(ctx, "r1:08:00", now.Add(-30*time.Second), model.AlarmPayload{Title: "Metformin"}))

	onFired := func(ctx context.Context, id string, _ time.Time) error {
		assert.Equal(t, 0, rec.count(), "told before the webhook is posted")
		list, err := p.ListScheduled(ctx)
		require.NoError(t, err)
		assert.Empty(t, list, "registration removed before onFired")
		return nil
	}

	report, err := p.FireDue(ctx, now, onFired)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Fired)
	assert.Equal(t, 1, rec.count())
}

func TestLocalPortNotification(t *testing.T) {
	p := NewLocalPort(setupTestDB(t), nil, WithActionBaseURL("http://127.0.0.1:7473"))
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	reg := &model.AlarmRegistration{
		AlarmID: "r1:08:00",
		Payload: model.AlarmPayload{
			Title: "Metformin",
			Data:  map[string]string{DataKind: string(model.NotifyFollowUp), DataDosage: "500mg"},
		},
	}

	n := p.Notification(reg, now)
	assert.Equal(t, model.NotifyFollowUp, n.Type)
	assert.Equal(t, "500mg", n.Fields["Dosage"])
	_, hasInstructions := n.Fields["Instructions"]
	assert.False(t, hasInstructions)
	require.Len(t, n.Actions, 3)

	u, err := url.Parse(n.Actions[1].URL)
	require.NoError(t, err)
	assert.Equal(t, "/v1/act", u.Path)
	assert.Equal(t, "r1:08:00", u.Query().Get("alarm"))
	assert.Equal(t, "snooze", u.Query().Get("action"))
	assert.Equal(t, fmt.Sprint(now.UnixMilli()), u.Query().Get("fired"))

	reg.Payload.Data[DataKind] = string(model.NotifyMissed)
	assert.Empty(t, p.Notification(reg, now).Actions)
}
