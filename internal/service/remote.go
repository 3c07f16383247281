package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/manav03panchal/medtime/internal/errors"
	"github.com/manav03panchal/medtime/internal/model"
	"github.com/manav03panchal/medtime/internal/scheduler"
)

// Remote forwards every operation to the daemon's HTTP API.
type Remote struct {
	base    string
	timeout time.Duration
}

// NewRemote creates a client for the daemon listening on addr
// ("host:port" or a full base URL).
func NewRemote(addr string, timeout time.Duration) *Remote {
	base := addr
	if u, err := url.Parse(addr); err != nil || u.Scheme == "" || u.Host == "" {
		base = "http://" + addr
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Remote{base: base, timeout: timeout}
}

// BaseURL returns the daemon's base URL.
func (r *Remote) BaseURL() string { return r.base }

// do sends a JSON request and decodes a JSON response into out.
func (r *Remote) do(ctx context.Context, method, path string, in, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a := fiber.AcquireAgent()
	req := a.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(r.base + path)
	req.Header.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			fiber.ReleaseAgent(a)
			return errors.NewSystemErrorWithOp(method+" "+path, "could not encode request", err)
		}
		req.Header.SetContentType(fiber.MIMEApplicationJSON)
		req.SetBody(payload)
	}
	a.Timeout(r.requestTimeout(ctx))

	if err := a.Parse(); err != nil {
		fiber.ReleaseAgent(a)
		return errors.NewSystemErrorWithOp(method+" "+path, "invalid daemon address", err)
	}

	// Bytes releases the agent.
	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return errors.NewSystemErrorWithOp(method+" "+path, "daemon unreachable",
			fmt.Errorf("%w: %v", errors.ErrDaemonNotRunning, errs[0]))
	}

	if code < 200 || code >= 300 {
		var eb ErrorBody
		_ = json.Unmarshal(body, &eb)
		return DecodeError(code, eb)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.NewSystemErrorWithOp(method+" "+path, "malformed daemon response", err)
	}
	return nil
}

func (r *Remote) requestTimeout(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < r.timeout {
			return d
		}
	}
	return r.timeout
}

// Health fetches the daemon's health report into out.
func (r *Remote) Health(ctx context.Context, out any) error {
	return r.do(ctx, fiber.MethodGet, "/v1/health", nil, out)
}

// ListReminders implements Service.
func (r *Remote) ListReminders(ctx context.Context) ([]*model.MedicationReminder, error) {
	var out []*model.MedicationReminder
	return out, r.do(ctx, fiber.MethodGet, "/v1/reminders", nil, &out)
}

// GetReminder implements Service.
func (r *Remote) GetReminder(ctx context.Context, id string) (*model.MedicationReminder, error) {
	var out model.MedicationReminder
	if err := r.do(ctx, fiber.MethodGet, "/v1/reminders/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveResponse is the body of POST /v1/reminders. Warning carries a sync
// failure that did not prevent the reminder from being stored.
type SaveResponse struct {
	Reminder *model.MedicationReminder `json:"reminder"`
	Warning  *ErrorBody                `json:"warning,omitempty"`
}

// SaveReminder implements Service.
func (r *Remote) SaveReminder(ctx context.Context, rem *model.MedicationReminder) (*model.MedicationReminder, error) {
	var out SaveResponse
	if err := r.do(ctx, fiber.MethodPost, "/v1/reminders", rem, &out); err != nil {
		return nil, err
	}
	if out.Warning != nil {
		return out.Reminder, DecodeError(fiber.StatusConflict, *out.Warning)
	}
	return out.Reminder, nil
}

// DeleteReminder implements Service.
func (r *Remote) DeleteReminder(ctx context.Context, id string) error {
	return r.do(ctx, fiber.MethodDelete, "/v1/reminders/"+url.PathEscape(id), nil, nil)
}

// Act implements Service.
func (r *Remote) Act(ctx context.Context, req ActionRequest) (scheduler.Outcome, error) {
	var out scheduler.Outcome
	return out, r.do(ctx, fiber.MethodPost, "/v1/actions", req, &out)
}

// Adherence implements Service.
func (r *Remote) Adherence(ctx context.Context, medicationID string) ([]model.AdherenceLogEntry, error) {
	var out []model.AdherenceLogEntry
	return out, r.do(ctx, fiber.MethodGet, "/v1/adherence/"+url.PathEscape(medicationID), nil, &out)
}

// Alarms implements Service.
func (r *Remote) Alarms(ctx context.Context) ([]model.ScheduledAlarm, error) {
	var out []model.ScheduledAlarm
	return out, r.do(ctx, fiber.MethodGet, "/v1/alarms", nil, &out)
}

// Pending implements Service.
func (r *Remote) Pending(ctx context.Context) ([]model.PendingFiring, error) {
	var out []model.PendingFiring
	return out, r.do(ctx, fiber.MethodGet, "/v1/pending", nil, &out)
}

// SyncAll implements Service.
func (r *Remote) SyncAll(ctx context.Context) (scheduler.SyncReport, error) {
	var out scheduler.SyncReport
	return out, r.do(ctx, fiber.MethodPost, "/v1/sync", nil, &out)
}

// Preferences implements Service.
func (r *Remote) Preferences(ctx context.Context) (model.NotificationPreferences, error) {
	var out model.NotificationPreferences
	return out, r.do(ctx, fiber.MethodGet, "/v1/preferences", nil, &out)
}

// SetPreferences implements Service.
func (r *Remote) SetPreferences(ctx context.Context, p model.NotificationPreferences) (scheduler.SyncReport, error) {
	var out scheduler.SyncReport
	return out, r.do(ctx, fiber.MethodPut, "/v1/preferences", p, &out)
}

// ListWebhooks implements Service.
func (r *Remote) ListWebhooks(ctx context.Context) ([]*model.Webhook, error) {
	var out []*model.Webhook
	return out, r.do(ctx, fiber.MethodGet, "/v1/webhooks", nil, &out)
}

// AddWebhook implements Service.
func (r *Remote) AddWebhook(ctx context.Context, w *model.Webhook) error {
	return r.do(ctx, fiber.MethodPost, "/v1/webhooks", w, w)
}

// RemoveWebhook implements Service.
func (r *Remote) RemoveWebhook(ctx context.Context, name string) error {
	return r.do(ctx, fiber.MethodDelete, "/v1/webhooks/"+url.PathEscape(name), nil, nil)
}

// TestWebhook implements Service.
func (r *Remote) TestWebhook(ctx context.Context, name string) (WebhookTestResult, error) {
	var out WebhookTestResult
	return out, r.do(ctx, fiber.MethodPost, "/v1/webhooks/"+url.PathEscape(name)+"/test", nil, &out)
}

// ClearData implements Service.
func (r *Remote) ClearData(ctx context.Context) (ClearResult, error) {
	var out ClearResult
	return out, r.do(ctx, fiber.MethodPost, "/v1/data/clear?confirm=yes", nil, &out)
}

var _ Service = (*Remote)(nil)
