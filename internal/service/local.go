package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/manav03panchal/medtime/internal/errors"
	"github.com/manav03panchal/medtime/internal/logging"
	"github.com/manav03panchal/medtime/internal/model"
	"github.com/manav03panchal/medtime/internal/scheduler"
	"github.com/manav03panchal/medtime/internal/storage"
	"github.com/manav03panchal/medtime/internal/validate"
)

// Local runs every operation against an in-process Engine.
type Local struct {
	e         *Engine
	savePrefs func(model.NotificationPreferences) error
	backupDir string
}

// LocalOption configures a Local service.
type LocalOption func(*Local)

// WithPreferenceSaver replaces how changed preferences are persisted.
// The default writes them to the config file.
func WithPreferenceSaver(fn func(model.NotificationPreferences) error) LocalOption {
	return func(l *Local) { l.savePrefs = fn }
}

// WithBackupDir sets where ClearData writes its backup. An in-memory
// database is never backed up.
func WithBackupDir(dir string) LocalOption {
	return func(l *Local) { l.backupDir = dir }
}

// NewLocal creates a service over e.
func NewLocal(e *Engine, opts ...LocalOption) *Local {
	l := &Local{
		e:         e,
		backupDir: storage.DefaultBackupDir(e.db.Path()),
	}
	l.savePrefs = func(p model.NotificationPreferences) error {
		e.cfg.SetNotificationPreferences(p)
		return e.cfg.Save()
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Engine returns the engine behind the service.
func (l *Local) Engine() *Engine { return l.e }

// ListReminders implements Service.
func (l *Local) ListReminders(ctx context.Context) ([]*model.MedicationReminder, error) {
	return l.e.store.ListReminders(ctx)
}

// GetReminder implements Service.
func (l *Local) GetReminder(ctx context.Context, id string) (*model.MedicationReminder, error) {
	return l.e.store.GetReminder(ctx, id)
}

// SaveReminder implements Service.
func (l *Local) SaveReminder(ctx context.Context, r *model.MedicationReminder) (*model.MedicationReminder, error) {
	r = r.Clone()
	now := l.e.now()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := validate.ReminderID(r.ID); err != nil {
		return nil, err
	}
	if existing, err := l.e.store.GetReminder(ctx, r.ID); err == nil {
		r.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, errors.ErrReminderNotFound) {
		return nil, err
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	r.MedicationName = validate.SanitizeText(r.MedicationName)
	r.Dosage = validate.SanitizeText(r.Dosage)
	r.Instructions = validate.SanitizeText(r.Instructions)
	r.Normalize()

	stored, err := l.e.sched.Save(ctx, r)
	if !stored {
		return nil, err
	}
	logging.InfoContext(ctx, "reminder saved", logging.KeyReminderID, r.ID)
	return r, err
}

// DeleteReminder implements Service.
func (l *Local) DeleteReminder(ctx context.Context, id string) error {
	return l.e.sched.Delete(ctx, id)
}

// Act implements Service. A request without an action is recorded as a
// firing; anything else goes through the action handler.
func (l *Local) Act(ctx context.Context, req ActionRequest) (scheduler.Outcome, error) {
	now := l.e.now()
	if req.IsFiring() {
		if req.AlarmID == "" {
			return scheduler.Outcome{}, errors.NewUserError("alarm id is required", "")
		}
		err := l.e.sched.OnFired(ctx, req.AlarmID, req.FiredTime(now))
		if errors.Is(err, errors.ErrUnknownAlarmID) {
			return scheduler.Outcome{Discarded: true}, nil
		}
		return scheduler.Outcome{}, err
	}

	action, err := req.Decode(l.e.cfg.Scheduler.DefaultSnooze)
	if err != nil {
		return scheduler.Outcome{}, err
	}
	return l.e.actions.Handle(ctx, req.AlarmID, action, now)
}

// Adherence implements Service.
func (l *Local) Adherence(ctx context.Context, medicationID string) ([]model.AdherenceLogEntry, error) {
	return l.e.store.GetAdherence(ctx, medicationID)
}

// Alarms implements Service.
func (l *Local) Alarms(ctx context.Context) ([]model.ScheduledAlarm, error) {
	return l.e.port.ListScheduled(ctx)
}

// Pending implements Service.
func (l *Local) Pending(ctx context.Context) ([]model.PendingFiring, error) {
	return l.e.store.ListPendingFirings(ctx)
}

// SyncAll implements Service. It rechecks the notification permission
// first, since webhooks may have changed since the last pass.
func (l *Local) SyncAll(ctx context.Context) (scheduler.SyncReport, error) {
	if _, err := l.e.sched.RefreshPermission(ctx); err != nil {
		return scheduler.SyncReport{}, err
	}
	return l.e.sched.SyncAll(ctx)
}

// Preferences implements Service.
func (l *Local) Preferences(context.Context) (model.NotificationPreferences, error) {
	return l.e.sched.Preferences(), nil
}

// SetPreferences implements Service: persist, swap, then re-sync.
func (l *Local) SetPreferences(ctx context.Context, p model.NotificationPreferences) (scheduler.SyncReport, error) {
	if err := p.Validate(); err != nil {
		return scheduler.SyncReport{}, err
	}
	if l.savePrefs != nil {
		if err := l.savePrefs(p); err != nil {
			return scheduler.SyncReport{}, errors.NewSystemErrorWithOp("save preferences", "could not write config", err)
		}
	}
	if err := l.e.sched.SetPreferences(p); err != nil {
		return scheduler.SyncReport{}, err
	}
	return l.e.sched.SyncAll(ctx)
}

// ListWebhooks implements Service.
func (l *Local) ListWebhooks(context.Context) ([]*model.Webhook, error) {
	return l.e.webhooks.List()
}

// AddWebhook implements Service. Adding the first webhook grants the
// notification permission, so the cached answer is refreshed.
func (l *Local) AddWebhook(ctx context.Context, w *model.Webhook) error {
	if w.Type == "" {
		w.Type = model.DetectWebhookType(w.URL)
	}
	if err := validate.Webhook(w); err != nil {
		return err
	}
	exists, err := l.e.webhooks.Exists(w.Name)
	if err != nil {
		return errors.NewStorageUnavailable("webhook exists", err)
	}
	if exists {
		return errors.NewUserErrorWithField("name", w.Name, "a webhook with this name already exists",
			"Remove it first with 'medtime webhook remove "+w.Name+"'.")
	}
	if w.Key == "" {
		w.Key = model.GenerateWebhookKey(w.Name)
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = l.e.now()
	}
	if err := l.e.webhooks.Create(w); err != nil {
		return errors.NewStorageUnavailable("create webhook", err)
	}
	_, err = l.e.sched.RefreshPermission(ctx)
	return err
}

// RemoveWebhook implements Service.
func (l *Local) RemoveWebhook(ctx context.Context, name string) error {
	if err := l.e.webhooks.Delete(name); err != nil {
		return err
	}
	_, err := l.e.sched.RefreshPermission(ctx)
	return err
}

// TestWebhook implements Service.
func (l *Local) TestWebhook(ctx context.Context, name string) (WebhookTestResult, error) {
	res := l.e.dispatcher.TestWebhook(ctx, name)
	if errors.Is(res.Error, errors.ErrWebhookNotFound) {
		return WebhookTestResult{}, res.Error
	}
	out := WebhookTestResult{
		Webhook:    name,
		Success:    res.Success,
		StatusCode: res.StatusCode,
		DurationMs: res.Duration.Milliseconds(),
	}
	if res.Error != nil {
		out.Error = res.Error.Error()
	}
	return out, nil
}

// ClearData backs the database up, cancels every alarm and removes every
// reminder, adherence log and pending firing. Webhooks are kept.
func (l *Local) ClearData(ctx context.Context) (ClearResult, error) {
	var res ClearResult
	if l.e.db.Path() != "" && l.backupDir != "" {
		path, err := storage.CreateBackup(l.e.db, l.backupDir)
		if err != nil {
			return res, errors.NewSystemErrorWithOp("backup", "could not back up before clearing", err)
		}
		res.BackupPath = path
	}

	alarms, err := l.e.port.ListScheduled(ctx)
	if err != nil {
		return res, err
	}
	for _, a := range alarms {
		if err := l.e.port.Cancel(ctx, a.AlarmID); err != nil {
			return res, err
		}
		res.Cancelled++
	}
	if err := l.e.store.Clear(ctx); err != nil {
		return res, err
	}
	logging.InfoContext(ctx, "all reminder data cleared",
		logging.KeyCount, res.Cancelled, "backup", res.BackupPath)
	return res, nil
}

var _ Service = (*Local)(nil)
