package service

import (
	"context"
	"fmt"
	"time"

	"github.com/manav03panchal/medtime/internal/config"
	"github.com/manav03panchal/medtime/internal/logging"
	"github.com/manav03panchal/medtime/internal/model"
	"github.com/manav03panchal/medtime/internal/notify"
	"github.com/manav03panchal/medtime/internal/scheduler"
	"github.com/manav03panchal/medtime/internal/storage"
)

// Engine is the reminder engine wired from one configuration and database.
type Engine struct {
	cfg        *config.Config
	db         *storage.DB
	store      *storage.ReminderStore
	webhooks   *storage.WebhookRepo
	dispatcher *notify.Dispatcher
	port       *notify.LocalPort
	sched      *scheduler.ReminderScheduler
	actions    *scheduler.ActionHandler
	now        func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	now        func() time.Time
	actionBase string
}

// WithEngineClock overrides time.Now for the whole engine.
func WithEngineClock(now func() time.Time) EngineOption {
	return func(o *engineOptions) { o.now = now }
}

// WithActionLinks makes delivered notifications carry taken/snooze/skip
// links to the API at base.
func WithActionLinks(base string) EngineOption {
	return func(o *engineOptions) { o.actionBase = base }
}

// NewEngine wires storage, delivery and scheduling over db. It does not
// take ownership of db.
func NewEngine(cfg *config.Config, db *storage.DB, opts ...EngineOption) (*Engine, error) {
	o := engineOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	prefs, err := cfg.NotificationPreferences()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		db:       db,
		store:    storage.NewReminderStore(storage.NewBadgerKV(db)),
		webhooks: storage.NewWebhookRepo(db),
		now:      o.now,
	}
	e.dispatcher = notify.NewDispatcher(e.webhooks, notify.NewHTTPClient(cfg.HTTP))
	e.port = notify.NewLocalPort(db, e.dispatcher,
		notify.WithQuota(cfg.Notifications.MaxScheduled),
		notify.WithLogOnly(cfg.Notifications.LogOnly),
		notify.WithActionBaseURL(o.actionBase),
		notify.WithLocalClock(o.now),
	)
	e.sched = scheduler.New(e.port, e.store, prefs,
		scheduler.WithClock(o.now),
		scheduler.WithLocation(loc),
		scheduler.WithGracePeriod(cfg.Scheduler.GracePeriod),
		scheduler.WithFallbackRepeat(cfg.Scheduler.FallbackRepeat),
		scheduler.WithMissedHandler(e.notifyMissed),
	)
	e.actions = scheduler.NewActionHandler(e.sched)
	return e, nil
}

// Config returns the configuration the engine was built from.
func (e *Engine) Config() *config.Config { return e.cfg }

// DB returns the underlying database.
func (e *Engine) DB() *storage.DB { return e.db }

// Store returns the reminder store.
func (e *Engine) Store() *storage.ReminderStore { return e.store }

// Port returns the local notification port.
func (e *Engine) Port() *notify.LocalPort { return e.port }

// Dispatcher returns the webhook dispatcher.
func (e *Engine) Dispatcher() *notify.Dispatcher { return e.dispatcher }

// Scheduler returns the reminder scheduler.
func (e *Engine) Scheduler() *scheduler.ReminderScheduler { return e.sched }

// Actions returns the action handler.
func (e *Engine) Actions() *scheduler.ActionHandler { return e.actions }

// Now returns the engine clock's current time in the configured zone.
func (e *Engine) Now() time.Time { return e.now().In(e.sched.Location()) }

// notifyMissed tells the webhooks that a dose went unanswered.
func (e *Engine) notifyMissed(ctx context.Context, r *model.MedicationReminder, p model.PendingFiring) {
	ref, err := model.ParseAlarmID(p.AlarmID)
	if err != nil {
		return
	}

	n := model.NewNotification(model.NotifyMissed, r.MedicationName,
		fmt.Sprintf("No response to the %s dose.", ref.TimeOfDay))
	n.AlarmID = p.AlarmID
	n.Timestamp = e.now()
	n.WithField("Dosage", r.Dosage).
		WithField("Scheduled", ref.TimeOfDay.String()).
		WithField("Fired", p.FiredAt.In(e.sched.Location()).Format("15:04"))

	if e.cfg.Notifications.LogOnly {
		logging.InfoContext(ctx, "dose missed",
			logging.KeyAlarmID, p.AlarmID, logging.KeyMedicationID, r.ID)
		return
	}
	for _, res := range e.dispatcher.SendNotification(ctx, n) {
		if !res.Success {
			logging.WarnContext(ctx, "missed-dose notice not delivered",
				logging.KeyWebhook, res.WebhookName, logging.KeyError, fmt.Sprint(res.Error))
		}
	}
}
