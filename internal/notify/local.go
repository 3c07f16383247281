package notify

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/manav03panchal/medtime/internal/errors"
	"github.com/manav03panchal/medtime/internal/logging"
	"github.com/manav03panchal/medtime/internal/model"
	"github.com/manav03panchal/medtime/internal/storage"
)

// LocalPort holds alarms in badger and delivers them through webhooks
// when the daemon's clock calls FireDue.
type LocalPort struct {
	regs       *storage.RegistrationRepo
	webhooks   *storage.WebhookRepo
	dispatcher *Dispatcher
	maxAlarms  int
	logOnly    bool
	actionBase string
	now        func() time.Time
}

// LocalOption configures a LocalPort.
type LocalOption func(*LocalPort)

// WithQuota caps live registrations; 0 disables the cap.
func WithQuota(n int) LocalOption {
	return func(p *LocalPort) { p.maxAlarms = n }
}

// WithLogOnly delivers by logging instead of posting to webhooks.
func WithLogOnly(on bool) LocalOption {
	return func(p *LocalPort) { p.logOnly = on }
}

// WithActionBaseURL adds taken/snooze/skip links pointing at base.
func WithActionBaseURL(base string) LocalOption {
	return func(p *LocalPort) { p.actionBase = base }
}

// WithLocalClock overrides time.Now for registration timestamps.
func WithLocalClock(now func() time.Time) LocalOption {
	return func(p *LocalPort) { p.now = now }
}

// NewLocalPort creates a port over db.
func NewLocalPort(db *storage.DB, dispatcher *Dispatcher, opts ...LocalOption) *LocalPort {
	p := &LocalPort{
		regs:       storage.NewRegistrationRepo(db),
		webhooks:   storage.NewWebhookRepo(db),
		dispatcher: dispatcher,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Schedule implements Port.
func (p *LocalPort) Schedule(_ context.Context, alarmID string, fireAt time.Time, payload model.AlarmPayload) error {
	if alarmID == "" {
		return errors.NewUserError("alarm id is empty", "")
	}
	if p.maxAlarms > 0 {
		exists, err := p.regs.Exists(alarmID)
		if err != nil {
			return errors.NewStorageUnavailable("schedule", err)
		}
		if !exists {
			n, err := p.regs.Count()
			if err != nil {
				return errors.NewStorageUnavailable("schedule", err)
			}
			if n >= p.maxAlarms {
				return quotaError(p.maxAlarms)
			}
		}
	}

	reg := &model.AlarmRegistration{
		AlarmID:   alarmID,
		FireAt:    fireAt,
		Payload:   payload,
		CreatedAt: p.now(),
	}
	if err := p.regs.Put(reg); err != nil {
		return errors.NewStorageUnavailable("schedule", err)
	}
	return nil
}

// Cancel implements Port.
func (p *LocalPort) Cancel(_ context.Context, alarmID string) error {
	if err := p.regs.Delete(alarmID); err != nil {
		return errors.NewStorageUnavailable("cancel", err)
	}
	return nil
}

// ListScheduled implements Port.
func (p *LocalPort) ListScheduled(_ context.Context) ([]model.ScheduledAlarm, error) {
	regs, err := p.regs.List()
	if err != nil {
		return nil, errors.NewStorageUnavailable("list scheduled", err)
	}
	out := make([]model.ScheduledAlarm, len(regs))
	for i, r := range regs {
		out[i] = r.Scheduled()
	}
	sortScheduled(out)
	return out, nil
}

// PermissionGranted reports whether anything would receive a delivery.
func (p *LocalPort) PermissionGranted(context.Context) (bool, error) {
	if p.logOnly {
		return true, nil
	}
	n, err := p.webhooks.CountEnabled()
	if err != nil {
		return false, errors.NewStorageUnavailable("permission check", err)
	}
	return n > 0, nil
}

// FireReport summarizes one FireDue pass.
type FireReport struct {
	Fired            int
	DeliveryFailures int
	Unknown          int
}

// FireDue fires every registration due at now. One-shot registrations
// are removed and daily-repeat ones move to their next day before onFired
// is told and the notification goes out, so an answer that arrives while
// webhooks are still being posted finds the firing already recorded.
func (p *LocalPort) FireDue(ctx context.Context, now time.Time, onFired FiredFunc) (FireReport, error) {
	var report FireReport

	due, err := p.regs.ListDue(now)
	if err != nil {
		return report, errors.NewStorageUnavailable("fire due", err)
	}

	for _, reg := range due {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		fired := *reg
		if reg.Payload.Repeat == model.RepeatDaily {
			next := reg.FireAt
			for !next.After(now) {
				next = next.AddDate(0, 0, 1)
			}
			reg.FireAt = next
			err = p.regs.Put(reg)
		} else {
			err = p.regs.Delete(reg.AlarmID)
		}
		if err != nil {
			return report, errors.NewStorageUnavailable("fire due", err)
		}
		report.Fired++

		if onFired != nil {
			if err := onFired(ctx, fired.AlarmID, now); err != nil {
				if errors.Is(err, errors.ErrUnknownAlarmID) {
					report.Unknown++
					continue
				}
				logging.WarnContext(ctx, "fired alarm not recorded",
					logging.KeyAlarmID, fired.AlarmID, logging.KeyError, err.Error())
			}
		}

		report.DeliveryFailures += p.deliver(ctx, &fired, now)
	}

	return report, nil
}

// deliver sends reg and returns the number of failed webhook posts.
func (p *LocalPort) deliver(ctx context.Context, reg *model.AlarmRegistration, now time.Time) int {
	n := p.Notification(reg, now)

	if p.logOnly || p.dispatcher == nil {
		logging.InfoContext(ctx, "alarm fired",
			logging.KeyAlarmID, reg.AlarmID,
			"title", n.Title,
			"body", n.Message)
		return 0
	}

	failures := 0
	for _, r := range p.dispatcher.SendNotification(ctx, n) {
		if !r.Success {
			failures++
		}
	}
	return failures
}

// Notification renders a registration for delivery.
func (p *LocalPort) Notification(reg *model.AlarmRegistration, now time.Time) *model.Notification {
	typ := model.NotifyDose
	if k := reg.Payload.Data[DataKind]; k != "" {
		typ = model.NotificationType(k)
	}

	n := model.NewNotification(typ, reg.Payload.Title, reg.Payload.Body)
	n.AlarmID = reg.AlarmID
	n.Timestamp = now
	n.WithField("Medication", reg.Payload.Data[DataMedicationName]).
		WithField("Dosage", reg.Payload.Data[DataDosage]).
		WithField("Instructions", reg.Payload.Data[DataInstructions]).
		WithField("Scheduled", reg.Payload.Data[DataTimeOfDay])

	if p.actionBase != "" && typ != model.NotifyMissed {
		n.WithAction("Taken", ActionURL(p.actionBase, reg.AlarmID, model.ActionTaken, now))
		n.WithAction("Snooze", ActionURL(p.actionBase, reg.AlarmID, model.ActionSnooze, now))
		n.WithAction("Skip", ActionURL(p.actionBase, reg.AlarmID, model.ActionSkip, now))
	}
	return n
}

// ActionURL builds a link that answers alarmID with kind.
func ActionURL(base, alarmID string, kind model.ActionKind, firedAt time.Time) string {
	q := url.Values{}
	q.Set("alarm", alarmID)
	q.Set("action", string(kind))
	q.Set("fired", strconv.FormatInt(firedAt.UnixMilli(), 10))
	return fmt.Sprintf("%s/v1/act?%s", base, q.Encode())
}
