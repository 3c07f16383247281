package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/manav03panchal/medtime/internal/errors"
	"github.com/manav03panchal/medtime/internal/logging"
	"github.com/manav03panchal/medtime/internal/model"
)

// OnFired records that alarmID was delivered at firedAt. The slot is not
// re-armed here; an action or the grace period does that. A firing whose
// dose was already answered is not recorded and the slot is re-armed at
// once. Unknown ids are logged and reported to the delivering adapter only.
func (s *ReminderScheduler) OnFired(ctx context.Context, alarmID string, firedAt time.Time) error {
	r, ref, err := s.resolve(ctx, alarmID)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(r.ID)
	defer unlock()

	answered, err := s.answered(ctx, r.ID, ref, alarmID, firedAt)
	if err != nil {
		return err
	}
	if answered {
		logging.DebugContext(ctx, "fired alarm already answered",
			logging.KeyAlarmID, alarmID, logging.KeyReminderID, ref.ReminderID)
		return s.syncLocked(ctx, r)
	}

	p := model.PendingFiring{
		AlarmID:  alarmID,
		FiredAt:  firedAt,
		Deadline: firedAt.Add(s.grace),
	}
	if err := s.store.AddPendingFiring(ctx, p); err != nil {
		return err
	}
	logging.DebugContext(ctx, "alarm fired",
		logging.KeyAlarmID, alarmID,
		logging.KeyReminderID, ref.ReminderID,
		"deadline", p.Deadline)
	return nil
}

// answered reports whether the occurrence alarmID fired for has an
// adherence entry already. A slot's occurrence is its last time of day at
// or before firedAt; a snooze alarm stands for one occurrence only.
func (s *ReminderScheduler) answered(ctx context.Context, reminderID string, ref model.AlarmRef, alarmID string, firedAt time.Time) (bool, error) {
	entries, err := s.store.GetAdherence(ctx, reminderID)
	if err != nil {
		return false, err
	}

	occurrence := ref.TimeOfDay.On(firedAt.In(s.loc))
	if occurrence.After(firedAt) {
		occurrence = occurrence.AddDate(0, 0, -1)
	}
	for _, e := range entries {
		if e.AlarmID != alarmID {
			continue
		}
		if ref.Snoozed || !e.ActedAt.Before(occurrence) {
			return true, nil
		}
	}
	return false, nil
}

// resolve maps an alarm id to its reminder. Ids whose reminder or slot no
// longer exists are unknown.
func (s *ReminderScheduler) resolve(ctx context.Context, alarmID string) (*model.MedicationReminder, model.AlarmRef, error) {
	ref, err := model.ParseAlarmID(alarmID)
	if err != nil {
		logging.WarnContext(ctx, "unknown alarm id", logging.KeyAlarmID, alarmID)
		return nil, ref, err
	}
	r, err := s.store.GetReminder(ctx, ref.ReminderID)
	if errors.Is(err, errors.ErrReminderNotFound) || (err == nil && !r.HasTimeOfDay(ref.TimeOfDay)) {
		logging.WarnContext(ctx, "unknown alarm id", logging.KeyAlarmID, alarmID)
		return nil, ref, fmt.Errorf("%w: %s", errors.ErrUnknownAlarmID, alarmID)
	}
	if err != nil {
		return nil, ref, err
	}
	return r, ref, nil
}

// ExpireReport summarizes an ExpireFirings pass.
type ExpireReport struct {
	Expired int `json:"expired"`
	Missed  int `json:"missed"`
}

// ExpireFirings advances every slot whose firing outlived the grace period.
// No adherence entry is written for an unanswered dose.
func (s *ReminderScheduler) ExpireFirings(ctx context.Context, now time.Time) (ExpireReport, error) {
	var report ExpireReport

	pending, err := s.store.ListPendingFirings(ctx)
	if err != nil {
		return report, err
	}

	var errs []error
	for _, p := range pending {
		if !p.Expired(now) {
			continue
		}
		missed, err := s.expire(ctx, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.AlarmID, err))
			continue
		}
		report.Expired++
		if missed {
			report.Missed++
		}
	}
	return report, errors.Join(errs...)
}

func (s *ReminderScheduler) expire(ctx context.Context, p model.PendingFiring) (bool, error) {
	ref, err := model.ParseAlarmID(p.AlarmID)
	if err != nil {
		_, err := s.store.RemovePendingFiring(ctx, p.AlarmID)
		return false, err
	}

	unlock := s.locks.Lock(ref.ReminderID)
	defer unlock()

	// Handle may have answered it while we waited for the lock.
	removed, err := s.store.RemovePendingFiring(ctx, p.AlarmID)
	if err != nil || !removed {
		return false, err
	}

	r, err := s.store.GetReminder(ctx, ref.ReminderID)
	if errors.Is(err, errors.ErrReminderNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if ref.Snoozed {
		if err := s.dropFromIndex(ctx, r.ID, p.AlarmID); err != nil {
			return false, err
		}
	}

	logging.InfoContext(ctx, "dose went unanswered",
		logging.KeyAlarmID, p.AlarmID, logging.KeyMedicationID, r.ID)

	missed := false
	if s.onMissed != nil && s.Preferences().FrequencyMode == model.FrequencyComprehensive {
		s.onMissed(ctx, r, p)
		missed = true
	}
	return missed, s.syncLocked(ctx, r)
}

func (s *ReminderScheduler) dropFromIndex(ctx context.Context, reminderID, alarmID string) error {
	indexed, err := s.store.AlarmIndex(ctx, reminderID)
	if err != nil {
		return err
	}
	kept := indexed[:0:0]
	for _, id := range indexed {
		if id != alarmID {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(indexed) {
		return nil
	}
	return s.store.SetAlarmIndex(ctx, reminderID, kept)
}
