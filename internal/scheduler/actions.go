package scheduler

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/manav03panchal/medtime/internal/errors"
	"github.com/manav03panchal/medtime/internal/logging"
	"github.com/manav03panchal/medtime/internal/model"
)

// Outcome describes what Handle did with an action.
type Outcome struct {
	// Discarded is set when the alarm id no longer maps to a reminder slot.
	Discarded bool `json:"discarded"`
	// Downgraded is set when a snooze was recorded as a skip.
	Downgraded bool                  `json:"downgraded"`
	Status     model.AdherenceStatus `json:"status,omitempty"`
	// SnoozeAlarmID and SnoozeFireAt name the follow-up alarm, if any.
	SnoozeAlarmID string    `json:"snooze_alarm_id,omitempty"`
	SnoozeFireAt  time.Time `json:"snooze_fire_at,omitempty"`
}

// ActionHandler is the single entry point for responses to fired alarms,
// whichever channel they arrive on.
type ActionHandler struct {
	s *ReminderScheduler
}

// NewActionHandler creates a handler that records through s.
func NewActionHandler(s *ReminderScheduler) *ActionHandler {
	return &ActionHandler{s: s}
}

// Handle applies action to alarmID at time at. A slot gets at most one
// outstanding snooze: snoozing a snoozed alarm, or snoozing again while a
// snooze is pending, records a skip instead.
func (h *ActionHandler) Handle(ctx context.Context, alarmID string, action model.Action, at time.Time) (Outcome, error) {
	if err := action.Validate(); err != nil {
		return Outcome{}, err
	}

	s := h.s
	ref, err := model.ParseAlarmID(alarmID)
	if err != nil {
		logging.WarnContext(ctx, "discarding action for unknown alarm",
			logging.KeyAlarmID, alarmID, logging.KeyAction, action.String())
		return Outcome{Discarded: true}, nil
	}

	unlock := s.locks.Lock(ref.ReminderID)
	defer unlock()

	r, err := s.store.GetReminder(ctx, ref.ReminderID)
	if errors.Is(err, errors.ErrReminderNotFound) {
		return h.discard(ctx, alarmID, action)
	}
	if err != nil {
		return Outcome{}, err
	}
	if !r.HasTimeOfDay(ref.TimeOfDay) {
		return h.discard(ctx, alarmID, action)
	}

	indexed, err := s.store.AlarmIndex(ctx, r.ID)
	if err != nil {
		return Outcome{}, err
	}
	pending, err := s.store.ListPendingFirings(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if ref.Snoozed && !slices.Contains(indexed, alarmID) && !hasPending(pending, alarmID) {
		return h.discard(ctx, alarmID, action)
	}

	var out Outcome
	effective := action
	if action.Kind == model.ActionSnooze && (ref.Snoozed || hasOutstandingSnooze(indexed, ref.SlotID)) {
		effective = model.Skip()
		out.Downgraded = true
	}
	out.Status = effective.Status()

	entry := model.AdherenceLogEntry{
		MedicationID:       r.ID,
		ScheduledTimeOfDay: ref.TimeOfDay,
		ActedAt:            at,
		Status:             out.Status,
		AlarmID:            alarmID,
	}
	if err := s.store.AppendAdherence(ctx, entry); err != nil {
		return Outcome{}, err
	}

	index := slices.Clone(indexed)
	if ref.Snoozed {
		if err := s.port.Cancel(ctx, alarmID); err != nil {
			return out, err
		}
		index = slices.DeleteFunc(index, func(id string) bool { return id == alarmID })
	}

	// An ended reminder, or reminders switched off, gets no follow-up.
	prefs := s.Preferences()
	if effective.Kind == model.ActionSnooze && !r.IsEnded(s.now().In(s.loc)) && prefs.RemindersEnabled {
		if err := s.checkPermission(ctx); err != nil {
			return out, err
		}
		snoozeID := model.SnoozeAlarmID(ref.SlotID, at)
		fireAt := at.Add(time.Duration(effective.Minutes) * time.Minute)
		payload := s.payload(r, ref.TimeOfDay, prefs, model.NotifyFollowUp)
		if err := s.port.Schedule(ctx, snoozeID, fireAt, payload); err != nil {
			return out, err
		}
		out.SnoozeAlarmID, out.SnoozeFireAt = snoozeID, fireAt
		index = append(index, snoozeID)
	}

	if err := s.store.SetAlarmIndex(ctx, r.ID, index); err != nil {
		return out, err
	}
	if _, err := s.store.RemovePendingFiring(ctx, alarmID); err != nil {
		return out, err
	}

	logging.InfoContext(ctx, "dose recorded",
		logging.KeyAlarmID, alarmID,
		logging.KeyMedicationID, r.ID,
		logging.KeyStatus, string(out.Status))

	return out, s.syncLocked(ctx, r)
}

func (h *ActionHandler) discard(ctx context.Context, alarmID string, action model.Action) (Outcome, error) {
	logging.WarnContext(ctx, "discarding action for unknown alarm",
		logging.KeyAlarmID, alarmID, logging.KeyAction, action.String())
	// A stale pending firing would otherwise linger until expiry.
	if _, err := h.s.store.RemovePendingFiring(ctx, alarmID); err != nil {
		logging.WarnContext(ctx, "pending firing not cleared",
			logging.KeyAlarmID, alarmID, logging.KeyError, err.Error())
	}
	return Outcome{Discarded: true}, nil
}

func hasOutstandingSnooze(indexed []string, slotID string) bool {
	prefix := slotID + ":snoozed:"
	for _, id := range indexed {
		if strings.HasPrefix(id, prefix) {
			return true
		}
	}
	return false
}

func hasPending(pending []model.PendingFiring, alarmID string) bool {
	for _, p := range pending {
		if p.AlarmID == alarmID {
			return true
		}
	}
	return false
}
