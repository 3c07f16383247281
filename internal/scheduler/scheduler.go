// Package scheduler keeps the notification port in step with stored
// medication reminders and turns user responses into adherence entries.
//
// Alarms are one-shot and recomputed after each firing: when a dose alarm
// fires it waits for an action (or for the grace period to lapse) and only
// then is the slot's next occurrence registered. Edits, quiet hours and
// end dates therefore apply from the very next alarm.
package scheduler

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/manav03panchal/medtime/internal/errors"
	"github.com/manav03panchal/medtime/internal/logging"
	"github.com/manav03panchal/medtime/internal/model"
	"github.com/manav03panchal/medtime/internal/notify"
	"github.com/manav03panchal/medtime/internal/quiethours"
	"github.com/manav03panchal/medtime/internal/storage"
	"github.com/manav03panchal/medtime/internal/trigger"
)

// DefaultGracePeriod is how long a fired alarm waits for a response.
const DefaultGracePeriod = 60 * time.Minute

// State is the lifecycle position of a reminder.
type State string

// Reminder states.
const (
	StateUnscheduled State = "unscheduled"
	StateScheduled   State = "scheduled"
	StateFiring      State = "firing"
	StateEnded       State = "ended"
)

// MissedFunc is told about firings that expired without a response.
type MissedFunc func(ctx context.Context, r *model.MedicationReminder, p model.PendingFiring)

// ReminderScheduler registers, refreshes and cancels alarms for reminders.
type ReminderScheduler struct {
	port  notify.Port
	store *storage.ReminderStore
	prefs atomic.Pointer[model.NotificationPreferences]
	locks *keyedMutex

	now            func() time.Time
	loc            *time.Location
	grace          time.Duration
	fallbackRepeat bool
	onMissed       MissedFunc

	permMu      sync.Mutex
	permChecked bool
	permGranted bool
}

// Option configures a ReminderScheduler.
type Option func(*ReminderScheduler)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *ReminderScheduler) { s.now = now }
}

// WithLocation sets the zone wall-clock times are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *ReminderScheduler) { s.loc = loc }
}

// WithGracePeriod sets how long a fired alarm waits for a response.
func WithGracePeriod(d time.Duration) Option {
	return func(s *ReminderScheduler) { s.grace = d }
}

// WithFallbackRepeat marks daily dose alarms as repeating so a port that
// honours the flag keeps firing even if a re-sync is missed.
func WithFallbackRepeat(on bool) Option {
	return func(s *ReminderScheduler) { s.fallbackRepeat = on }
}

// WithMissedHandler registers fn for expired firings in comprehensive mode.
func WithMissedHandler(fn MissedFunc) Option {
	return func(s *ReminderScheduler) { s.onMissed = fn }
}

// New creates a scheduler over port and store.
func New(port notify.Port, store *storage.ReminderStore, prefs model.NotificationPreferences, opts ...Option) *ReminderScheduler {
	s := &ReminderScheduler{
		port:  port,
		store: store,
		locks: newKeyedMutex(),
		now:   time.Now,
		loc:   time.Local,
		grace: DefaultGracePeriod,
	}
	s.prefs.Store(prefs.Clone())
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the reminder store the scheduler writes to.
func (s *ReminderScheduler) Store() *storage.ReminderStore {
	return s.store
}

// Location returns the zone wall-clock times are evaluated in.
func (s *ReminderScheduler) Location() *time.Location {
	return s.loc
}

// Preferences returns the current preferences.
func (s *ReminderScheduler) Preferences() model.NotificationPreferences {
	return *s.prefs.Load()
}

// SetPreferences swaps in p. Callers follow up with SyncAll.
func (s *ReminderScheduler) SetPreferences(p model.NotificationPreferences) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.prefs.Store(p.Clone())
	return nil
}

// RefreshPermission drops the cached permission answer and asks again.
func (s *ReminderScheduler) RefreshPermission(ctx context.Context) (bool, error) {
	s.permMu.Lock()
	s.permChecked = false
	s.permMu.Unlock()

	if err := s.checkPermission(ctx); err != nil {
		if errors.Is(err, errors.ErrPermissionDenied) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *ReminderScheduler) checkPermission(ctx context.Context) error {
	checker, ok := s.port.(notify.PermissionChecker)
	if !ok {
		return nil
	}

	s.permMu.Lock()
	defer s.permMu.Unlock()

	if !s.permChecked {
		granted, err := checker.PermissionGranted(ctx)
		if err != nil {
			return err
		}
		s.permChecked = true
		s.permGranted = granted
		if !granted {
			logging.WarnContext(ctx, "notification permission not granted; scheduling disabled")
		}
	}
	if !s.permGranted {
		return &errors.SystemError{
			Message: "notifications are not permitted",
			Op:      "schedule",
			Kind:    errors.ErrPermissionDenied,
		}
	}
	return nil
}

// =============================================================================
// Sync
// =============================================================================

// Save stores r and syncs its alarms as one step under the reminder's lock.
// stored reports whether r was written; a non-nil error alongside it came
// from the alarm sync.
func (s *ReminderScheduler) Save(ctx context.Context, r *model.MedicationReminder) (stored bool, err error) {
	rem, err := prepare(r)
	if err != nil {
		return false, err
	}

	unlock := s.locks.Lock(rem.ID)
	defer unlock()

	if err := s.store.UpsertReminder(ctx, rem); err != nil {
		return false, err
	}
	return true, s.syncLocked(ctx, rem)
}

// Sync makes the port's registrations for r's id match the stored
// reminder. A reminder that is no longer stored loses all of its alarms.
func (s *ReminderScheduler) Sync(ctx context.Context, r *model.MedicationReminder) error {
	rem, err := prepare(r)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(rem.ID)
	defer unlock()

	stored, err := s.store.GetReminder(ctx, rem.ID)
	if errors.Is(err, errors.ErrReminderNotFound) {
		indexed, err := s.store.AlarmIndex(ctx, rem.ID)
		if err != nil {
			return err
		}
		return s.cancelAllLocked(ctx, rem.ID, append(rem.AlarmIDs(), indexed...))
	}
	if err != nil {
		return err
	}
	return s.syncLocked(ctx, stored)
}

func prepare(r *model.MedicationReminder) (*model.MedicationReminder, error) {
	if r == nil {
		return nil, errors.NewUserError("reminder is required", "")
	}
	rem := r.Clone()
	rem.Normalize()
	if err := rem.Validate(); err != nil {
		return nil, err
	}
	return rem, nil
}

// syncLocked reconciles one reminder. The caller holds its lock.
func (s *ReminderScheduler) syncLocked(ctx context.Context, r *model.MedicationReminder) error {
	now := s.now().In(s.loc)
	prefs := s.Preferences()

	indexed, err := s.store.AlarmIndex(ctx, r.ID)
	if err != nil {
		return err
	}

	if r.IsEnded(now) || !prefs.RemindersEnabled {
		return s.cancelAllLocked(ctx, r.ID, append(r.AlarmIDs(), indexed...))
	}

	if err := s.checkPermission(ctx); err != nil {
		return err
	}

	registered, err := s.registeredFor(ctx, r.ID)
	if err != nil {
		return err
	}

	desired, err := s.desiredSlots(r, prefs, now)
	if err != nil {
		return err
	}

	// Cancel stale registrations first so a quota has room for new ones.
	var keep []string
	for _, id := range unionIDs(indexed, mapKeys(registered)) {
		if _, ok := desired[id]; ok {
			continue
		}
		_, live := registered[id]
		if live && model.IsSnoozeAlarmID(id) && s.snoozeSurvives(r, id) {
			keep = append(keep, id)
			continue
		}
		if !live {
			continue
		}
		if err := s.port.Cancel(ctx, id); err != nil {
			return fmt.Errorf("cancel %s: %w", id, err)
		}
	}

	var schedErr error
	for _, id := range sortedKeys(desired) {
		slot := desired[id]
		// A due registration the port has not fired yet is left to fire.
		if at, ok := registered[id]; ok && (at.Equal(slot.fireAt) || !at.After(now)) {
			keep = append(keep, id)
			continue
		}
		payload := s.payload(r, slot.tod, prefs, model.NotifyDose)
		if err := s.port.Schedule(ctx, id, slot.fireAt, payload); err != nil {
			schedErr = fmt.Errorf("schedule %s: %w", id, err)
			if _, ok := registered[id]; ok {
				keep = append(keep, id)
			}
			break
		}
		keep = append(keep, id)
	}

	if err := s.store.SetAlarmIndex(ctx, r.ID, keep); err != nil {
		return err
	}
	if schedErr != nil {
		logging.WarnContext(ctx, "alarm registration failed",
			logging.KeyReminderID, r.ID, logging.KeyError, schedErr.Error())
	}
	return schedErr
}

type slotPlan struct {
	tod    model.TimeOfDay
	fireAt time.Time
}

// desiredSlots computes the next fire time of every unsuppressed slot.
func (s *ReminderScheduler) desiredSlots(r *model.MedicationReminder, prefs model.NotificationPreferences, now time.Time) (map[string]slotPlan, error) {
	from := now
	if start := r.StartDate.Start(s.loc); from.Before(start) {
		from = start.Add(-time.Nanosecond)
	}

	desired := make(map[string]slotPlan, len(r.TimesOfDay))
	for _, tod := range r.TimesOfDay {
		if quiethours.IsSuppressed(tod, prefs.QuietHours) {
			continue
		}
		at, err := trigger.NextOccurrence(r.Recurrence, tod, from)
		if err != nil {
			return nil, err
		}
		if r.EndDate != nil && !at.Before(r.EndDate.End(s.loc)) {
			continue
		}
		desired[model.SlotAlarmID(r.ID, tod)] = slotPlan{tod: tod, fireAt: at}
	}
	return desired, nil
}

// snoozeSurvives reports whether a snooze alarm's slot is still part of r.
func (s *ReminderScheduler) snoozeSurvives(r *model.MedicationReminder, id string) bool {
	ref, err := model.ParseAlarmID(id)
	if err != nil {
		return false
	}
	return ref.ReminderID == r.ID && r.HasTimeOfDay(ref.TimeOfDay)
}

// registeredFor returns the port's live alarms belonging to reminderID.
func (s *ReminderScheduler) registeredFor(ctx context.Context, reminderID string) (map[string]time.Time, error) {
	listed, err := s.port.ListScheduled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list scheduled alarms: %w", err)
	}
	out := make(map[string]time.Time)
	for _, a := range listed {
		ref, err := model.ParseAlarmID(a.AlarmID)
		if err != nil || ref.ReminderID != reminderID {
			continue
		}
		out[a.AlarmID] = a.FireAt
	}
	return out, nil
}

// =============================================================================
// Cancellation
// =============================================================================

// CancelAll removes every alarm belonging to reminderID.
func (s *ReminderScheduler) CancelAll(ctx context.Context, reminderID string) error {
	if reminderID == "" {
		return errors.NewUserError("reminder id is required", "")
	}
	unlock := s.locks.Lock(reminderID)
	defer unlock()

	indexed, err := s.store.AlarmIndex(ctx, reminderID)
	if err != nil {
		return err
	}
	return s.cancelAllLocked(ctx, reminderID, indexed)
}

// Delete removes the reminder and all of its alarms. Its adherence log stays.
func (s *ReminderScheduler) Delete(ctx context.Context, reminderID string) error {
	if reminderID == "" {
		return errors.NewUserError("reminder id is required", "")
	}
	unlock := s.locks.Lock(reminderID)
	defer unlock()

	indexed, err := s.store.AlarmIndex(ctx, reminderID)
	if err != nil {
		return err
	}
	var ids []string
	if r, err := s.store.GetReminder(ctx, reminderID); err == nil {
		ids = r.AlarmIDs()
	}

	delErr := s.store.DeleteReminder(ctx, reminderID)
	if delErr != nil && !errors.Is(delErr, errors.ErrReminderNotFound) {
		return delErr
	}
	if err := s.cancelAllLocked(ctx, reminderID, append(ids, indexed...)); err != nil {
		return err
	}
	return delErr
}

// cancelAllLocked cancels ids plus anything the port holds for the
// reminder, then clears its index entry and pending firings.
func (s *ReminderScheduler) cancelAllLocked(ctx context.Context, reminderID string, ids []string) error {
	registered, err := s.registeredFor(ctx, reminderID)
	if err != nil {
		return err
	}

	for _, id := range unionIDs(ids, mapKeys(registered)) {
		if err := s.port.Cancel(ctx, id); err != nil {
			return fmt.Errorf("cancel %s: %w", id, err)
		}
	}

	if err := s.store.SetAlarmIndex(ctx, reminderID, nil); err != nil {
		return err
	}

	pending, err := s.store.ListPendingFirings(ctx)
	if err != nil {
		return err
	}
	for _, p := range pending {
		if ref, err := model.ParseAlarmID(p.AlarmID); err == nil && ref.ReminderID == reminderID {
			if _, err := s.store.RemovePendingFiring(ctx, p.AlarmID); err != nil {
				return err
			}
		}
	}
	return nil
}

// =============================================================================
// Maintenance
// =============================================================================

// SyncReport summarizes a SyncAll pass.
type SyncReport struct {
	Synced   int `json:"synced"`
	Failed   int `json:"failed"`
	Orphaned int `json:"orphaned"`
}

// SyncAll re-syncs every stored reminder and cancels alarms of reminders
// that no longer exist. Permission denial stops the pass.
func (s *ReminderScheduler) SyncAll(ctx context.Context) (SyncReport, error) {
	var report SyncReport

	reminders, err := s.store.ListReminders(ctx)
	if err != nil {
		return report, err
	}

	known := make(map[string]bool, len(reminders))
	var errs []error
	for _, r := range reminders {
		known[r.ID] = true
		if err := s.Sync(ctx, r); err != nil {
			if errors.Is(err, errors.ErrPermissionDenied) {
				return report, err
			}
			report.Failed++
			errs = append(errs, fmt.Errorf("%s: %w", r.ID, err))
			continue
		}
		report.Synced++
	}

	index, err := s.store.AllAlarmIndexes(ctx)
	if err != nil {
		return report, err
	}
	for id := range index {
		if known[id] {
			continue
		}
		if err := s.CancelAll(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		report.Orphaned++
	}

	return report, errors.Join(errs...)
}

// StateOf reports where r is in its lifecycle.
func (s *ReminderScheduler) StateOf(ctx context.Context, r *model.MedicationReminder) (State, error) {
	if r.IsEnded(s.now().In(s.loc)) {
		return StateEnded, nil
	}

	pending, err := s.store.ListPendingFirings(ctx)
	if err != nil {
		return "", err
	}
	for _, p := range pending {
		if ref, err := model.ParseAlarmID(p.AlarmID); err == nil && ref.ReminderID == r.ID {
			return StateFiring, nil
		}
	}

	registered, err := s.registeredFor(ctx, r.ID)
	if err != nil {
		return "", err
	}
	if len(registered) > 0 {
		return StateScheduled, nil
	}
	return StateUnscheduled, nil
}

// =============================================================================
// Helpers
// =============================================================================

func unionIDs(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func mapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func sortedKeys[V any](m map[string]V) []string {
	keys := mapKeys(m)
	slices.Sort(keys)
	return keys
}

