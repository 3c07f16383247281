package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/manav03panchal/medtime/internal/errors"
	"github.com/manav03panchal/medtime/internal/logging"
	"github.com/manav03panchal/medtime/internal/model"
)

// Fixed keys of the reminder store. Each holds a JSON document.
const (
	KeyReminders      = "medication_reminders"
	KeyLogPrefix      = "medication_log_"
	KeyAlarmIndex     = "medication_alarm_index"
	KeyPendingFirings = "medication_pending_firings"

	corruptSuffix = ".corrupt"
)

// LogKey returns the adherence log key of a medication.
func LogKey(medicationID string) string {
	return KeyLogPrefix + medicationID
}

// ReminderStore keeps reminders, adherence logs and the alarm index as
// JSON documents in a KV. Damaged documents degrade to "absent" with a
// diagnostic; KV failures surface as ErrStorageUnavailable.
type ReminderStore struct {
	kv KV
	// mu serializes read-modify-write cycles on shared documents.
	mu sync.Mutex
}

// NewReminderStore creates a store over kv.
func NewReminderStore(kv KV) *ReminderStore {
	return &ReminderStore{kv: kv}
}

// =============================================================================
// Reminders
// =============================================================================

// ListReminders returns every stored reminder in insertion order.
func (s *ReminderStore) ListReminders(ctx context.Context) ([]*model.MedicationReminder, error) {
	values, err := loadArray[model.MedicationReminder](ctx, s, KeyReminders)
	if err != nil {
		return nil, err
	}
	out := make([]*model.MedicationReminder, 0, len(values))
	for i := range values {
		if values[i].ID == "" {
			logging.WarnContext(ctx, "dropping reminder without id", logging.KeyKey, KeyReminders,
				logging.KeyError, errors.ErrCorruptRecord)
			continue
		}
		out = append(out, &values[i])
	}
	return out, nil
}

// ListActiveReminders returns reminders that are not ended at now.
func (s *ReminderStore) ListActiveReminders(ctx context.Context, now time.Time) ([]*model.MedicationReminder, error) {
	all, err := s.ListReminders(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]*model.MedicationReminder, 0, len(all))
	for _, r := range all {
		if !r.IsEnded(now) {
			active = append(active, r)
		}
	}
	return active, nil
}

// GetReminder returns the reminder with id or ErrReminderNotFound.
func (s *ReminderStore) GetReminder(ctx context.Context, id string) (*model.MedicationReminder, error) {
	all, err := s.ListReminders(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range all {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", errors.ErrReminderNotFound, id)
}

// UpsertReminder validates r and inserts or replaces it by id.
func (s *ReminderStore) UpsertReminder(ctx context.Context, r *model.MedicationReminder) error {
	r.Normalize()
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.ListReminders(ctx)
	if err != nil {
		return err
	}
	if i := slices.IndexFunc(all, func(x *model.MedicationReminder) bool { return x.ID == r.ID }); i >= 0 {
		all[i] = r
	} else {
		all = append(all, r)
	}
	return s.save(ctx, KeyReminders, all)
}

// DeleteReminder removes the reminder with id. Its adherence log is kept.
func (s *ReminderStore) DeleteReminder(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.ListReminders(ctx)
	if err != nil {
		return err
	}
	before := len(all)
	kept := slices.DeleteFunc(all, func(x *model.MedicationReminder) bool { return x.ID == id })
	if len(kept) == before {
		return fmt.Errorf("%w: %s", errors.ErrReminderNotFound, id)
	}
	return s.save(ctx, KeyReminders, kept)
}

// =============================================================================
// Adherence log
// =============================================================================

// AppendAdherence appends entry to its medication's log.
func (s *ReminderStore) AppendAdherence(ctx context.Context, entry model.AdherenceLogEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := LogKey(entry.MedicationID)
	entries, err := loadArray[model.AdherenceLogEntry](ctx, s, key)
	if err != nil {
		return err
	}
	return s.save(ctx, key, append(entries, entry))
}

// GetAdherence returns a medication's log in insertion order.
func (s *ReminderStore) GetAdherence(ctx context.Context, medicationID string) ([]model.AdherenceLogEntry, error) {
	return loadArray[model.AdherenceLogEntry](ctx, s, LogKey(medicationID))
}

// =============================================================================
// Alarm index
// =============================================================================

// AlarmIndex returns the alarm ids last registered for a reminder.
func (s *ReminderStore) AlarmIndex(ctx context.Context, reminderID string) ([]string, error) {
	index, err := s.loadIndex(ctx)
	if err != nil {
		return nil, err
	}
	return index[reminderID], nil
}

// AllAlarmIndexes returns the whole reminder id to alarm ids mapping.
func (s *ReminderStore) AllAlarmIndexes(ctx context.Context) (map[string][]string, error) {
	return s.loadIndex(ctx)
}

// SetAlarmIndex replaces the alarm ids of a reminder; an empty list drops it.
func (s *ReminderStore) SetAlarmIndex(ctx context.Context, reminderID string, alarmIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.loadIndex(ctx)
	if err != nil {
		return err
	}
	if len(alarmIDs) == 0 {
		if _, ok := index[reminderID]; !ok {
			return nil
		}
		delete(index, reminderID)
	} else {
		ids := slices.Clone(alarmIDs)
		slices.Sort(ids)
		index[reminderID] = slices.Compact(ids)
	}
	return s.save(ctx, KeyAlarmIndex, index)
}

func (s *ReminderStore) loadIndex(ctx context.Context) (map[string][]string, error) {
	index := map[string][]string{}
	raw, ok, err := s.load(ctx, KeyAlarmIndex)
	if err != nil || !ok {
		return index, err
	}
	if err := json.Unmarshal(raw, &index); err != nil {
		s.corrupt(ctx, KeyAlarmIndex, raw, err)
		return map[string][]string{}, nil
	}
	return index, nil
}

// =============================================================================
// Pending firings
// =============================================================================

// ListPendingFirings returns fired alarms still awaiting a response.
func (s *ReminderStore) ListPendingFirings(ctx context.Context) ([]model.PendingFiring, error) {
	return loadArray[model.PendingFiring](ctx, s, KeyPendingFirings)
}

// AddPendingFiring records p, replacing an earlier firing of the same alarm.
func (s *ReminderStore) AddPendingFiring(ctx context.Context, p model.PendingFiring) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.ListPendingFirings(ctx)
	if err != nil {
		return err
	}
	pending = slices.DeleteFunc(pending, func(x model.PendingFiring) bool { return x.AlarmID == p.AlarmID })
	return s.save(ctx, KeyPendingFirings, append(pending, p))
}

// RemovePendingFiring drops the firing of alarmID and reports whether one existed.
func (s *ReminderStore) RemovePendingFiring(ctx context.Context, alarmID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.ListPendingFirings(ctx)
	if err != nil {
		return false, err
	}
	before := len(pending)
	pending = slices.DeleteFunc(pending, func(x model.PendingFiring) bool { return x.AlarmID == alarmID })
	if len(pending) == before {
		return false, nil
	}
	return true, s.save(ctx, KeyPendingFirings, pending)
}

// =============================================================================
// Data clear
// =============================================================================

// Clear removes every document the store owns, adherence logs included.
func (s *ReminderStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := []string{KeyReminders, KeyAlarmIndex, KeyPendingFirings}
	if lister, ok := s.kv.(KeyLister); ok {
		logKeys, err := lister.Keys(ctx, KeyLogPrefix)
		if err != nil {
			return errors.NewStorageUnavailable("list "+KeyLogPrefix, err)
		}
		keys = append(keys, logKeys...)
	} else {
		reminders, err := s.ListReminders(ctx)
		if err != nil {
			return err
		}
		for _, r := range reminders {
			keys = append(keys, LogKey(r.ID))
		}
	}

	for _, key := range keys {
		for _, k := range []string{key, key + corruptSuffix} {
			if err := s.kv.Remove(ctx, k); err != nil && !isNotFound(err) {
				return errors.NewStorageUnavailable("remove "+k, err)
			}
		}
	}
	logging.InfoContext(ctx, "reminder data cleared", logging.KeyCount, len(keys))
	return nil
}

// =============================================================================
// Encoding helpers
// =============================================================================

// load fetches key. ok is false when the key is absent.
func (s *ReminderStore) load(ctx context.Context, key string) (raw []byte, ok bool, err error) {
	raw, err = s.kv.Get(ctx, key)
	if isNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.NewStorageUnavailable("get "+key, err)
	}
	return raw, true, nil
}

func (s *ReminderStore) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.NewSystemErrorWithOp("encode "+key, "failed to encode document", err)
	}
	if err := s.kv.Set(ctx, key, data); err != nil {
		return errors.NewStorageUnavailable("set "+key, err)
	}
	return nil
}

// corrupt logs a damaged document and keeps a copy of it beside the key.
func (s *ReminderStore) corrupt(ctx context.Context, key string, raw []byte, cause error) {
	logging.WarnContext(ctx, "corrupt document treated as absent",
		logging.KeyKey, key,
		logging.KeyError, fmt.Errorf("%w: %v", errors.ErrCorruptRecord, cause))
	if err := s.kv.Set(ctx, key+corruptSuffix, raw); err != nil {
		logging.WarnContext(ctx, "failed to keep corrupt copy", logging.KeyKey, key, logging.KeyError, err)
	}
}

// loadArray decodes the JSON array under key. A document that is not an
// array is treated as empty; elements that do not decode are dropped.
func loadArray[T any](ctx context.Context, s *ReminderStore, key string) ([]T, error) {
	raw, ok, err := s.load(ctx, key)
	if err != nil || !ok {
		return nil, err
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		s.corrupt(ctx, key, raw, err)
		return nil, nil
	}

	out := make([]T, 0, len(elems))
	for i, elem := range elems {
		var v T
		if err := json.Unmarshal(elem, &v); err != nil {
			logging.WarnContext(ctx, "dropping corrupt record",
				logging.KeyKey, key,
				"index", i,
				logging.KeyError, fmt.Errorf("%w: %v", errors.ErrCorruptRecord, err))
			continue
		}
		out = append(out, v)
	}
	return out, nil
}
