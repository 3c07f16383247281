package storage

import (
	"sort"
	"time"

	"github.com/manav03panchal/medtime/internal/model"
)

// RegistrationRepo persists the local notification port's alarms.
type RegistrationRepo struct {
	db *DB
}

// NewRegistrationRepo creates a new registration repository.
func NewRegistrationRepo(db *DB) *RegistrationRepo {
	return &RegistrationRepo{db: db}
}

// Put stores reg under its alarm id, replacing any earlier registration.
// The write is a single transaction, so readers never see both.
func (r *RegistrationRepo) Put(reg *model.AlarmRegistration) error {
	reg.Key = model.GenerateAlarmKey(reg.AlarmID)
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = time.Now()
	}
	return r.db.Set(reg)
}

// Get returns the registration for alarmID or ErrKeyNotFound.
func (r *RegistrationRepo) Get(alarmID string) (*model.AlarmRegistration, error) {
	reg := &model.AlarmRegistration{}
	if err := r.db.Get(model.GenerateAlarmKey(alarmID), reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// Delete removes the registration for alarmID. Missing ids are ignored.
func (r *RegistrationRepo) Delete(alarmID string) error {
	return r.db.Delete(model.GenerateAlarmKey(alarmID))
}

// List returns every registration ordered by fire time.
func (r *RegistrationRepo) List() ([]*model.AlarmRegistration, error) {
	regs, err := GetAllByPrefix(r.db, model.PrefixAlarm+":", func() *model.AlarmRegistration {
		return &model.AlarmRegistration{}
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(regs, func(i, j int) bool { return regs[i].FireAt.Before(regs[j].FireAt) })
	return regs, nil
}

// ListDue returns registrations whose fire time is at or before now.
func (r *RegistrationRepo) ListDue(now time.Time) ([]*model.AlarmRegistration, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}
	var due []*model.AlarmRegistration
	for _, reg := range all {
		if reg.IsDue(now) {
			due = append(due, reg)
		}
	}
	return due, nil
}

// Count returns the number of registrations.
func (r *RegistrationRepo) Count() (int, error) {
	keys, err := r.db.ListByPrefix(model.PrefixAlarm + ":")
	return len(keys), err
}

// Exists reports whether alarmID is registered.
func (r *RegistrationRepo) Exists(alarmID string) (bool, error) {
	return r.db.Exists(model.GenerateAlarmKey(alarmID))
}
