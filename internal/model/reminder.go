package model

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/manav03panchal/medtime/internal/errors"
)

// Field limits for reminder text.
const (
	MaxMedicationNameLength = 120
	MaxDosageLength         = 60
	MaxInstructionsLength   = 500
)

// MedicationReminder is the dosing schedule for one medication. Alarms are
// derived from it; it is the source of truth.
type MedicationReminder struct {
	ID             string      `json:"id"`
	MedicationName string      `json:"medication_name"`
	Dosage         string      `json:"dosage"`
	Instructions   string      `json:"instructions,omitempty"`
	TimesOfDay     []TimeOfDay `json:"times_of_day"`
	Recurrence     Recurrence  `json:"recurrence"`
	StartDate      Date        `json:"start_date"`
	EndDate        *Date       `json:"end_date,omitempty"`
	IsActive       bool        `json:"is_active"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// NewMedicationReminder creates an active reminder with a generated id.
func NewMedicationReminder(name, dosage string, times []TimeOfDay, rec Recurrence, start Date) *MedicationReminder {
	now := time.Now()
	r := &MedicationReminder{
		ID:             uuid.NewString(),
		MedicationName: name,
		Dosage:         dosage,
		TimesOfDay:     times,
		Recurrence:     rec,
		StartDate:      start,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.Normalize()
	return r
}

// Normalize sorts TimesOfDay and collapses duplicates.
func (r *MedicationReminder) Normalize() {
	slices.Sort(r.TimesOfDay)
	r.TimesOfDay = slices.Compact(r.TimesOfDay)
	r.MedicationName = strings.TrimSpace(r.MedicationName)
	r.Dosage = strings.TrimSpace(r.Dosage)
	r.Instructions = strings.TrimSpace(r.Instructions)
}

// Validate checks the reminder's invariants without touching any storage.
func (r *MedicationReminder) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.NewUserError("reminder id is required", "")
	}
	// Alarm ids are parsed around the marker.
	if IsSnoozeAlarmID(r.ID) {
		return errors.NewUserErrorWithField("id", r.ID, "reminder id cannot contain "+snoozeMarker, "")
	}
	if strings.TrimSpace(r.MedicationName) == "" {
		return errors.NewUserError("medication name is required", "Pass the medication name as the first argument.")
	}
	if len(r.MedicationName) > MaxMedicationNameLength {
		return errors.NewUserErrorWithField("medication_name", r.MedicationName,
			"medication name is too long", "Keep it under 120 characters.")
	}
	if len(r.Dosage) > MaxDosageLength {
		return errors.NewUserErrorWithField("dosage", r.Dosage, "dosage is too long", "Keep it under 60 characters.")
	}
	if len(r.Instructions) > MaxInstructionsLength {
		return errors.NewUserError("instructions are too long", "Keep them under 500 characters.")
	}
	if r.IsActive && len(r.TimesOfDay) == 0 {
		return errors.NewUserError("an active reminder needs at least one time of day",
			errors.Suggestions[errors.ErrInvalidTimeOfDay])
	}
	for _, tod := range r.TimesOfDay {
		if !tod.Valid() {
			return errors.NewUserErrorWithField("times_of_day", tod.String(), "invalid time of day",
				errors.Suggestions[errors.ErrInvalidTimeOfDay])
		}
	}
	if err := r.Recurrence.Validate(); err != nil {
		return err
	}
	if r.StartDate.IsZero() {
		return errors.NewUserError("start date is required", "Pass --start, for example --start today.")
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return errors.NewUserErrorWithField("end_date", r.EndDate.String(),
			"end date must not be before the start date", "")
	}
	return nil
}

// IsEnded reports whether the reminder is soft-disabled or past its end date.
func (r *MedicationReminder) IsEnded(now time.Time) bool {
	if !r.IsActive {
		return true
	}
	return r.EndDate != nil && !now.Before(r.EndDate.End(now.Location()))
}

// HasTimeOfDay reports whether tod is one of the reminder's slots.
func (r *MedicationReminder) HasTimeOfDay(tod TimeOfDay) bool {
	return slices.Contains(r.TimesOfDay, tod)
}

// AlarmIDs returns the slot alarm id for every time of day.
func (r *MedicationReminder) AlarmIDs() []string {
	ids := make([]string, len(r.TimesOfDay))
	for i, tod := range r.TimesOfDay {
		ids[i] = SlotAlarmID(r.ID, tod)
	}
	return ids
}

// Clone returns a deep copy.
func (r *MedicationReminder) Clone() *MedicationReminder {
	c := *r
	c.TimesOfDay = slices.Clone(r.TimesOfDay)
	c.Recurrence.days = slices.Clone(r.Recurrence.days)
	if r.EndDate != nil {
		end := *r.EndDate
		c.EndDate = &end
	}
	return &c
}
