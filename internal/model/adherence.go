package model

import (
	"time"

	"github.com/manav03panchal/medtime/internal/errors"
)

// AdherenceStatus is the recorded response to a dose alarm.
type AdherenceStatus string

// Adherence statuses.
const (
	StatusTaken   AdherenceStatus = "taken"
	StatusSnoozed AdherenceStatus = "snoozed"
	StatusSkipped AdherenceStatus = "skipped"
)

// AdherenceLogEntry is one immutable line of a medication's history.
type AdherenceLogEntry struct {
	MedicationID       string          `json:"medication_id"`
	ScheduledTimeOfDay TimeOfDay       `json:"scheduled_time_of_day"`
	ActedAt            time.Time       `json:"acted_at"`
	Status             AdherenceStatus `json:"status"`
	AlarmID            string          `json:"alarm_id,omitempty"`
}

// Validate checks required fields.
func (e AdherenceLogEntry) Validate() error {
	if e.MedicationID == "" {
		return errors.NewUserError("adherence entry needs a medication id", "")
	}
	if e.ActedAt.IsZero() {
		return errors.NewUserError("adherence entry needs a timestamp", "")
	}
	switch e.Status {
	case StatusTaken, StatusSnoozed, StatusSkipped:
		return nil
	default:
		return errors.NewUserErrorWithField("status", string(e.Status), "unknown adherence status", "")
	}
}

// AdherenceSummary counts responses for one medication.
type AdherenceSummary struct {
	Taken   int `json:"taken"`
	Snoozed int `json:"snoozed"`
	Skipped int `json:"skipped"`
}

// Summarize counts entries by status.
func Summarize(entries []AdherenceLogEntry) AdherenceSummary {
	var s AdherenceSummary
	for _, e := range entries {
		switch e.Status {
		case StatusTaken:
			s.Taken++
		case StatusSnoozed:
			s.Snoozed++
		case StatusSkipped:
			s.Skipped++
		}
	}
	return s
}

// Rate is taken / (taken + skipped); snoozes are not final responses.
// Returns 0 when there is nothing to rate.
func (s AdherenceSummary) Rate() float64 {
	total := s.Taken + s.Skipped
	if total == 0 {
		return 0
	}
	return float64(s.Taken) / float64(total)
}
