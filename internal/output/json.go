package output

import (
	"github.com/manav03panchal/medtime/internal/model"
	"github.com/manav03panchal/medtime/internal/scheduler"
)

// JSONFormatter provides JSON-specific formatting.
type JSONFormatter struct {
	*Formatter
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(f *Formatter) *JSONFormatter {
	return &JSONFormatter{Formatter: f}
}

// RemindersResponse is the JSON form of a reminder list.
type RemindersResponse struct {
	Reminders []*model.MedicationReminder `json:"reminders"`
	Count     int                         `json:"count"`
}

// SaveResponse is the JSON form of a saved reminder.
type SaveResponse struct {
	Status   string                    `json:"status"`
	Reminder *model.MedicationReminder `json:"reminder"`
	Warning  string                    `json:"warning,omitempty"`
}

// AlarmsResponse lists scheduled and pending alarms.
type AlarmsResponse struct {
	Scheduled []model.ScheduledAlarm `json:"scheduled"`
	Pending   []model.PendingFiring  `json:"pending"`
}

// AdherenceResponse is a medication's log with its summary.
type AdherenceResponse struct {
	MedicationID string                    `json:"medication_id"`
	Entries      []model.AdherenceLogEntry `json:"entries"`
	Summary      AdherenceSummaryOutput    `json:"summary"`
}

// AdherenceSummaryOutput adds the adherence rate to the counters.
type AdherenceSummaryOutput struct {
	model.AdherenceSummary
	Rate float64 `json:"rate"`
}

// OutcomeResponse is the JSON form of a recorded action.
type OutcomeResponse struct {
	AlarmID string `json:"alarm_id"`
	scheduler.Outcome
}

// ErrorResponse represents an error in JSON.
type ErrorResponse struct {
	Status     string `json:"status"`
	Error      string `json:"error"`
	Suggestion string `json:"suggestion,omitempty"`
}

// PrintReminders outputs reminders in JSON format.
func (j *JSONFormatter) PrintReminders(reminders []*model.MedicationReminder) error {
	if reminders == nil {
		reminders = []*model.MedicationReminder{}
	}
	return j.JSON(RemindersResponse{Reminders: reminders, Count: len(reminders)})
}

// PrintSaved outputs a saved reminder; warning is a sync failure that did
// not stop the save.
func (j *JSONFormatter) PrintSaved(r *model.MedicationReminder, created bool, warning string) error {
	status := "updated"
	if created {
		status = "created"
	}
	return j.JSON(SaveResponse{Status: status, Reminder: r, Warning: warning})
}

// PrintAlarms outputs alarms in JSON format.
func (j *JSONFormatter) PrintAlarms(alarms []model.ScheduledAlarm, pending []model.PendingFiring) error {
	if alarms == nil {
		alarms = []model.ScheduledAlarm{}
	}
	if pending == nil {
		pending = []model.PendingFiring{}
	}
	return j.JSON(AlarmsResponse{Scheduled: alarms, Pending: pending})
}

// PrintAdherence outputs a log and its summary in JSON format.
func (j *JSONFormatter) PrintAdherence(medicationID string, entries []model.AdherenceLogEntry) error {
	if entries == nil {
		entries = []model.AdherenceLogEntry{}
	}
	s := model.Summarize(entries)
	return j.JSON(AdherenceResponse{
		MedicationID: medicationID,
		Entries:      entries,
		Summary:      AdherenceSummaryOutput{AdherenceSummary: s, Rate: s.Rate()},
	})
}

// PrintOutcome outputs the result of an action in JSON format.
func (j *JSONFormatter) PrintOutcome(alarmID string, out scheduler.Outcome) error {
	return j.JSON(OutcomeResponse{AlarmID: alarmID, Outcome: out})
}

// PrintError outputs an error in JSON format.
func (j *JSONFormatter) PrintError(status, errMsg, suggestion string) error {
	return j.JSON(ErrorResponse{
		Status:     status,
		Error:      errMsg,
		Suggestion: suggestion,
	})
}
