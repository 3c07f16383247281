package scheduler

import (
	"fmt"
	"strings"

	"github.com/manav03panchal/medtime/internal/model"
	"github.com/manav03panchal/medtime/internal/notify"
)

// payload builds the alarm content for one slot. The frequency mode
// decides how much of the reminder is shown.
func (s *ReminderScheduler) payload(r *model.MedicationReminder, tod model.TimeOfDay, prefs model.NotificationPreferences, kind model.NotificationType) model.AlarmPayload {
	p := model.AlarmPayload{
		Title: r.MedicationName,
		Data: map[string]string{
			notify.DataReminderID:     r.ID,
			notify.DataMedicationName: r.MedicationName,
			notify.DataTimeOfDay:      tod.String(),
			notify.DataKind:           string(kind),
		},
	}

	var body []string
	switch kind {
	case model.NotifyFollowUp:
		body = append(body, fmt.Sprintf("Snoozed dose from %s.", tod))
	default:
		body = append(body, fmt.Sprintf("Time for your %s dose.", tod))
	}

	if prefs.FrequencyMode != model.FrequencyMinimal && r.Dosage != "" {
		p.Data[notify.DataDosage] = r.Dosage
		body = append(body, "Take "+r.Dosage+".")
	}
	if prefs.FrequencyMode == model.FrequencyComprehensive && r.Instructions != "" {
		p.Data[notify.DataInstructions] = r.Instructions
		body = append(body, r.Instructions)
	}
	p.Body = strings.Join(body, " ")

	if s.fallbackRepeat && kind == model.NotifyDose && r.Recurrence.Frequency() == model.FrequencyDaily {
		p.Repeat = model.RepeatDaily
	}
	return p
}
