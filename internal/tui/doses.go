package tui

import (
	"slices"
	"time"

	"github.com/manav03panchal/medtime/internal/model"
	"github.com/manav03panchal/medtime/internal/trigger"
)

// DoseState is where one of today's doses stands. Answered doses use the
// adherence status values.
type DoseState string

// Unanswered dose states.
const (
	DoseUpcoming DoseState = "upcoming"
	DoseDue      DoseState = "due"
	DoseMissed   DoseState = "missed"
)

// Dose is one scheduled intake for today.
type Dose struct {
	Reminder  *model.MedicationReminder
	TimeOfDay model.TimeOfDay
	At        time.Time
	State     DoseState
	// AlarmID is the id an action should target: the pending firing when
	// one exists, the slot id otherwise.
	AlarmID string
}

// Answerable reports whether taken/snooze/skip make sense for the dose.
func (d Dose) Answerable() bool {
	return d.State == DoseDue || d.State == DoseMissed || d.State == DoseState(model.StatusSnoozed)
}

// TodayDoses lists every dose due today in now's location, ordered by time
// then medication name. adherence maps reminder ids to their logs.
func TodayDoses(reminders []*model.MedicationReminder, adherence map[string][]model.AdherenceLogEntry,
	alarms []model.ScheduledAlarm, pending []model.PendingFiring, now time.Time) []Dose {
	loc := now.Location()
	today := model.DateOf(now)
	dayStart := today.Start(loc)

	var doses []Dose
	for _, r := range reminders {
		if r.IsEnded(now) || today.Before(r.StartDate) {
			continue
		}
		for _, tod := range r.TimesOfDay {
			at, err := trigger.NextOccurrence(r.Recurrence, tod, dayStart.Add(-time.Nanosecond))
			if err != nil || model.DateOf(at) != today {
				continue
			}
			d := Dose{Reminder: r, TimeOfDay: tod, At: at, AlarmID: model.SlotAlarmID(r.ID, tod)}
			d.State = doseState(&d, adherence[r.ID], alarms, pending, now)
			doses = append(doses, d)
		}
	}

	slices.SortStableFunc(doses, func(a, b Dose) int {
		if c := a.At.Compare(b.At); c != 0 {
			return c
		}
		switch {
		case a.Reminder.MedicationName < b.Reminder.MedicationName:
			return -1
		case a.Reminder.MedicationName > b.Reminder.MedicationName:
			return 1
		}
		return 0
	})
	return doses
}

// doseState prefers a pending firing for the slot, then the last adherence
// entry recorded for it today. A registered snooze becomes the action target.
func doseState(d *Dose, log []model.AdherenceLogEntry, alarms []model.ScheduledAlarm,
	pending []model.PendingFiring, now time.Time) DoseState {
	slot := d.AlarmID
	for _, p := range pending {
		ref, err := model.ParseAlarmID(p.AlarmID)
		if err == nil && ref.SlotID == slot {
			d.AlarmID = p.AlarmID
			return DoseDue
		}
	}
	for _, a := range alarms {
		ref, err := model.ParseAlarmID(a.AlarmID)
		if err == nil && ref.Snoozed && ref.SlotID == slot {
			d.AlarmID = a.AlarmID
		}
	}

	today := model.DateOf(now)
	for i := len(log) - 1; i >= 0; i-- {
		e := log[i]
		if e.ScheduledTimeOfDay == d.TimeOfDay && model.DateOf(e.ActedAt.In(now.Location())) == today {
			return DoseState(e.Status)
		}
	}
	if d.At.After(now) {
		return DoseUpcoming
	}
	return DoseMissed
}

// Summary counts today's answered doses.
func Summary(doses []Dose) (answered, taken int) {
	for _, d := range doses {
		switch d.State {
		case DoseState(model.StatusTaken):
			taken++
			answered++
		case DoseState(model.StatusSkipped):
			answered++
		}
	}
	return answered, taken
}
