package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/manav03panchal/medtime/internal/errors"
)

const snoozeMarker = ":snoozed:"

// ScheduledAlarm is one registration as reported by a notification port.
type ScheduledAlarm struct {
	AlarmID string    `json:"alarm_id"`
	FireAt  time.Time `json:"fire_at"`
}

// AlarmRef is the decoded form of an alarm id.
type AlarmRef struct {
	ReminderID string
	TimeOfDay  TimeOfDay
	// SlotID is the recurring slot id; equal to the full id unless Snoozed.
	SlotID    string
	Snoozed   bool
	SnoozedAt time.Time
}

// SlotAlarmID returns "{reminderID}:{HH:MM}".
func SlotAlarmID(reminderID string, tod TimeOfDay) string {
	return reminderID + ":" + tod.String()
}

// SnoozeAlarmID returns "{slotID}:snoozed:{unix seconds of at}".
func SnoozeAlarmID(slotID string, at time.Time) string {
	return slotID + snoozeMarker + strconv.FormatInt(at.Unix(), 10)
}

// IsSnoozeAlarmID reports whether id names a one-shot snooze.
func IsSnoozeAlarmID(id string) bool {
	return strings.Contains(id, snoozeMarker)
}

// AlarmPrefix returns the prefix shared by every alarm of a reminder.
func AlarmPrefix(reminderID string) string {
	return reminderID + ":"
}

// ParseAlarmID decodes an alarm id. It parses from the right, so reminder
// ids may themselves contain colons.
func ParseAlarmID(id string) (AlarmRef, error) {
	var ref AlarmRef
	slot := id
	if i := strings.LastIndex(id, snoozeMarker); i >= 0 {
		epoch, err := strconv.ParseInt(id[i+len(snoozeMarker):], 10, 64)
		if err != nil {
			return AlarmRef{}, fmt.Errorf("%w: %q", errors.ErrUnknownAlarmID, id)
		}
		slot = id[:i]
		ref.Snoozed = true
		ref.SnoozedAt = time.Unix(epoch, 0)
	}

	// slot is "{reminderID}:HH:MM"
	if len(slot) < len("x:00:00") || slot[len(slot)-6] != ':' {
		return AlarmRef{}, fmt.Errorf("%w: %q", errors.ErrUnknownAlarmID, id)
	}
	tod, err := ParseTimeOfDay(slot[len(slot)-5:])
	if err != nil {
		return AlarmRef{}, fmt.Errorf("%w: %q", errors.ErrUnknownAlarmID, id)
	}

	ref.ReminderID = slot[:len(slot)-6]
	ref.TimeOfDay = tod
	ref.SlotID = slot
	return ref, nil
}

// PendingFiring records an alarm that fired and still awaits a response.
type PendingFiring struct {
	AlarmID  string    `json:"alarm_id"`
	FiredAt  time.Time `json:"fired_at"`
	Deadline time.Time `json:"deadline"`
}

// Expired reports whether the grace period ran out before now.
func (p PendingFiring) Expired(now time.Time) bool {
	return now.After(p.Deadline)
}
