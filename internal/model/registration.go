package model

import (
	"time"
)

// PrefixAlarm is the database key prefix for local alarm registrations.
const PrefixAlarm = "alarm"

// RepeatMode is the native-repeat fallback flag of a registration.
type RepeatMode string

// Repeat modes.
const (
	RepeatNone  RepeatMode = ""
	RepeatDaily RepeatMode = "daily"
)

// AlarmPayload is the content handed to the notification capability.
type AlarmPayload struct {
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
	Repeat RepeatMode        `json:"repeat,omitempty"`
}

// AlarmRegistration is a durable alarm held by the local notification port.
type AlarmRegistration struct {
	Key       string       `json:"key"`
	AlarmID   string       `json:"alarm_id"`
	FireAt    time.Time    `json:"fire_at"`
	Payload   AlarmPayload `json:"payload"`
	CreatedAt time.Time    `json:"created_at"`
}

// SetKey sets the database key for this registration.
func (a *AlarmRegistration) SetKey(key string) {
	a.Key = key
}

// GetKey returns the database key for this registration.
func (a *AlarmRegistration) GetKey() string {
	return a.Key
}

// GenerateAlarmKey returns the database key for an alarm id.
func GenerateAlarmKey(alarmID string) string {
	return PrefixAlarm + ":" + alarmID
}

// IsDue reports whether the registration should fire at now.
func (a *AlarmRegistration) IsDue(now time.Time) bool {
	return !a.FireAt.After(now)
}

// Scheduled returns the port-level view of the registration.
func (a *AlarmRegistration) Scheduled() ScheduledAlarm {
	return ScheduledAlarm{AlarmID: a.AlarmID, FireAt: a.FireAt}
}
