package model

import (
	"github.com/manav03panchal/medtime/internal/errors"
)

// FrequencyMode controls how much detail a dose notification carries.
type FrequencyMode string

// Frequency modes.
const (
	FrequencyMinimal       FrequencyMode = "minimal"
	FrequencyBalanced      FrequencyMode = "balanced"
	FrequencyComprehensive FrequencyMode = "comprehensive"
)

// IsValid reports whether m is a known mode.
func (m FrequencyMode) IsValid() bool {
	switch m {
	case FrequencyMinimal, FrequencyBalanced, FrequencyComprehensive:
		return true
	}
	return false
}

// QuietHours is a daily window during which alarms are not registered.
// Start > End describes a window that wraps midnight.
type QuietHours struct {
	Enabled bool      `json:"enabled" koanf:"enabled"`
	Start   TimeOfDay `json:"start" koanf:"start"`
	End     TimeOfDay `json:"end" koanf:"end"`
}

// NotificationPreferences are process-wide and read-only during alarm
// processing. A change produces a new value; the old one is never mutated.
type NotificationPreferences struct {
	RemindersEnabled bool          `json:"reminders_enabled"`
	QuietHours       QuietHours    `json:"quiet_hours"`
	FrequencyMode    FrequencyMode `json:"frequency_mode"`
}

// DefaultNotificationPreferences returns reminders on, quiet hours off
// (22:00-07:00 when enabled), balanced detail.
func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{
		RemindersEnabled: true,
		QuietHours: QuietHours{
			Enabled: false,
			Start:   MustTimeOfDay("22:00"),
			End:     MustTimeOfDay("07:00"),
		},
		FrequencyMode: FrequencyBalanced,
	}
}

// Clone returns an independent copy.
func (p NotificationPreferences) Clone() *NotificationPreferences {
	c := p
	return &c
}

// WithQuietHours returns a copy with the quiet window replaced.
func (p NotificationPreferences) WithQuietHours(q QuietHours) NotificationPreferences {
	p.QuietHours = q
	return p
}

// WithRemindersEnabled returns a copy with the master switch replaced.
func (p NotificationPreferences) WithRemindersEnabled(enabled bool) NotificationPreferences {
	p.RemindersEnabled = enabled
	return p
}

// Validate checks the preference values.
func (p NotificationPreferences) Validate() error {
	if !p.FrequencyMode.IsValid() {
		return errors.NewUserErrorWithField("frequency_mode", string(p.FrequencyMode),
			"unknown frequency mode", "Use minimal, balanced or comprehensive.")
	}
	if !p.QuietHours.Start.Valid() || !p.QuietHours.End.Valid() {
		return errors.NewUserError("quiet hours are out of range", errors.Suggestions[errors.ErrInvalidTimeOfDay])
	}
	return nil
}
