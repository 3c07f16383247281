package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/manav03panchal/medtime/internal/errors"
)

// TimeOfDay is a wall-clock time expressed in minutes after midnight.
// Its text form is the zero-padded 24-hour "HH:MM".
type TimeOfDay int

// MinutesPerDay bounds every valid TimeOfDay.
const MinutesPerDay = 24 * 60

// NewTimeOfDay builds a TimeOfDay from an hour and minute.
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, errors.NewUserErrorWithField("time_of_day", fmt.Sprintf("%d:%d", hour, minute),
			"invalid time of day", errors.Suggestions[errors.ErrInvalidTimeOfDay])
	}
	return TimeOfDay(hour*60 + minute), nil
}

// ParseTimeOfDay parses "HH:MM" (a single-digit hour is accepted).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) < 1 || len(hh) > 2 || len(mm) != 2 {
		return 0, errors.NewUserErrorWithField("time_of_day", s,
			"invalid time of day", errors.Suggestions[errors.ErrInvalidTimeOfDay])
	}
	hour, err1 := strconv.Atoi(hh)
	minute, err2 := strconv.Atoi(mm)
	if err1 != nil || err2 != nil {
		return 0, errors.NewUserErrorWithField("time_of_day", s,
			"invalid time of day", errors.Suggestions[errors.ErrInvalidTimeOfDay])
	}
	tod, err := NewTimeOfDay(hour, minute)
	if err != nil {
		return 0, errors.NewUserErrorWithField("time_of_day", s,
			"invalid time of day", errors.Suggestions[errors.ErrInvalidTimeOfDay])
	}
	return tod, nil
}

// MustTimeOfDay is ParseTimeOfDay for literals; it panics on bad input.
func MustTimeOfDay(s string) TimeOfDay {
	tod, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return tod
}

// TimeOfDayOf returns the wall-clock time of t, truncated to the minute.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// Valid reports whether t lies within a single day.
func (t TimeOfDay) Valid() bool { return t >= 0 && t < MinutesPerDay }

// On returns the instant at t on the calendar day of date, in date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, date.Location())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// MarshalText implements encoding.TextMarshaler.
func (t TimeOfDay) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("time of day out of range: %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TimeOfDay) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTimesOfDay parses a list such as "08:00,20:00".
func ParseTimesOfDay(list string) ([]TimeOfDay, error) {
	var out []TimeOfDay
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		tod, err := ParseTimeOfDay(part)
		if err != nil {
			return nil, err
		}
		out = append(out, tod)
	}
	return out, nil
}
