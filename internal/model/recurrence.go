package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/manav03panchal/medtime/internal/errors"
)

// Frequency names the variant of a Recurrence.
type Frequency string

// Recurrence frequencies.
const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Recurrence is a closed variant: Daily, Weekly(days) or Monthly(day).
// Values are built with Daily, Weekly and Monthly; the zero value is invalid.
type Recurrence struct {
	freq       Frequency
	days       []time.Weekday
	dayOfMonth int
}

// Daily repeats every calendar day.
func Daily() Recurrence {
	return Recurrence{freq: FrequencyDaily}
}

// Weekly repeats on the given weekdays. Duplicates collapse; at least one
// day is required.
func Weekly(days ...time.Weekday) (Recurrence, error) {
	set := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		if d < time.Sunday || d > time.Saturday {
			return Recurrence{}, errors.NewUserErrorWithField("days_of_week", strconv.Itoa(int(d)),
				"weekday must be between 0 (Sunday) and 6 (Saturday)", errors.Suggestions[errors.ErrInvalidRecurrence])
		}
		if !slices.Contains(set, d) {
			set = append(set, d)
		}
	}
	if len(set) == 0 {
		return Recurrence{}, errors.NewUserError("weekly recurrence needs at least one day",
			errors.Suggestions[errors.ErrInvalidRecurrence])
	}
	slices.Sort(set)
	return Recurrence{freq: FrequencyWeekly, days: set}, nil
}

// Monthly repeats on dayOfMonth (1..31), clamped to short months.
func Monthly(dayOfMonth int) (Recurrence, error) {
	if dayOfMonth < 1 || dayOfMonth > 31 {
		return Recurrence{}, errors.NewUserErrorWithField("day_of_month", strconv.Itoa(dayOfMonth),
			"day of month must be between 1 and 31", errors.Suggestions[errors.ErrInvalidRecurrence])
	}
	return Recurrence{freq: FrequencyMonthly, dayOfMonth: dayOfMonth}, nil
}

// Frequency returns the variant tag.
func (r Recurrence) Frequency() Frequency { return r.freq }

// DaysOfWeek returns a copy of the weekly day set, sorted.
func (r Recurrence) DaysOfWeek() []time.Weekday { return slices.Clone(r.days) }

// IncludesWeekday reports whether a weekly recurrence fires on d.
func (r Recurrence) IncludesWeekday(d time.Weekday) bool { return slices.Contains(r.days, d) }

// DayOfMonth returns the monthly day, or 0 for other variants.
func (r Recurrence) DayOfMonth() int { return r.dayOfMonth }

// Validate rejects zero values and malformed variants.
func (r Recurrence) Validate() error {
	switch r.freq {
	case FrequencyDaily:
		return nil
	case FrequencyWeekly:
		_, err := Weekly(r.days...)
		return err
	case FrequencyMonthly:
		_, err := Monthly(r.dayOfMonth)
		return err
	default:
		return errors.NewUserErrorWithField("frequency", string(r.freq),
			"recurrence must be daily, weekly or monthly", errors.Suggestions[errors.ErrInvalidRecurrence])
	}
}

// Equal reports whether two recurrences describe the same rule.
func (r Recurrence) Equal(other Recurrence) bool {
	return r.freq == other.freq && r.dayOfMonth == other.dayOfMonth && slices.Equal(r.days, other.days)
}

func (r Recurrence) String() string {
	switch r.freq {
	case FrequencyWeekly:
		names := make([]string, len(r.days))
		for i, d := range r.days {
			names[i] = d.String()[:3]
		}
		return "weekly on " + strings.Join(names, ", ")
	case FrequencyMonthly:
		return fmt.Sprintf("monthly on day %d", r.dayOfMonth)
	case FrequencyDaily:
		return "daily"
	default:
		return "invalid"
	}
}

type recurrenceJSON struct {
	Frequency  Frequency `json:"frequency"`
	DaysOfWeek []int     `json:"days_of_week,omitempty"`
	DayOfMonth int       `json:"day_of_month,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r Recurrence) MarshalJSON() ([]byte, error) {
	out := recurrenceJSON{Frequency: r.freq, DayOfMonth: r.dayOfMonth}
	for _, d := range r.days {
		out.DaysOfWeek = append(out.DaysOfWeek, int(d))
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler. Malformed rules are rejected
// so a decoded Recurrence is always one of the three valid variants.
func (r *Recurrence) UnmarshalJSON(data []byte) error {
	var in recurrenceJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	parsed, err := NewRecurrence(in.Frequency, in.DaysOfWeek, in.DayOfMonth)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// NewRecurrence builds a Recurrence from its loose parts.
func NewRecurrence(freq Frequency, daysOfWeek []int, dayOfMonth int) (Recurrence, error) {
	switch freq {
	case FrequencyDaily:
		return Daily(), nil
	case FrequencyWeekly:
		days := make([]time.Weekday, len(daysOfWeek))
		for i, d := range daysOfWeek {
			days[i] = time.Weekday(d)
		}
		return Weekly(days...)
	case FrequencyMonthly:
		return Monthly(dayOfMonth)
	default:
		return Recurrence{}, Recurrence{freq: freq}.Validate()
	}
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// ParseWeekdays parses "mon,wed,fri" or "1,3,5".
func ParseWeekdays(list string) ([]time.Weekday, error) {
	var days []time.Weekday
	for _, part := range strings.Split(list, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if n, err := strconv.Atoi(part); err == nil {
			days = append(days, time.Weekday(n))
			continue
		}
		if len(part) >= 3 {
			if d, ok := weekdayNames[part[:3]]; ok {
				days = append(days, d)
				continue
			}
		}
		return nil, errors.NewUserErrorWithField("days_of_week", part, "unknown weekday",
			errors.Suggestions[errors.ErrInvalidRecurrence])
	}
	return days, nil
}
