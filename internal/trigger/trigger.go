// Package trigger computes when a recurring dose slot fires next.
//
// Every function is pure: the result depends only on the arguments and
// is evaluated in the location of the reference time.
package trigger

import (
	"time"

	"github.com/manav03panchal/medtime/internal/errors"
	"github.com/manav03panchal/medtime/internal/model"
)

// NextOccurrence returns the first instant strictly after from at which a
// slot at tod fires under rec. The result is never equal to or before from.
func NextOccurrence(rec model.Recurrence, tod model.TimeOfDay, from time.Time) (time.Time, error) {
	if err := rec.Validate(); err != nil {
		return time.Time{}, err
	}
	if !tod.Valid() {
		return time.Time{}, errors.NewUserErrorWithField("time_of_day", tod.String(), "invalid time of day",
			errors.Suggestions[errors.ErrInvalidTimeOfDay])
	}

	switch rec.Frequency() {
	case model.FrequencyDaily:
		return nextDaily(tod, from), nil
	case model.FrequencyWeekly:
		return nextWeekly(rec, tod, from)
	default:
		return nextMonthly(rec.DayOfMonth(), tod, from), nil
	}
}

func nextDaily(tod model.TimeOfDay, from time.Time) time.Time {
	for i := 0; ; i++ {
		if candidate := tod.On(addDays(from, i)); candidate.After(from) {
			return candidate
		}
	}
}

// nextWeekly walks today plus the seven days after it; one of those eight
// dates always matches a non-empty day set with an instant after from.
func nextWeekly(rec model.Recurrence, tod model.TimeOfDay, from time.Time) (time.Time, error) {
	for i := 0; i <= 7; i++ {
		day := addDays(from, i)
		if !rec.IncludesWeekday(day.Weekday()) {
			continue
		}
		if candidate := tod.On(day); candidate.After(from) {
			return candidate, nil
		}
	}
	return time.Time{}, errors.NewUserError("weekly recurrence needs at least one day",
		errors.Suggestions[errors.ErrInvalidRecurrence])
}

func nextMonthly(dayOfMonth int, tod model.TimeOfDay, from time.Time) time.Time {
	y, m, _ := from.Date()
	for i := 0; ; i++ {
		candidate := monthlyCandidate(y, m+time.Month(i), dayOfMonth, tod, from.Location())
		if candidate.After(from) {
			return candidate
		}
	}
}

// monthlyCandidate clamps dayOfMonth to the last day of the month.
func monthlyCandidate(year int, month time.Month, dayOfMonth int, tod model.TimeOfDay, loc *time.Location) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	day := min(dayOfMonth, DaysIn(first.Year(), first.Month()))
	return time.Date(first.Year(), first.Month(), day, tod.Hour(), tod.Minute(), 0, 0, loc)
}

// DaysIn returns the number of days in month of year.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// addDays moves by calendar days, not 24h steps, so DST shifts keep the date right.
func addDays(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+n, 12, 0, 0, 0, t.Location())
}

// Upcoming lists the next n firings after from, in order.
func Upcoming(rec model.Recurrence, tod model.TimeOfDay, from time.Time, n int) ([]time.Time, error) {
	out := make([]time.Time, 0, n)
	cursor := from
	for len(out) < n {
		next, err := NextOccurrence(rec, tod, cursor)
		if err != nil {
			return nil, err
		}
		out = append(out, next)
		cursor = next
	}
	return out, nil
}
