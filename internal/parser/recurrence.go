package parser

import (
	"strconv"
	"strings"

	"github.com/manav03panchal/medtime/internal/model"
)

// ParseRecurrence parses "daily", "weekly:mon,wed,fri" or "monthly:15".
// "weekdays" and "weekends" are shorthands for weekly recurrences.
func ParseRecurrence(input string) (model.Recurrence, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	kind, arg, _ := strings.Cut(s, ":")

	switch kind {
	case "", "daily":
		return model.Daily(), nil
	case "weekdays":
		return weekly(input, "mon,tue,wed,thu,fri")
	case "weekends":
		return weekly(input, "sat,sun")
	case "weekly":
		if arg == "" {
			return model.Recurrence{}, newRecurrenceError(input, "weekly needs at least one day")
		}
		return weekly(input, arg)
	case "monthly":
		day, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil {
			return model.Recurrence{}, newRecurrenceError(input, "monthly needs a day of month")
		}
		rec, err := model.Monthly(day)
		if err != nil {
			return model.Recurrence{}, newRecurrenceError(input, "day of month must be 1 to 31")
		}
		return rec, nil
	default:
		return model.Recurrence{}, newRecurrenceError(input, "unknown recurrence")
	}
}

func weekly(input, days string) (model.Recurrence, error) {
	list, err := model.ParseWeekdays(days)
	if err != nil {
		return model.Recurrence{}, newRecurrenceError(input, "unknown weekday")
	}
	rec, err := model.Weekly(list...)
	if err != nil {
		return model.Recurrence{}, newRecurrenceError(input, "weekly needs valid days")
	}
	return rec, nil
}
