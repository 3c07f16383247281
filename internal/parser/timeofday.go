package parser

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/manav03panchal/medtime/internal/model"
)

// clockPattern matches "8am", "8:30 pm", "12pm".
var clockPattern = regexp.MustCompile(`(?i)^(\d{1,2})(?::(\d{2}))?\s*(am|pm)$`)

// ParseTimeOfDay parses "HH:MM" or a 12-hour clock time.
func ParseTimeOfDay(input string) (model.TimeOfDay, error) {
	input = strings.TrimSpace(input)
	if m := clockPattern.FindStringSubmatch(input); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour < 1 || hour > 12 {
			return 0, newTimeOfDayError(input)
		}
		hour %= 12
		if strings.EqualFold(m[3], "pm") {
			hour += 12
		}
		tod, err := model.NewTimeOfDay(hour, minute)
		if err != nil {
			return 0, newTimeOfDayError(input)
		}
		return tod, nil
	}

	tod, err := model.ParseTimeOfDay(input)
	if err != nil {
		return 0, newTimeOfDayError(input)
	}
	return tod, nil
}

// ParseTimesOfDay parses a comma- or space-separated list. The result is
// sorted with duplicates removed.
func ParseTimesOfDay(list string) ([]model.TimeOfDay, error) {
	fields := strings.FieldsFunc(list, func(r rune) bool { return r == ',' || r == ';' })
	var out []model.TimeOfDay
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		tod, err := ParseTimeOfDay(f)
		if err != nil {
			return nil, err
		}
		out = append(out, tod)
	}
	if len(out) == 0 {
		return nil, newTimeOfDayError(list)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}
