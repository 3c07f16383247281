package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/manav03panchal/medtime/internal/model"
)

// durationPattern matches "15m", "15 minutes", "1.5h", "1 hour 30 minutes".
var durationPattern = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s*(h|hr|hrs|hour|hours|m|min|mins|minute|minutes)?\s*(?:(\d+)\s*(m|min|mins|minute|minutes))?$`)

// ParseDuration parses a human duration. A bare number is minutes.
func ParseDuration(input string) (time.Duration, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, newDurationError(input)
	}
	if d, err := time.ParseDuration(input); err == nil && d > 0 {
		return d, nil
	}

	m := durationPattern.FindStringSubmatch(input)
	if m == nil {
		return 0, newDurationError(input)
	}

	value, _ := strconv.ParseFloat(m[1], 64)
	total := unitToDuration(value, strings.ToLower(m[2]))
	if m[3] != "" {
		extra, _ := strconv.ParseFloat(m[3], 64)
		total += unitToDuration(extra, "m")
	}
	if total <= 0 {
		return 0, newDurationError(input)
	}
	return total, nil
}

func unitToDuration(value float64, unit string) time.Duration {
	switch unit {
	case "h", "hr", "hrs", "hour", "hours":
		return time.Duration(value * float64(time.Hour))
	default:
		return time.Duration(value * float64(time.Minute))
	}
}

// SnoozeMinutes parses a snooze length and rounds it to whole minutes.
// Empty input yields fallback.
func SnoozeMinutes(input string, fallback int) (int, error) {
	if strings.TrimSpace(input) == "" {
		return fallback, nil
	}
	d, err := ParseDuration(input)
	if err != nil {
		return 0, err
	}
	minutes := int(d.Round(time.Minute) / time.Minute)
	if minutes < 1 || minutes > model.MaxSnoozeMinutes {
		return 0, &ParseError{
			Input:      input,
			Field:      "snooze",
			Message:    "snooze must be between 1 minute and 24 hours",
			Examples:   DurationExamples,
			Suggestion: "A single snooze lasts at most one day.",
		}
	}
	return minutes, nil
}
