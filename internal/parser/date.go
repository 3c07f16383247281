// Package parser turns human input from the CLI and MCP tools into model
// values: dates, times of day, recurrences and snooze lengths.
package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"

	"github.com/manav03panchal/medtime/internal/model"
)

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ParseDate parses a calendar date relative to now. ISO dates are taken
// as-is; "today" and "tomorrow" are resolved directly; anything else goes
// through natural-language parsing.
func ParseDate(input string, now time.Time) (model.Date, error) {
	input = strings.TrimSpace(input)
	switch strings.ToLower(input) {
	case "", "today", "now":
		return model.DateOf(now), nil
	case "tomorrow":
		return model.DateOf(now.AddDate(0, 0, 1)), nil
	}

	if isoDate.MatchString(input) {
		d, err := model.ParseDate(input)
		if err != nil {
			return model.Date{}, newDateError(input)
		}
		return d, nil
	}

	cfg := &dateparser.Configuration{
		CurrentTime: now,
	}
	result, err := dateparser.Parse(cfg, input)
	if err != nil || result.Time.IsZero() {
		return model.Date{}, newDateError(input)
	}
	return model.DateOf(result.Time.In(now.Location())), nil
}

// ParseOptionalDate is ParseDate that maps empty input to nil.
func ParseOptionalDate(input string, now time.Time) (*model.Date, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	d, err := ParseDate(input, now)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
