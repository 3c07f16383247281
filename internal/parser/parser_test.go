package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/medtime/internal/errors"
	"github.com/manav03panchal/medtime/internal/model"
)

// Tuesday 3 March 2026, 10:00 UTC.
var tuesday = time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  model.Date
	}{
		{"", model.Date{Year: 2026, Month: time.March, Day: 3}},
		{"today", model.Date{Year: 2026, Month: time.March, Day: 3}},
		{"Tomorrow", model.Date{Year: 2026, Month: time.March, Day: 4}},
		{"2026-04-01", model.Date{Year: 2026, Month: time.April, Day: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input, tuesday)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDateNaturalLanguage(t *testing.T) {
	got, err := ParseDate("in 2 weeks", tuesday)
	require.NoError(t, err)
	assert.Equal(t, model.Date{Year: 2026, Month: time.March, Day: 17}, got)
}

func TestParseDateInvalid(t *testing.T) {
	_, err := ParseDate("2026-02-30", tuesday)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = ParseDate("not a date at all", tuesday)
	assert.Error(t, err)
}

func TestParseOptionalDate(t *testing.T) {
	d, err := ParseOptionalDate("  ", tuesday)
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = ParseOptionalDate("2026-12-31", tuesday)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, 31, d.Day)
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"08:00", "08:00", true},
		{"8:05", "08:05", true},
		{"8am", "08:00", true},
		{"8:30 PM", "20:30", true},
		{"12am", "00:00", true},
		{"12pm", "12:00", true},
		{"24:00", "", false},
		{"13pm", "", false},
		{"noonish", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.input)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseTimesOfDaySortsAndDedupes(t *testing.T) {
	got, err := ParseTimesOfDay("20:00, 8am,08:00")
	require.NoError(t, err)
	assert.Equal(t, []model.TimeOfDay{model.MustTimeOfDay("08:00"), model.MustTimeOfDay("20:00")}, got)

	_, err = ParseTimesOfDay(" , ")
	assert.Error(t, err)
}

func TestParseRecurrence(t *testing.T) {
	rec, err := ParseRecurrence("daily")
	require.NoError(t, err)
	assert.True(t, rec.Equal(model.Daily()))

	rec, err = ParseRecurrence("weekly:mon,wed,fri")
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday, time.Friday}, rec.DaysOfWeek())

	rec, err = ParseRecurrence("weekdays")
	require.NoError(t, err)
	assert.Len(t, rec.DaysOfWeek(), 5)

	rec, err = ParseRecurrence("Monthly:31")
	require.NoError(t, err)
	assert.Equal(t, 31, rec.DayOfMonth())

	for _, bad := range []string{"weekly", "weekly:funday", "monthly:0", "monthly:x", "yearly"} {
		_, err := ParseRecurrence(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"10m", 10 * time.Minute},
		{"90", 90 * time.Minute},
		{"15 minutes", 15 * time.Minute},
		{"1.5h", 90 * time.Minute},
		{"1 hour 30 minutes", 90 * time.Minute},
		{"1h30m", 90 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDuration(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseDuration("soon")
	assert.Error(t, err)
}

func TestSnoozeMinutes(t *testing.T) {
	m, err := SnoozeMinutes("", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, m)

	m, err = SnoozeMinutes("15m", 10)
	require.NoError(t, err)
	assert.Equal(t, 15, m)

	_, err = SnoozeMinutes("25h", 10)
	assert.Error(t, err)
}

func TestParseErrorFormatting(t *testing.T) {
	_, err := ParseTimeOfDay("noonish")
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.FormatWithExamples(), "8am")

	ue := pe.ToUserError()
	assert.Equal(t, "time of day", ue.Field)
	assert.NotEmpty(t, ue.Suggestion)
}
