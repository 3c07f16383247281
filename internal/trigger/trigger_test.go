package trigger

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/medtime/internal/errors"
	"github.com/manav03panchal/medtime/internal/model"
)

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

// =============================================================================
// Daily Tests
// =============================================================================

func TestNextOccurrenceDaily(t *testing.T) {
	eight := model.MustTimeOfDay("08:00")

	t.Run("later_today", func(t *testing.T) {
		got, err := NextOccurrence(model.Daily(), eight, at(2026, 3, 4, 7, 0))
		require.NoError(t, err)
		assert.Equal(t, at(2026, 3, 4, 8, 0), got)
	})

	t.Run("already_passed", func(t *testing.T) {
		got, err := NextOccurrence(model.Daily(), eight, at(2026, 3, 4, 9, 0))
		require.NoError(t, err)
		assert.Equal(t, at(2026, 3, 5, 8, 0), got)
	})

	t.Run("exactly_now_is_not_future", func(t *testing.T) {
		got, err := NextOccurrence(model.Daily(), eight, at(2026, 3, 4, 8, 0))
		require.NoError(t, err)
		assert.Equal(t, at(2026, 3, 5, 8, 0), got)
	})

	t.Run("year_boundary", func(t *testing.T) {
		got, err := NextOccurrence(model.Daily(), eight, at(2026, 12, 31, 22, 0))
		require.NoError(t, err)
		assert.Equal(t, at(2027, 1, 1, 8, 0), got)
	})
}

// =============================================================================
// Weekly Tests
// =============================================================================

func TestNextOccurrenceWeekly(t *testing.T) {
	mwf, err := model.Weekly(time.Monday, time.Wednesday, time.Friday)
	require.NoError(t, err)
	nine := model.MustTimeOfDay("09:00")

	// 2026-03-03 is a Tuesday.
	tuesday := at(2026, 3, 3, 10, 0)
	require.Equal(t, time.Tuesday, tuesday.Weekday())

	t.Run("tuesday_to_wednesday", func(t *testing.T) {
		got, err := NextOccurrence(mwf, nine, tuesday)
		require.NoError(t, err)
		assert.Equal(t, at(2026, 3, 4, 9, 0), got)
		assert.Equal(t, time.Wednesday, got.Weekday())
	})

	t.Run("friday_after_slot_wraps_to_monday", func(t *testing.T) {
		got, err := NextOccurrence(mwf, nine, at(2026, 3, 6, 9, 30))
		require.NoError(t, err)
		assert.Equal(t, at(2026, 3, 9, 9, 0), got)
	})

	t.Run("single_day_already_passed_today", func(t *testing.T) {
		tue, _ := model.Weekly(time.Tuesday)
		got, err := NextOccurrence(tue, nine, tuesday)
		require.NoError(t, err)
		assert.Equal(t, at(2026, 3, 10, 9, 0), got)
	})

	t.Run("zero_value_rejected", func(t *testing.T) {
		_, err := NextOccurrence(model.Recurrence{}, nine, tuesday)
		assert.ErrorIs(t, err, errors.ErrValidation)
	})
}

// =============================================================================
// Monthly Tests
// =============================================================================

func TestNextOccurrenceMonthly(t *testing.T) {
	eight := model.MustTimeOfDay("08:00")
	day31, err := model.Monthly(31)
	require.NoError(t, err)

	t.Run("clamped_to_february", func(t *testing.T) {
		got, err := NextOccurrence(day31, eight, at(2026, 2, 1, 0, 0))
		require.NoError(t, err)
		assert.Equal(t, at(2026, 2, 28, 8, 0), got)
	})

	t.Run("leap_year", func(t *testing.T) {
		got, err := NextOccurrence(day31, eight, at(2028, 2, 1, 0, 0))
		require.NoError(t, err)
		assert.Equal(t, at(2028, 2, 29, 8, 0), got)
	})

	t.Run("passed_this_month", func(t *testing.T) {
		day15, _ := model.Monthly(15)
		got, err := NextOccurrence(day15, eight, at(2026, 3, 15, 8, 1))
		require.NoError(t, err)
		assert.Equal(t, at(2026, 4, 15, 8, 0), got)
	})

	t.Run("december_rolls_year", func(t *testing.T) {
		got, err := NextOccurrence(day31, eight, at(2026, 12, 31, 9, 0))
		require.NoError(t, err)
		assert.Equal(t, at(2027, 1, 31, 8, 0), got)
	})

	t.Run("clamped_day_passed_moves_on", func(t *testing.T) {
		got, err := NextOccurrence(day31, eight, at(2026, 4, 30, 9, 0))
		require.NoError(t, err)
		assert.Equal(t, at(2026, 5, 31, 8, 0), got)
	})
}

// =============================================================================
// Properties
// =============================================================================

func TestNextOccurrenceStrictFuture(t *testing.T) {
	weekly, _ := model.Weekly(time.Sunday, time.Thursday)
	monthly, _ := model.Monthly(30)
	recs := []model.Recurrence{model.Daily(), weekly, monthly}

	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		ny = time.FixedZone("EST", -5*3600)
	}

	rng := rand.New(rand.NewSource(42))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, ny)
	for i := 0; i < 2000; i++ {
		from := base.Add(time.Duration(rng.Int63n(int64(2 * 365 * 24 * time.Hour))))
		tod := model.TimeOfDay(rng.Intn(model.MinutesPerDay))
		rec := recs[i%len(recs)]

		got, err := NextOccurrence(rec, tod, from)
		require.NoError(t, err)
		require.True(t, got.After(from), "rec=%s tod=%s from=%s got=%s", rec, tod, from, got)
	}
}

func TestUpcoming(t *testing.T) {
	mwf, _ := model.Weekly(time.Monday, time.Wednesday, time.Friday)
	got, err := Upcoming(mwf, model.MustTimeOfDay("09:00"), at(2026, 3, 3, 10, 0), 4)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		at(2026, 3, 4, 9, 0),
		at(2026, 3, 6, 9, 0),
		at(2026, 3, 9, 9, 0),
		at(2026, 3, 11, 9, 0),
	}, got)
}

func TestDaysIn(t *testing.T) {
	assert.Equal(t, 28, DaysIn(2026, time.February))
	assert.Equal(t, 29, DaysIn(2028, time.February))
	assert.Equal(t, 31, DaysIn(2026, time.December))
	assert.Equal(t, 30, DaysIn(2026, time.April))
}
