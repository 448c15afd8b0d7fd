package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d, h, mi int) time.Time {
	return time.Date(y, m, d, h, mi, 0, 0, time.UTC)
}

func TestResolveWeek(t *testing.T) {
	t.Run("wednesday_resolves_to_surrounding_monday_through_sunday", func(t *testing.T) {
		w := Resolve(Week, date(2024, time.March, 13, 15, 30)) // Wednesday

		assert.Equal(t, date(2024, time.March, 11, 0, 0), w.Start)
		assert.Equal(t, time.Date(2024, time.March, 17, 23, 59, 59, 999_000_000, time.UTC), w.End)
		assert.Equal(t, time.Monday, w.Start.Weekday())
		assert.Equal(t, time.Sunday, w.End.Weekday())
		assert.Len(t, w.Days(), 7)
	})

	t.Run("monday_is_its_own_week_start", func(t *testing.T) {
		w := Resolve(Week, date(2024, time.March, 11, 0, 0))
		assert.Equal(t, date(2024, time.March, 11, 0, 0), w.Start)
	})

	t.Run("sunday_belongs_to_the_week_that_started_six_days_earlier", func(t *testing.T) {
		w := Resolve(Week, date(2024, time.March, 17, 22, 0))
		assert.Equal(t, date(2024, time.March, 11, 0, 0), w.Start)
	})

	t.Run("week_spanning_a_year_boundary", func(t *testing.T) {
		w := Resolve(Week, date(2025, time.January, 1, 9, 0)) // Wednesday
		assert.Equal(t, date(2024, time.December, 30, 0, 0), w.Start)
		assert.Equal(t, 5, w.End.Day())
		assert.Equal(t, time.January, w.End.Month())
	})
}

func TestResolveMonth(t *testing.T) {
	t.Run("leap_february", func(t *testing.T) {
		w := Resolve(Month, date(2024, time.February, 10, 8, 0))
		assert.Equal(t, date(2024, time.February, 1, 0, 0), w.Start)
		assert.Equal(t, time.Date(2024, time.February, 29, 23, 59, 59, 999_000_000, time.UTC), w.End)
	})

	t.Run("december", func(t *testing.T) {
		w := MonthWindow(2023, time.December, time.UTC)
		assert.Equal(t, 31, w.End.Day())
		assert.Equal(t, 2023, w.End.Year())
	})

	t.Run("unknown_kind_falls_back_to_month", func(t *testing.T) {
		ref := date(2024, time.May, 20, 0, 0)
		assert.Equal(t, Resolve(Month, ref), Resolve(Kind("fortnight"), ref))
	})
}

func TestResolveDayAndYear(t *testing.T) {
	ref := date(2024, time.July, 4, 18, 45)

	day := Resolve(Day, ref)
	assert.Equal(t, date(2024, time.July, 4, 0, 0), day.Start)
	assert.True(t, day.Contains(ref))
	assert.False(t, day.Contains(date(2024, time.July, 5, 0, 0)))

	year := Resolve(Year, ref)
	assert.Equal(t, date(2024, time.January, 1, 0, 0), year.Start)
	assert.Equal(t, time.Date(2024, time.December, 31, 23, 59, 59, 999_000_000, time.UTC), year.End)
}

func TestResolveUsesReferenceLocation(t *testing.T) {
	loc := time.FixedZone("ICT", 7*60*60)

	ref := time.Date(2024, time.March, 1, 2, 0, 0, 0, loc)
	w := Resolve(Month, ref)

	assert.Equal(t, loc, w.Start.Location())
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, loc), w.Start)
	// Same instant is still February in UTC.
	assert.Equal(t, time.February, ref.UTC().Month())
}

func TestResolvePinned(t *testing.T) {
	ref := date(2024, time.June, 15, 0, 0)
	m, y := 2, 2023

	t.Run("month_honours_the_pin", func(t *testing.T) {
		w := ResolvePinned(Month, ref, &m, &y)
		assert.Equal(t, date(2023, time.February, 1, 0, 0), w.Start)
		assert.Equal(t, 28, w.End.Day())
	})

	t.Run("month_without_a_complete_pin_uses_the_reference", func(t *testing.T) {
		w := ResolvePinned(Month, ref, &m, nil)
		assert.Equal(t, date(2024, time.June, 1, 0, 0), w.Start)
	})

	t.Run("week_and_year_ignore_the_pin", func(t *testing.T) {
		assert.Equal(t, Resolve(Week, ref), ResolvePinned(Week, ref, &m, &y))
		assert.Equal(t, Resolve(Year, ref), ResolvePinned(Year, ref, &m, &y))
	})
}

func TestYearMonth(t *testing.T) {
	jan := YearMonth{Year: 2024, Month: time.January}

	assert.Equal(t, YearMonth{Year: 2023, Month: time.December}, jan.Prev())
	assert.True(t, jan.Prev().Before(jan))
	assert.False(t, jan.Before(jan))
	assert.Equal(t, jan, Of(date(2024, time.January, 31, 23, 0), time.UTC))
}
