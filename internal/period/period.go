// Package period resolves calendar windows (day, week, month, year) around a
// reference instant. Windows are closed intervals that end at 23:59:59.999 on
// their last day, in the location of the reference instant. Weeks start on Monday.
package period

import (
	"fmt"
	"time"
)

// Kind is the granularity of a window.
type Kind string

const (
	Day   Kind = "day"
	Week  Kind = "week"
	Month Kind = "month"
	Year  Kind = "year"
)

// endOfDay is the offset of the last instant a window covers on its final day.
const endOfDay = 24*time.Hour - time.Millisecond

// Window is a closed interval [Start, End].
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Days returns the first instant of every day covered by the window.
func (w Window) Days() []time.Time {
	var days []time.Time
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// String renders the window for logs.
func (w Window) String() string {
	return fmt.Sprintf("[%s, %s]", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339Nano))
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case Day, Week, Month, Year:
		return true
	}
	return false
}

// Resolve returns the window of the given kind that contains ref.
// Unknown kinds resolve to the month window.
func Resolve(kind Kind, ref time.Time) Window {
	loc := ref.Location()
	switch kind {
	case Day:
		start := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, loc)
		return Window{Start: start, End: start.Add(endOfDay)}
	case Week:
		return WeekWindow(ref)
	case Year:
		return YearWindow(ref.Year(), loc)
	default:
		return MonthWindow(ref.Year(), ref.Month(), loc)
	}
}

// WeekWindow returns the Monday-to-Sunday window that contains ref.
func WeekWindow(ref time.Time) Window {
	// time.Weekday is Sunday=0, shift so Monday=0.
	sinceMonday := (int(ref.Weekday()) + 6) % 7
	start := time.Date(ref.Year(), ref.Month(), ref.Day()-sinceMonday, 0, 0, 0, 0, ref.Location())
	last := start.AddDate(0, 0, 6)
	return Window{Start: start, End: last.Add(endOfDay)}
}

// MonthWindow returns the window of a calendar month.
func MonthWindow(year int, month time.Month, loc *time.Location) Window {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := start.AddDate(0, 1, -1)
	return Window{Start: start, End: last.Add(endOfDay)}
}

// YearWindow returns the window of a calendar year.
func YearWindow(year int, loc *time.Location) Window {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	last := time.Date(year, time.December, 31, 0, 0, 0, 0, loc)
	return Window{Start: start, End: last.Add(endOfDay)}
}

// ResolvePinned behaves like Resolve but lets a month window be pinned to an
// explicit calendar month. The pin is honoured only for Month and only when
// both month and year are set; other kinds always follow ref.
func ResolvePinned(kind Kind, ref time.Time, month, year *int) Window {
	if kind == Month && month != nil && year != nil {
		return MonthWindow(*year, time.Month(*month), ref.Location())
	}
	return Resolve(kind, ref)
}

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// Of returns the calendar month t falls in, evaluated in loc.
func Of(t time.Time, loc *time.Location) YearMonth {
	t = t.In(loc)
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// Before reports whether ym is strictly earlier than other.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

// Prev returns the preceding calendar month.
func (ym YearMonth) Prev() YearMonth {
	if ym.Month == time.January {
		return YearMonth{Year: ym.Year - 1, Month: time.December}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month - 1}
}

// Window returns the month window of ym in loc.
func (ym YearMonth) Window(loc *time.Location) Window {
	return MonthWindow(ym.Year, ym.Month, loc)
}
