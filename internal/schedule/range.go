// Package schedule builds the calendar time grid: visible date ranges,
// day bucketing and hour-row grouping of appointments.
package schedule

import "time"

// ViewMode selects the visible range granularity.
type ViewMode string

const (
	ModeDay  ViewMode = "day"
	ModeWeek ViewMode = "week"
)

// Range is a calendar-day-aligned visible window. End is exclusive.
type Range struct {
	Start time.Time
	End   time.Time
	Days  []time.Time
}

// ComputeRange derives the visible window from a reference date. Day
// mode covers the reference day; week mode covers the ISO week (Monday
// start) containing it.
func ComputeRange(reference time.Time, mode ViewMode) Range {
	midnight := time.Date(reference.Year(), reference.Month(), reference.Day(), 0, 0, 0, 0, reference.Location())

	if mode == ModeDay {
		return Range{
			Start: midnight,
			End:   midnight.AddDate(0, 0, 1),
			Days:  []time.Time{midnight},
		}
	}

	weekday := int(midnight.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the preceding Monday-start week
	}
	monday := midnight.AddDate(0, 0, 1-weekday)

	days := make([]time.Time, 7)
	for i := range days {
		days[i] = monday.AddDate(0, 0, i)
	}
	return Range{
		Start: monday,
		End:   monday.AddDate(0, 0, 7),
		Days:  days,
	}
}

// DayKey formats a calendar day as the bucketing key.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// SameDay reports calendar-day equality in day's location; used to
// distinguish the "today" column header.
func SameDay(day, now time.Time) bool {
	y1, m1, d1 := day.Date()
	y2, m2, d2 := now.In(day.Location()).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// BusinessHours is the displayed grid window as [Start, End) hour rows.
type BusinessHours struct {
	Start int
	End   int
}

// DefaultBusinessHours is the 08:00-18:00 display window.
var DefaultBusinessHours = BusinessHours{Start: 8, End: 18}

// Rows lists the hour rows of the grid.
func (b BusinessHours) Rows() []int {
	if b.End <= b.Start {
		b = DefaultBusinessHours
	}
	rows := make([]int, 0, b.End-b.Start)
	for h := b.Start; h < b.End; h++ {
		rows = append(rows, h)
	}
	return rows
}
