package schedule

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeRangeWeek(t *testing.T) {
	tests := []struct {
		name       string
		reference  time.Time
		wantMonday time.Time
	}{
		{"monday stays", date(2024, time.March, 4), date(2024, time.March, 4)},
		{"midweek", date(2024, time.March, 6), date(2024, time.March, 4)},
		{"saturday", date(2024, time.March, 9), date(2024, time.March, 4)},
		{"sunday belongs to previous monday", date(2024, time.March, 10), date(2024, time.March, 4)},
		{"year boundary", date(2025, time.January, 1), date(2024, time.December, 30)},
		{"reference with time of day", time.Date(2024, time.March, 6, 17, 45, 0, 0, time.UTC), date(2024, time.March, 4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ComputeRange(tt.reference, ModeWeek)

			if !r.Start.Equal(tt.wantMonday) {
				t.Errorf("start = %v, want %v", r.Start, tt.wantMonday)
			}
			if r.Start.Weekday() != time.Monday {
				t.Errorf("start weekday = %v, want Monday", r.Start.Weekday())
			}
			if got := r.End.Sub(r.Start); got != 7*24*time.Hour {
				t.Errorf("range length = %v, want 168h", got)
			}
			if len(r.Days) != 7 {
				t.Fatalf("days = %d, want 7", len(r.Days))
			}
			for i, day := range r.Days {
				want := tt.wantMonday.AddDate(0, 0, i)
				if !day.Equal(want) {
					t.Errorf("days[%d] = %v, want %v", i, day, want)
				}
			}
		})
	}
}

func TestComputeRangeDay(t *testing.T) {
	reference := time.Date(2024, time.March, 6, 15, 30, 12, 0, time.UTC)
	r := ComputeRange(reference, ModeDay)

	midnight := date(2024, time.March, 6)
	if !r.Start.Equal(midnight) {
		t.Errorf("start = %v, want midnight %v", r.Start, midnight)
	}
	if got := r.End.Sub(r.Start); got != 24*time.Hour {
		t.Errorf("range length = %v, want 24h", got)
	}
	if len(r.Days) != 1 || !r.Days[0].Equal(midnight) {
		t.Errorf("days = %v, want [%v]", r.Days, midnight)
	}
}

func TestSameDay(t *testing.T) {
	day := date(2024, time.March, 6)
	if !SameDay(day, time.Date(2024, time.March, 6, 23, 59, 0, 0, time.UTC)) {
		t.Error("same calendar day not detected")
	}
	if SameDay(day, date(2024, time.March, 7)) {
		t.Error("different days reported equal")
	}
}

func TestBusinessHoursRows(t *testing.T) {
	rows := DefaultBusinessHours.Rows()
	if len(rows) != 10 {
		t.Fatalf("default rows = %d, want 10", len(rows))
	}
	if rows[0] != 8 || rows[len(rows)-1] != 17 {
		t.Errorf("default window = [%d, %d], want [8, 17]", rows[0], rows[len(rows)-1])
	}

	// Inverted window falls back to the default.
	rows = BusinessHours{Start: 18, End: 8}.Rows()
	if len(rows) != 10 {
		t.Errorf("inverted window rows = %d, want default 10", len(rows))
	}
}
