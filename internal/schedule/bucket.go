package schedule

import (
	"sort"
	"time"

	"smiles/internal/model"
)

// Bucket groups appointments by facility-local calendar day of their
// start instant, sorted by start ascending within each day. The sort is
// stable: identical start instants keep their input order.
func Bucket(appointments []model.Appointment, loc *time.Location) map[string][]model.Appointment {
	if loc == nil {
		loc = time.Local
	}
	buckets := make(map[string][]model.Appointment)
	for _, apt := range appointments {
		key := DayKey(apt.StartTime.In(loc))
		buckets[key] = append(buckets[key], apt)
	}
	for key, day := range buckets {
		sort.SliceStable(day, func(i, j int) bool {
			return day[i].StartTime.Before(day[j].StartTime)
		})
		buckets[key] = day
	}
	return buckets
}

// SlotsForHour filters a day's bucketed appointments to those starting
// within the given hour row. An appointment spanning multiple hours
// appears only in its start-hour row.
func SlotsForHour(bucketed map[string][]model.Appointment, day time.Time, hour int, loc *time.Location) []model.Appointment {
	if loc == nil {
		loc = time.Local
	}
	var slots []model.Appointment
	for _, apt := range bucketed[DayKey(day.In(loc))] {
		if apt.StartTime.In(loc).Hour() == hour {
			slots = append(slots, apt)
		}
	}
	return slots
}
