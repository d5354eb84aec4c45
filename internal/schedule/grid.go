package schedule

import (
	"fmt"
	"strings"
	"time"

	"smiles/internal/model"
)

const gridCellWidth = 22

// statusMarker is the single-letter grid marker for a status.
func statusMarker(status model.AppointmentStatus) string {
	switch status {
	case model.StatusScheduled:
		return "S"
	case model.StatusOngoing:
		return "O"
	case model.StatusCompleted:
		return "C"
	case model.StatusCancelled:
		return "X"
	default:
		return "?"
	}
}

// RenderText renders the day x hour grid as fixed-width text. Today's
// header is marked with an asterisk. An empty loaded range renders an
// explicit no-appointments line instead of a blank grid.
func RenderText(r Range, bucketed map[string][]model.Appointment, hours BusinessHours, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}

	var b strings.Builder

	b.WriteString(pad(""))
	for _, day := range r.Days {
		header := day.Format("Mon 02 Jan")
		if SameDay(day, now) {
			header = "*" + header
		}
		b.WriteString(pad(header))
	}
	b.WriteString("\n")

	total := 0
	for _, day := range bucketed {
		total += len(day)
	}
	if total == 0 {
		b.WriteString("No appointments scheduled for this period.\n")
		return b.String()
	}

	for _, hour := range hours.Rows() {
		b.WriteString(pad(fmt.Sprintf("%02d:00", hour)))
		for _, day := range r.Days {
			slots := SlotsForHour(bucketed, day, hour, loc)
			cell := ""
			for i, apt := range slots {
				if i > 0 {
					cell += " "
				}
				cell += fmt.Sprintf("%s-%s %s",
					apt.StartTime.In(loc).Format("15:04"),
					apt.EndTime.In(loc).Format("15:04"),
					statusMarker(apt.Status),
				)
			}
			b.WriteString(pad(cell))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func pad(s string) string {
	if len(s) >= gridCellWidth {
		return s[:gridCellWidth-1] + " "
	}
	return s + strings.Repeat(" ", gridCellWidth-len(s))
}
