package schedule

import (
	"strings"
	"testing"
	"time"

	"smiles/internal/model"
)

func TestRenderTextEmptyState(t *testing.T) {
	r := ComputeRange(time.Date(2024, time.March, 6, 0, 0, 0, 0, time.UTC), ModeWeek)
	out := RenderText(r, map[string][]model.Appointment{}, DefaultBusinessHours, time.Date(2024, time.March, 6, 12, 0, 0, 0, time.UTC), time.UTC)

	if !strings.Contains(out, "No appointments scheduled") {
		t.Errorf("empty range must render the explicit empty state, got:\n%s", out)
	}
	if !strings.Contains(out, "*Wed 06 Mar") {
		t.Errorf("today's header must be marked, got:\n%s", out)
	}
}

func TestRenderTextShowsSlotInStartRow(t *testing.T) {
	day := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	r := ComputeRange(day, ModeDay)
	buckets := Bucket([]model.Appointment{apt("a", day.Add(9*time.Hour), 60)}, time.UTC)

	out := RenderText(r, buckets, DefaultBusinessHours, day, time.UTC)
	if !strings.Contains(out, "09:00-10:00 S") {
		t.Errorf("scheduled slot missing from grid:\n%s", out)
	}
}
