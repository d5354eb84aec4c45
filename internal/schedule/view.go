package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"smiles/internal/events"
	"smiles/internal/model"
)

// AppointmentSource fetches appointments for a facility over a range.
type AppointmentSource interface {
	ListAppointments(ctx context.Context, facilityID string, start, end time.Time) ([]model.Appointment, error)
}

// View is the calendar view model for one facility: a reference date, a
// view mode and the appointments loaded for the visible range. A failed
// load keeps the previously rendered data; a stale response for an
// abandoned range is discarded, never rendered.
type View struct {
	facilityID string
	source     AppointmentSource
	loc        *time.Location
	hours      BusinessHours
	logger     *zerolog.Logger

	mu           sync.Mutex
	reference    time.Time
	mode         ViewMode
	appointments []model.Appointment
	loaded       bool
	lastErr      error
	generation   uint64
}

// NewView constructs a week view anchored on today.
func NewView(facilityID string, source AppointmentSource, loc *time.Location, logger *zerolog.Logger) *View {
	if loc == nil {
		loc = time.Local
	}
	return &View{
		facilityID: facilityID,
		source:     source,
		loc:        loc,
		hours:      DefaultBusinessHours,
		logger:     logger,
		reference:  time.Now().In(loc),
		mode:       ModeWeek,
	}
}

// SetBusinessHours overrides the displayed hour window.
func (v *View) SetBusinessHours(hours BusinessHours) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if hours.End > hours.Start {
		v.hours = hours
	}
}

// BusinessHours returns the displayed hour window.
func (v *View) BusinessHours() BusinessHours {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hours
}

// SetMode switches between day and week granularity.
func (v *View) SetMode(mode ViewMode) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if mode == ModeDay || mode == ModeWeek {
		v.mode = mode
	}
}

// Mode returns the current view granularity.
func (v *View) Mode() ViewMode {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mode
}

// SetReference moves the view to an explicit reference date.
func (v *View) SetReference(reference time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reference = reference.In(v.loc)
}

// Reference returns the current reference date.
func (v *View) Reference() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.reference
}

// Range returns the currently visible window.
func (v *View) Range() Range {
	v.mu.Lock()
	defer v.mu.Unlock()
	return ComputeRange(v.reference, v.mode)
}

// Advance shifts the reference forward by one unit of the view mode.
func (v *View) Advance() {
	v.shift(1)
}

// Retreat shifts the reference back by one unit of the view mode.
func (v *View) Retreat() {
	v.shift(-1)
}

func (v *View) shift(direction int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.mode == ModeDay {
		v.reference = v.reference.AddDate(0, 0, direction)
	} else {
		v.reference = v.reference.AddDate(0, 0, 7*direction)
	}
}

// GoToToday re-anchors the view on the current day.
func (v *View) GoToToday() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reference = time.Now().In(v.loc)
}

// Load fetches appointments for the currently visible range. On failure
// the previous data stays visible and the error is surfaced via Err.
// The most recently requested range wins: a response arriving after a
// newer Load began is discarded.
func (v *View) Load(ctx context.Context) error {
	v.mu.Lock()
	v.generation++
	generation := v.generation
	r := ComputeRange(v.reference, v.mode)
	v.mu.Unlock()

	appointments, err := v.source.ListAppointments(ctx, v.facilityID, r.Start, r.End)

	v.mu.Lock()
	defer v.mu.Unlock()
	if generation != v.generation {
		// A newer range was requested while this fetch was in flight.
		return nil
	}
	if err != nil {
		v.lastErr = err
		if v.logger != nil {
			v.logger.Error().Err(err).
				Time("start", r.Start).Time("end", r.End).
				Msg("appointment fetch failed, keeping previous data")
		}
		return fmt.Errorf("load appointments: %w", err)
	}
	v.appointments = appointments
	v.loaded = true
	v.lastErr = nil
	return nil
}

// Appointments returns a copy of the loaded appointment set.
func (v *View) Appointments() []model.Appointment {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]model.Appointment(nil), v.appointments...)
}

// Bucketed returns the loaded appointments grouped by calendar day.
func (v *View) Bucketed() map[string][]model.Appointment {
	v.mu.Lock()
	appointments := append([]model.Appointment(nil), v.appointments...)
	v.mu.Unlock()
	return Bucket(appointments, v.loc)
}

// Loaded reports whether at least one load has completed; it
// distinguishes the empty state from the loading state.
func (v *View) Loaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded
}

// Err returns the inline fetch error of the last load, if any.
func (v *View) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastErr
}

// Location returns the facility-local time zone of the view.
func (v *View) Location() *time.Location {
	return v.loc
}

// WatchCreated refetches the visible range whenever a booking is
// confirmed. The success notification is published before the refetch
// starts; the refetch itself may race a navigation, in which case the
// newest range wins inside Load.
func (v *View) WatchCreated(ctx context.Context, bus *events.Bus) {
	bus.Subscribe(events.TypeAppointmentCreated, func(events.Event) {
		go func() {
			_ = v.Load(ctx)
		}()
	})
}
