package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smiles/internal/events"
	"smiles/internal/model"
)

// fakeSource returns canned appointments and can be made to block so a
// fetch stays in flight while the test navigates away.
type fakeSource struct {
	mu           sync.Mutex
	appointments []model.Appointment
	err          error
	gate         chan struct{}
	calls        int
}

func (f *fakeSource) ListAppointments(ctx context.Context, facilityID string, start, end time.Time) ([]model.Appointment, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	appointments := append([]model.Appointment(nil), f.appointments...)
	err := f.err
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return appointments, err
}

func (f *fakeSource) set(appointments []model.Appointment, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appointments = appointments
	f.err = err
}

func newTestView(source *fakeSource) *View {
	nop := zerolog.Nop()
	return NewView("fac-1", source, time.UTC, &nop)
}

func TestAdvanceRetreatRoundTrip(t *testing.T) {
	for _, mode := range []ViewMode{ModeDay, ModeWeek} {
		view := newTestView(&fakeSource{})
		view.SetMode(mode)
		view.SetReference(time.Date(2024, time.March, 6, 0, 0, 0, 0, time.UTC))

		before := view.Range()
		view.Advance()
		assert.NotEqual(t, before.Start, view.Range().Start, "mode %s", mode)
		view.Retreat()
		assert.Equal(t, before.Start, view.Range().Start, "mode %s round trip", mode)

		view.Retreat()
		view.Advance()
		assert.Equal(t, before.Start, view.Range().Start, "mode %s reverse round trip", mode)
	}
}

func TestAdvanceShiftsByViewUnit(t *testing.T) {
	view := newTestView(&fakeSource{})
	view.SetReference(time.Date(2024, time.March, 6, 0, 0, 0, 0, time.UTC))

	view.SetMode(ModeDay)
	view.Advance()
	assert.Equal(t, 7, view.Reference().Day())

	view.SetMode(ModeWeek)
	view.Advance()
	assert.Equal(t, 14, view.Reference().Day())
}

func TestLoadKeepsPreviousDataOnFailure(t *testing.T) {
	source := &fakeSource{}
	view := newTestView(source)
	view.SetReference(time.Date(2024, time.March, 6, 0, 0, 0, 0, time.UTC))

	loaded := []model.Appointment{apt("a", time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC), 30)}
	source.set(loaded, nil)
	require.NoError(t, view.Load(context.Background()))
	assert.True(t, view.Loaded())
	assert.Len(t, view.Appointments(), 1)

	source.set(nil, errors.New("backend down"))
	err := view.Load(context.Background())
	require.Error(t, err)
	assert.Error(t, view.Err())
	assert.Len(t, view.Appointments(), 1, "stale data must stay visible")

	source.set(loaded, nil)
	require.NoError(t, view.Load(context.Background()))
	assert.NoError(t, view.Err())
}

func TestLoadedDistinguishesEmptyFromLoading(t *testing.T) {
	source := &fakeSource{}
	view := newTestView(source)

	assert.False(t, view.Loaded(), "nothing loaded yet")
	require.NoError(t, view.Load(context.Background()))
	assert.True(t, view.Loaded(), "an empty result is still a completed load")
	assert.Empty(t, view.Appointments())
}

func TestStaleResponseDiscarded(t *testing.T) {
	source := &fakeSource{}
	view := newTestView(source)
	view.SetReference(time.Date(2024, time.March, 6, 0, 0, 0, 0, time.UTC))

	stale := []model.Appointment{apt("stale", time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC), 30)}
	gate := make(chan struct{})
	source.mu.Lock()
	source.appointments = stale
	source.gate = gate
	source.mu.Unlock()

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_ = view.Load(context.Background())
	}()

	// Wait for the first fetch to be in flight, then navigate away and
	// load the new range.
	assert.Eventually(t, func() bool {
		source.mu.Lock()
		defer source.mu.Unlock()
		return source.calls == 1
	}, time.Second, 5*time.Millisecond)

	view.Advance()
	fresh := []model.Appointment{apt("fresh", time.Date(2024, time.March, 11, 9, 0, 0, 0, time.UTC), 30)}
	source.mu.Lock()
	source.appointments = fresh
	source.gate = nil
	source.mu.Unlock()
	require.NoError(t, view.Load(context.Background()))

	// Release the stale response; it must not overwrite the fresh one.
	close(gate)
	<-firstDone

	got := view.Appointments()
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].ID)
}

func TestWatchCreatedRefetches(t *testing.T) {
	source := &fakeSource{}
	view := newTestView(source)
	bus := events.NewBus()
	view.WatchCreated(context.Background(), bus)

	source.set([]model.Appointment{apt("new", time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC), 30)}, nil)
	bus.Publish(events.Event{Type: events.TypeAppointmentCreated})

	assert.Eventually(t, func() bool {
		return len(view.Appointments()) == 1
	}, time.Second, 5*time.Millisecond)
}
