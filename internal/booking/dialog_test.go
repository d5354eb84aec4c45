package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smiles/internal/api"
	"smiles/internal/events"
	"smiles/internal/model"
)

// eventRecorder captures published bus events.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) record(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func newTestDialog(creator Creator) (*Dialog, *eventRecorder) {
	bus := events.NewBus()
	recorder := &eventRecorder{}
	bus.Subscribe(events.TypeAppointmentCreated, recorder.record)
	return NewDialog(newTestBuilder(creator), bus), recorder
}

func TestDialogSuccessClosesAndAnnounces(t *testing.T) {
	creator := &fakeCreator{result: &model.Appointment{ID: "apt-1"}}
	dialog, recorder := newTestDialog(creator)

	dialog.Open()
	dialog.Update(func(d *Draft) { *d = completeDraft() })

	created, err := dialog.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "apt-1", created.ID)

	assert.False(t, dialog.IsOpen(), "dialog closes on success")
	assert.Equal(t, Draft{}, dialog.Draft(), "draft resets on success")
	assert.Equal(t, 1, recorder.count(), "created event announced once")
	require.NotNil(t, dialog.Created())
	assert.Equal(t, "apt-1", dialog.Created().ID)
}

func TestDialogConflictKeepsDraftAndStaysOpen(t *testing.T) {
	creator := &fakeCreator{err: &api.StatusError{Code: 409}}
	dialog, recorder := newTestDialog(creator)

	dialog.Open()
	draft := completeDraft()
	dialog.Update(func(d *Draft) { *d = draft })

	_, err := dialog.Submit(context.Background())
	var submitErr *SubmitError
	require.ErrorAs(t, err, &submitErr)
	assert.Equal(t, OutcomeConflict, submitErr.Outcome)

	assert.True(t, dialog.IsOpen(), "dialog stays open so the user can adjust")
	assert.Equal(t, draft, dialog.Draft(), "draft fields remain unchanged")
	assert.Error(t, dialog.Err())
	assert.Equal(t, 0, recorder.count())
}

func TestDialogCloseResetsDraft(t *testing.T) {
	dialog, _ := newTestDialog(&fakeCreator{})
	dialog.Open()
	dialog.Update(func(d *Draft) { *d = completeDraft() })

	dialog.Close()
	dialog.Open()
	assert.Equal(t, Draft{}, dialog.Draft())
}

func TestDialogClosedDuringFlightDiscardsResult(t *testing.T) {
	gate := make(chan struct{})
	creator := &fakeCreator{result: &model.Appointment{ID: "apt-1"}, gate: gate}
	dialog, recorder := newTestDialog(creator)

	dialog.Open()
	dialog.Update(func(d *Draft) { *d = completeDraft() })

	type result struct {
		created *model.Appointment
		err     error
	}
	done := make(chan result, 1)
	go func() {
		created, err := dialog.Submit(context.Background())
		done <- result{created, err}
	}()

	// Wait until the request is in flight, then dismiss the dialog.
	assert.Eventually(t, func() bool {
		return creator.callCount() == 1
	}, time.Second, 5*time.Millisecond)
	dialog.Close()

	close(gate)
	got := <-done

	assert.ErrorIs(t, got.err, ErrDialogClosed)
	assert.Nil(t, got.created, "late success must be discarded")
	assert.Nil(t, dialog.Created(), "no success state after dismissal")
	assert.Equal(t, 0, recorder.count(), "no grid refetch is triggered")
}

func TestDialogSubmitWhenClosed(t *testing.T) {
	dialog, _ := newTestDialog(&fakeCreator{})
	_, err := dialog.Submit(context.Background())
	assert.ErrorIs(t, err, ErrDialogClosed)
}
