package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"smiles/internal/events"
	"smiles/internal/model"
)

// ErrDialogClosed is returned when submitting through a closed dialog.
var ErrDialogClosed = errors.New("booking: dialog is closed")

// Dialog owns the create-appointment form lifecycle. The draft exists
// only while the dialog is open and is reset on every close, whether by
// success, cancellation or dismissal. Closing the dialog while a
// submission is in flight discards the eventual result: no success
// state is set and no created event is published.
type Dialog struct {
	builder *Builder
	bus     *events.Bus

	mu      sync.Mutex
	open    bool
	draft   Draft
	created *model.Appointment
	lastErr error
}

// NewDialog constructs a closed dialog around the builder. Created
// appointments are announced on bus so the calendar view can refetch.
func NewDialog(builder *Builder, bus *events.Bus) *Dialog {
	return &Dialog{builder: builder, bus: bus}
}

// Open resets the form and opens the dialog.
func (d *Dialog) Open() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = true
	d.draft = Draft{}
	d.created = nil
	d.lastErr = nil
}

// Close dismisses the dialog and discards the draft.
func (d *Dialog) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	d.draft = Draft{}
	d.lastErr = nil
}

// IsOpen reports whether the dialog is open.
func (d *Dialog) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Update mutates the draft while the dialog is open.
func (d *Dialog) Update(fn func(*Draft)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		fn(&d.draft)
	}
}

// Draft returns a copy of the current form state.
func (d *Dialog) Draft() Draft {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.draft
}

// Err returns the inline error of the last submission, if any.
func (d *Dialog) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

// Created returns the appointment of a successful submission.
func (d *Dialog) Created() *model.Appointment {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created
}

// Submit sends the current draft. On success the dialog closes and the
// created appointment is announced; on a classified failure the draft
// stays untouched and the dialog stays open for a resubmit. A result
// arriving after Close is dropped and reported as ErrDialogClosed.
func (d *Dialog) Submit(ctx context.Context) (*model.Appointment, error) {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return nil, ErrDialogClosed
	}
	draft := d.draft
	d.mu.Unlock()

	created, err := d.builder.Submit(ctx, draft)

	d.mu.Lock()
	if !d.open {
		// Dialog was dismissed while the request was in flight; the
		// result is discarded and reported as a closed-dialog error so
		// callers never see a nil appointment with a nil error.
		d.mu.Unlock()
		return nil, ErrDialogClosed
	}
	if err != nil {
		d.lastErr = err
		d.mu.Unlock()
		return nil, err
	}
	d.created = created
	d.open = false
	d.draft = Draft{}
	d.lastErr = nil
	d.mu.Unlock()

	if d.bus != nil {
		d.bus.Publish(events.Event{
			Type:      events.TypeAppointmentCreated,
			Payload:   *created,
			CreatedAt: time.Now(),
		})
	}
	return created, nil
}
