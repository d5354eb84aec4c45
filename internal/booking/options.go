package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"smiles/internal/model"
)

// ErrNotSelectable is returned when a draft references an option the
// directory does not offer.
var ErrNotSelectable = errors.New("booking: selected option is not available")

// DirectorySource fetches the facility directories the dialog offers as
// selectable options.
type DirectorySource interface {
	ListStaff(ctx context.Context, facilityID string) ([]model.Staff, error)
	ListRooms(ctx context.Context, facilityID string) ([]model.Room, error)
	ListPatients(ctx context.Context, facilityID string) ([]model.Patient, error)
}

// Options is the selectable-option snapshot backing an open dialog:
// active dentists, active patients and the facility's rooms.
type Options struct {
	Dentists []model.Staff
	Patients []model.Patient
	Rooms    []model.Room
}

// LoadOptions fetches the three directories concurrently and applies
// the selectability filters. Any fetch failure fails the whole load;
// a dialog must not open over a partial directory.
func LoadOptions(ctx context.Context, source DirectorySource, facilityID string) (*Options, error) {
	var (
		wg       sync.WaitGroup
		staff    []model.Staff
		patients []model.Patient
		rooms    []model.Room

		staffErr    error
		patientsErr error
		roomsErr    error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		staff, staffErr = source.ListStaff(ctx, facilityID)
	}()
	go func() {
		defer wg.Done()
		patients, patientsErr = source.ListPatients(ctx, facilityID)
	}()
	go func() {
		defer wg.Done()
		rooms, roomsErr = source.ListRooms(ctx, facilityID)
	}()
	wg.Wait()

	if staffErr != nil {
		return nil, fmt.Errorf("load staff: %w", staffErr)
	}
	if patientsErr != nil {
		return nil, fmt.Errorf("load patients: %w", patientsErr)
	}
	if roomsErr != nil {
		return nil, fmt.Errorf("load rooms: %w", roomsErr)
	}

	return &Options{
		Dentists: SelectableDentists(staff),
		Patients: SelectablePatients(patients),
		Rooms:    rooms,
	}, nil
}

// CheckDraft verifies the draft only references offered options.
func (o *Options) CheckDraft(d Draft) error {
	if !o.HasDentist(d.DentistID) {
		return fmt.Errorf("%w: dentist %s", ErrNotSelectable, d.DentistID)
	}
	if !o.HasPatient(d.PatientID) {
		return fmt.Errorf("%w: patient %s", ErrNotSelectable, d.PatientID)
	}
	if !o.HasRoom(d.RoomID) {
		return fmt.Errorf("%w: room %s", ErrNotSelectable, d.RoomID)
	}
	return nil
}

// HasDentist reports whether the dentist is offered.
func (o *Options) HasDentist(id string) bool {
	for _, s := range o.Dentists {
		if s.ID == id {
			return true
		}
	}
	return false
}

// HasPatient reports whether the patient is offered.
func (o *Options) HasPatient(id string) bool {
	for _, p := range o.Patients {
		if p.ID == id {
			return true
		}
	}
	return false
}

// HasRoom reports whether the room is offered.
func (o *Options) HasRoom(id string) bool {
	for _, r := range o.Rooms {
		if r.ID == id {
			return true
		}
	}
	return false
}
