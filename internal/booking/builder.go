// Package booking collects an appointment draft, derives its interval
// and submits it, translating backend failure codes into
// domain-meaningful outcomes.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"smiles/internal/api"
	"smiles/internal/metrics"
	"smiles/internal/model"
)

// Local validation errors; these never reach the transport layer.
var (
	ErrIncompleteDraft = errors.New("booking: all of patient, dentist, room, date and start time are required")
	ErrInvalidDuration = errors.New("booking: duration must be 30, 60, 90 or 120 minutes")
)

// AllowedDurations are the selectable appointment lengths in minutes.
var AllowedDurations = []int{30, 60, 90, 120}

// Outcome classifies a submission result.
type Outcome string

const (
	OutcomeCreated    Outcome = "created"
	OutcomeConflict   Outcome = "conflict"
	OutcomeValidation Outcome = "validation"
	OutcomeUnknown    Outcome = "unknown"
)

// SubmitError is a classified submission failure. The draft is left
// untouched so the user can adjust and resubmit.
type SubmitError struct {
	Outcome Outcome
	cause   error
}

func (e *SubmitError) Error() string {
	switch e.Outcome {
	case OutcomeConflict:
		return "dentist or room is already booked at this time"
	case OutcomeValidation:
		return "invalid appointment data"
	default:
		return "failed to create appointment, please try again"
	}
}

func (e *SubmitError) Unwrap() error {
	return e.cause
}

// Draft is the mutable form state of the create-appointment dialog.
type Draft struct {
	PatientID       string
	DentistID       string
	RoomID          string
	Date            string // YYYY-MM-DD
	StartTime       string // HH:MM
	DurationMinutes int
}

// Validate checks draft completeness and the duration whitelist. No
// overlap check happens here: conflict detection is a server-side
// invariant and the client only surfaces the 409 verdict.
func Validate(d Draft) error {
	if d.PatientID == "" || d.DentistID == "" || d.RoomID == "" || d.Date == "" || d.StartTime == "" {
		return ErrIncompleteDraft
	}
	for _, allowed := range AllowedDurations {
		if d.DurationMinutes == allowed {
			return nil
		}
	}
	return ErrInvalidDuration
}

// ComputeInterval combines the draft's date and start time into a
// facility-local start instant and adds the duration for the end.
func ComputeInterval(d Draft, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	start, err := time.ParseInLocation("2006-01-02 15:04", d.Date+" "+d.StartTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse start: %w", err)
	}
	end := start.Add(time.Duration(d.DurationMinutes) * time.Minute)
	return start, end, nil
}

// Creator submits appointment creation requests.
type Creator interface {
	CreateAppointment(ctx context.Context, req model.CreateAppointmentRequest) (*model.Appointment, error)
}

// Builder validates drafts and submits them for one facility.
type Builder struct {
	facilityID string
	loc        *time.Location
	creator    Creator
	logger     *zerolog.Logger
}

// NewBuilder constructs a builder for the facility.
func NewBuilder(facilityID string, loc *time.Location, creator Creator, logger *zerolog.Logger) *Builder {
	if loc == nil {
		loc = time.Local
	}
	return &Builder{
		facilityID: facilityID,
		loc:        loc,
		creator:    creator,
		logger:     logger,
	}
}

// Location returns the facility-local time zone used for intervals.
func (b *Builder) Location() *time.Location {
	return b.loc
}

// Submit validates the draft, computes the interval and issues the
// creation request. Failures come back as classified SubmitError
// values; validation failures never reach the network.
func (b *Builder) Submit(ctx context.Context, d Draft) (*model.Appointment, error) {
	if err := Validate(d); err != nil {
		return nil, err
	}
	start, end, err := ComputeInterval(d, b.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompleteDraft, err)
	}

	created, err := b.creator.CreateAppointment(ctx, model.CreateAppointmentRequest{
		PatientID:  d.PatientID,
		DentistID:  d.DentistID,
		RoomID:     d.RoomID,
		FacilityID: b.facilityID,
		StartTime:  start,
		EndTime:    end,
	})
	if err != nil {
		outcome := classify(err)
		metrics.IncAppointmentSubmitted(string(outcome))
		if b.logger != nil {
			b.logger.Warn().Err(err).Str("outcome", string(outcome)).Msg("booking submission failed")
		}
		return nil, &SubmitError{Outcome: outcome, cause: err}
	}

	metrics.IncAppointmentSubmitted(string(OutcomeCreated))
	if b.logger != nil {
		b.logger.Info().
			Str("appointment_id", created.ID).
			Time("start", created.StartTime).
			Msg("appointment created")
	}
	return created, nil
}

func classify(err error) Outcome {
	var status *api.StatusError
	if !errors.As(err, &status) {
		return OutcomeUnknown
	}
	switch status.Code {
	case 409:
		return OutcomeConflict
	case 400:
		return OutcomeValidation
	default:
		return OutcomeUnknown
	}
}

// SelectableDentists filters a staff snapshot to active dentists, the
// only staff offered in the booking form.
func SelectableDentists(staff []model.Staff) []model.Staff {
	var dentists []model.Staff
	for _, s := range staff {
		if s.Role == model.RoleDentist && s.Active {
			dentists = append(dentists, s)
		}
	}
	return dentists
}

// SelectablePatients filters a patient snapshot to active patients.
func SelectablePatients(patients []model.Patient) []model.Patient {
	var active []model.Patient
	for _, p := range patients {
		if p.Active {
			active = append(active, p)
		}
	}
	return active
}
