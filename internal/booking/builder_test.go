package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smiles/internal/api"
	"smiles/internal/model"
)

// fakeCreator records creation requests and returns a canned result.
type fakeCreator struct {
	mu      sync.Mutex
	calls   int
	lastReq model.CreateAppointmentRequest
	result  *model.Appointment
	err     error
	gate    chan struct{}
}

func (f *fakeCreator) CreateAppointment(ctx context.Context, req model.CreateAppointmentRequest) (*model.Appointment, error) {
	f.mu.Lock()
	f.calls++
	f.lastReq = req
	result, err, gate := f.result, f.err, f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return result, err
}

func (f *fakeCreator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func completeDraft() Draft {
	return Draft{
		PatientID:       "pat-1",
		DentistID:       "den-1",
		RoomID:          "room-1",
		Date:            "2024-03-04",
		StartTime:       "09:00",
		DurationMinutes: 60,
	}
}

func newTestBuilder(creator Creator) *Builder {
	nop := zerolog.Nop()
	return NewBuilder("fac-1", time.UTC, creator, &nop)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Draft)
		wantErr error
	}{
		{"complete draft", func(*Draft) {}, nil},
		{"missing patient", func(d *Draft) { d.PatientID = "" }, ErrIncompleteDraft},
		{"missing dentist", func(d *Draft) { d.DentistID = "" }, ErrIncompleteDraft},
		{"missing room", func(d *Draft) { d.RoomID = "" }, ErrIncompleteDraft},
		{"missing date", func(d *Draft) { d.Date = "" }, ErrIncompleteDraft},
		{"missing start time", func(d *Draft) { d.StartTime = "" }, ErrIncompleteDraft},
		{"zero duration", func(d *Draft) { d.DurationMinutes = 0 }, ErrInvalidDuration},
		{"45 minutes not offered", func(d *Draft) { d.DurationMinutes = 45 }, ErrInvalidDuration},
		{"90 minutes ok", func(d *Draft) { d.DurationMinutes = 90 }, nil},
		{"120 minutes ok", func(d *Draft) { d.DurationMinutes = 120 }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := completeDraft()
			tt.mutate(&draft)
			err := Validate(draft)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestComputeInterval(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	start, end, err := ComputeInterval(completeDraft(), loc)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, time.March, 4, 9, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2024, time.March, 4, 10, 0, 0, 0, loc), end)
	// The instant form shifts with the facility zone.
	assert.Equal(t, "2024-03-04T07:00:00Z", start.UTC().Format(time.RFC3339))
}

func TestSubmitBuildsRequest(t *testing.T) {
	creator := &fakeCreator{result: &model.Appointment{ID: "apt-1"}}
	builder := newTestBuilder(creator)

	created, err := builder.Submit(context.Background(), completeDraft())
	require.NoError(t, err)
	assert.Equal(t, "apt-1", created.ID)

	req := creator.lastReq
	assert.Equal(t, "fac-1", req.FacilityID)
	assert.Equal(t, "pat-1", req.PatientID)
	assert.Equal(t, time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC), req.StartTime)
	assert.Equal(t, time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC), req.EndTime)
}

func TestSubmitIncompleteDraftSkipsNetwork(t *testing.T) {
	creator := &fakeCreator{}
	builder := newTestBuilder(creator)

	draft := completeDraft()
	draft.RoomID = ""
	_, err := builder.Submit(context.Background(), draft)

	assert.ErrorIs(t, err, ErrIncompleteDraft)
	assert.Equal(t, 0, creator.callCount(), "local validation must not reach the transport")
}

func TestSubmitClassifiesFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		outcome Outcome
	}{
		{"conflict", &api.StatusError{Code: 409}, OutcomeConflict},
		{"validation", &api.StatusError{Code: 400}, OutcomeValidation},
		{"server error", &api.StatusError{Code: 500}, OutcomeUnknown},
		{"transport error", errors.New("connection refused"), OutcomeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creator := &fakeCreator{err: tt.err}
			builder := newTestBuilder(creator)

			_, err := builder.Submit(context.Background(), completeDraft())
			var submitErr *SubmitError
			require.ErrorAs(t, err, &submitErr)
			assert.Equal(t, tt.outcome, submitErr.Outcome)
		})
	}
}

func TestSelectableDentists(t *testing.T) {
	staff := []model.Staff{
		{ID: "1", Role: model.RoleDentist, Active: true},
		{ID: "2", Role: model.RoleDentist, Active: false},
		{ID: "3", Role: model.RoleReceptionist, Active: true},
		{ID: "4", Role: model.RoleDentist, Active: true},
	}

	dentists := SelectableDentists(staff)
	require.Len(t, dentists, 2)
	assert.Equal(t, "1", dentists[0].ID)
	assert.Equal(t, "4", dentists[1].ID)
}

func TestSelectablePatients(t *testing.T) {
	patients := []model.Patient{
		{ID: "1", Active: true},
		{ID: "2", Active: false},
	}

	active := SelectablePatients(patients)
	require.Len(t, active, 1)
	assert.Equal(t, "1", active[0].ID)
}
