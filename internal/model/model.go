// Package model holds the entities exchanged with the Smiles backend.
package model

import "time"

// AppointmentStatus is the lifecycle status of an appointment.
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "SCHEDULED"
	StatusOngoing   AppointmentStatus = "ONGOING"
	StatusCompleted AppointmentStatus = "COMPLETED"
	StatusCancelled AppointmentStatus = "CANCELLED"
)

// Appointment is a scheduled appointment as returned by the backend.
type Appointment struct {
	ID         string            `json:"id"`
	PatientID  string            `json:"patientId"`
	DentistID  string            `json:"dentistId"`
	RoomID     string            `json:"roomId"`
	FacilityID string            `json:"facilityId"`
	StartTime  time.Time         `json:"startTime"`
	EndTime    time.Time         `json:"endTime"`
	Status     AppointmentStatus `json:"status"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// CreateAppointmentRequest is the body of POST /appointments.
type CreateAppointmentRequest struct {
	PatientID  string    `json:"patientId"`
	DentistID  string    `json:"dentistId"`
	RoomID     string    `json:"roomId"`
	FacilityID string    `json:"facilityId"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
}

// StaffRole is the job role of a staff member.
type StaffRole string

const (
	RoleDentist      StaffRole = "DENTIST"
	RoleAssistant    StaffRole = "ASSISTANT"
	RoleReceptionist StaffRole = "RECEPTIONIST"
	RoleAdmin        StaffRole = "ADMIN"
)

// Staff is a staff member of a facility.
type Staff struct {
	ID         string    `json:"id"`
	FacilityID string    `json:"facilityId"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       StaffRole `json:"role"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// RoomType distinguishes treatment chairs from surgery rooms.
type RoomType string

const (
	RoomChair   RoomType = "CHAIR"
	RoomSurgery RoomType = "SURGERY_ROOM"
)

// Room is a treatment room or operatory inside a facility.
type Room struct {
	ID         string    `json:"id"`
	FacilityID string    `json:"facilityId"`
	Name       string    `json:"name"`
	Type       RoomType  `json:"type"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Patient is a patient registered at a facility.
type Patient struct {
	ID         string    `json:"id"`
	FacilityID string    `json:"facilityId"`
	Name       string    `json:"name"`
	BirthDate  string    `json:"birthDate"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Address    string    `json:"address,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Facility is a physical practice location, the tenancy boundary for
// staff, rooms, patients and appointments.
type Facility struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserInfo is the profile returned by GET /auth/me.
type UserInfo struct {
	UserID        string   `json:"userId"`
	Username      string   `json:"username"`
	Email         string   `json:"email"`
	FirstName     string   `json:"firstName,omitempty"`
	LastName      string   `json:"lastName,omitempty"`
	FullName      string   `json:"fullName,omitempty"`
	Roles         []string `json:"roles"`
	EmailVerified bool     `json:"emailVerified,omitempty"`
}

// HasRole reports whether the user carries the given realm role.
func (u *UserInfo) HasRole(role string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
