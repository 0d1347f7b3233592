package appointments

import (
	"errors"
	"time"
)

var (
	ErrAppointmentNotFound = errors.New("appointments: appointment not found")
	ErrSlotConflict        = errors.New("appointments: time overlaps an existing appointment")
	ErrBadStatus           = errors.New("appointments: unknown status")
	ErrPastStart           = errors.New("appointments: start must be in the future")
)

// Appointment statuses. Canceled appointments free their slot.
const (
	StatusScheduled = "scheduled"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCanceled  = "canceled"
	StatusNoShow    = "no_show"
)

func validStatus(s string) bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCanceled, StatusNoShow:
		return true
	}
	return false
}

// Appointment is a booked visit.
type Appointment struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	PatientID string    `json:"patient_id"`
	TypeID    string    `json:"type_id"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Blocks reports whether this appointment still occupies its time.
func (a *Appointment) Blocks() bool {
	return a.Status != StatusCanceled
}

// BookRequest is the payload for booking an appointment. EndsAt is
// derived from the appointment type's duration.
type BookRequest struct {
	PatientID string    `json:"patient_id"`
	TypeID    string    `json:"type_id"`
	StartsAt  time.Time `json:"starts_at"`
	Notes     string    `json:"notes"`
}

// Validate checks required fields.
func (r *BookRequest) Validate(now time.Time) error {
	if r.PatientID == "" {
		return errors.New("appointments: patient_id is required")
	}
	if r.TypeID == "" {
		return errors.New("appointments: type_id is required")
	}
	if r.StartsAt.IsZero() {
		return errors.New("appointments: starts_at is required")
	}
	if r.StartsAt.Before(now) {
		return ErrPastStart
	}
	return nil
}

// RescheduleRequest moves an appointment to a new start time.
type RescheduleRequest struct {
	StartsAt time.Time `json:"starts_at"`
}

// ListParams bounds an org-scoped appointment listing.
type ListParams struct {
	From      time.Time
	To        time.Time
	PatientID string
}
