package appointmenttypes

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrTypeNotFound = errors.New("appointmenttypes: appointment type not found")
	ErrTypeInUse    = errors.New("appointmenttypes: type has future appointments")
)

// AppointmentType is a bookable visit kind with a fixed duration.
type AppointmentType struct {
	ID              string    `json:"id"`
	OrgID           string    `json:"org_id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
	PriceCents      int       `json:"price_cents"`
	RequiresPayment bool      `json:"requires_payment"`
	Color           string    `json:"color,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// CreateTypeRequest is the payload for creating an appointment type.
type CreateTypeRequest struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int    `json:"price_cents"`
	RequiresPayment bool   `json:"requires_payment"`
	Color           string `json:"color"`
}

// Validate checks the payload bounds.
func (r *CreateTypeRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return errors.New("appointmenttypes: name is required")
	}
	if r.DurationMinutes < 5 || r.DurationMinutes > 240 {
		return errors.New("appointmenttypes: duration must be between 5 and 240 minutes")
	}
	if r.PriceCents < 0 {
		return errors.New("appointmenttypes: price cannot be negative")
	}
	return nil
}

// UpdateTypeRequest mutates an appointment type; nil fields are untouched.
type UpdateTypeRequest struct {
	Name            *string `json:"name,omitempty"`
	DurationMinutes *int    `json:"duration_minutes,omitempty"`
	PriceCents      *int    `json:"price_cents,omitempty"`
	RequiresPayment *bool   `json:"requires_payment,omitempty"`
	Color           *string `json:"color,omitempty"`
}

// Validate checks mutated fields.
func (r *UpdateTypeRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return errors.New("appointmenttypes: name cannot be empty")
	}
	if r.DurationMinutes != nil && (*r.DurationMinutes < 5 || *r.DurationMinutes > 240) {
		return errors.New("appointmenttypes: duration must be between 5 and 240 minutes")
	}
	if r.PriceCents != nil && *r.PriceCents < 0 {
		return errors.New("appointmenttypes: price cannot be negative")
	}
	return nil
}
