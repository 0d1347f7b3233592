package patients

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrPatientNotFound = errors.New("patients: patient not found")
)

// Patient is a person receiving care. A patient may be shared across
// organizations through the patient_organizations link table; every
// read and write is scoped to the caller's organization.
type Patient struct {
	ID        string     `json:"id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	Sex       string     `json:"sex,omitempty"`
	Address   string     `json:"address,omitempty"`
	Allergies string     `json:"allergies,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// FullName renders "First Last" for letters and notifications.
func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// CreatePatientRequest is the payload for registering a patient.
type CreatePatientRequest struct {
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	BirthDate *time.Time `json:"birth_date"`
	Sex       string     `json:"sex"`
	Address   string     `json:"address"`
	Allergies string     `json:"allergies"`
	Notes     string     `json:"notes"`
}

// Validate checks required fields.
func (r *CreatePatientRequest) Validate() error {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.FirstName == "" {
		return errors.New("patients: first name is required")
	}
	if r.LastName == "" {
		return errors.New("patients: last name is required")
	}
	if r.Email != "" && !strings.Contains(r.Email, "@") {
		return errors.New("patients: invalid email")
	}
	if r.BirthDate != nil && r.BirthDate.After(time.Now()) {
		return errors.New("patients: birth date cannot be in the future")
	}
	return nil
}

// UpdatePatientRequest mutates a patient record; nil fields are untouched.
type UpdatePatientRequest struct {
	FirstName *string    `json:"first_name,omitempty"`
	LastName  *string    `json:"last_name,omitempty"`
	Email     *string    `json:"email,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	Sex       *string    `json:"sex,omitempty"`
	Address   *string    `json:"address,omitempty"`
	Allergies *string    `json:"allergies,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
}

// Validate checks mutated fields.
func (r *UpdatePatientRequest) Validate() error {
	if r.FirstName != nil && strings.TrimSpace(*r.FirstName) == "" {
		return errors.New("patients: first name cannot be empty")
	}
	if r.LastName != nil && strings.TrimSpace(*r.LastName) == "" {
		return errors.New("patients: last name cannot be empty")
	}
	if r.Email != nil {
		*r.Email = strings.ToLower(strings.TrimSpace(*r.Email))
		if *r.Email != "" && !strings.Contains(*r.Email, "@") {
			return errors.New("patients: invalid email")
		}
	}
	return nil
}

// ListParams controls org-scoped patient listing.
type ListParams struct {
	Search string
	Limit  int
	Offset int
}

// Normalize clamps pagination to sane bounds.
func (p *ListParams) Normalize() {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	p.Search = strings.TrimSpace(p.Search)
}
