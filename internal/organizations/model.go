package organizations

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrOrgNotFound    = errors.New("organizations: organization not found")
	ErrSlugTaken      = errors.New("organizations: slug already in use")
	ErrNotMember      = errors.New("organizations: not a member")
	ErrLastOwner      = errors.New("organizations: cannot remove the last owner")
	ErrInviteNotFound = errors.New("organizations: invitation not found")
	ErrInviteExpired  = errors.New("organizations: invitation expired")
	ErrInvitePending  = errors.New("organizations: invitation already pending for email")
	ErrAlreadyMember  = errors.New("organizations: user is already a member")
)

// Organization is a tenant: a single medical practice. All patient,
// appointment, and prescription data is scoped to one.
type Organization struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Slug                string    `json:"slug"`
	Timezone            string    `json:"timezone"`
	SlotDurationMinutes int       `json:"slot_duration_minutes"`
	LetterheadAddress   string    `json:"letterhead_address,omitempty"`
	LetterheadPhone     string    `json:"letterhead_phone,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

// Member is a user's role-bound association with an organization.
type Member struct {
	OrgID     string    `json:"org_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Invitation statuses.
const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusCanceled = "canceled"
	InviteStatusExpired  = "expired"
)

// Invitation is a pending offer to join an organization. Its ID doubles as
// the acceptance token sent by email.
type Invitation struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	InviterID string    `json:"inviter_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateOrganizationRequest is the payload for tenant creation.
type CreateOrganizationRequest struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Timezone string `json:"timezone"`
}

// Validate checks required fields and normalizes the slug.
func (r *CreateOrganizationRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Slug = strings.ToLower(strings.TrimSpace(r.Slug))
	if r.Name == "" {
		return errors.New("organizations: name is required")
	}
	if r.Slug == "" {
		return errors.New("organizations: slug is required")
	}
	for _, c := range r.Slug {
		if c != '-' && (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return errors.New("organizations: slug may only contain a-z, 0-9 and '-'")
		}
	}
	if r.Timezone != "" {
		if _, err := time.LoadLocation(r.Timezone); err != nil {
			return errors.New("organizations: invalid timezone")
		}
	}
	return nil
}

// UpdateSettingsRequest mutates an organization's scheduling settings.
type UpdateSettingsRequest struct {
	Name                *string `json:"name,omitempty"`
	Timezone            *string `json:"timezone,omitempty"`
	SlotDurationMinutes *int    `json:"slot_duration_minutes,omitempty"`
	LetterheadAddress   *string `json:"letterhead_address,omitempty"`
	LetterheadPhone     *string `json:"letterhead_phone,omitempty"`
}

// Validate checks bounds on the mutable settings.
func (r *UpdateSettingsRequest) Validate() error {
	if r.Timezone != nil {
		if _, err := time.LoadLocation(*r.Timezone); err != nil {
			return errors.New("organizations: invalid timezone")
		}
	}
	if r.SlotDurationMinutes != nil {
		if *r.SlotDurationMinutes < 5 || *r.SlotDurationMinutes > 120 {
			return errors.New("organizations: slot duration must be between 5 and 120 minutes")
		}
	}
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return errors.New("organizations: name cannot be empty")
	}
	return nil
}

// InviteRequest is the payload for inviting a user by email.
type InviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Validate checks the invite payload. Owners are created by transfer, not
// by invitation.
func (r *InviteRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Email == "" || !strings.Contains(r.Email, "@") {
		return errors.New("organizations: valid email is required")
	}
	if r.Role == "" {
		r.Role = "member"
	}
	if r.Role != "admin" && r.Role != "member" {
		return errors.New("organizations: role must be admin or member")
	}
	return nil
}
