package auth

import (
	"errors"
	"time"
)

var (
	// ErrEmailTaken is returned when signing up with an existing email.
	ErrEmailTaken = errors.New("auth: email already registered")
	// ErrInvalidCredentials covers both unknown email and wrong password,
	// so callers cannot probe which emails exist.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrSessionNotFound is returned for unknown or expired session tokens.
	ErrSessionNotFound = errors.New("auth: session not found")
	// ErrNotMember is returned when switching to an org the user does not belong to.
	ErrNotMember = errors.New("auth: not a member of organization")
)

// User is an account that can belong to one or more organizations.
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// Session is an opaque-token server-side session. ActiveOrgID scopes all
// tenant requests made with this session.
type Session struct {
	Token       string    `json:"token"`
	UserID      string    `json:"user_id"`
	ActiveOrgID string    `json:"active_org_id,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Identity is the resolved caller of an authenticated request.
type Identity struct {
	UserID      string
	ActiveOrgID string
	Role        string // role within ActiveOrgID, empty if no active org
}

// SignUpRequest is the payload for account creation.
type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks required fields.
func (r *SignUpRequest) Validate() error {
	if r.Name == "" {
		return errors.New("auth: name is required")
	}
	if r.Email == "" {
		return errors.New("auth: email is required")
	}
	if len(r.Password) < 8 {
		return errors.New("auth: password must be at least 8 characters")
	}
	return nil
}

// SignInRequest is the payload for session creation.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
