package organizations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/praxishealth/praxis/internal/events"
	"github.com/praxishealth/praxis/pkg/logging"
)

// Store is the persistence surface the service needs. *Repository
// implements it; tests use InMemoryStore.
type Store interface {
	Create(ctx context.Context, req *CreateOrganizationRequest, ownerID string, defaultTimezone string, defaultSlotMinutes int) (*Organization, error)
	Get(ctx context.Context, orgID string) (*Organization, error)
	UpdateSettings(ctx context.Context, orgID string, req *UpdateSettingsRequest) (*Organization, error)
	ListForUser(ctx context.Context, userID string) ([]*Organization, error)
	RoleOf(ctx context.Context, orgID, userID string) (string, error)
	ListMembers(ctx context.Context, orgID string) ([]*Member, error)
	UpdateMemberRole(ctx context.Context, orgID, userID, role string) error
	RemoveMember(ctx context.Context, orgID, userID string) error
	CreateInvitation(ctx context.Context, orgID, email, role, inviterID string, ttl time.Duration) (*Invitation, error)
	GetInvitation(ctx context.Context, id string) (*Invitation, error)
	ListInvitations(ctx context.Context, orgID string) ([]*Invitation, error)
	AcceptInvitation(ctx context.Context, inv *Invitation, userID string) error
	CancelInvitation(ctx context.Context, orgID, id string) error
}

// outboxWriter records domain events for async delivery.
type outboxWriter interface {
	Insert(ctx context.Context, orgID string, eventType string, payload any) (uuid.UUID, error)
}

// Defaults seed new organizations until their settings are customized.
type Defaults struct {
	Timezone      string
	SlotMinutes   int
	InvitationTTL time.Duration
}

// Service implements organization management on top of a Store, with a
// Redis settings cache on the read path.
type Service struct {
	store    Store
	cache    *SettingsCache
	outbox   outboxWriter
	defaults Defaults
	logger   *logging.Logger
}

// NewService wires the organization service. cache and outbox may be nil.
func NewService(store Store, cache *SettingsCache, outbox outboxWriter, defaults Defaults, logger *logging.Logger) *Service {
	if defaults.Timezone == "" {
		defaults.Timezone = "UTC"
	}
	if defaults.SlotMinutes <= 0 {
		defaults.SlotMinutes = 30
	}
	if defaults.InvitationTTL <= 0 {
		defaults.InvitationTTL = 7 * 24 * time.Hour
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, cache: cache, outbox: outbox, defaults: defaults, logger: logger}
}

// Create provisions a new organization owned by ownerID.
func (s *Service) Create(ctx context.Context, ownerID string, req *CreateOrganizationRequest) (*Organization, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	org, err := s.store.Create(ctx, req, ownerID, s.defaults.Timezone, s.defaults.SlotMinutes)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, org); err != nil {
		s.logger.Warn("org cache prime failed", "org_id", org.ID, "error", err)
	}
	s.logger.Info("organization created", "org_id", org.ID, "slug", org.Slug, "owner_id", ownerID)
	return org, nil
}

// Get returns the organization, reading through the settings cache.
func (s *Service) Get(ctx context.Context, orgID string) (*Organization, error) {
	if org, err := s.cache.Get(ctx, orgID); err != nil {
		s.logger.Warn("org cache read failed", "org_id", orgID, "error", err)
	} else if org != nil {
		return org, nil
	}
	org, err := s.store.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, org); err != nil {
		s.logger.Warn("org cache prime failed", "org_id", orgID, "error", err)
	}
	return org, nil
}

// UpdateSettings applies the update and refreshes the cache.
func (s *Service) UpdateSettings(ctx context.Context, orgID string, req *UpdateSettingsRequest) (*Organization, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	org, err := s.store.UpdateSettings(ctx, orgID, req)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, org); err != nil {
		s.logger.Warn("org cache refresh failed", "org_id", orgID, "error", err)
		_ = s.cache.Invalidate(ctx, orgID)
	}
	s.logger.Info("organization settings updated", "org_id", orgID)
	return org, nil
}

// ListForUser returns every organization the user is a member of.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*Organization, error) {
	return s.store.ListForUser(ctx, userID)
}

// RoleOf reports the user's role in the org.
func (s *Service) RoleOf(ctx context.Context, orgID, userID string) (string, error) {
	return s.store.RoleOf(ctx, orgID, userID)
}

// ListMembers returns the org's members with user details.
func (s *Service) ListMembers(ctx context.Context, orgID string) ([]*Member, error) {
	return s.store.ListMembers(ctx, orgID)
}

// UpdateMemberRole changes a member's role. Only owners may grant or
// revoke ownership, which the handler enforces; the store protects the
// last owner either way.
func (s *Service) UpdateMemberRole(ctx context.Context, orgID, userID, role string) error {
	if role != "owner" && role != "admin" && role != "member" {
		return fmt.Errorf("organizations: unknown role %q", role)
	}
	return s.store.UpdateMemberRole(ctx, orgID, userID, role)
}

// RemoveMember removes the member from the org.
func (s *Service) RemoveMember(ctx context.Context, orgID, userID string) error {
	return s.store.RemoveMember(ctx, orgID, userID)
}

// Invite creates a pending invitation and queues the invitation email.
func (s *Service) Invite(ctx context.Context, orgID, inviterID, inviterName string, req *InviteRequest) (*Invitation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	org, err := s.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}

	inv, err := s.store.CreateInvitation(ctx, orgID, req.Email, req.Role, inviterID, s.defaults.InvitationTTL)
	if err != nil {
		return nil, err
	}

	if s.outbox != nil {
		_, err := s.outbox.Insert(ctx, orgID, events.TypeInvitationCreated, events.InvitationCreatedV1{
			EventID:     inv.ID,
			OrgID:       orgID,
			OrgName:     org.Name,
			Email:       inv.Email,
			Role:        inv.Role,
			Token:       inv.ID,
			InviterName: inviterName,
			ExpiresAt:   inv.ExpiresAt,
		})
		if err != nil {
			s.logger.Error("invitation event enqueue failed", "org_id", orgID, "invitation_id", inv.ID, "error", err)
		}
	}

	s.logger.Info("invitation created", "org_id", orgID, "email", inv.Email, "role", inv.Role)
	return inv, nil
}

// ListInvitations returns the org's pending invitations.
func (s *Service) ListInvitations(ctx context.Context, orgID string) ([]*Invitation, error) {
	return s.store.ListInvitations(ctx, orgID)
}

// AcceptInvitation joins the accepting user to the org. The invitation
// must be pending, unexpired, and addressed to the user's email.
func (s *Service) AcceptInvitation(ctx context.Context, inviteID, userID, userEmail string) (*Invitation, error) {
	inv, err := s.store.GetInvitation(ctx, inviteID)
	if err != nil {
		return nil, err
	}
	if inv.Status != InviteStatusPending {
		return nil, ErrInviteNotFound
	}
	if time.Now().After(inv.ExpiresAt) {
		return nil, ErrInviteExpired
	}
	if !strings.EqualFold(inv.Email, userEmail) {
		return nil, ErrInviteNotFound
	}
	if err := s.store.AcceptInvitation(ctx, inv, userID); err != nil {
		return nil, err
	}
	s.logger.Info("invitation accepted", "org_id", inv.OrgID, "user_id", userID)
	inv.Status = InviteStatusAccepted
	return inv, nil
}

// CancelInvitation revokes a pending invitation.
func (s *Service) CancelInvitation(ctx context.Context, orgID, inviteID string) error {
	return s.store.CancelInvitation(ctx, orgID, inviteID)
}
