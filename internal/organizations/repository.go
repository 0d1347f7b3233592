package organizations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository persists organizations, members, and invitations.
type Repository struct {
	pool querier
}

// NewRepository creates a repository backed by pgx.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("organizations: pgx pool required")
	}
	return &Repository{pool: pool}
}

func newRepositoryWithExec(exec querier) *Repository {
	if exec == nil {
		panic("organizations: exec required")
	}
	return &Repository{pool: exec}
}

// Create inserts the organization and its owner membership in one transaction.
func (r *Repository) Create(ctx context.Context, req *CreateOrganizationRequest, ownerID string, defaultTimezone string, defaultSlotMinutes int) (*Organization, error) {
	tz := req.Timezone
	if tz == "" {
		tz = defaultTimezone
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("organizations: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id := uuid.New()
	var createdAt time.Time
	err = tx.QueryRow(ctx, `
		INSERT INTO organizations (id, name, slug, timezone, slot_duration_minutes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, id, req.Name, req.Slug, tz, defaultSlotMinutes).Scan(&createdAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("organizations: insert org: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO members (org_id, user_id, role)
		VALUES ($1, $2, 'owner')
	`, id, ownerID); err != nil {
		return nil, fmt.Errorf("organizations: insert owner member: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("organizations: commit: %w", err)
	}

	return &Organization{
		ID:                  id.String(),
		Name:                req.Name,
		Slug:                req.Slug,
		Timezone:            tz,
		SlotDurationMinutes: defaultSlotMinutes,
		CreatedAt:           createdAt,
	}, nil
}

// Get fetches an organization by id.
func (r *Repository) Get(ctx context.Context, orgID string) (*Organization, error) {
	var org Organization
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, slug, timezone, slot_duration_minutes,
		       letterhead_address, letterhead_phone, created_at
		FROM organizations
		WHERE id = $1
	`, orgID).Scan(
		&org.ID, &org.Name, &org.Slug, &org.Timezone, &org.SlotDurationMinutes,
		&org.LetterheadAddress, &org.LetterheadPhone, &org.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrgNotFound
		}
		return nil, fmt.Errorf("organizations: select org: %w", err)
	}
	return &org, nil
}

// UpdateSettings applies the non-nil fields of req.
func (r *Repository) UpdateSettings(ctx context.Context, orgID string, req *UpdateSettingsRequest) (*Organization, error) {
	org, err := r.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		org.Name = *req.Name
	}
	if req.Timezone != nil {
		org.Timezone = *req.Timezone
	}
	if req.SlotDurationMinutes != nil {
		org.SlotDurationMinutes = *req.SlotDurationMinutes
	}
	if req.LetterheadAddress != nil {
		org.LetterheadAddress = *req.LetterheadAddress
	}
	if req.LetterheadPhone != nil {
		org.LetterheadPhone = *req.LetterheadPhone
	}

	ct, err := r.pool.Exec(ctx, `
		UPDATE organizations
		SET name = $2, timezone = $3, slot_duration_minutes = $4,
		    letterhead_address = $5, letterhead_phone = $6, updated_at = now()
		WHERE id = $1
	`, orgID, org.Name, org.Timezone, org.SlotDurationMinutes, org.LetterheadAddress, org.LetterheadPhone)
	if err != nil {
		return nil, fmt.Errorf("organizations: update settings: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, ErrOrgNotFound
	}
	return org, nil
}

// ListForUser returns all organizations the user belongs to.
func (r *Repository) ListForUser(ctx context.Context, userID string) ([]*Organization, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT o.id, o.name, o.slug, o.timezone, o.slot_duration_minutes,
		       o.letterhead_address, o.letterhead_phone, o.created_at
		FROM organizations o
		JOIN members m ON m.org_id = o.id
		WHERE m.user_id = $1
		ORDER BY o.created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("organizations: list for user: %w", err)
	}
	defer rows.Close()

	var orgs []*Organization
	for rows.Next() {
		var org Organization
		if err := rows.Scan(
			&org.ID, &org.Name, &org.Slug, &org.Timezone, &org.SlotDurationMinutes,
			&org.LetterheadAddress, &org.LetterheadPhone, &org.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("organizations: scan org: %w", err)
		}
		orgs = append(orgs, &org)
	}
	return orgs, rows.Err()
}

// RoleOf returns the user's role in the org, or ErrNotMember.
// Satisfies auth.MembershipChecker.
func (r *Repository) RoleOf(ctx context.Context, orgID, userID string) (string, error) {
	var role string
	err := r.pool.QueryRow(ctx, `
		SELECT role FROM members WHERE org_id = $1 AND user_id = $2
	`, orgID, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotMember
		}
		return "", fmt.Errorf("organizations: select role: %w", err)
	}
	return role, nil
}

// ListMembers returns org members joined with their user details.
func (r *Repository) ListMembers(ctx context.Context, orgID string) ([]*Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.org_id, m.user_id, m.role, u.name, u.email, m.created_at
		FROM members m
		JOIN users u ON u.id = m.user_id
		WHERE m.org_id = $1
		ORDER BY m.created_at
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("organizations: list members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.OrgID, &m.UserID, &m.Role, &m.Name, &m.Email, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("organizations: scan member: %w", err)
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

// UpdateMemberRole changes a member's role. Demoting the last owner is rejected.
func (r *Repository) UpdateMemberRole(ctx context.Context, orgID, userID, role string) error {
	if role != "owner" {
		isLast, err := r.isLastOwner(ctx, orgID, userID)
		if err != nil {
			return err
		}
		if isLast {
			return ErrLastOwner
		}
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE members SET role = $3 WHERE org_id = $1 AND user_id = $2
	`, orgID, userID, role)
	if err != nil {
		return fmt.Errorf("organizations: update member role: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotMember
	}
	return nil
}

// RemoveMember deletes a membership. The last owner cannot be removed.
func (r *Repository) RemoveMember(ctx context.Context, orgID, userID string) error {
	isLast, err := r.isLastOwner(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if isLast {
		return ErrLastOwner
	}
	ct, err := r.pool.Exec(ctx, `
		DELETE FROM members WHERE org_id = $1 AND user_id = $2
	`, orgID, userID)
	if err != nil {
		return fmt.Errorf("organizations: remove member: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotMember
	}
	return nil
}

func (r *Repository) isLastOwner(ctx context.Context, orgID, userID string) (bool, error) {
	var role string
	var ownerCount int
	err := r.pool.QueryRow(ctx, `
		SELECT m.role,
		       (SELECT count(*) FROM members WHERE org_id = $1 AND role = 'owner')
		FROM members m
		WHERE m.org_id = $1 AND m.user_id = $2
	`, orgID, userID).Scan(&role, &ownerCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNotMember
		}
		return false, fmt.Errorf("organizations: owner check: %w", err)
	}
	return role == "owner" && ownerCount == 1, nil
}

// CreateInvitation inserts a pending invitation. One pending invite per
// (org, email) is enforced by a partial unique index.
func (r *Repository) CreateInvitation(ctx context.Context, orgID, email, role, inviterID string, ttl time.Duration) (*Invitation, error) {
	id := uuid.New()
	expires := time.Now().Add(ttl).UTC()
	var createdAt time.Time
	err := r.pool.QueryRow(ctx, `
		INSERT INTO invitations (id, org_id, email, role, inviter_id, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, id, orgID, email, role, inviterID, expires).Scan(&createdAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrInvitePending
		}
		return nil, fmt.Errorf("organizations: insert invitation: %w", err)
	}
	return &Invitation{
		ID:        id.String(),
		OrgID:     orgID,
		Email:     email,
		Role:      role,
		Status:    InviteStatusPending,
		InviterID: inviterID,
		ExpiresAt: expires,
		CreatedAt: createdAt,
	}, nil
}

// GetInvitation fetches an invitation by id (the acceptance token).
func (r *Repository) GetInvitation(ctx context.Context, id string) (*Invitation, error) {
	var inv Invitation
	err := r.pool.QueryRow(ctx, `
		SELECT id, org_id, email, role, status, inviter_id, expires_at, created_at
		FROM invitations
		WHERE id = $1
	`, id).Scan(
		&inv.ID, &inv.OrgID, &inv.Email, &inv.Role, &inv.Status,
		&inv.InviterID, &inv.ExpiresAt, &inv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInviteNotFound
		}
		return nil, fmt.Errorf("organizations: select invitation: %w", err)
	}
	return &inv, nil
}

// ListInvitations returns pending invitations for the org.
func (r *Repository) ListInvitations(ctx context.Context, orgID string) ([]*Invitation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, org_id, email, role, status, inviter_id, expires_at, created_at
		FROM invitations
		WHERE org_id = $1 AND status = 'pending'
		ORDER BY created_at DESC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("organizations: list invitations: %w", err)
	}
	defer rows.Close()

	var invs []*Invitation
	for rows.Next() {
		var inv Invitation
		if err := rows.Scan(
			&inv.ID, &inv.OrgID, &inv.Email, &inv.Role, &inv.Status,
			&inv.InviterID, &inv.ExpiresAt, &inv.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("organizations: scan invitation: %w", err)
		}
		invs = append(invs, &inv)
	}
	return invs, rows.Err()
}

// AcceptInvitation marks the invitation accepted and creates the membership
// in one transaction. The caller has already matched the invite email.
func (r *Repository) AcceptInvitation(ctx context.Context, inv *Invitation, userID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("organizations: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `
		UPDATE invitations SET status = 'accepted'
		WHERE id = $1 AND status = 'pending'
	`, inv.ID)
	if err != nil {
		return fmt.Errorf("organizations: accept invitation: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrInviteNotFound
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO members (org_id, user_id, role)
		VALUES ($1, $2, $3)
	`, inv.OrgID, userID, inv.Role); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyMember
		}
		return fmt.Errorf("organizations: insert member: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("organizations: commit: %w", err)
	}
	return nil
}

// CancelInvitation marks a pending invitation canceled.
func (r *Repository) CancelInvitation(ctx context.Context, orgID, id string) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE invitations SET status = 'canceled'
		WHERE id = $1 AND org_id = $2 AND status = 'pending'
	`, id, orgID)
	if err != nil {
		return fmt.Errorf("organizations: cancel invitation: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrInviteNotFound
	}
	return nil
}
