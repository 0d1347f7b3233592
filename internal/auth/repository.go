package auth

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
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store defines user and session persistence.
type Store interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) (*Session, error)
	GetSession(ctx context.Context, token string) (*Session, error)
	DeleteSession(ctx context.Context, token string) error
	SetActiveOrg(ctx context.Context, token, orgID string) error
}

// Repository persists users and sessions in Postgres.
type Repository struct {
	pool querier
}

// NewRepository creates a repository backed by pgx.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("auth: pgx pool required")
	}
	return &Repository{pool: pool}
}

func newRepositoryWithExec(exec querier) *Repository {
	if exec == nil {
		panic("auth: exec required")
	}
	return &Repository{pool: exec}
}

// CreateUser inserts a new user row. Duplicate emails map to ErrEmailTaken.
func (r *Repository) CreateUser(ctx context.Context, name, email, passwordHash string) (*User, error) {
	id := uuid.New()
	query := `
		INSERT INTO users (id, name, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.pool.QueryRow(ctx, query, id, name, email, passwordHash).Scan(&createdAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("auth: insert user: %w", err)
	}
	return &User{
		ID:           id.String(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    createdAt,
	}, nil
}

// GetUserByEmail fetches a user for credential checks.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, name, email, password_hash, email_verified, created_at
		FROM users
		WHERE email = $1
	`
	var u User
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.EmailVerified, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth: select user by email: %w", err)
	}
	return &u, nil
}

// GetUserByID fetches a user by id.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*User, error) {
	query := `
		SELECT id, name, email, password_hash, email_verified, created_at
		FROM users
		WHERE id = $1
	`
	var u User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.EmailVerified, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("auth: select user by id: %w", err)
	}
	return &u, nil
}

// CreateSession inserts a session row.
func (r *Repository) CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) (*Session, error) {
	query := `
		INSERT INTO sessions (token, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.pool.QueryRow(ctx, query, token, userID, expiresAt).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("auth: insert session: %w", err)
	}
	return &Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}, nil
}

// GetSession fetches a session by token. Expired sessions are not returned.
func (r *Repository) GetSession(ctx context.Context, token string) (*Session, error) {
	query := `
		SELECT token, user_id, COALESCE(active_org_id::text, ''), expires_at, created_at
		FROM sessions
		WHERE token = $1 AND expires_at > now()
	`
	var s Session
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&s.Token, &s.UserID, &s.ActiveOrgID, &s.ExpiresAt, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("auth: select session: %w", err)
	}
	return &s, nil
}

// DeleteSession removes a session row.
func (r *Repository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("auth: delete session: %w", err)
	}
	return nil
}

// SetActiveOrg updates the session's active organization.
func (r *Repository) SetActiveOrg(ctx context.Context, token, orgID string) error {
	ct, err := r.pool.Exec(ctx, `UPDATE sessions SET active_org_id = $2 WHERE token = $1`, token, orgID)
	if err != nil {
		return fmt.Errorf("auth: set active org: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteExpiredSessions clears stale rows. Intended for a periodic sweep.
func (r *Repository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	ct, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("auth: delete expired sessions: %w", err)
	}
	return ct.RowsAffected(), nil
}
