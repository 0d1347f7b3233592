package appointmenttypes

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
}

// Store is the persistence surface for appointment types.
type Store interface {
	Create(ctx context.Context, orgID string, req *CreateTypeRequest) (*AppointmentType, error)
	Get(ctx context.Context, orgID, typeID string) (*AppointmentType, error)
	Update(ctx context.Context, orgID, typeID string, req *UpdateTypeRequest) (*AppointmentType, error)
	Delete(ctx context.Context, orgID, typeID string, now time.Time) error
	List(ctx context.Context, orgID string) ([]*AppointmentType, error)
}

// Repository is the pgx-backed Store.
type Repository struct {
	pool querier
}

// NewRepository creates a repository backed by pgx.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("appointmenttypes: pgx pool required")
	}
	return &Repository{pool: pool}
}

func newRepositoryWithExec(exec querier) *Repository {
	if exec == nil {
		panic("appointmenttypes: exec required")
	}
	return &Repository{pool: exec}
}

// Create inserts a new appointment type.
func (r *Repository) Create(ctx context.Context, orgID string, req *CreateTypeRequest) (*AppointmentType, error) {
	id := uuid.New()
	var createdAt time.Time
	err := r.pool.QueryRow(ctx, `
		INSERT INTO appointment_types (id, org_id, name, duration_minutes, price_cents, requires_payment, color)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, id, orgID, req.Name, req.DurationMinutes, req.PriceCents, req.RequiresPayment, req.Color).Scan(&createdAt)
	if err != nil {
		return nil, fmt.Errorf("appointmenttypes: insert type: %w", err)
	}
	return &AppointmentType{
		ID:              id.String(),
		OrgID:           orgID,
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		PriceCents:      req.PriceCents,
		RequiresPayment: req.RequiresPayment,
		Color:           req.Color,
		CreatedAt:       createdAt,
	}, nil
}

// Get fetches a type owned by the org.
func (r *Repository) Get(ctx context.Context, orgID, typeID string) (*AppointmentType, error) {
	var t AppointmentType
	err := r.pool.QueryRow(ctx, `
		SELECT id, org_id, name, duration_minutes, price_cents, requires_payment, color, created_at
		FROM appointment_types
		WHERE id = $1 AND org_id = $2
	`, typeID, orgID).Scan(
		&t.ID, &t.OrgID, &t.Name, &t.DurationMinutes, &t.PriceCents,
		&t.RequiresPayment, &t.Color, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTypeNotFound
		}
		return nil, fmt.Errorf("appointmenttypes: select type: %w", err)
	}
	return &t, nil
}

// Update applies non-nil fields of req.
func (r *Repository) Update(ctx context.Context, orgID, typeID string, req *UpdateTypeRequest) (*AppointmentType, error) {
	t, err := r.Get(ctx, orgID, typeID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.DurationMinutes != nil {
		t.DurationMinutes = *req.DurationMinutes
	}
	if req.PriceCents != nil {
		t.PriceCents = *req.PriceCents
	}
	if req.RequiresPayment != nil {
		t.RequiresPayment = *req.RequiresPayment
	}
	if req.Color != nil {
		t.Color = *req.Color
	}

	ct, err := r.pool.Exec(ctx, `
		UPDATE appointment_types
		SET name = $3, duration_minutes = $4, price_cents = $5, requires_payment = $6, color = $7
		WHERE id = $1 AND org_id = $2
	`, typeID, orgID, t.Name, t.DurationMinutes, t.PriceCents, t.RequiresPayment, t.Color)
	if err != nil {
		return nil, fmt.Errorf("appointmenttypes: update type: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, ErrTypeNotFound
	}
	return t, nil
}

// Delete removes a type unless future appointments still reference it.
func (r *Repository) Delete(ctx context.Context, orgID, typeID string, now time.Time) error {
	var futureCount int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM appointments
		WHERE type_id = $1 AND org_id = $2 AND starts_at > $3 AND status <> 'canceled'
	`, typeID, orgID, now).Scan(&futureCount)
	if err != nil {
		return fmt.Errorf("appointmenttypes: future appointment check: %w", err)
	}
	if futureCount > 0 {
		return ErrTypeInUse
	}

	ct, err := r.pool.Exec(ctx, `
		DELETE FROM appointment_types WHERE id = $1 AND org_id = $2
	`, typeID, orgID)
	if err != nil {
		return fmt.Errorf("appointmenttypes: delete type: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrTypeNotFound
	}
	return nil
}

// List returns the org's types, oldest first.
func (r *Repository) List(ctx context.Context, orgID string) ([]*AppointmentType, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, org_id, name, duration_minutes, price_cents, requires_payment, color, created_at
		FROM appointment_types
		WHERE org_id = $1
		ORDER BY created_at
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("appointmenttypes: list types: %w", err)
	}
	defer rows.Close()

	var out []*AppointmentType
	for rows.Next() {
		var t AppointmentType
		if err := rows.Scan(
			&t.ID, &t.OrgID, &t.Name, &t.DurationMinutes, &t.PriceCents,
			&t.RequiresPayment, &t.Color, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("appointmenttypes: scan type: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}
