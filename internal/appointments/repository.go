package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/praxishealth/praxis/internal/availability"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store is the persistence surface for appointments.
type Store interface {
	Insert(ctx context.Context, appt *Appointment) (*Appointment, error)
	Get(ctx context.Context, orgID, apptID string) (*Appointment, error)
	List(ctx context.Context, orgID string, params ListParams) ([]*Appointment, error)
	UpdateStatus(ctx context.Context, orgID, apptID, status string) (*Appointment, error)
	Move(ctx context.Context, orgID, apptID string, startsAt, endsAt time.Time) (*Appointment, error)
	Delete(ctx context.Context, orgID, apptID string) error
	BusyIntervals(ctx context.Context, orgID string, from, to time.Time) ([]availability.Interval, error)
}

// Repository is the pgx-backed Store. The overlap check and insert run
// in one transaction with the conflicting rows locked, so two
// concurrent bookings of the same slot serialize and one loses.
type Repository struct {
	pool querier
}

// NewRepository creates a repository backed by pgx.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &Repository{pool: pool}
}

func newRepositoryWithExec(exec querier) *Repository {
	if exec == nil {
		panic("appointments: exec required")
	}
	return &Repository{pool: exec}
}

const apptColumns = `id, org_id, patient_id, type_id, starts_at, ends_at, status, notes, created_at, updated_at`

// Insert books the appointment, failing with ErrSlotConflict when it
// overlaps a non-canceled appointment.
func (r *Repository) Insert(ctx context.Context, appt *Appointment) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointments: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var conflicts int
	err = tx.QueryRow(ctx, `
		SELECT count(*) FROM (
			SELECT id FROM appointments
			WHERE org_id = $1 AND status <> 'canceled'
			  AND starts_at < $3 AND ends_at > $2
			FOR UPDATE
		) blocking
	`, appt.OrgID, appt.StartsAt, appt.EndsAt).Scan(&conflicts)
	if err != nil {
		return nil, fmt.Errorf("appointments: overlap check: %w", err)
	}
	if conflicts > 0 {
		return nil, ErrSlotConflict
	}

	id := uuid.New()
	var createdAt, updatedAt time.Time
	err = tx.QueryRow(ctx, `
		INSERT INTO appointments (id, org_id, patient_id, type_id, starts_at, ends_at, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, id, appt.OrgID, appt.PatientID, appt.TypeID, appt.StartsAt, appt.EndsAt, appt.Status, appt.Notes).
		Scan(&createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("appointments: insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("appointments: commit: %w", err)
	}

	booked := *appt
	booked.ID = id.String()
	booked.CreatedAt = createdAt
	booked.UpdatedAt = updatedAt
	return &booked, nil
}

// Get fetches an appointment scoped to the org.
func (r *Repository) Get(ctx context.Context, orgID, apptID string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+apptColumns+` FROM appointments WHERE id = $1 AND org_id = $2
	`, apptID, orgID)
	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointments: select: %w", err)
	}
	return a, nil
}

// List returns org appointments in [From, To), optionally filtered by
// patient, ordered by start time.
func (r *Repository) List(ctx context.Context, orgID string, params ListParams) ([]*Appointment, error) {
	query := `SELECT ` + apptColumns + ` FROM appointments WHERE org_id = $1 AND starts_at >= $2 AND starts_at < $3`
	args := []any{orgID, params.From, params.To}
	if params.PatientID != "" {
		query += ` AND patient_id = $4`
		args = append(args, params.PatientID)
	}
	query += ` ORDER BY starts_at`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateStatus transitions an appointment's status.
func (r *Repository) UpdateStatus(ctx context.Context, orgID, apptID, status string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments SET status = $3, updated_at = now()
		WHERE id = $1 AND org_id = $2
		RETURNING `+apptColumns+`
	`, apptID, orgID, status)
	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointments: update status: %w", err)
	}
	return a, nil
}

// Move reschedules an appointment, re-running the overlap check against
// everything except the appointment itself.
func (r *Repository) Move(ctx context.Context, orgID, apptID string, startsAt, endsAt time.Time) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointments: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var conflicts int
	err = tx.QueryRow(ctx, `
		SELECT count(*) FROM (
			SELECT id FROM appointments
			WHERE org_id = $1 AND id <> $2 AND status <> 'canceled'
			  AND starts_at < $4 AND ends_at > $3
			FOR UPDATE
		) blocking
	`, orgID, apptID, startsAt, endsAt).Scan(&conflicts)
	if err != nil {
		return nil, fmt.Errorf("appointments: overlap check: %w", err)
	}
	if conflicts > 0 {
		return nil, ErrSlotConflict
	}

	row := tx.QueryRow(ctx, `
		UPDATE appointments SET starts_at = $3, ends_at = $4, updated_at = now()
		WHERE id = $2 AND org_id = $1
		RETURNING `+apptColumns+`
	`, orgID, apptID, startsAt, endsAt)
	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointments: move: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("appointments: commit: %w", err)
	}
	return a, nil
}

// Delete removes an appointment outright.
func (r *Repository) Delete(ctx context.Context, orgID, apptID string) error {
	ct, err := r.pool.Exec(ctx, `
		DELETE FROM appointments WHERE id = $1 AND org_id = $2
	`, apptID, orgID)
	if err != nil {
		return fmt.Errorf("appointments: delete: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

// BusyIntervals lists non-canceled appointment times intersecting
// [from, to), feeding the slot computation.
func (r *Repository) BusyIntervals(ctx context.Context, orgID string, from, to time.Time) ([]availability.Interval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT starts_at, ends_at FROM appointments
		WHERE org_id = $1 AND status <> 'canceled'
		  AND starts_at < $3 AND ends_at > $2
		ORDER BY starts_at
	`, orgID, from, to)
	if err != nil {
		return nil, fmt.Errorf("appointments: busy intervals: %w", err)
	}
	defer rows.Close()

	var out []availability.Interval
	for rows.Next() {
		var iv availability.Interval
		if err := rows.Scan(&iv.StartsAt, &iv.EndsAt); err != nil {
			return nil, fmt.Errorf("appointments: scan interval: %w", err)
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID, &a.OrgID, &a.PatientID, &a.TypeID, &a.StartsAt, &a.EndsAt,
		&a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
