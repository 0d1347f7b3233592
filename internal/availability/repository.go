package availability

import (
	"context"
	"fmt"

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

// WindowStore persists weekly availability windows.
type WindowStore interface {
	ReplaceSchedule(ctx context.Context, orgID string, windows []DayWindow) error
	GetWindows(ctx context.Context, orgID string) ([]DayWindow, error)
}

// Repository is the pgx-backed WindowStore.
type Repository struct {
	pool querier
}

// NewRepository creates a repository backed by pgx.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("availability: pgx pool required")
	}
	return &Repository{pool: pool}
}

func newRepositoryWithExec(exec querier) *Repository {
	if exec == nil {
		panic("availability: exec required")
	}
	return &Repository{pool: exec}
}

// ReplaceSchedule swaps the org's whole weekly schedule in one
// transaction so readers never see a half-written week.
func (r *Repository) ReplaceSchedule(ctx context.Context, orgID string, windows []DayWindow) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("availability: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM availability_windows WHERE org_id = $1`, orgID); err != nil {
		return fmt.Errorf("availability: clear schedule: %w", err)
	}
	for _, w := range windows {
		if _, err := tx.Exec(ctx, `
			INSERT INTO availability_windows (org_id, weekday, open_minute, close_minute)
			VALUES ($1, $2, $3, $4)
		`, orgID, w.Weekday, w.OpenMinute, w.CloseMinute); err != nil {
			return fmt.Errorf("availability: insert window: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("availability: commit: %w", err)
	}
	return nil
}

// GetWindows returns the org's stored schedule ordered by weekday.
func (r *Repository) GetWindows(ctx context.Context, orgID string) ([]DayWindow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT weekday, open_minute, close_minute
		FROM availability_windows
		WHERE org_id = $1
		ORDER BY weekday
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("availability: select windows: %w", err)
	}
	defer rows.Close()

	var out []DayWindow
	for rows.Next() {
		var w DayWindow
		if err := rows.Scan(&w.Weekday, &w.OpenMinute, &w.CloseMinute); err != nil {
			return nil, fmt.Errorf("availability: scan window: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
