// Package compliance keeps the audit trail over patient data access.
package compliance

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/praxishealth/praxis/pkg/logging"
)

// AuditAction identifies what happened to a protected resource.
type AuditAction string

const (
	ActionPatientCreated      AuditAction = "patient.created"
	ActionPatientViewed       AuditAction = "patient.viewed"
	ActionPatientUpdated      AuditAction = "patient.updated"
	ActionPatientDeleted      AuditAction = "patient.deleted"
	ActionPrescriptionIssued  AuditAction = "prescription.issued"
	ActionPrescriptionViewed  AuditAction = "prescription.viewed"
	ActionPrescriptionPrinted AuditAction = "prescription.printed"
	ActionPrescriptionDeleted AuditAction = "prescription.deleted"
)

// AuditEvent is one immutable access record. Events are only ever
// inserted, never updated or removed.
type AuditEvent struct {
	ID         string          `json:"id"`
	OrgID      string          `json:"org_id"`
	UserID     string          `json:"user_id"`
	Action     AuditAction     `json:"action"`
	ResourceID string          `json:"resource_id,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// AuditFilter narrows an audit query. OrgID is required.
type AuditFilter struct {
	OrgID  string
	UserID string
	Action AuditAction
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// Trail persists the audit log over database/sql.
type Trail struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewTrail creates the audit trail store.
func NewTrail(db *sql.DB, logger *logging.Logger) *Trail {
	if logger == nil {
		logger = logging.Default()
	}
	return &Trail{db: db, logger: logger}
}

// Record inserts one audit event. ID and timestamp are filled when absent.
func (t *Trail) Record(ctx context.Context, event AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO audit_events (id, org_id, user_id, action, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := t.db.ExecContext(ctx, query,
		event.ID,
		event.OrgID,
		event.UserID,
		event.Action,
		nullString(event.ResourceID),
		event.Details,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("compliance: record audit event: %w", err)
	}
	return nil
}

// Query retrieves audit events for one org, newest first.
func (t *Trail) Query(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	query := `
		SELECT id, org_id, user_id, action, resource_id, details, created_at
		FROM audit_events
		WHERE org_id = $1`
	args := []any{filter.OrgID}
	argIdx := 2

	if filter.UserID != "" {
		query += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, filter.UserID)
		argIdx++
	}
	if filter.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, filter.Action)
		argIdx++
	}
	if !filter.From.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.From)
		argIdx++
	}
	if !filter.To.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, filter.To)
		argIdx++
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("compliance: query audit events: %w", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var e AuditEvent
		var resourceID sql.NullString
		if err := rows.Scan(&e.ID, &e.OrgID, &e.UserID, &e.Action, &resourceID, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("compliance: scan audit event: %w", err)
		}
		e.ResourceID = resourceID.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("compliance: iterate audit events: %w", err)
	}
	return events, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
