package patients

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

// Store is the persistence surface for patient records.
type Store interface {
	Create(ctx context.Context, orgID string, req *CreatePatientRequest) (*Patient, error)
	Get(ctx context.Context, orgID, patientID string) (*Patient, error)
	Update(ctx context.Context, orgID, patientID string, req *UpdatePatientRequest) (*Patient, error)
	Delete(ctx context.Context, orgID, patientID string) error
	List(ctx context.Context, orgID string, params ListParams) ([]*Patient, error)
}

// Repository is the pgx-backed Store.
type Repository struct {
	pool querier
}

// NewRepository creates a repository backed by pgx.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("patients: pgx pool required")
	}
	return &Repository{pool: pool}
}

func newRepositoryWithExec(exec querier) *Repository {
	if exec == nil {
		panic("patients: exec required")
	}
	return &Repository{pool: exec}
}

// Create inserts the patient and its org link in one transaction so a
// patient row never exists without a tenant.
func (r *Repository) Create(ctx context.Context, orgID string, req *CreatePatientRequest) (*Patient, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("patients: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id := uuid.New()
	var createdAt, updatedAt time.Time
	err = tx.QueryRow(ctx, `
		INSERT INTO patients (id, first_name, last_name, email, phone, birth_date, sex, address, allergies, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`, id, req.FirstName, req.LastName, req.Email, req.Phone, req.BirthDate, req.Sex, req.Address, req.Allergies, req.Notes).
		Scan(&createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("patients: insert patient: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO patient_organizations (patient_id, org_id)
		VALUES ($1, $2)
	`, id, orgID); err != nil {
		return nil, fmt.Errorf("patients: link org: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("patients: commit: %w", err)
	}

	return &Patient{
		ID:        id.String(),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		BirthDate: req.BirthDate,
		Sex:       req.Sex,
		Address:   req.Address,
		Allergies: req.Allergies,
		Notes:     req.Notes,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

const patientColumns = `p.id, p.first_name, p.last_name, p.email, p.phone, p.birth_date,
       p.sex, p.address, p.allergies, p.notes, p.created_at, p.updated_at`

// Get fetches a patient linked to the org, or ErrPatientNotFound.
func (r *Repository) Get(ctx context.Context, orgID, patientID string) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+patientColumns+`
		FROM patients p
		JOIN patient_organizations po ON po.patient_id = p.id
		WHERE p.id = $1 AND po.org_id = $2
	`, patientID, orgID)

	p, err := scanPatient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("patients: select patient: %w", err)
	}
	return p, nil
}

// Update applies non-nil fields of req to a patient linked to the org.
func (r *Repository) Update(ctx context.Context, orgID, patientID string, req *UpdatePatientRequest) (*Patient, error) {
	p, err := r.Get(ctx, orgID, patientID)
	if err != nil {
		return nil, err
	}
	if req.FirstName != nil {
		p.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		p.LastName = *req.LastName
	}
	if req.Email != nil {
		p.Email = *req.Email
	}
	if req.Phone != nil {
		p.Phone = *req.Phone
	}
	if req.BirthDate != nil {
		p.BirthDate = req.BirthDate
	}
	if req.Sex != nil {
		p.Sex = *req.Sex
	}
	if req.Address != nil {
		p.Address = *req.Address
	}
	if req.Allergies != nil {
		p.Allergies = *req.Allergies
	}
	if req.Notes != nil {
		p.Notes = *req.Notes
	}

	ct, err := r.pool.Exec(ctx, `
		UPDATE patients
		SET first_name = $2, last_name = $3, email = $4, phone = $5, birth_date = $6,
		    sex = $7, address = $8, allergies = $9, notes = $10, updated_at = now()
		WHERE id = $1
	`, patientID, p.FirstName, p.LastName, p.Email, p.Phone, p.BirthDate, p.Sex, p.Address, p.Allergies, p.Notes)
	if err != nil {
		return nil, fmt.Errorf("patients: update patient: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, ErrPatientNotFound
	}
	return p, nil
}

// Delete removes a patient linked to the org. Appointments and
// prescriptions go with it via FK cascades.
func (r *Repository) Delete(ctx context.Context, orgID, patientID string) error {
	ct, err := r.pool.Exec(ctx, `
		DELETE FROM patients p
		USING patient_organizations po
		WHERE p.id = po.patient_id AND p.id = $1 AND po.org_id = $2
	`, patientID, orgID)
	if err != nil {
		return fmt.Errorf("patients: delete patient: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

// List returns the org's patients, newest first, with optional name search.
func (r *Repository) List(ctx context.Context, orgID string, params ListParams) ([]*Patient, error) {
	params.Normalize()

	query := `
		SELECT ` + patientColumns + `
		FROM patients p
		JOIN patient_organizations po ON po.patient_id = p.id
		WHERE po.org_id = $1`
	args := []any{orgID}
	if params.Search != "" {
		query += ` AND (p.first_name ILIKE $2 OR p.last_name ILIKE $2)`
		args = append(args, "%"+params.Search+"%")
	}
	query += fmt.Sprintf(` ORDER BY p.created_at DESC LIMIT %d OFFSET %d`, params.Limit, params.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("patients: list patients: %w", err)
	}
	defer rows.Close()

	var out []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("patients: scan patient: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.BirthDate,
		&p.Sex, &p.Address, &p.Allergies, &p.Notes, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
