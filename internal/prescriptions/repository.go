package prescriptions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Repository persists prescriptions over database/sql with lib/pq.
// Medications are normalized into parallel text[] columns.
type Repository struct {
	db *sql.DB
}

// NewRepository creates the prescription repository.
func NewRepository(db *sql.DB) *Repository {
	if db == nil {
		panic("prescriptions: db required")
	}
	return &Repository{db: db}
}

// Create issues a prescription. The caller has already verified the
// patient belongs to the org.
func (r *Repository) Create(ctx context.Context, orgID, prescriberID string, req *CreatePrescriptionRequest) (*Prescription, error) {
	id := uuid.New()

	names := make([]string, len(req.Medications))
	dosages := make([]string, len(req.Medications))
	frequencies := make([]string, len(req.Medications))
	durations := make([]string, len(req.Medications))
	for i, m := range req.Medications {
		names[i] = m.Name
		dosages[i] = m.Dosage
		frequencies[i] = m.Frequency
		durations[i] = m.Duration
	}

	var apptID any
	if req.AppointmentID != "" {
		apptID = req.AppointmentID
	}

	var issuedAt time.Time
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO prescriptions (id, org_id, patient_id, appointment_id, prescriber_id,
			medication_names, medication_dosages, medication_frequencies, medication_durations, instructions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING issued_at
	`, id, orgID, req.PatientID, apptID, prescriberID,
		pq.Array(names), pq.Array(dosages), pq.Array(frequencies), pq.Array(durations), req.Instructions).
		Scan(&issuedAt)
	if err != nil {
		return nil, fmt.Errorf("prescriptions: insert: %w", err)
	}

	return &Prescription{
		ID:            id.String(),
		OrgID:         orgID,
		PatientID:     req.PatientID,
		AppointmentID: req.AppointmentID,
		PrescriberID:  prescriberID,
		Medications:   req.Medications,
		Instructions:  req.Instructions,
		IssuedAt:      issuedAt,
	}, nil
}

const prescriptionColumns = `id, org_id, patient_id, appointment_id, prescriber_id,
	medication_names, medication_dosages, medication_frequencies, medication_durations,
	instructions, issued_at`

// Get fetches a prescription scoped to the org.
func (r *Repository) Get(ctx context.Context, orgID, id string) (*Prescription, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+prescriptionColumns+` FROM prescriptions WHERE id = $1 AND org_id = $2
	`, id, orgID)
	p, err := scanPrescription(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPrescriptionNotFound
		}
		return nil, fmt.Errorf("prescriptions: select: %w", err)
	}
	return p, nil
}

// ListByPatient returns a patient's prescriptions in the org, newest first.
func (r *Repository) ListByPatient(ctx context.Context, orgID, patientID string) ([]*Prescription, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+prescriptionColumns+` FROM prescriptions
		WHERE org_id = $1 AND patient_id = $2
		ORDER BY issued_at DESC
	`, orgID, patientID)
	if err != nil {
		return nil, fmt.Errorf("prescriptions: list: %w", err)
	}
	defer rows.Close()

	var out []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, fmt.Errorf("prescriptions: scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete removes a prescription scoped to the org.
func (r *Repository) Delete(ctx context.Context, orgID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM prescriptions WHERE id = $1 AND org_id = $2
	`, id, orgID)
	if err != nil {
		return fmt.Errorf("prescriptions: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("prescriptions: delete: %w", err)
	}
	if n == 0 {
		return ErrPrescriptionNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrescription(row rowScanner) (*Prescription, error) {
	var p Prescription
	var apptID sql.NullString
	var names, dosages, frequencies, durations []string
	err := row.Scan(
		&p.ID, &p.OrgID, &p.PatientID, &apptID, &p.PrescriberID,
		pq.Array(&names), pq.Array(&dosages), pq.Array(&frequencies), pq.Array(&durations),
		&p.Instructions, &p.IssuedAt,
	)
	if err != nil {
		return nil, err
	}
	if apptID.Valid {
		p.AppointmentID = apptID.String
	}

	p.Medications = make([]Medication, len(names))
	for i, name := range names {
		m := Medication{Name: name}
		if i < len(dosages) {
			m.Dosage = dosages[i]
		}
		if i < len(frequencies) {
			m.Frequency = frequencies[i]
		}
		if i < len(durations) {
			m.Duration = durations[i]
		}
		p.Medications[i] = m
	}
	return &p, nil
}
