package prescriptions

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrPrescriptionNotFound = errors.New("prescriptions: prescription not found")
)

// Medication is one prescribed line item.
type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	Duration  string `json:"duration"`
}

// Prescription is an issued set of medications for a patient.
type Prescription struct {
	ID            string       `json:"id"`
	OrgID         string       `json:"org_id"`
	PatientID     string       `json:"patient_id"`
	AppointmentID string       `json:"appointment_id,omitempty"`
	PrescriberID  string       `json:"prescriber_id"`
	Medications   []Medication `json:"medications"`
	Instructions  string       `json:"instructions,omitempty"`
	IssuedAt      time.Time    `json:"issued_at"`
}

// CreatePrescriptionRequest is the payload for issuing a prescription.
type CreatePrescriptionRequest struct {
	PatientID     string       `json:"patient_id"`
	AppointmentID string       `json:"appointment_id"`
	Medications   []Medication `json:"medications"`
	Instructions  string       `json:"instructions"`
}

// Validate checks required fields.
func (r *CreatePrescriptionRequest) Validate() error {
	if r.PatientID == "" {
		return errors.New("prescriptions: patient_id is required")
	}
	if len(r.Medications) == 0 {
		return errors.New("prescriptions: at least one medication is required")
	}
	for i, m := range r.Medications {
		if strings.TrimSpace(m.Name) == "" {
			return errors.New("prescriptions: medication name is required")
		}
		r.Medications[i].Name = strings.TrimSpace(m.Name)
	}
	return nil
}

// PrintPayload is the flattened document rendered by the client print
// view: practice letterhead, patient identity, and medication lines.
type PrintPayload struct {
	PracticeName    string       `json:"practice_name"`
	PracticeAddress string       `json:"practice_address,omitempty"`
	PracticePhone   string       `json:"practice_phone,omitempty"`
	PatientName     string       `json:"patient_name"`
	PatientBirth    string       `json:"patient_birth_date,omitempty"`
	PrescriberName  string       `json:"prescriber_name"`
	Medications     []Medication `json:"medications"`
	Instructions    string       `json:"instructions,omitempty"`
	IssuedAt        time.Time    `json:"issued_at"`
}
