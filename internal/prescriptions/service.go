package prescriptions

import (
	"context"

	"github.com/praxishealth/praxis/internal/auth"
	"github.com/praxishealth/praxis/internal/organizations"
	"github.com/praxishealth/praxis/internal/patients"
	"github.com/praxishealth/praxis/pkg/logging"
)

// store is the persistence surface; *Repository implements it.
type store interface {
	Create(ctx context.Context, orgID, prescriberID string, req *CreatePrescriptionRequest) (*Prescription, error)
	Get(ctx context.Context, orgID, id string) (*Prescription, error)
	ListByPatient(ctx context.Context, orgID, patientID string) ([]*Prescription, error)
	Delete(ctx context.Context, orgID, id string) error
}

type patientSource interface {
	Get(ctx context.Context, orgID, patientID string) (*patients.Patient, error)
}

type orgSource interface {
	Get(ctx context.Context, orgID string) (*organizations.Organization, error)
}

type userDirectory interface {
	User(ctx context.Context, userID string) (*auth.User, error)
}

// Service issues prescriptions and assembles print documents.
type Service struct {
	store    store
	patients patientSource
	orgs     orgSource
	users    userDirectory
	logger   *logging.Logger
}

// NewService wires the prescription service.
func NewService(store store, patientsSrc patientSource, orgs orgSource, users userDirectory, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, patients: patientsSrc, orgs: orgs, users: users, logger: logger}
}

// Create issues a prescription after verifying the patient belongs to
// the org.
func (s *Service) Create(ctx context.Context, orgID, prescriberID string, req *CreatePrescriptionRequest) (*Prescription, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.patients.Get(ctx, orgID, req.PatientID); err != nil {
		return nil, err
	}
	p, err := s.store.Create(ctx, orgID, prescriberID, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("prescription issued",
		"org_id", orgID, "prescription_id", p.ID,
		"patient_id", p.PatientID, "medications", len(p.Medications))
	return p, nil
}

// Get fetches a prescription scoped to the org.
func (s *Service) Get(ctx context.Context, orgID, id string) (*Prescription, error) {
	return s.store.Get(ctx, orgID, id)
}

// ListByPatient returns a patient's prescriptions in the org.
func (s *Service) ListByPatient(ctx context.Context, orgID, patientID string) ([]*Prescription, error) {
	if _, err := s.patients.Get(ctx, orgID, patientID); err != nil {
		return nil, err
	}
	return s.store.ListByPatient(ctx, orgID, patientID)
}

// Delete removes a prescription.
func (s *Service) Delete(ctx context.Context, orgID, id string) error {
	return s.store.Delete(ctx, orgID, id)
}

// Print assembles the flattened document for the client print view:
// letterhead from org settings, patient identity, medication lines.
func (s *Service) Print(ctx context.Context, orgID, id string) (*PrintPayload, error) {
	p, err := s.store.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	org, err := s.orgs.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	patient, err := s.patients.Get(ctx, orgID, p.PatientID)
	if err != nil {
		return nil, err
	}

	payload := &PrintPayload{
		PracticeName:    org.Name,
		PracticeAddress: org.LetterheadAddress,
		PracticePhone:   org.LetterheadPhone,
		PatientName:     patient.FullName(),
		Medications:     p.Medications,
		Instructions:    p.Instructions,
		IssuedAt:        p.IssuedAt,
	}
	if patient.BirthDate != nil {
		payload.PatientBirth = patient.BirthDate.Format("2006-01-02")
	}
	if s.users != nil {
		if prescriber, err := s.users.User(ctx, p.PrescriberID); err == nil {
			payload.PrescriberName = prescriber.Name
		}
	}
	return payload, nil
}
