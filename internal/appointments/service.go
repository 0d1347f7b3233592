package appointments

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/praxishealth/praxis/internal/appointmenttypes"
	"github.com/praxishealth/praxis/internal/events"
	"github.com/praxishealth/praxis/internal/patients"
	"github.com/praxishealth/praxis/pkg/logging"
)

// patientSource verifies the patient is linked to the booking org and
// supplies contact details for notifications.
type patientSource interface {
	Get(ctx context.Context, orgID, patientID string) (*patients.Patient, error)
}

// typeSource verifies type ownership and supplies the visit duration.
type typeSource interface {
	Get(ctx context.Context, orgID, typeID string) (*appointmenttypes.AppointmentType, error)
}

// outboxWriter records domain events for async delivery.
type outboxWriter interface {
	Insert(ctx context.Context, orgID string, eventType string, payload any) (uuid.UUID, error)
}

// bookedCounter is bumped per successful booking when set.
type bookedCounter interface{ Inc() }

// Service implements booking on top of a Store.
type Service struct {
	store    Store
	patients patientSource
	types    typeSource
	outbox   outboxWriter
	logger   *logging.Logger
	now      func() time.Time

	// Booked is incremented once per successful booking when set.
	Booked bookedCounter
}

// NewService wires the appointment service. outbox may be nil.
func NewService(store Store, patientsSrc patientSource, typesSrc typeSource, outbox outboxWriter, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:    store,
		patients: patientsSrc,
		types:    typesSrc,
		outbox:   outbox,
		logger:   logger,
		now:      time.Now,
	}
}

// Book validates patient linkage and type ownership, derives the end
// time from the type's duration, and inserts with the overlap guard.
func (s *Service) Book(ctx context.Context, orgID string, req *BookRequest) (*Appointment, error) {
	if err := req.Validate(s.now()); err != nil {
		return nil, err
	}

	patient, err := s.patients.Get(ctx, orgID, req.PatientID)
	if err != nil {
		return nil, err
	}
	apptType, err := s.types.Get(ctx, orgID, req.TypeID)
	if err != nil {
		return nil, err
	}

	appt := &Appointment{
		OrgID:     orgID,
		PatientID: patient.ID,
		TypeID:    apptType.ID,
		StartsAt:  req.StartsAt.UTC(),
		EndsAt:    req.StartsAt.UTC().Add(time.Duration(apptType.DurationMinutes) * time.Minute),
		Status:    StatusScheduled,
		Notes:     req.Notes,
	}
	booked, err := s.store.Insert(ctx, appt)
	if err != nil {
		return nil, err
	}

	if s.Booked != nil {
		s.Booked.Inc()
	}
	s.emit(ctx, orgID, events.TypeAppointmentBooked, events.AppointmentBookedV1{
		EventID:       booked.ID,
		OrgID:         orgID,
		AppointmentID: booked.ID,
		PatientID:     patient.ID,
		PatientName:   patient.FullName(),
		PatientEmail:  patient.Email,
		TypeName:      apptType.Name,
		StartsAt:      booked.StartsAt,
		EndsAt:        booked.EndsAt,
		BookedAt:      booked.CreatedAt,
	})
	s.logger.Info("appointment booked",
		"org_id", orgID, "appointment_id", booked.ID,
		"patient_id", patient.ID, "starts_at", booked.StartsAt)
	return booked, nil
}

// Get fetches an appointment scoped to the org.
func (s *Service) Get(ctx context.Context, orgID, apptID string) (*Appointment, error) {
	return s.store.Get(ctx, orgID, apptID)
}

// List returns org appointments in the requested range. A zero range
// defaults to the coming week.
func (s *Service) List(ctx context.Context, orgID string, params ListParams) ([]*Appointment, error) {
	if params.From.IsZero() {
		params.From = s.now().Truncate(24 * time.Hour)
	}
	if params.To.IsZero() || !params.To.After(params.From) {
		params.To = params.From.AddDate(0, 0, 7)
	}
	return s.store.List(ctx, orgID, params)
}

// UpdateStatus transitions an appointment. Canceling frees the slot and
// emits a cancellation event.
func (s *Service) UpdateStatus(ctx context.Context, orgID, apptID, status string) (*Appointment, error) {
	if !validStatus(status) {
		return nil, ErrBadStatus
	}
	before, err := s.store.Get(ctx, orgID, apptID)
	if err != nil {
		return nil, err
	}

	appt, err := s.store.UpdateStatus(ctx, orgID, apptID, status)
	if err != nil {
		return nil, err
	}

	if status == StatusCanceled && before.Status != StatusCanceled {
		payload := events.AppointmentCanceledV1{
			EventID:       appt.ID + ":canceled",
			OrgID:         orgID,
			AppointmentID: appt.ID,
			PatientID:     appt.PatientID,
			StartsAt:      appt.StartsAt,
			CanceledAt:    s.now().UTC(),
		}
		if patient, err := s.patients.Get(ctx, orgID, appt.PatientID); err == nil {
			payload.PatientEmail = patient.Email
		}
		s.emit(ctx, orgID, events.TypeAppointmentCanceled, payload)
		s.logger.Info("appointment canceled", "org_id", orgID, "appointment_id", appt.ID)
	}
	return appt, nil
}

// Reschedule moves an appointment, keeping its duration.
func (s *Service) Reschedule(ctx context.Context, orgID, apptID string, startsAt time.Time) (*Appointment, error) {
	if startsAt.Before(s.now()) {
		return nil, ErrPastStart
	}
	current, err := s.store.Get(ctx, orgID, apptID)
	if err != nil {
		return nil, err
	}
	duration := current.EndsAt.Sub(current.StartsAt)
	return s.store.Move(ctx, orgID, apptID, startsAt.UTC(), startsAt.UTC().Add(duration))
}

// Delete removes an appointment record entirely.
func (s *Service) Delete(ctx context.Context, orgID, apptID string) error {
	return s.store.Delete(ctx, orgID, apptID)
}

func (s *Service) emit(ctx context.Context, orgID, eventType string, payload any) {
	if s.outbox == nil {
		return
	}
	if _, err := s.outbox.Insert(ctx, orgID, eventType, payload); err != nil {
		s.logger.Error("event enqueue failed", "org_id", orgID, "type", eventType, "error", err)
	}
}
