package events

import "time"

// Event type names carried in the outbox `type` column.
const (
	TypeAppointmentBooked   = "appointment.booked.v1"
	TypeAppointmentCanceled = "appointment.canceled.v1"
	TypeInvitationCreated   = "invitation.created.v1"
	TypeSubscriptionChanged = "subscription.changed.v1"
)

type AppointmentBookedV1 struct {
	EventID       string    `json:"event_id"`
	OrgID         string    `json:"org_id"`
	AppointmentID string    `json:"appointment_id"`
	PatientID     string    `json:"patient_id"`
	PatientName   string    `json:"patient_name,omitempty"`
	PatientEmail  string    `json:"patient_email,omitempty"`
	TypeName      string    `json:"type_name,omitempty"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	BookedAt      time.Time `json:"booked_at"`
}

type AppointmentCanceledV1 struct {
	EventID       string    `json:"event_id"`
	OrgID         string    `json:"org_id"`
	AppointmentID string    `json:"appointment_id"`
	PatientID     string    `json:"patient_id"`
	PatientEmail  string    `json:"patient_email,omitempty"`
	StartsAt      time.Time `json:"starts_at"`
	CanceledAt    time.Time `json:"canceled_at"`
}

type InvitationCreatedV1 struct {
	EventID     string    `json:"event_id"`
	OrgID       string    `json:"org_id"`
	OrgName     string    `json:"org_name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	Token       string    `json:"token"`
	InviterName string    `json:"inviter_name,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type SubscriptionChangedV1 struct {
	EventID        string     `json:"event_id"`
	OrgID          string     `json:"org_id"`
	SubscriptionID string     `json:"subscription_id"`
	PlanID         string     `json:"plan_id,omitempty"`
	Status         string     `json:"status"`
	PeriodEnd      *time.Time `json:"period_end,omitempty"`
	OccurredAt     time.Time  `json:"occurred_at"`
}
