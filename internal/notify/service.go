package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/praxishealth/praxis/internal/events"
	"github.com/praxishealth/praxis/pkg/logging"
)

// Service turns outbox events into transactional emails. It sits behind the
// outbox deliverer as an events.DeliveryHandler; send failures are logged and
// never surfaced, so a bouncing address cannot wedge delivery for the org.
type Service struct {
	email   EmailSender
	baseURL string
	logger  *logging.Logger
}

// NewService creates a notification service. baseURL is the public address
// of the web app, used to build invitation accept links.
func NewService(email EmailSender, baseURL string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if email == nil {
		email = NewStubEmailSender(logger)
	}
	return &Service{
		email:   email,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Handle implements events.DeliveryHandler.
func (s *Service) Handle(ctx context.Context, entry events.OutboxEntry) error {
	switch entry.Type {
	case events.TypeInvitationCreated:
		var evt events.InvitationCreatedV1
		if err := json.Unmarshal(entry.Payload, &evt); err != nil {
			s.logger.Error("notify: bad invitation payload", "error", err, "outbox_id", entry.ID)
			return nil
		}
		s.send(ctx, s.invitationEmail(evt))
	case events.TypeAppointmentBooked:
		var evt events.AppointmentBookedV1
		if err := json.Unmarshal(entry.Payload, &evt); err != nil {
			s.logger.Error("notify: bad booking payload", "error", err, "outbox_id", entry.ID)
			return nil
		}
		if evt.PatientEmail == "" {
			return nil
		}
		s.send(ctx, s.confirmationEmail(evt))
	case events.TypeAppointmentCanceled:
		var evt events.AppointmentCanceledV1
		if err := json.Unmarshal(entry.Payload, &evt); err != nil {
			s.logger.Error("notify: bad cancellation payload", "error", err, "outbox_id", entry.ID)
			return nil
		}
		if evt.PatientEmail == "" {
			return nil
		}
		s.send(ctx, s.cancellationEmail(evt))
	}
	return nil
}

func (s *Service) send(ctx context.Context, msg EmailMessage) {
	if err := s.email.Send(ctx, msg); err != nil {
		s.logger.Error("notify: send failed", "error", err, "to", msg.To, "subject", msg.Subject)
	}
}

func (s *Service) invitationEmail(evt events.InvitationCreatedV1) EmailMessage {
	acceptURL := fmt.Sprintf("%s/invitations/%s/accept", s.baseURL, evt.Token)
	inviter := evt.InviterName
	if inviter == "" {
		inviter = "A colleague"
	}
	body := fmt.Sprintf(`%s invited you to join %s on Praxis as %s.

Accept the invitation here:
%s

This invitation expires %s.`,
		inviter, evt.OrgName, evt.Role, acceptURL,
		evt.ExpiresAt.Format("January 2, 2006 at 3:04 PM MST"))

	return EmailMessage{
		To:      evt.Email,
		Subject: fmt.Sprintf("You've been invited to join %s", evt.OrgName),
		Body:    body,
	}
}

func (s *Service) confirmationEmail(evt events.AppointmentBookedV1) EmailMessage {
	name := evt.PatientName
	if name == "" {
		name = "there"
	}
	what := evt.TypeName
	if what == "" {
		what = "Your appointment"
	}
	body := fmt.Sprintf(`Hi %s,

%s is confirmed for %s.

If you need to change or cancel, please contact your practice.`,
		name, what, evt.StartsAt.Format("Monday, January 2, 2006 at 3:04 PM MST"))

	return EmailMessage{
		To:      evt.PatientEmail,
		ToName:  evt.PatientName,
		Subject: "Appointment confirmed",
		Body:    body,
	}
}

func (s *Service) cancellationEmail(evt events.AppointmentCanceledV1) EmailMessage {
	body := fmt.Sprintf(`Your appointment on %s has been canceled.

If this is unexpected, please contact your practice to rebook.`,
		evt.StartsAt.Format("Monday, January 2, 2006 at 3:04 PM MST"))

	return EmailMessage{
		To:      evt.PatientEmail,
		Subject: "Appointment canceled",
		Body:    body,
	}
}
