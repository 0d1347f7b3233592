package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/praxishealth/praxis/internal/appointments"
	"github.com/praxishealth/praxis/internal/appointmenttypes"
	"github.com/praxishealth/praxis/internal/auth"
	"github.com/praxishealth/praxis/internal/availability"
	"github.com/praxishealth/praxis/internal/billing"
	"github.com/praxishealth/praxis/internal/compliance"
	httpmiddleware "github.com/praxishealth/praxis/internal/http/middleware"
	"github.com/praxishealth/praxis/internal/organizations"
	"github.com/praxishealth/praxis/internal/patients"
	"github.com/praxishealth/praxis/internal/prescriptions"
	"github.com/praxishealth/praxis/internal/realtime"
	"github.com/praxishealth/praxis/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger *logging.Logger

	AuthHandler         *auth.Handler
	Identities          httpmiddleware.IdentityResolver
	Members             httpmiddleware.RoleSource
	OrgHandler          *organizations.Handler
	PatientHandler      *patients.Handler
	TypeHandler         *appointmenttypes.Handler
	AvailabilityHandler *availability.Handler
	AppointmentHandler  *appointments.Handler
	PrescriptionHandler *prescriptions.Handler
	BillingHandler      *billing.Handler
	AuditHandler        *compliance.Handler
	AuditRecorder       compliance.Recorder
	StripeWebhook       *billing.WebhookHandler
	StreamHandler       *realtime.Handler
	MetricsHandler      http.Handler
	RequestObserver     httpmiddleware.RequestObserver
	SessionCookieName   string
	AdminAuthSecret     string
	CORSAllowedOrigins  []string
	AuthRatePerSecond   float64
	AuthRateBurst       int
}

// New creates the chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RequestObserver != nil {
		r.Use(httpmiddleware.Metrics(cfg.RequestObserver))
	}

	authRate := cfg.AuthRatePerSecond
	if authRate <= 0 {
		authRate = 2
	}
	authBurst := cfg.AuthRateBurst
	if authBurst <= 0 {
		authBurst = 10
	}

	// Public endpoints.
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		public.Route("/auth", func(ar chi.Router) {
			ar.With(httpmiddleware.RateLimit(authRate, authBurst)).Post("/sign-up", cfg.AuthHandler.SignUp)
			ar.With(httpmiddleware.RateLimit(authRate, authBurst)).Post("/sign-in", cfg.AuthHandler.SignIn)
			ar.Post("/sign-out", cfg.AuthHandler.SignOut)
		})
		if cfg.StripeWebhook != nil {
			public.Post("/webhooks/stripe/{orgID}", cfg.StripeWebhook.Handle)
		}
	})

	// Authenticated endpoints.
	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.SessionAuth(cfg.Identities, cfg.SessionCookieName))

		private.Get("/auth/me", cfg.AuthHandler.Me)
		private.Post("/auth/active-org", cfg.AuthHandler.SetActiveOrg)

		private.Post("/orgs", cfg.OrgHandler.Create)
		private.Get("/orgs", cfg.OrgHandler.List)
		private.Post("/invitations/{inviteID}/accept", cfg.OrgHandler.AcceptInvitation)

		if cfg.BillingHandler != nil {
			private.Get("/billing/plans", cfg.BillingHandler.ListPlans)
		}

		private.Route("/orgs/{orgID}", func(org chi.Router) {
			org.Use(httpmiddleware.OrgScope(cfg.Members))
			if cfg.AuditRecorder != nil {
				org.Use(compliance.Middleware(cfg.AuditRecorder, cfg.Logger))
			}

			org.Get("/", cfg.OrgHandler.Get)
			org.Patch("/settings", cfg.OrgHandler.UpdateSettings)
			org.Get("/members", cfg.OrgHandler.ListMembers)
			org.Patch("/members/{userID}", cfg.OrgHandler.UpdateMemberRole)
			org.Delete("/members/{userID}", cfg.OrgHandler.RemoveMember)
			org.Post("/invitations", cfg.OrgHandler.Invite)
			org.Get("/invitations", cfg.OrgHandler.ListInvitations)
			org.Delete("/invitations/{inviteID}", cfg.OrgHandler.CancelInvitation)

			org.Post("/patients", cfg.PatientHandler.Create)
			org.Get("/patients", cfg.PatientHandler.List)
			org.Get("/patients/{patientID}", cfg.PatientHandler.Get)
			org.Patch("/patients/{patientID}", cfg.PatientHandler.Update)
			org.Delete("/patients/{patientID}", cfg.PatientHandler.Delete)

			org.Post("/appointment-types", cfg.TypeHandler.Create)
			org.Get("/appointment-types", cfg.TypeHandler.List)
			org.Get("/appointment-types/{typeID}", cfg.TypeHandler.Get)
			org.Patch("/appointment-types/{typeID}", cfg.TypeHandler.Update)
			org.Delete("/appointment-types/{typeID}", cfg.TypeHandler.Delete)

			org.Put("/availability", cfg.AvailabilityHandler.SetSchedule)
			org.Get("/availability", cfg.AvailabilityHandler.GetSchedule)
			org.Get("/availability/slots", cfg.AvailabilityHandler.Slots)

			org.Post("/appointments", cfg.AppointmentHandler.Book)
			org.Get("/appointments", cfg.AppointmentHandler.List)
			org.Get("/appointments/{apptID}", cfg.AppointmentHandler.Get)
			org.Patch("/appointments/{apptID}", cfg.AppointmentHandler.Reschedule)
			org.Patch("/appointments/{apptID}/status", cfg.AppointmentHandler.UpdateStatus)
			org.Delete("/appointments/{apptID}", cfg.AppointmentHandler.Delete)

			if cfg.PrescriptionHandler != nil {
				org.Post("/prescriptions", cfg.PrescriptionHandler.Create)
				org.Get("/prescriptions/{prescriptionID}", cfg.PrescriptionHandler.Get)
				org.Get("/prescriptions/{prescriptionID}/print", cfg.PrescriptionHandler.Print)
				org.Delete("/prescriptions/{prescriptionID}", cfg.PrescriptionHandler.Delete)
				org.Get("/patients/{patientID}/prescriptions", cfg.PrescriptionHandler.ListByPatient)
			}

			if cfg.BillingHandler != nil {
				org.Get("/billing/subscription", cfg.BillingHandler.GetSubscription)
				org.Post("/billing/checkout", cfg.BillingHandler.Checkout)
				org.Put("/billing/keys", cfg.BillingHandler.ConnectKeys)
			}

			if cfg.StreamHandler != nil {
				org.Get("/calendar/stream", cfg.StreamHandler.Stream)
			}

			if cfg.AuditHandler != nil {
				org.Get("/audit", cfg.AuditHandler.List)
			}
		})
	})

	// Platform operator endpoints.
	if cfg.BillingHandler != nil && cfg.AdminAuthSecret != "" {
		r.Group(func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Post("/admin/plans", cfg.BillingHandler.CreatePlan)
		})
	}

	return r
}
