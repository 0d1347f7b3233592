package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/praxishealth/praxis/internal/api/router"
	"github.com/praxishealth/praxis/internal/app/bootstrap"
	"github.com/praxishealth/praxis/internal/appointments"
	"github.com/praxishealth/praxis/internal/appointmenttypes"
	"github.com/praxishealth/praxis/internal/auth"
	"github.com/praxishealth/praxis/internal/availability"
	"github.com/praxishealth/praxis/internal/billing"
	"github.com/praxishealth/praxis/internal/compliance"
	appconfig "github.com/praxishealth/praxis/internal/config"
	"github.com/praxishealth/praxis/internal/events"
	"github.com/praxishealth/praxis/internal/notify"
	"github.com/praxishealth/praxis/internal/observability/metrics"
	"github.com/praxishealth/praxis/internal/organizations"
	"github.com/praxishealth/praxis/internal/patients"
	"github.com/praxishealth/praxis/internal/prescriptions"
	"github.com/praxishealth/praxis/internal/realtime"
	"github.com/praxishealth/praxis/pkg/logging"
)

func main() {
	if os.Getenv("ENV") == "" || os.Getenv("ENV") == "development" {
		_ = godotenv.Load()
	}

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting praxis API server", "env", cfg.Env, "port", cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := bootstrap.BuildPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("postgres unavailable", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	sqlDB, err := bootstrap.BuildSQLDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("postgres (database/sql) unavailable", "error", err)
		os.Exit(1)
	}
	defer func() { _ = sqlDB.Close() }()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	registry := prometheus.NewRegistry()
	apiMetrics := metrics.NewAPIMetrics(registry)

	outbox := events.NewOutboxStore(pool)
	processed := events.NewProcessedStore(pool)

	orgRepo := organizations.NewRepository(pool)
	var settingsCache *organizations.SettingsCache
	if redisClient != nil {
		settingsCache = organizations.NewSettingsCache(redisClient, cfg.SettingsCacheTTL)
	}
	orgSvc := organizations.NewService(orgRepo, settingsCache, outbox, organizations.Defaults{
		Timezone:      cfg.DefaultTimezone,
		SlotMinutes:   cfg.DefaultSlotMinutes,
		InvitationTTL: cfg.InvitationTTL,
	}, logger)

	authRepo := auth.NewRepository(pool)
	var sessionCache *auth.SessionCache
	if cfg.SessionCacheEnabled && redisClient != nil {
		sessionCache = auth.NewSessionCache(redisClient)
	}
	authSvc := auth.NewService(authRepo, sessionCache, orgRepo, cfg.SessionTTL, logger)
	authHandler := auth.NewHandler(authSvc, cfg.SessionCookieName, cfg.Env != "development", logger)

	orgHandler := organizations.NewHandler(orgSvc, authSvc, logger)

	patientRepo := patients.NewRepository(pool)
	patientHandler := patients.NewHandler(patientRepo, logger)

	typeRepo := appointmenttypes.NewRepository(pool)
	typeHandler := appointmenttypes.NewHandler(typeRepo, logger)

	apptRepo := appointments.NewRepository(pool)
	apptSvc := appointments.NewService(apptRepo, patientRepo, typeRepo, outbox, logger)
	apptSvc.Booked = apiMetrics.AppointmentsBooked()
	apptHandler := appointments.NewHandler(apptSvc, logger)

	availRepo := availability.NewRepository(pool)
	availSvc := availability.NewService(availRepo, orgSvc, typeRepo, apptRepo, logger).
		WithLookahead(cfg.SlotLookaheadDays)
	availHandler := availability.NewHandler(availSvc, logger)
	availHandler.SlotQueries = apiMetrics.SlotQueries()

	rxRepo := prescriptions.NewRepository(sqlDB)
	rxSvc := prescriptions.NewService(rxRepo, patientRepo, orgSvc, authSvc, logger)
	rxHandler := prescriptions.NewHandler(rxSvc, logger)

	billingRepo := billing.NewRepository(pool)
	stripeClient := billing.NewStripeClient(cfg.StripeSuccessURL, cfg.StripeCancelURL, logger).
		WithBaseURL(cfg.StripeAPIBaseURL).
		WithTrialDays(cfg.DefaultTrialDays)
	billingSvc := billing.NewService(billingRepo, stripeClient, outbox, logger)
	billingHandler := billing.NewHandler(billingSvc, logger)
	stripeWebhook := billing.NewWebhookHandler(billingRepo, billingSvc, processed, logger)
	stripeWebhook.Events = apiMetrics.StripeWebhooks()
	stripeWebhook.AllowUnsigned = cfg.AllowUnsignedWebhooks

	auditTrail := compliance.NewTrail(sqlDB, logger)
	auditHandler := compliance.NewHandler(auditTrail, logger)

	hub := realtime.NewHub(logger)
	streamHandler := realtime.NewHandler(hub, logger)

	var emailSender notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		emailSender = sg
	} else {
		emailSender = notify.NewStubEmailSender(logger)
	}
	notifier := notify.NewService(emailSender, cfg.PublicBaseURL, logger)

	deliverer := events.NewDeliverer(outbox, events.MultiHandler{
		notifier,
		realtime.NewBroadcaster(hub, logger),
	}, logger).
		WithBatchSize(int32(cfg.OutboxBatchSize)).
		WithInterval(cfg.OutboxPollInterval)
	go deliverer.Start(ctx)

	// Hourly sweep of expired session rows.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := authRepo.DeleteExpiredSessions(ctx); err != nil {
					logger.Error("session sweep failed", "error", err)
				} else if n > 0 {
					logger.Info("expired sessions removed", "count", n)
				}
			}
		}
	}()

	r := router.New(&router.Config{
		Logger:              logger,
		AuthHandler:         authHandler,
		Identities:          authSvc,
		Members:             orgRepo,
		OrgHandler:          orgHandler,
		PatientHandler:      patientHandler,
		TypeHandler:         typeHandler,
		AvailabilityHandler: availHandler,
		AppointmentHandler:  apptHandler,
		PrescriptionHandler: rxHandler,
		BillingHandler:      billingHandler,
		AuditHandler:        auditHandler,
		AuditRecorder:       auditTrail,
		StripeWebhook:       stripeWebhook,
		StreamHandler:       streamHandler,
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		RequestObserver:     apiMetrics,
		SessionCookieName:   cfg.SessionCookieName,
		AdminAuthSecret:     cfg.StaffJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		AuthRatePerSecond:   cfg.AuthRatePerSecond,
		AuthRateBurst:       cfg.AuthRateBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
