package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Errorf("expected default env development, got %s", cfg.Env)
	}
	if cfg.SessionTTL != 30*24*time.Hour {
		t.Errorf("expected 30 day session TTL, got %s", cfg.SessionTTL)
	}
	if cfg.SessionCookieName != "praxis_session" {
		t.Errorf("unexpected session cookie name %s", cfg.SessionCookieName)
	}
	if cfg.DefaultSlotMinutes != 30 {
		t.Errorf("expected default slot minutes 30, got %d", cfg.DefaultSlotMinutes)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_TTL", "24h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.praxis.health, https://admin.praxis.health")
	t.Setenv("AUTH_RATE_PER_SECOND", "0.5")
	t.Setenv("ALLOW_UNSIGNED_WEBHOOKS", "true")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("expected 24h session TTL, got %s", cfg.SessionTTL)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("expected 2 CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.CORSAllowedOrigins[1] != "https://admin.praxis.health" {
		t.Errorf("expected trimmed origin, got %q", cfg.CORSAllowedOrigins[1])
	}
	if cfg.AuthRatePerSecond != 0.5 {
		t.Errorf("expected rate 0.5, got %f", cfg.AuthRatePerSecond)
	}
	if !cfg.AllowUnsignedWebhooks {
		t.Error("expected unsigned webhooks allowed")
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("OUTBOX_BATCH_SIZE", "not-a-number")
	t.Setenv("SESSION_TTL", "soon")

	cfg := Load()

	if cfg.OutboxBatchSize != 50 {
		t.Errorf("expected fallback batch size 50, got %d", cfg.OutboxBatchSize)
	}
	if cfg.SessionTTL != 30*24*time.Hour {
		t.Errorf("expected fallback session TTL, got %s", cfg.SessionTTL)
	}
}
