package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Session management
	SessionTTL        time.Duration
	SessionCookieName string

	// Staff/service JWT for operational endpoints
	StaffJWTSecret string

	// CORS
	CORSAllowedOrigins []string

	// Rate limiting for public auth endpoints
	AuthRatePerSecond float64
	AuthRateBurst     int

	// Outbox deliverer
	OutboxPollInterval time.Duration
	OutboxBatchSize    int

	// Stripe billing
	StripeAPIBaseURL      string
	StripeSuccessURL      string
	StripeCancelURL       string
	DefaultTrialDays      int
	AllowUnsignedWebhooks bool

	// SendGrid Email Configuration
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	// Scheduling defaults applied to new organizations
	DefaultTimezone     string
	DefaultSlotMinutes  int
	SlotLookaheadDays   int
	InvitationTTL       time.Duration
	SettingsCacheTTL    time.Duration
	SessionCacheEnabled bool
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		SessionTTL:        getEnvAsDuration("SESSION_TTL", 30*24*time.Hour),
		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "praxis_session"),

		StaffJWTSecret: getEnv("STAFF_JWT_SECRET", ""),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),

		AuthRatePerSecond: getEnvAsFloat("AUTH_RATE_PER_SECOND", 2),
		AuthRateBurst:     getEnvAsInt("AUTH_RATE_BURST", 10),

		OutboxPollInterval: getEnvAsDuration("OUTBOX_POLL_INTERVAL", 5*time.Second),
		OutboxBatchSize:    getEnvAsInt("OUTBOX_BATCH_SIZE", 50),

		StripeAPIBaseURL:      getEnv("STRIPE_API_BASE_URL", "https://api.stripe.com"),
		StripeSuccessURL:      getEnv("STRIPE_SUCCESS_URL", ""),
		StripeCancelURL:       getEnv("STRIPE_CANCEL_URL", ""),
		DefaultTrialDays:      getEnvAsInt("DEFAULT_TRIAL_DAYS", 14),
		AllowUnsignedWebhooks: getEnvAsBool("ALLOW_UNSIGNED_WEBHOOKS", false),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Praxis"),

		DefaultTimezone:     getEnv("DEFAULT_TIMEZONE", "America/New_York"),
		DefaultSlotMinutes:  getEnvAsInt("DEFAULT_SLOT_MINUTES", 30),
		SlotLookaheadDays:   getEnvAsInt("SLOT_LOOKAHEAD_DAYS", 60),
		InvitationTTL:       getEnvAsDuration("INVITATION_TTL", 7*24*time.Hour),
		SettingsCacheTTL:    getEnvAsDuration("SETTINGS_CACHE_TTL", 5*time.Minute),
		SessionCacheEnabled: getEnvAsBool("SESSION_CACHE_ENABLED", true),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
