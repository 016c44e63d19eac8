// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads application settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected in production.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Backend names.
const (
	BackendLocal    = "local"
	BackendSupabase = "supabase"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"SITEWORKS_DB_PATH" envDefault:"./data/siteworks.db"`
	SessionSecret string `env:"SITEWORKS_SESSION_SECRET,required"`
	ServerHost    string `env:"SITEWORKS_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"SITEWORKS_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"SITEWORKS_ENV" envDefault:"development"`
	LogLevel      string `env:"SITEWORKS_LOG_LEVEL" envDefault:"info"`

	// BaseURL is the public site origin used when a request does not name one.
	BaseURL string `env:"SITEWORKS_BASE_URL" envDefault:"https://www.example-agency.com"`

	// FunctionsAnonKey is the bearer token accepted by /functions/v1.
	FunctionsAnonKey string `env:"SITEWORKS_FUNCTIONS_ANON_KEY"`
	// FunctionsAllowedOrigins may call /functions/v1 from a browser.
	FunctionsAllowedOrigins []string `env:"SITEWORKS_FUNCTIONS_ALLOWED_ORIGINS" envSeparator:","`

	// Backend selection
	Backend     string `env:"SITEWORKS_BACKEND" envDefault:"local"`
	SupabaseURL string `env:"SITEWORKS_SUPABASE_URL"`
	SupabaseKey string `env:"SITEWORKS_SUPABASE_KEY"`
	PostgresDSN string `env:"SITEWORKS_POSTGRES_DSN"` // Optional direct content database

	// Object storage
	StorageDir    string `env:"SITEWORKS_STORAGE_DIR" envDefault:"./data/storage"`
	StorageBucket string `env:"SITEWORKS_STORAGE_BUCKET" envDefault:"files"`

	// RedisURL shares login attempt counters between instances when set.
	RedisURL    string `env:"SITEWORKS_REDIS_URL"`
	RedisPrefix string `env:"SITEWORKS_REDIS_PREFIX" envDefault:"siteworks:login:"`

	// CacheTTL bounds how long served sitemaps are cached. Zero disables the cache.
	CacheTTL      time.Duration `env:"SITEWORKS_CACHE_TTL" envDefault:"5m"`
	CacheMaxItems int           `env:"SITEWORKS_CACHE_MAX_ITEMS" envDefault:"64"`
	CachePrefix   string        `env:"SITEWORKS_CACHE_PREFIX" envDefault:"siteworks:cache:"`

	PingTimeout     time.Duration `env:"SITEWORKS_PING_TIMEOUT" envDefault:"10s"`
	SitemapSchedule string        `env:"SITEWORKS_SITEMAP_SCHEDULE"` // Cron expression, empty disables
	PingOnSchedule  bool          `env:"SITEWORKS_PING_ON_SCHEDULE" envDefault:"false"`
	EventRetention  time.Duration `env:"SITEWORKS_EVENT_RETENTION" envDefault:"2160h"`

	PasswordMinLength int `env:"SITEWORKS_PASSWORD_MIN_LENGTH" envDefault:"12"`

	// MailWebhookURL receives outgoing e-mail as signed mail.send events.
	// Empty logs messages instead.
	MailWebhookURL    string `env:"SITEWORKS_MAIL_WEBHOOK_URL"`
	MailWebhookSecret string `env:"SITEWORKS_MAIL_WEBHOOK_SECRET"`

	// ContactNotifyEmail receives contact form notifications.
	ContactNotifyEmail string `env:"SITEWORKS_CONTACT_NOTIFY_EMAIL" envDefault:"hello@example-agency.com"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseSupabase reports whether the hosted backend is selected.
func (c Config) UseSupabase() bool {
	return c.Backend == BackendSupabase
}

// UseRedis returns true if Redis is configured for login attempts.
func (c Config) UseRedis() bool {
	return c.RedisURL != ""
}

// UseCache reports whether object reads are cached.
func (c Config) UseCache() bool {
	return c.CacheTTL > 0
}

// UseMailWebhook reports whether e-mail is handed to an external function.
func (c Config) UseMailWebhook() bool {
	return c.MailWebhookURL != ""
}

// UsePostgres reports whether content is read directly from Postgres.
func (c Config) UsePostgres() bool {
	return c.PostgresDSN != ""
}

// SchedulerEnabled reports whether periodic sitemap regeneration is on.
func (c Config) SchedulerEnabled() bool {
	return strings.TrimSpace(c.SitemapSchedule) != ""
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("SITEWORKS_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(c.SessionSecret))
	}
	for _, weak := range knownWeakSecrets {
		if c.SessionSecret == weak {
			return errors.New("SITEWORKS_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}
	if !hasMinimumEntropy(c.SessionSecret) {
		slog.Warn("SITEWORKS_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	c.BaseURL = strings.TrimSuffix(strings.TrimSpace(c.BaseURL), "/")
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("SITEWORKS_BASE_URL must be an absolute URL, got %q", c.BaseURL)
	}

	switch c.Backend {
	case BackendLocal:
	case BackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return errors.New("SITEWORKS_SUPABASE_URL and SITEWORKS_SUPABASE_KEY are required for the supabase backend")
		}
	default:
		return fmt.Errorf("SITEWORKS_BACKEND must be %q or %q, got %q", BackendLocal, BackendSupabase, c.Backend)
	}

	if c.FunctionsAnonKey == "" {
		slog.Warn("SITEWORKS_FUNCTIONS_ANON_KEY is not set; /functions/v1 endpoints will reject every request")
	}
	if c.PingTimeout <= 0 {
		return fmt.Errorf("SITEWORKS_PING_TIMEOUT must be positive, got %s", c.PingTimeout)
	}
	if c.MailWebhookURL != "" {
		if u, err := url.Parse(c.MailWebhookURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("SITEWORKS_MAIL_WEBHOOK_URL must be an http(s) URL, got %q", c.MailWebhookURL)
		}
		if c.MailWebhookSecret == "" {
			return errors.New("SITEWORKS_MAIL_WEBHOOK_SECRET is required when SITEWORKS_MAIL_WEBHOOK_URL is set")
		}
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("SITEWORKS_CACHE_TTL must not be negative, got %s", c.CacheTTL)
	}
	if c.EventRetention < time.Hour {
		return fmt.Errorf("SITEWORKS_EVENT_RETENTION must be at least 1h, got %s", c.EventRetention)
	}
	if c.PasswordMinLength < 8 {
		return fmt.Errorf("SITEWORKS_PASSWORD_MIN_LENGTH must be at least 8, got %d", c.PasswordMinLength)
	}
	return nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
