// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// BaseURL is the public base URL embedded in login-link emails (e.g. https://www.gc-dz.com).
	BaseURL string `mapstructure:"BASE_URL"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// SessionTTL is the session expiry (e.g. "48h"). Sessions older than this are closed on validation.
	SessionTTL string `mapstructure:"SESSION_TTL"`
	// AnonSessionTTL is the expiry for anonymous (traffic-stats) sessions (e.g. "12h").
	AnonSessionTTL string `mapstructure:"ANON_SESSION_TTL"`
	// LoginMode selects the login strategy: "email" (login-link by mail, self-registration
	// for allowed domains) or "password" (username + bcrypt credential).
	LoginMode string `mapstructure:"LOGIN_MODE"`
	// AllowedEmailDomains is a comma-separated list of email domains permitted to
	// self-register in email login mode (e.g. "globalcanopy.org,sei.org").
	AllowedEmailDomains string `mapstructure:"ALLOWED_EMAIL_DOMAINS"`
	// MailFrom is the From address for login-link emails.
	MailFrom string `mapstructure:"MAIL_FROM"`
	// SMTPHost is the SMTP server host. Empty disables outbound mail (login-link delivery fails).
	SMTPHost string `mapstructure:"SMTP_HOST"`
	// SMTPPort is the SMTP server port.
	SMTPPort int `mapstructure:"SMTP_PORT"`
	// SMTPUser is the SMTP auth username; empty for unauthenticated relays.
	SMTPUser string `mapstructure:"SMTP_USER"`
	// SMTPPassword is the SMTP auth password.
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	// BcryptCost is the bcrypt cost factor (4-31); default 12. Used in password login mode.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// Telemetry (optional). When Kafka brokers are set, the server emits access events to Kafka.
	// AccessKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	AccessKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AccessKafkaTopic is the Kafka topic for access events (default trasepad-access).
	AccessKafkaTopic string `mapstructure:"ACCESS_KAFKA_TOPIC"`
	// OTLPEndpoint is the OTLP gRPC collector endpoint (e.g. http://localhost:4317). Empty disables export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`
}

// LoginModeEmail and LoginModePassword are the accepted LOGIN_MODE values.
const (
	LoginModeEmail    = "email"
	LoginModePassword = "password"
)

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("BASE_URL", "https://www.gc-dz.com")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SESSION_TTL", "48h")
	v.SetDefault("ANON_SESSION_TTL", "12h")
	v.SetDefault("LOGIN_MODE", LoginModeEmail)
	v.SetDefault("ALLOWED_EMAIL_DOMAINS", "globalcanopy.org,sei.org")
	v.SetDefault("MAIL_FROM", "noreply@gc-dz.com")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("ACCESS_KAFKA_TOPIC", "trasepad-access")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.LoginMode != LoginModeEmail && cfg.LoginMode != LoginModePassword {
		return nil, errors.New("config: LOGIN_MODE must be email or password")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// SessionExpiry parses SessionTTL as a time.Duration. Returns 48h if unset or invalid.
func (c *Config) SessionExpiry() time.Duration {
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil || d <= 0 {
		return 48 * time.Hour
	}
	return d
}

// AnonSessionExpiry parses AnonSessionTTL as a time.Duration. Returns 12h if unset or invalid.
func (c *Config) AnonSessionExpiry() time.Duration {
	d, err := time.ParseDuration(c.AnonSessionTTL)
	if err != nil || d <= 0 {
		return 12 * time.Hour
	}
	return d
}

// AllowedDomains returns the allowed email domains from the comma-separated config,
// lower-cased and trimmed. Empty entries are dropped.
func (c *Config) AllowedDomains() []string {
	if c == nil || c.AllowedEmailDomains == "" {
		return nil
	}
	parts := strings.Split(c.AllowedEmailDomains, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.ToLower(strings.TrimSpace(p)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// AccessKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if access-event streaming is enabled (non-empty list) and to create the emitter.
func (c *Config) AccessKafkaBrokersList() []string {
	if c == nil || c.AccessKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.AccessKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
