package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// DefaultCORSOrigins are the browser origins allowed when CORS_ORIGINS is unset.
var DefaultCORSOrigins = []string{
	"http://localhost:5173",
	"https://dev-track-wheat.vercel.app",
	"https://dev-track-ts1e.vercel.app",
}

// Mail transports understood by the mail package.
const (
	MailTransportSMTP = "smtp"
	MailTransportSES  = "ses"
	MailTransportLog  = "log"
)

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // seconds
}

// EventsConfig holds event bus configuration.
type EventsConfig struct {
	EventKey    string
	SigningKey  string
	QueueURL    string // memory:// or redis://host:port/db
	MaxAttempts int
	Workers     int
}

// Enabled reports whether both event bus keys are present.
// Without them the sync layer runs in disabled mode.
func (c EventsConfig) Enabled() bool {
	return c.EventKey != "" && c.SigningKey != ""
}

// ClerkConfig holds identity provider session token configuration.
type ClerkConfig struct {
	Issuer            string // e.g., "https://clerk.example.com"
	AuthorizedParties []string
}

// MailConfig holds outbound mail configuration.
type MailConfig struct {
	Transport string
	From      string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string

	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSSessionToken    string
}

// CORSConfig holds the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string
}

type Config struct {
	Port           string
	Environment    string
	LogLevel       string
	MigrationsPath string
	Database       DatabaseConfig
	Events         EventsConfig
	Clerk          ClerkConfig
	Mail           MailConfig
	CORS           CORSConfig
}

// Load reads configuration from environment variables.
// It fails fast with clear errors for missing required values.
// Missing event bus keys are not an error; see EventsConfig.Enabled.
func Load() (*Config, error) {
	var missing []string

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}

	env := os.Getenv("ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "staging" && env != "production" {
		return nil, fmt.Errorf("invalid ENV value %q: must be development, staging, or production", env)
	}

	logLevel := strings.ToLower(os.Getenv("LOG_LEVEL"))
	if logLevel == "" {
		logLevel = "info"
	}
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid LOG_LEVEL value %q: must be debug, info, warn, or error", logLevel)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	clerkIssuer := strings.TrimSpace(os.Getenv("CLERK_ISSUER"))
	if clerkIssuer == "" {
		missing = append(missing, "CLERK_ISSUER")
	}

	senderEmail := strings.TrimSpace(os.Getenv("SENDER_EMAIL"))
	if senderEmail == "" {
		missing = append(missing, "SENDER_EMAIL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %v", missing)
	}

	if err := validateDatabaseURL(databaseURL); err != nil {
		return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}

	if err := validateIssuer(clerkIssuer); err != nil {
		return nil, fmt.Errorf("invalid CLERK_ISSUER: %w", err)
	}

	if !strings.Contains(senderEmail, "@") {
		return nil, fmt.Errorf("invalid SENDER_EMAIL %q: must be an email address", senderEmail)
	}

	origins := splitList(os.Getenv("CORS_ORIGINS"))
	if len(origins) == 0 {
		origins = append([]string(nil), DefaultCORSOrigins...)
	}

	parties := splitList(os.Getenv("CLERK_AUTHORIZED_PARTIES"))
	if len(parties) == 0 {
		parties = origins
	}

	mailCfg, err := loadMailConfig(senderEmail)
	if err != nil {
		return nil, err
	}

	queueURL := strings.TrimSpace(os.Getenv("EVENT_QUEUE_URL"))
	if queueURL == "" {
		queueURL = "memory://"
	}

	return &Config{
		Port:           port,
		Environment:    env,
		LogLevel:       logLevel,
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		Database: DatabaseConfig{
			URL:             databaseURL,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvInt("DB_CONN_MAX_LIFETIME", 300),
		},
		Events: EventsConfig{
			EventKey:    strings.TrimSpace(os.Getenv("INNGEST_EVENT_KEY")),
			SigningKey:  strings.TrimSpace(os.Getenv("INNGEST_SIGNING_KEY")),
			QueueURL:    queueURL,
			MaxAttempts: getEnvInt("EVENT_MAX_ATTEMPTS", 5),
			Workers:     getEnvInt("EVENT_WORKERS", 2),
		},
		Clerk: ClerkConfig{
			Issuer:            strings.TrimSuffix(clerkIssuer, "/"),
			AuthorizedParties: parties,
		},
		Mail: mailCfg,
		CORS: CORSConfig{AllowedOrigins: origins},
	}, nil
}

func loadMailConfig(from string) (MailConfig, error) {
	cfg := MailConfig{
		From:               from,
		SMTPHost:           strings.TrimSpace(os.Getenv("SMTP_HOST")),
		SMTPPort:           getEnvInt("SMTP_PORT", 587),
		SMTPUser:           os.Getenv("SMTP_USER"),
		SMTPPass:           os.Getenv("SMTP_PASS"),
		AWSRegion:          os.Getenv("AWS_REGION"),
		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		AWSSessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
	}
	if cfg.AWSRegion == "" {
		cfg.AWSRegion = "eu-central-1"
	}

	transport := strings.ToLower(strings.TrimSpace(os.Getenv("MAIL_TRANSPORT")))
	if transport == "" {
		transport = MailTransportLog
		if cfg.SMTPHost != "" {
			transport = MailTransportSMTP
		}
	}

	switch transport {
	case MailTransportSMTP:
		if cfg.SMTPHost == "" {
			return MailConfig{}, fmt.Errorf("MAIL_TRANSPORT=smtp requires SMTP_HOST")
		}
	case MailTransportSES:
		if (cfg.AWSAccessKeyID == "") != (cfg.AWSSecretAccessKey == "") {
			return MailConfig{}, fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set together")
		}
	case MailTransportLog:
	default:
		return MailConfig{}, fmt.Errorf("invalid MAIL_TRANSPORT value %q: must be smtp, ses, or log", transport)
	}
	cfg.Transport = transport

	return cfg, nil
}

// validateDatabaseURL ensures the database URL is a valid PostgreSQL connection string.
func validateDatabaseURL(dbURL string) error {
	parsed, err := url.Parse(dbURL)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}

	if parsed.Scheme != "postgres" && parsed.Scheme != "postgresql" {
		return fmt.Errorf("URL must use postgres:// or postgresql:// scheme, got %q", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("URL must include a host")
	}

	return nil
}

// validateIssuer ensures the identity provider issuer is an absolute http(s) URL.
func validateIssuer(issuer string) error {
	parsed, err := url.Parse(issuer)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}

	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return fmt.Errorf("URL must use http or https scheme")
	}

	if parsed.Host == "" {
		return fmt.Errorf("URL must include a host")
	}

	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvInt reads an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}
