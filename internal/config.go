package internal

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Lead sink names accepted in LEAD_SINKS.
const (
	SinkLog     = "log"
	SinkEmail   = "email"
	SinkWebhook = "webhook"
)

type Config struct {
	Env      string
	Port     int
	LogLevel string

	// Public base URL of the site (used in notification emails)
	BaseURL string

	// Templates directory, only read in development for hot reload.
	// Production uses the templates embedded in the binary.
	TemplatesDir string

	// Optional YAML file overriding the embedded site content
	ContentFile string

	// Lead delivery
	LeadSinks       []string      // Any of "log", "email", "webhook"
	LeadNotifyEmail string        // Recipient of lead notifications (defaults to the agent's email)
	LeadSinkTimeout time.Duration // Upper bound for a single delivery

	// Email provider for lead notifications: "smtp" or "log"
	EmailProvider string

	// SMTP Configuration
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string

	// CRM webhook
	WebhookURL    string
	WebhookSecret string // HMAC-SHA256 signing secret (optional)

	// Idempotency store for lead submissions
	IdempotencyStore string // "memory" or "redis"
	IdempotencyTTL   time.Duration
	RedisURL         string

	// Storage Configuration
	StorageProvider string // "local" or "r2"

	// Local Storage (development)
	LocalStoragePath string // Base directory for local file storage
	LocalStorageURL  string // Base URL for accessing local files

	// R2 Storage (production)
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string // Optional custom domain URL

	// Listing source
	ListingSource      string // "static" or "feed"
	ListingFeedURL     string
	ListingFeedTimeout time.Duration

	// Lead endpoint rate limiting (per client IP)
	LeadRateLimit  int
	LeadRateWindow time.Duration

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		BaseURL:      getEnv("BASE_URL", "http://localhost:8080"),
		TemplatesDir: getEnv("TEMPLATES_DIR", "web/templates"),
		ContentFile:  getEnv("CONTENT_FILE", ""),

		LeadNotifyEmail: getEnv("LEAD_NOTIFY_EMAIL", ""),
		LeadSinkTimeout: getEnvDuration("LEAD_SINK_TIMEOUT", 10*time.Second),

		EmailProvider: getEnv("EMAIL_PROVIDER", "smtp"),

		// SMTP defaults for Mailhog (development)
		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnvInt("SMTP_PORT", 1025),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "leads@gulfcoast.local"),
		SMTPFromName: getEnv("SMTP_FROM_NAME", "Website Leads"),

		WebhookURL:    getEnv("WEBHOOK_URL", ""),
		WebhookSecret: getEnv("WEBHOOK_SECRET", ""),

		IdempotencyStore: getEnv("IDEMPOTENCY_STORE", "memory"),
		IdempotencyTTL:   getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		RedisURL:         getEnv("REDIS_URL", ""),

		// Storage defaults to local filesystem for development
		StorageProvider:  getEnv("STORAGE_PROVIDER", "local"),
		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./storage"),
		LocalStorageURL:  getEnv("LOCAL_STORAGE_URL", "http://localhost:8080/files"),

		// R2 configuration (production only)
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),

		ListingSource:      getEnv("LISTING_SOURCE", "static"),
		ListingFeedURL:     getEnv("LISTING_FEED_URL", ""),
		ListingFeedTimeout: getEnvDuration("LISTING_FEED_TIMEOUT", 5*time.Second),

		// 5 lead submissions per IP per 10 minutes
		LeadRateLimit:  getEnvInt("LEAD_RATE_LIMIT", 5),
		LeadRateWindow: getEnvDuration("LEAD_RATE_WINDOW", 10*time.Minute),

		// Metrics authentication
		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	// Parse sinks from comma-separated environment variable
	for _, name := range strings.Split(getEnv("LEAD_SINKS", SinkLog), ",") {
		trimmed := strings.TrimSpace(strings.ToLower(name))
		if trimmed != "" {
			cfg.LeadSinks = append(cfg.LeadSinks, trimmed)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsDev reports whether the server runs in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// HasSink reports whether the named lead sink is enabled.
func (c *Config) HasSink(name string) bool {
	for _, s := range c.LeadSinks {
		if s == name {
			return true
		}
	}
	return false
}

func (c *Config) validate() error {
	if len(c.LeadSinks) == 0 {
		return fmt.Errorf("LEAD_SINKS must name at least one sink")
	}
	for _, s := range c.LeadSinks {
		switch s {
		case SinkLog, SinkEmail, SinkWebhook:
		default:
			return fmt.Errorf("LEAD_SINKS contains unknown sink: %s", s)
		}
	}

	if c.HasSink(SinkWebhook) && c.WebhookURL == "" {
		return fmt.Errorf("WEBHOOK_URL is required when LEAD_SINKS includes 'webhook'")
	}

	if c.EmailProvider != "smtp" && c.EmailProvider != "log" {
		return fmt.Errorf("EMAIL_PROVIDER must be either 'smtp' or 'log', got: %s", c.EmailProvider)
	}

	// Validate idempotency store configuration
	if c.IdempotencyStore == "redis" {
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when IDEMPOTENCY_STORE is 'redis'")
		}
	} else if c.IdempotencyStore != "memory" {
		return fmt.Errorf("IDEMPOTENCY_STORE must be either 'memory' or 'redis', got: %s", c.IdempotencyStore)
	}

	// Validate storage configuration
	if c.StorageProvider == "r2" {
		if c.R2AccountID == "" {
			return fmt.Errorf("R2_ACCOUNT_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2AccessKeyID == "" {
			return fmt.Errorf("R2_ACCESS_KEY_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2SecretAccessKey == "" {
			return fmt.Errorf("R2_SECRET_ACCESS_KEY is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2BucketName == "" {
			return fmt.Errorf("R2_BUCKET_NAME is required when STORAGE_PROVIDER is 'r2'")
		}
	} else if c.StorageProvider != "local" {
		return fmt.Errorf("STORAGE_PROVIDER must be either 'local' or 'r2', got: %s", c.StorageProvider)
	}

	// Validate listing source
	if c.ListingSource == "feed" {
		if c.ListingFeedURL == "" {
			return fmt.Errorf("LISTING_FEED_URL is required when LISTING_SOURCE is 'feed'")
		}
	} else if c.ListingSource != "static" {
		return fmt.Errorf("LISTING_SOURCE must be either 'static' or 'feed', got: %s", c.ListingSource)
	}

	if c.LeadRateLimit < 1 {
		return fmt.Errorf("LEAD_RATE_LIMIT must be positive, got: %d", c.LeadRateLimit)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
