// Package config provides application configuration management.
// It loads settings from a .env file and environment variables and
// provides defaults for the server, the Telegram client, outbound HTTP
// and the quote cache.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environments recognized in APP_ENV.
const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"
)

// Snapshot backends for the quote document.
const (
	SnapshotNone   = "none"
	SnapshotSQLite = "sqlite"
	SnapshotR2     = "r2"
)

// Default upstream locations.
const (
	DefaultQuoteURL       = "https://raw.githubusercontent.com/tulul/tulul-quotes/master/quote.yaml"
	DefaultQuoteBranchURL = "https://api.github.com/repos/tulul/tulul-quotes/branches/master"
)

// Config holds all application configuration
type Config struct {
	// Server Configuration
	AppEnv          string
	Debug           bool
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
	WebhookTimeout  time.Duration

	// Telegram Configuration
	TelegramBotToken string
	TelegramAPIURL   string // Empty = https://api.telegram.org
	BotUsername      string // Empty = resolved lazily through getMe
	WebhookHost      string
	DevelChatID      int64 // 0 = developer alerts disabled
	HotlineMessageID int   // 0 = /hotline does nothing

	// Outbound HTTP Configuration
	HTTPTimeout    time.Duration
	HTTPMaxRetries int

	// Rate Limits (Token Bucket Algorithm)
	ChatRateBurst  float64 // Maximum lookup burst per chat (default: 10)
	ChatRateRefill float64 // Tokens refilled per second (default: 0.2 = 1 per 5s)

	// Features
	SlangEnabled bool

	// Quote Configuration
	QuoteURL             string
	QuoteBranchURL       string
	QuoteRefreshInterval time.Duration
	QuoteSnapshotBackend string

	// Data Configuration
	DataDir string // Data directory for SQLite database

	// R2 Configuration
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2SnapshotKey     string

	// Metrics Authentication
	MetricsUsername string // Username for /metrics endpoint Basic Auth (default: "prometheus")
	MetricsPassword string // Password for /metrics endpoint Basic Auth (empty = no auth)

	// Sentry Configuration
	SentryToken      string
	SentryHost       string
	SentrySampleRate float64

	// Better Stack Configuration
	BetterStackToken    string
	BetterStackEndpoint string
}

// Load reads configuration from environment variables
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	cfg := LoadUnvalidated()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadUnvalidated reads configuration without validating it. Management
// commands use it to report missing settings themselves.
func LoadUnvalidated() *Config {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	return &Config{
		AppEnv:          strings.ToLower(getEnv(EnvAppEnv, EnvironmentDevelopment)),
		Debug:           getBoolEnv(EnvDebug, false),
		Port:            getEnv(EnvPort, "8080"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),
		WebhookTimeout:  getDurationEnv(EnvWebhookTimeout, WebhookProcessing),

		TelegramBotToken: getEnv(EnvTelegramBotToken, ""),
		TelegramAPIURL:   getEnv(EnvTelegramAPIURL, ""),
		BotUsername:      strings.TrimPrefix(getEnv(EnvBotUsername, ""), "@"),
		WebhookHost:      strings.TrimRight(getEnv(EnvWebhookHost, "http://127.0.0.1"), "/"),
		DevelChatID:      getInt64Env(EnvDevelChatID, 0),
		HotlineMessageID: getIntEnv(EnvHotlineMessage, 0),

		HTTPTimeout:    getDurationEnv(EnvHTTPTimeout, ScraperRequest),
		HTTPMaxRetries: getIntEnv(EnvHTTPMaxRetries, 2),

		ChatRateBurst:  getFloatEnv(EnvChatRateBurst, 10.0),
		ChatRateRefill: getFloatEnv(EnvChatRateRefill, 0.2),

		SlangEnabled: getBoolEnv(EnvSlangEnabled, false),

		QuoteURL:             getEnv(EnvQuoteURL, DefaultQuoteURL),
		QuoteBranchURL:       getEnv(EnvQuoteBranchURL, DefaultQuoteBranchURL),
		QuoteRefreshInterval: getDurationEnv(EnvQuoteRefreshInterval, QuoteRefreshInterval),
		QuoteSnapshotBackend: strings.ToLower(getEnv(EnvQuoteSnapshotBackend, SnapshotNone)),

		DataDir: getEnv(EnvDataDir, getDefaultDataDir()),

		R2AccountID:       getEnv(EnvR2AccountID, ""),
		R2AccessKeyID:     getEnv(EnvR2AccessKeyID, ""),
		R2SecretAccessKey: getEnv(EnvR2SecretAccessKey, ""),
		R2BucketName:      getEnv(EnvR2BucketName, ""),
		R2SnapshotKey:     getEnv(EnvR2SnapshotKey, "snapshots/quote.yaml.zst"),

		MetricsUsername: getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword: getEnv(EnvMetricsPassword, ""),

		SentryToken:      getEnv(EnvSentryToken, ""),
		SentryHost:       getEnv(EnvSentryHost, ""),
		SentrySampleRate: getFloatEnv(EnvSentrySampleRate, 1.0),

		BetterStackToken:    getEnv(EnvBetterStackToken, ""),
		BetterStackEndpoint: getEnv(EnvBetterStackEndpoint, ""),
	}
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	var errs []error

	if c.TelegramBotToken == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvTelegramBotToken))
	}
	if c.Port == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvPort))
	}
	if c.WebhookTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvWebhookTimeout, c.WebhookTimeout))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvHTTPTimeout, c.HTTPTimeout))
	}
	if c.HTTPMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %d", EnvHTTPMaxRetries, c.HTTPMaxRetries))
	}
	if c.ChatRateBurst <= 0 || c.ChatRateRefill <= 0 {
		errs = append(errs, fmt.Errorf("%s and %s must be positive", EnvChatRateBurst, EnvChatRateRefill))
	}
	if c.QuoteRefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvQuoteRefreshInterval, c.QuoteRefreshInterval))
	}

	switch c.QuoteSnapshotBackend {
	case SnapshotNone:
	case SnapshotSQLite:
		if c.DataDir == "" {
			errs = append(errs, fmt.Errorf("%s is required for the sqlite snapshot backend", EnvDataDir))
		}
	case SnapshotR2:
		if c.R2AccountID == "" || c.R2AccessKeyID == "" || c.R2SecretAccessKey == "" || c.R2BucketName == "" {
			errs = append(errs, errors.New("R2 credentials and bucket are required for the r2 snapshot backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("%s must be one of none, sqlite, r2; got %q", EnvQuoteSnapshotBackend, c.QuoteSnapshotBackend))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// IsDevelopment reports whether the service runs in the development environment.
// The webhook is not registered with Telegram in development.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == EnvironmentDevelopment
}

// WebhookPath returns the secret route Telegram posts updates to.
func (c *Config) WebhookPath() string {
	return "/" + c.TelegramBotToken
}

// WebhookURL returns the public URL registered with setWebhook.
func (c *Config) WebhookURL() string {
	return c.WebhookHost + c.WebhookPath()
}

// SQLitePath returns the full path to the SQLite database file
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "tululbot.db")
}

// R2Endpoint returns the S3-compatible endpoint of the configured account.
func (c *Config) R2Endpoint() string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.R2AccountID)
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getInt64Env retrieves int64 environment variable with fallback to default value.
// Telegram chat ids do not fit in 32 bits.
func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getBoolEnv retrieves boolean environment variable with fallback to default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}
