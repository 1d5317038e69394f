// Package config provides centralized timeout constants for the application.
//
// Telegram retries a webhook delivery when it does not get a 2xx answer in
// time, so every lookup a command performs has to finish well inside the
// webhook budget.
package config

import "time"

// Webhook timeouts
const (
	// WebhookProcessing is the timeout for dispatching a single update,
	// including upstream lookups and the outbound Telegram call.
	WebhookProcessing = 45 * time.Second

	// WebhookHTTPRead is the HTTP server read timeout for webhook requests.
	// Telegram sends small JSON payloads.
	WebhookHTTPRead = 10 * time.Second

	// WebhookHTTPWrite is the HTTP server write timeout.
	// Should accommodate WebhookProcessing + response serialization.
	WebhookHTTPWrite = 50 * time.Second

	// WebhookHTTPIdle is the HTTP server idle timeout for keep-alive connections.
	WebhookHTTPIdle = 120 * time.Second
)

// Scraper timeouts
const (
	// ScraperRequest is the timeout for a single outbound HTTP request.
	ScraperRequest = 15 * time.Second

	// ScraperRetryInitial is the initial delay before retrying a failed request.
	// Uses exponential backoff: 500ms -> 1s -> 2s
	ScraperRetryInitial = 500 * time.Millisecond
)

// Telegram timeouts
const (
	// TelegramRequest bounds a single Bot API call.
	TelegramRequest = 10 * time.Second

	// IdentityRetry is how long the webhook waits before asking getMe again
	// after a failed lookup.
	IdentityRetry = 30 * time.Second
)

// Quote cache
const (
	// QuoteRefreshInterval is how long a fingerprint check stays valid.
	QuoteRefreshInterval = 5 * time.Minute
)

// Database timeouts
const (
	// DatabaseBusyTimeout is SQLite busy_timeout pragma value.
	DatabaseBusyTimeout = 5 * time.Second

	// DatabaseConnMaxLifetime is the maximum lifetime of database connections.
	DatabaseConnMaxLifetime = time.Hour
)

// Background job intervals
const (
	// RateLimiterCleanupInterval is how often inactive chat rate limiters are cleaned.
	RateLimiterCleanupInterval = 5 * time.Minute
)

// Health checks
const (
	// ReadinessCheck bounds the dependency probes behind /readyz.
	ReadinessCheck = 3 * time.Second
)

// Graceful shutdown
const (
	// GracefulShutdown is the timeout for graceful server shutdown.
	// Allows in-flight requests to complete before forceful termination.
	GracefulShutdown = 30 * time.Second
)
