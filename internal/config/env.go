// Package config defines environment variable keys for configuration.
package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Core (Required)
	EnvTelegramBotToken = "TELEGRAM_BOT_TOKEN"

	// Telegram
	EnvTelegramAPIURL = "TELEGRAM_API_URL"
	EnvBotUsername    = "BOT_USERNAME"
	EnvWebhookHost    = "WEBHOOK_HOST"
	EnvDevelChatID    = "TULULBOT_DEVEL_CHAT_ID"
	EnvHotlineMessage = "HOTLINE_MESSAGE_ID"

	// Server
	EnvAppEnv          = "APP_ENV"
	EnvDebug           = "DEBUG"
	EnvPort            = "PORT"
	EnvLogLevel        = "LOG_LEVEL"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
	EnvWebhookTimeout  = "WEBHOOK_TIMEOUT"

	// Outbound HTTP
	EnvHTTPTimeout    = "HTTP_TIMEOUT"
	EnvHTTPMaxRetries = "HTTP_MAX_RETRIES"

	// Rate Limits
	EnvChatRateBurst  = "CHAT_RATE_BURST"
	EnvChatRateRefill = "CHAT_RATE_REFILL"

	// Features
	EnvSlangEnabled = "SLANG_ENABLED"

	// Quote
	EnvQuoteURL             = "QUOTE_URL"
	EnvQuoteBranchURL       = "QUOTE_BRANCH_URL"
	EnvQuoteRefreshInterval = "QUOTE_REFRESH_INTERVAL"
	EnvQuoteSnapshotBackend = "QUOTE_SNAPSHOT_BACKEND"

	// Data
	EnvDataDir = "DATA_DIR"

	// R2 Snapshot Feature
	EnvR2AccountID       = "R2_ACCOUNT_ID"
	EnvR2AccessKeyID     = "R2_ACCESS_KEY_ID"
	EnvR2SecretAccessKey = "R2_SECRET_ACCESS_KEY"
	EnvR2BucketName      = "R2_BUCKET_NAME"
	EnvR2SnapshotKey     = "R2_SNAPSHOT_KEY"

	// Metrics
	EnvMetricsUsername = "METRICS_USERNAME"
	EnvMetricsPassword = "METRICS_PASSWORD"

	// Sentry Feature
	EnvSentryToken      = "SENTRY_TOKEN"
	EnvSentryHost       = "SENTRY_HOST"
	EnvSentrySampleRate = "SENTRY_SAMPLE_RATE"

	// Better Stack Feature
	EnvBetterStackToken    = "BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "BETTERSTACK_ENDPOINT"
)
