package webhook

import (
	"strings"
	"time"

	"github.com/tulul/tululbot/internal/logger"
	"github.com/tulul/tululbot/internal/metrics"
)

// HandlerOption is a functional option for configuring Handler.
type HandlerOption func(*Handler)

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = log
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithBotUsername sets the bot's username instead of asking getMe.
func WithBotUsername(username string) HandlerOption {
	return func(h *Handler) {
		h.username = strings.TrimPrefix(username, "@")
	}
}

// WithDevelChatID sets the chat that receives unexpected error reports.
// Zero disables reports.
func WithDevelChatID(chatID int64) HandlerOption {
	return func(h *Handler) {
		h.develChatID = chatID
	}
}

// WithWebhookTimeout bounds the processing of one update.
func WithWebhookTimeout(timeout time.Duration) HandlerOption {
	return func(h *Handler) {
		h.timeout = timeout
	}
}

// WithPrompts sets the prompt-to-command table used to route answers to
// the bot's prompts back into the command.
func WithPrompts(prompts map[string]string) HandlerOption {
	return func(h *Handler) {
		h.prompts = prompts
	}
}
