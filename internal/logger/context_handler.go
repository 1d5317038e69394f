package logger

import (
	"context"
	"log/slog"

	"github.com/tulul/tululbot/internal/ctxutil"
)

// ContextHandler wraps another slog.Handler and adds the tracing values
// stored by ctxutil (request, chat, message and user IDs) to every record.
type ContextHandler struct {
	handler slog.Handler
}

// NewContextHandler creates a new ContextHandler that wraps the provided handler.
func NewContextHandler(handler slog.Handler) *ContextHandler {
	return &ContextHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given level.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle adds context values as attributes before delegating.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if requestID, ok := ctxutil.GetRequestID(ctx); ok && requestID != "" {
		r.AddAttrs(slog.String("request_id", requestID))
	}
	if chatID, ok := ctxutil.GetChatID(ctx); ok {
		r.AddAttrs(slog.Int64("chat_id", chatID))
	}
	if messageID := ctxutil.GetMessageID(ctx); messageID != 0 {
		r.AddAttrs(slog.Int("message_id", messageID))
	}
	if userID := ctxutil.GetUserID(ctx); userID != 0 {
		r.AddAttrs(slog.Int64("user_id", userID))
	}
	return h.handler.Handle(ctx, r)
}

// WithAttrs returns a new ContextHandler whose attributes consist of
// both the receiver's attributes and the arguments.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{handler: h.handler.WithAttrs(attrs)}
}

// WithGroup returns a new ContextHandler with the given group name prepended
// to the current group name.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{handler: h.handler.WithGroup(name)}
}
