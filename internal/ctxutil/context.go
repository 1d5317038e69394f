// Package ctxutil provides type-safe context value management.
// Uses private key types to prevent collisions.
package ctxutil

import (
	"context"
)

type contextKey string

const (
	userIDKey    contextKey = "ctxutil.userID"
	chatIDKey    contextKey = "ctxutil.chatID"
	messageIDKey contextKey = "ctxutil.messageID"
	senderKey    contextKey = "ctxutil.sender"
	requestIDKey contextKey = "ctxutil.requestID"
)

// WithUserID adds the Telegram user ID of the message author to the context.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID retrieves the user ID from the context.
// Returns 0 if not found.
func GetUserID(ctx context.Context) int64 {
	if userID, ok := ctx.Value(userIDKey).(int64); ok {
		return userID
	}
	return 0
}

// WithChatID adds a chat ID to the context.
// Chat ID identifies the conversation (private, group or channel) in Telegram.
func WithChatID(ctx context.Context, chatID int64) context.Context {
	return context.WithValue(ctx, chatIDKey, chatID)
}

// GetChatID retrieves the chat ID from the context.
// Returns the chat ID and true if found.
func GetChatID(ctx context.Context) (int64, bool) {
	chatID, ok := ctx.Value(chatIDKey).(int64)
	return chatID, ok
}

// WithMessageID adds the ID of the message being handled to the context.
func WithMessageID(ctx context.Context, messageID int) context.Context {
	return context.WithValue(ctx, messageIDKey, messageID)
}

// GetMessageID retrieves the message ID from the context.
// Returns 0 if not found.
func GetMessageID(ctx context.Context) int {
	if messageID, ok := ctx.Value(messageIDKey).(int); ok {
		return messageID
	}
	return 0
}

// WithSender adds the first name of the message author to the context.
// Greeting commands sign their messages with it.
func WithSender(ctx context.Context, firstName string) context.Context {
	return context.WithValue(ctx, senderKey, firstName)
}

// GetSender retrieves the sender's first name from the context.
// Returns empty string if not found.
func GetSender(ctx context.Context) string {
	if v, ok := ctx.Value(senderKey).(string); ok {
		return v
	}
	return ""
}

// WithRequestID adds a request ID to the context for tracing.
// Request ID is typically generated per webhook request for log correlation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
// Returns the request ID and true if found, empty string and false otherwise.
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	return requestID, ok
}

// PreserveTracing creates a detached context that preserves tracing values.
// The new context is independent of the parent's cancellation and deadlines.
//
// Used for developer alerts and shared quote refreshes that must outlive
// the request that started them.
func PreserveTracing(ctx context.Context) context.Context {
	newCtx := context.Background()

	if userID := GetUserID(ctx); userID != 0 {
		newCtx = WithUserID(newCtx, userID)
	}
	if chatID, ok := GetChatID(ctx); ok {
		newCtx = WithChatID(newCtx, chatID)
	}
	if messageID := GetMessageID(ctx); messageID != 0 {
		newCtx = WithMessageID(newCtx, messageID)
	}
	if sender := GetSender(ctx); sender != "" {
		newCtx = WithSender(newCtx, sender)
	}
	if requestID, ok := GetRequestID(ctx); ok && requestID != "" {
		newCtx = WithRequestID(newCtx, requestID)
	}

	return newCtx
}
