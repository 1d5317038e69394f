// Package sentry wires the Sentry SDK to Better Stack Errors and exposes
// the few capture helpers the webhook needs.
package sentry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tulul/tululbot/internal/ctxutil"
)

// Config holds Sentry configuration for Better Stack integration.
type Config struct {
	// Token is the Better Stack Errors application token. Empty disables Sentry.
	Token string

	// Host is the Better Stack Errors ingesting host (e.g., "errors.betterstack.com").
	Host string

	Environment string
	Release     string

	// SampleRate controls error sampling (0.0-1.0, default 1.0 = 100%).
	SampleRate float64

	Debug bool
}

// DSN builds the Sentry DSN for Better Stack: https://$TOKEN@$HOST/1.
// The project ID is required by the SDK but ignored by Better Stack.
func (c Config) DSN() string {
	return fmt.Sprintf("https://%s@%s/1", c.Token, c.Host)
}

// Initialize sets up the Sentry SDK. With an empty Token it does nothing.
func Initialize(cfg Config) error {
	if cfg.Token == "" {
		return nil
	}
	if cfg.Host == "" {
		return errors.New("sentry host is required when token is provided")
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 || sampleRate > 1 {
		sampleRate = 1.0
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN(),
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
	})
}

// Flush waits for buffered events to be sent to the server.
// Returns true if all events were sent within the timeout.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// IsEnabled returns true if Sentry is initialized and active.
func IsEnabled() bool {
	return sentry.CurrentHub().Client() != nil
}

func hubFrom(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}

// tagScope copies the chat identifiers from ctx onto the scope.
func tagScope(ctx context.Context, scope *sentry.Scope) {
	if chatID, ok := ctxutil.GetChatID(ctx); ok {
		scope.SetTag("chat_id", strconv.FormatInt(chatID, 10))
	}
	if messageID := ctxutil.GetMessageID(ctx); messageID != 0 {
		scope.SetTag("message_id", strconv.Itoa(messageID))
	}
	if requestID, ok := ctxutil.GetRequestID(ctx); ok && requestID != "" {
		scope.SetTag("request_id", requestID)
	}
}

// CaptureExceptionWithContext captures err on the request's hub, tagged
// with the chat identifiers stored in ctx.
func CaptureExceptionWithContext(ctx context.Context, err error) {
	hub := hubFrom(ctx)
	hub.WithScope(func(scope *sentry.Scope) {
		tagScope(ctx, scope)
		hub.CaptureException(err)
	})
}

// CapturePanic reports a recovered panic value.
func CapturePanic(ctx context.Context, recovered any) {
	hub := hubFrom(ctx)
	hub.WithScope(func(scope *sentry.Scope) {
		tagScope(ctx, scope)
		hub.RecoverWithContext(ctx, recovered)
	})
}

// CaptureMessage captures a message and sends it to Sentry.
func CaptureMessage(message string) {
	sentry.CaptureMessage(message)
}
