// Package logger provides structured logging utilities for the application.
// It wraps log/slog with JSON formatting, enriches records with the chat
// and request identifiers carried in the context, and optionally ships
// records to Better Stack without blocking the webhook path.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	slogbetterstack "github.com/samber/slog-betterstack"
)

// Options configures optional log sinks.
type Options struct {
	BetterStackToken    string
	BetterStackEndpoint string
	Async               AsyncOptions
}

// Logger is the application logger
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
	async *AsyncHandler
}

// New creates a new logger instance with JSON formatting
func New(level string) *Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter creates a new logger instance with JSON formatting writing to the provided writer
func NewWithWriter(level string, w io.Writer) *Logger {
	return NewWithOptions(level, w, Options{})
}

// NewWithOptions creates a logger that writes JSON to w and, when a Better
// Stack token is set, also ships records to Better Stack asynchronously.
func NewWithOptions(level string, w io.Writer, opts Options) *Logger {
	lv := &slog.LevelVar{}
	lv.Set(ParseLevel(level))

	var handler slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lv,
		ReplaceAttr: renameAttrs,
	})

	var async *AsyncHandler
	if opts.BetterStackToken != "" {
		remote := slogbetterstack.Option{
			Level:    lv,
			Token:    opts.BetterStackToken,
			Endpoint: opts.BetterStackEndpoint,
		}.NewBetterstackHandler()
		async = NewAsyncHandler(remote, opts.Async)
		handler = NewMultiHandler(handler, async)
	}

	return &Logger{
		Logger: slog.New(NewContextHandler(handler)),
		level:  lv,
		async:  async,
	}
}

// ParseLevel maps a LOG_LEVEL string to a slog level. Unknown values mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func renameAttrs(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		a.Key = "timestamp"
	case slog.LevelKey:
		a.Key = "level"
		level := a.Value.String()
		if level == "WARN" {
			level = "warning"
		} else {
			level = strings.ToLower(level)
		}
		a.Value = slog.StringValue(level)
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}

// SetLevel changes the minimum level for this logger and every logger derived from it.
func (l *Logger) SetLevel(level string) {
	l.level.Set(ParseLevel(level))
}

// Shutdown flushes records still queued for remote shipping.
func (l *Logger) Shutdown(ctx context.Context) error {
	return l.async.Shutdown(ctx)
}

// DroppedRecords returns how many records the remote shipping queue
// discarded. It is zero when no remote sink is configured.
func (l *Logger) DroppedRecords() uint64 {
	return l.async.Dropped()
}

func (l *Logger) derive(s *slog.Logger) *Logger {
	return &Logger{Logger: s, level: l.level, async: l.async}
}

// WithModule creates a new entry with module field
func (l *Logger) WithModule(module string) *Logger {
	return l.derive(l.With("module", module))
}

// WithRequestID creates a new entry with request ID field
func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.derive(l.With("request_id", requestID))
}

// WithError creates a new entry with error field
func (l *Logger) WithError(err error) *Logger {
	return l.derive(l.With("error", err))
}

// WithField creates a new entry with a single field
func (l *Logger) WithField(key string, value any) *Logger {
	return l.derive(l.With(key, value))
}
