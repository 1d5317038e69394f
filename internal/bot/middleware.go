package bot

import (
	"context"
	"time"

	"github.com/tulul/tululbot/internal/logger"
	"github.com/tulul/tululbot/internal/metrics"
)

// LoggingMiddleware logs handler execution with timing and result info.
func LoggingMiddleware(log *logger.Logger) Middleware {
	return func(name string, next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, args Args) (Result, error) {
			start := time.Now()
			log.DebugContext(ctx, "Command started", "command", name, "args", args.Len())

			res, err := next(ctx, args)

			l := log.WithField("command", name).WithField("duration_ms", time.Since(start).Milliseconds())
			if err != nil {
				l.WithError(err).DebugContext(ctx, "Command failed")
			} else {
				l.DebugContext(ctx, "Command completed")
			}
			return res, err
		}
	}
}

// MetricsMiddleware records per-command outcome and duration. A panic is
// counted and then re-raised.
func MetricsMiddleware(m *metrics.Metrics) Middleware {
	return func(name string, next HandlerFunc) HandlerFunc {
		if m == nil {
			return next
		}
		return func(ctx context.Context, args Args) (res Result, err error) {
			start := time.Now()
			status := "panic"
			defer func() {
				m.RecordCommand(name, status, time.Since(start).Seconds())
			}()

			res, err = next(ctx, args)
			status = "success"
			if err != nil {
				status = "error"
			}
			return res, err
		}
	}
}
