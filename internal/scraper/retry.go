package scraper

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// permanentError marks a failure that retrying cannot fix, such as a 404.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that RetryWithBackoff returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// RetryWithBackoff calls fn until it succeeds, returns a permanent error,
// or maxRetries retries are used up. maxRetries=0 means a single attempt.
//
// Delay before retry n is initialDelay * 2^n with ±25% jitter:
//
//	initialDelay=500ms: ~500ms, ~1s, ~2s, ...
func RetryWithBackoff(ctx context.Context, maxRetries int, initialDelay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt == maxRetries {
			break
		}

		delay := initialDelay << attempt
		if quarter := int64(delay / 4); quarter > 0 {
			delay += time.Duration(rand.Int64N(2*quarter+1) - quarter)
		}
		if err := Sleep(ctx, delay); err != nil {
			return err
		}
	}

	return lastErr
}

// Sleep waits for the specified duration, respecting context cancellation
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
