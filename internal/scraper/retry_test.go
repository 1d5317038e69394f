package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff_Success(t *testing.T) {
	t.Parallel()
	attempts := 0

	err := RetryWithBackoff(context.Background(), 5, time.Millisecond, func() error {
		attempts++
		if attempts == 3 {
			return nil
		}
		return errors.New("temporary error")
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_MaxRetriesExceeded(t *testing.T) {
	t.Parallel()
	attempts := 0
	want := errors.New("still failing")

	err := RetryWithBackoff(context.Background(), 3, time.Millisecond, func() error {
		attempts++
		return want
	})

	assert.Same(t, want, err)
	assert.Equal(t, 4, attempts, "initial attempt plus three retries")
}

func TestRetryWithBackoff_ZeroRetries(t *testing.T) {
	t.Parallel()
	attempts := 0
	_ = RetryWithBackoff(context.Background(), 0, time.Hour, func() error {
		attempts++
		return errors.New("x")
	})
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_PermanentStopsImmediately(t *testing.T) {
	t.Parallel()
	attempts := 0
	notFound := errors.New("404")

	err := RetryWithBackoff(context.Background(), 5, time.Hour, func() error {
		attempts++
		return Permanent(notFound)
	})

	assert.Same(t, notFound, err, "permanent wrapper is removed")
	assert.Equal(t, 1, attempts)
	assert.NoError(t, Permanent(nil))
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	err := RetryWithBackoff(ctx, 5, 10*time.Millisecond, func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, attempts)
}

func TestRetryWithBackoff_DelaysGrow(t *testing.T) {
	t.Parallel()
	var stamps []time.Time

	_ = RetryWithBackoff(context.Background(), 2, 40*time.Millisecond, func() error {
		stamps = append(stamps, time.Now())
		return errors.New("error")
	})

	require.Len(t, stamps, 3)
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 30*time.Millisecond)
	assert.GreaterOrEqual(t, stamps[2].Sub(stamps[1]), 60*time.Millisecond)
}

func TestSleep(t *testing.T) {
	t.Parallel()

	start := time.Now()
	require.NoError(t, Sleep(context.Background(), 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start = time.Now()
	assert.ErrorIs(t, Sleep(ctx, time.Second), context.Canceled)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
