package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errorHandler struct{ err error }

func (h *errorHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (h *errorHandler) Handle(context.Context, slog.Record) error { return h.err }
func (h *errorHandler) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h *errorHandler) WithGroup(string) slog.Handler             { return h }

// blockingHandler holds every record until release is closed.
type blockingHandler struct {
	release chan struct{}
	mu      sync.Mutex
	got     []string
}

func (h *blockingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *blockingHandler) Handle(_ context.Context, r slog.Record) error {
	<-h.release
	h.mu.Lock()
	h.got = append(h.got, r.Message)
	h.mu.Unlock()
	return nil
}
func (h *blockingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *blockingHandler) WithGroup(string) slog.Handler      { return h }

func TestMultiHandler_FanOut(t *testing.T) {
	t.Parallel()
	var info, errOnly bytes.Buffer
	m := NewMultiHandler(
		slog.NewJSONHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		nil,
		slog.NewJSONHandler(&errOnly, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	log := slog.New(m)

	log.Info("hello")
	assert.Contains(t, info.String(), "hello")
	assert.Empty(t, errOnly.String())

	log.Error("bad")
	assert.Contains(t, errOnly.String(), "bad")
	assert.False(t, m.Enabled(context.Background(), slog.LevelDebug))
}

func TestMultiHandler_WithAttrsAndGroup(t *testing.T) {
	t.Parallel()
	var a, b bytes.Buffer
	m := NewMultiHandler(slog.NewJSONHandler(&a, nil), slog.NewJSONHandler(&b, nil))

	slog.New(m.WithAttrs([]slog.Attr{slog.String("k", "v")}).WithGroup("g")).Info("x", "n", 1)

	for _, out := range []string{a.String(), b.String()} {
		assert.Contains(t, out, `"k":"v"`)
		assert.Contains(t, out, `"g":{"n":1}`)
	}
}

func TestMultiHandler_JoinsErrors(t *testing.T) {
	t.Parallel()
	e1, e2 := errors.New("one"), errors.New("two")
	m := NewMultiHandler(&errorHandler{err: e1}, &errorHandler{err: e2})

	err := m.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "x", 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, e1)
	assert.ErrorIs(t, err, e2)
}

func TestAsyncHandler_DrainsOnShutdown(t *testing.T) {
	t.Parallel()
	sink := &blockingHandler{release: make(chan struct{})}
	h := NewAsyncHandler(sink, AsyncOptions{BufferSize: 8})
	log := slog.New(h)

	log.Info("first")
	log.Info("second")
	close(sink.release)

	require.NoError(t, h.Shutdown(context.Background()))
	assert.Equal(t, []string{"first", "second"}, sink.got)

	log.Info("after shutdown")
	assert.NoError(t, h.Shutdown(context.Background()))
	assert.Len(t, sink.got, 2)
}

func TestAsyncHandler_DropsWhenFull(t *testing.T) {
	t.Parallel()
	sink := &blockingHandler{release: make(chan struct{})}
	h := NewAsyncHandler(sink, AsyncOptions{BufferSize: 1})
	log := slog.New(h)

	for range 10 {
		log.Info("flood")
	}
	assert.Positive(t, h.Dropped())

	close(sink.release)
	require.NoError(t, h.Shutdown(context.Background()))
}

func TestAsyncHandler_ShutdownTimeout(t *testing.T) {
	t.Parallel()
	sink := &blockingHandler{release: make(chan struct{})}
	h := NewAsyncHandler(sink, AsyncOptions{BufferSize: 4, FlushTimeout: 20 * time.Millisecond})
	slog.New(h).Info("stuck")

	err := h.Shutdown(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(sink.release)
}
