package logger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// MultiHandler sends each record to every enabled handler.
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler creates a MultiHandler, skipping nil handlers.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	m := &MultiHandler{}
	for _, h := range handlers {
		if h != nil {
			m.handlers = append(m.handlers, h)
		}
	}
	return m
}

// Enabled reports whether any underlying handler is enabled for the given level.
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle dispatches a clone of the record to every enabled handler and
// joins their errors.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs applies attrs to all handlers.
func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

// WithGroup applies the group to all handlers.
func (m *MultiHandler) WithGroup(name string) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m *MultiHandler) each(fn func(slog.Handler) slog.Handler) *MultiHandler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = fn(h)
	}
	return &MultiHandler{handlers: next}
}

const (
	defaultAsyncBufferSize   = 512
	defaultAsyncFlushTimeout = 5 * time.Second
)

// AsyncOptions configures the async log pipeline.
type AsyncOptions struct {
	BufferSize   int
	FlushTimeout time.Duration
}

type queued struct {
	ctx     context.Context
	record  slog.Record
	handler slog.Handler
}

// shipper owns the queue shared by an AsyncHandler and its derivatives.
type shipper struct {
	queue        chan queued
	flushTimeout time.Duration
	mu           sync.RWMutex
	closed       bool
	dropped      atomic.Uint64
	done         sync.WaitGroup
}

// AsyncHandler hands records to a background goroutine so that a slow
// remote sink never blocks request handling. Records are dropped when the
// queue is full.
type AsyncHandler struct {
	s       *shipper
	handler slog.Handler
}

// NewAsyncHandler starts the background shipper for handler.
func NewAsyncHandler(handler slog.Handler, opts AsyncOptions) *AsyncHandler {
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultAsyncBufferSize
	}
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = defaultAsyncFlushTimeout
	}
	s := &shipper{
		queue:        make(chan queued, opts.BufferSize),
		flushTimeout: opts.FlushTimeout,
	}
	s.done.Add(1)
	go func() {
		defer s.done.Done()
		for q := range s.queue {
			_ = q.handler.Handle(q.ctx, q.record)
		}
	}()
	return &AsyncHandler{s: s, handler: handler}
}

// Enabled reports whether the underlying handler is enabled for the given level.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle enqueues the record. It never blocks.
func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.handler.Enabled(ctx, r.Level) {
		return nil
	}
	h.s.mu.RLock()
	defer h.s.mu.RUnlock()
	if h.s.closed {
		return nil
	}
	select {
	case h.s.queue <- queued{ctx: context.WithoutCancel(ctx), record: r.Clone(), handler: h.handler}:
	default:
		h.s.dropped.Add(1)
	}
	return nil
}

// WithAttrs returns a handler sharing the same queue.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{s: h.s, handler: h.handler.WithAttrs(attrs)}
}

// WithGroup returns a handler sharing the same queue.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{s: h.s, handler: h.handler.WithGroup(name)}
}

// Dropped returns how many records were discarded because the queue was full.
func (h *AsyncHandler) Dropped() uint64 {
	if h == nil {
		return 0
	}
	return h.s.dropped.Load()
}

// Shutdown stops accepting records and waits for the queue to drain, bounded
// by ctx or the configured flush timeout when ctx has no deadline.
func (h *AsyncHandler) Shutdown(ctx context.Context) error {
	if h == nil {
		return nil
	}
	h.s.mu.Lock()
	if h.s.closed {
		h.s.mu.Unlock()
		return nil
	}
	h.s.closed = true
	close(h.s.queue)
	h.s.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.s.flushTimeout)
		defer cancel()
	}

	drained := make(chan struct{})
	go func() {
		h.s.done.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
