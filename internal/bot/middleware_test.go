package bot

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tulul/tululbot/internal/logger"
	"github.com/tulul/tululbot/internal/metrics"
)

func TestLoggingMiddleware(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := logger.NewWithWriter("debug", &buf)

	r := NewRegistry(WithMiddleware(LoggingMiddleware(log)))
	r.MustRegister("who", `^/who$`, echo("me"))
	r.MustRegister("fail", `^/fail$`, func(context.Context, Args) (Result, error) {
		return nil, errors.New("nope")
	})

	res, err := r.Run(context.Background(), "/who")
	require.NoError(t, err)
	assert.Equal(t, Text("me"), res)
	assert.Contains(t, buf.String(), "Command completed")
	assert.Contains(t, buf.String(), `"command":"who"`)

	_, err = r.Run(context.Background(), "/fail")
	assert.EqualError(t, err, "nope")
	assert.Contains(t, buf.String(), "Command failed")
}

func TestMetricsMiddleware(t *testing.T) {
	t.Parallel()
	m := metrics.New(prometheus.NewRegistry())

	r := NewRegistry(WithMiddleware(MetricsMiddleware(m)))
	r.MustRegister("who", `^/who$`, echo("me"))
	r.MustRegister("fail", `^/fail$`, func(context.Context, Args) (Result, error) {
		return nil, errors.New("nope")
	})
	r.MustRegister("boom", `^/boom$`, func(context.Context, Args) (Result, error) {
		panic("boom")
	})

	_, _ = r.Run(context.Background(), "/who")
	_, _ = r.Run(context.Background(), "/fail")
	assert.Panics(t, func() { _, _ = r.Run(context.Background(), "/boom") })

	assert.InDelta(t, 1, testutil.ToFloat64(m.CommandTotal.WithLabelValues("who", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CommandTotal.WithLabelValues("fail", "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CommandTotal.WithLabelValues("boom", "panic")), 0)
}

func TestMetricsMiddleware_NilMetrics(t *testing.T) {
	t.Parallel()
	r := NewRegistry(WithMiddleware(MetricsMiddleware(nil)))
	r.MustRegister("who", `^/who$`, echo("me"))

	res, err := r.Run(context.Background(), "/who")
	require.NoError(t, err)
	assert.Equal(t, Text("me"), res)
}
