package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()
	registry := prometheus.NewRegistry()
	m := New(registry)
	require.NotNil(t, m)

	m.RecordWebhook("ok", 0.1)
	m.RecordCommand("leli", "success", 0.2)
	m.RecordUpstream("wikipedia", "success", 0.3)
	m.RecordQuoteRefresh("success")
	m.SetQuoteCacheSize(1)
	m.RecordTelegramSend("sendMessage", "success")
	m.RecordRateLimiterDrop("chat")
	m.RecordSingleflightDedup("quote")

	families, err := registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	for _, want := range []string{
		"tululbot_webhook_requests_total",
		"tululbot_webhook_duration_seconds",
		"tululbot_command_total",
		"tululbot_command_duration_seconds",
		"tululbot_upstream_requests_total",
		"tululbot_upstream_duration_seconds",
		"tululbot_quote_refresh_total",
		"tululbot_quote_cache_size",
		"tululbot_telegram_send_total",
		"tululbot_rate_limiter_dropped_total",
		"tululbot_singleflight_dedup_total",
	} {
		assert.Contains(t, names, want)
	}
}

func TestRecordCommand(t *testing.T) {
	t.Parallel()
	m := New(prometheus.NewRegistry())

	m.RecordCommand("quote", "success", 0.01)
	m.RecordCommand("quote", "success", 0.02)
	m.RecordCommand("quote", "error", 0.5)

	assert.InDelta(t, 2, testutil.ToFloat64(m.CommandTotal.WithLabelValues("quote", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CommandTotal.WithLabelValues("quote", "error")), 0)
}

func TestQuoteCacheSize(t *testing.T) {
	t.Parallel()
	m := New(prometheus.NewRegistry())

	m.SetQuoteCacheSize(12)
	assert.InDelta(t, 12, testutil.ToFloat64(m.QuoteCacheSize), 0)
	m.SetQuoteCacheSize(3)
	assert.InDelta(t, 3, testutil.ToFloat64(m.QuoteCacheSize), 0)
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordWebhook("ok", 1)
		m.RecordCommand("x", "success", 1)
		m.RecordUpstream("x", "success", 1)
		m.RecordQuoteRefresh("error")
		m.SetQuoteCacheSize(0)
		m.RecordTelegramSend("sendMessage", "error")
		m.RecordRateLimiterDrop("chat")
		m.RecordSingleflightDedup("quote")
	})
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	t.Parallel()
	registry := prometheus.NewRegistry()
	New(registry)
	assert.Panics(t, func() { New(registry) })
}

func TestTrackRuntimeFuncs(t *testing.T) {
	t.Parallel()
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.TrackRateLimiterKeys("chat", func() int { return 3 })
	m.TrackLogShippingDropped(func() uint64 { return 7 })

	families, err := registry.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			switch {
			case metric.GetGauge() != nil:
				values[f.GetName()] = metric.GetGauge().GetValue()
			case metric.GetCounter() != nil:
				values[f.GetName()] = metric.GetCounter().GetValue()
			}
		}
	}
	assert.InDelta(t, 3, values["tululbot_rate_limiter_active_keys"], 0)
	assert.InDelta(t, 7, values["tululbot_log_shipping_dropped_total"], 0)

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.TrackRateLimiterKeys("chat", func() int { return 0 }) })
}
