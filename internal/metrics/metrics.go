// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Webhook metrics
	WebhookRequestsTotal   *prometheus.CounterVec
	WebhookDurationSeconds prometheus.Histogram

	// Command metrics
	CommandTotal           *prometheus.CounterVec
	CommandDurationSeconds *prometheus.HistogramVec

	// Upstream metrics
	UpstreamRequestsTotal   *prometheus.CounterVec
	UpstreamDurationSeconds *prometheus.HistogramVec

	// Quote cache metrics
	QuoteRefreshTotal *prometheus.CounterVec
	QuoteCacheSize    prometheus.Gauge

	// Telegram metrics
	TelegramSendTotal *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterDropped *prometheus.CounterVec

	// Singleflight metrics
	SingleflightDedupTotal *prometheus.CounterVec

	factory promauto.Factory
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		WebhookRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tululbot_webhook_requests_total",
				Help: "Total number of webhook requests by outcome",
			},
			[]string{"status"}, // status: ok, ignored, forbidden, error, rate_limited
		),

		WebhookDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tululbot_webhook_duration_seconds",
				Help:    "Webhook processing duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 15, 45},
			},
		),

		CommandTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tululbot_command_total",
				Help: "Total number of dispatched commands by command and status",
			},
			[]string{"command", "status"}, // status: success, error, panic
		),

		CommandDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tululbot_command_duration_seconds",
				Help:    "Command handler duration in seconds",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 15},
			},
			[]string{"command"},
		),

		UpstreamRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tululbot_upstream_requests_total",
				Help: "Total number of outbound requests by upstream and status",
			},
			[]string{"source", "status"}, // status: success, upstream_error, connectivity_error
		),

		UpstreamDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tululbot_upstream_duration_seconds",
				Help:    "Outbound request duration in seconds by upstream",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
			},
			[]string{"source"}, // source: wikipedia, github, kateglo, urbandictionary, kamusslang
		),

		QuoteRefreshTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tululbot_quote_refresh_total",
				Help: "Total number of quote cache refresh attempts by result",
			},
			[]string{"result"}, // result: success, error, skipped, snapshot
		),

		QuoteCacheSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tululbot_quote_cache_size",
				Help: "Number of quotes currently cached",
			},
		),

		TelegramSendTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tululbot_telegram_send_total",
				Help: "Total number of Bot API calls by method and status",
			},
			[]string{"method", "status"}, // method: sendMessage, forwardMessage
		),

		RateLimiterDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tululbot_rate_limiter_dropped_total",
				Help: "Total number of requests dropped by rate limiter",
			},
			[]string{"limiter"}, // limiter: chat
		),

		SingleflightDedupTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tululbot_singleflight_dedup_total",
				Help: "Total number of deduplicated calls (callers that waited instead of executing)",
			},
			[]string{"key"},
		),

		factory: factory,
	}
}

// TrackRateLimiterKeys exports how many keys a limiter tracks, read at
// scrape time. Call once per limiter name.
func (m *Metrics) TrackRateLimiterKeys(limiter string, count func() int) {
	if m == nil {
		return
	}
	m.factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        "tululbot_rate_limiter_active_keys",
			Help:        "Number of keys currently tracked by rate limiter",
			ConstLabels: prometheus.Labels{"limiter": limiter},
		},
		func() float64 { return float64(count()) },
	)
}

// TrackLogShippingDropped exports the number of log records discarded by
// the remote log queue, read at scrape time. Call once.
func (m *Metrics) TrackLogShippingDropped(dropped func() uint64) {
	if m == nil {
		return
	}
	m.factory.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "tululbot_log_shipping_dropped_total",
			Help: "Total number of log records dropped because the shipping queue was full",
		},
		func() float64 { return float64(dropped()) },
	)
}

// RecordWebhook records a webhook request outcome and duration.
func (m *Metrics) RecordWebhook(status string, duration float64) {
	if m == nil {
		return
	}
	m.WebhookRequestsTotal.WithLabelValues(status).Inc()
	m.WebhookDurationSeconds.Observe(duration)
}

// RecordCommand records a command dispatch outcome and duration.
func (m *Metrics) RecordCommand(command, status string, duration float64) {
	if m == nil {
		return
	}
	m.CommandTotal.WithLabelValues(command, status).Inc()
	m.CommandDurationSeconds.WithLabelValues(command).Observe(duration)
}

// RecordUpstream records an outbound request outcome and duration.
func (m *Metrics) RecordUpstream(source, status string, duration float64) {
	if m == nil {
		return
	}
	m.UpstreamRequestsTotal.WithLabelValues(source, status).Inc()
	m.UpstreamDurationSeconds.WithLabelValues(source).Observe(duration)
}

// RecordQuoteRefresh records a quote refresh attempt.
func (m *Metrics) RecordQuoteRefresh(result string) {
	if m == nil {
		return
	}
	m.QuoteRefreshTotal.WithLabelValues(result).Inc()
}

// SetQuoteCacheSize updates the cached quote gauge.
func (m *Metrics) SetQuoteCacheSize(n int) {
	if m == nil {
		return
	}
	m.QuoteCacheSize.Set(float64(n))
}

// RecordTelegramSend records a Bot API call.
func (m *Metrics) RecordTelegramSend(method, status string) {
	if m == nil {
		return
	}
	m.TelegramSendTotal.WithLabelValues(method, status).Inc()
}

// RecordRateLimiterDrop records a request dropped by rate limiter.
func (m *Metrics) RecordRateLimiterDrop(limiter string) {
	if m == nil {
		return
	}
	m.RateLimiterDropped.WithLabelValues(limiter).Inc()
}

// RecordSingleflightDedup records a caller that shared another caller's result.
func (m *Metrics) RecordSingleflightDedup(key string) {
	if m == nil {
		return
	}
	m.SingleflightDedupTotal.WithLabelValues(key).Inc()
}
