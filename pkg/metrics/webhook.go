package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records delivery attempts against subscriber endpoints.
type WebhookMetrics struct {
	attempts *prometheus.CounterVec
	dropped  *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewWebhookMetrics registers the webhook dispatch metrics on the registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_attempts_total",
		Help: "Webhook delivery attempts by event kind and outcome.",
	}, []string{"event", "outcome"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_dropped_total",
		Help: "Webhook events dropped after exhausting retries or on a full queue.",
	}, []string{"event", "reason"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_request_duration_seconds",
		Help:    "Duration of webhook HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event"})
	reg.MustRegister(attempts, dropped, latency)
	return &WebhookMetrics{
		attempts: attempts,
		dropped:  dropped,
		latency:  latency,
	}
}

// IncAttempt counts a delivery attempt with its outcome ("ok" or "error").
func (w *WebhookMetrics) IncAttempt(event, outcome string) {
	if w == nil || w.attempts == nil {
		return
	}
	w.attempts.WithLabelValues(normalizeLabel(event), normalizeLabel(outcome)).Inc()
}

// IncDropped counts an event abandoned for the given reason.
func (w *WebhookMetrics) IncDropped(event, reason string) {
	if w == nil || w.dropped == nil {
		return
	}
	w.dropped.WithLabelValues(normalizeLabel(event), normalizeLabel(reason)).Inc()
}

// ObserveRequest records the wall time of one webhook HTTP request.
func (w *WebhookMetrics) ObserveRequest(event string, duration time.Duration) {
	if w == nil || w.latency == nil {
		return
	}
	w.latency.WithLabelValues(normalizeLabel(event)).Observe(duration.Seconds())
}
