// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatdeck_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatdeck_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// MessagesTotal tracks messages appended to conversations, by role.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatdeck_messages_total",
			Help: "Total messages appended to conversations",
		},
		[]string{"role"},
	)

	// WebhookRequestDuration tracks outbound webhook call duration.
	WebhookRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatdeck_webhook_request_duration_seconds",
			Help:    "Assistant webhook request duration",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30, 45, 60},
		},
		[]string{"status"},
	)

	// WebhookRetriesTotal tracks webhook request retries.
	WebhookRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatdeck_webhook_retries_total",
			Help: "Total webhook request retries",
		},
	)

	// DemoResponsesTotal tracks canned responses served in demo mode.
	DemoResponsesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatdeck_demo_responses_total",
			Help: "Total canned demo-mode responses",
		},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatdeck_sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)
)

// RecordRequest records an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordWebhookRequest records an outbound webhook call.
func RecordWebhookRequest(status string, duration float64) {
	WebhookRequestDuration.WithLabelValues(status).Observe(duration)
}

// IncrementSSEConnections increments the active SSE connection gauge.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection gauge.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
