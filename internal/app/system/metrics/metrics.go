// Package metrics holds the Prometheus collectors for the server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "teamhub"

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)
)

// Real-time metrics
var (
	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "connections",
			Help:      "Open real-time connections on this process",
		},
	)

	// RealtimeDeliveries counts messages queued to connections, by room kind.
	RealtimeDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "deliveries_total",
			Help:      "Messages queued to connections",
		},
		[]string{"room"}, // project, user
	)

	RealtimeDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "dropped_total",
			Help:      "Messages dropped because a connection's send buffer was full",
		},
	)

	RealtimeAuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "auth_failures_total",
			Help:      "Rejected real-time handshakes",
		},
		[]string{"reason"},
	)

	RealtimeRelayErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "relay_errors_total",
			Help:      "Failed publishes to the cross-process relay",
		},
	)
)

// Notification metrics
var (
	NotificationsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "recorded_total",
			Help:      "Notifications written, by type",
		},
		[]string{"type"},
	)

	// SideEffectFailures counts best-effort side effects that failed and were discarded.
	SideEffectFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "side_effects",
			Name:      "failures_total",
			Help:      "Best-effort side effects that failed",
		},
		[]string{"op"},
	)

	NotificationsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "swept_total",
			Help:      "Notifications removed by the retention sweep",
		},
	)
)

// Board metrics
var (
	ColumnLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "doing_limit_rejections_total",
			Help:      "Task creates or moves refused by the doing-column limit",
		},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
