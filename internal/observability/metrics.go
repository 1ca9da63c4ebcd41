package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	apiRequestsTotal  *prometheus.CounterVec
	apiLatencySeconds *prometheus.HistogramVec
	apiErrorsTotal    *prometheus.CounterVec

	wsConnectionsTotal  prometheus.Counter
	messagesSentTotal   *prometheus.CounterVec
	presenceOnlineUsers prometheus.Gauge
	typingSessions      prometheus.Gauge

	notificationsPublished *prometheus.CounterVec
	notificationMutations  *prometheus.CounterVec
	sseClientsActive       prometheus.Gauge

	uploadRequestsTotal *prometheus.CounterVec
	uploadRejectedTotal *prometheus.CounterVec
	uploadLatency       prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		wsConnectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "websocket_connections_total",
			Help: "Total number of websocket conversation connections accepted.",
		})

		messagesSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "messages_sent_total",
			Help: "Total number of direct messages processed.",
		}, []string{"origin"})

		presenceOnlineUsers = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "presence_online_users",
			Help: "Number of users currently tracked online on this node.",
		})

		typingSessions = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "typing_sessions_active",
			Help: "Number of local typing sessions currently active.",
		})

		notificationsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_published_total",
			Help: "Total number of notifications published, by type.",
		}, []string{"type"})

		notificationMutations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_mutations_total",
			Help: "Notification cache mutations, by operation and outcome.",
		}, []string{"operation", "outcome"})

		sseClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sse_clients_active",
			Help: "Number of currently connected notification stream clients.",
		})

		uploadRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_requests_total",
			Help: "Total number of accepted uploads, by detected type.",
		}, []string{"type"})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_rejected_total",
			Help: "Total number of rejected uploads, by reason.",
		}, []string{"reason"})

		uploadLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "upload_latency_seconds",
			Help:    "Latency distribution for upload processing.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		})

		prometheus.MustRegister(
			apiRequestsTotal, apiLatencySeconds, apiErrorsTotal,
			wsConnectionsTotal, messagesSentTotal, presenceOnlineUsers, typingSessions,
			notificationsPublished, notificationMutations, sseClientsActive,
			uploadRequestsTotal, uploadRejectedTotal, uploadLatency,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// WSConnectionsTotal counts accepted websocket connections.
func WSConnectionsTotal() prometheus.Counter {
	RegisterMetrics()
	return wsConnectionsTotal
}

// MessagesSent counts processed direct messages by origin (local/remote).
func MessagesSent() *prometheus.CounterVec {
	RegisterMetrics()
	return messagesSentTotal
}

// PresenceOnlineUsers gauges users tracked online on this node.
func PresenceOnlineUsers() prometheus.Gauge {
	RegisterMetrics()
	return presenceOnlineUsers
}

// TypingSessionsActive gauges local active typing sessions.
func TypingSessionsActive() prometheus.Gauge {
	RegisterMetrics()
	return typingSessions
}

// NotificationsPublishedTotal counts published notifications by type.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublished
}

// NotificationMutations counts cache mutations by operation and outcome.
func NotificationMutations() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationMutations
}

// SSEClientsActive gauges connected notification stream clients.
func SSEClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return sseClientsActive
}

// UploadRequests counts accepted uploads by detected type.
func UploadRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRequestsTotal
}

// UploadRejected counts rejected uploads by reason.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

// UploadLatency exposes the upload processing latency histogram.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatency
}
