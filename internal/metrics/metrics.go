// Package metrics provides Prometheus instrumentation for the telemetry
// pipeline: fix ingest, anomaly detection, safety scoring, escalation, and
// the client-facing surfaces. Metrics are exposed at /metrics in Prometheus
// text format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingest metrics
	FixesAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "telemetry_fixes_accepted_total",
			Help: "Total number of location fixes accepted into histories",
		},
	)

	FixesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_fixes_rejected_total",
			Help: "Total number of location fixes rejected at ingest",
		},
		[]string{"reason"}, // "invalid_coordinates", "stale_timestamp", "queue_full"
	)

	QueueDrops = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "telemetry_queue_drops_total",
			Help: "Total number of oldest-fix drops from full session queues",
		},
	)

	// Profile metrics
	ProfileRebuilds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "profile_rebuilds_total",
			Help: "Total number of behavior profile rebuilds",
		},
	)

	// Detection metrics
	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anomalies_detected_total",
			Help: "Total number of anomaly events by type and severity",
		},
		[]string{"type", "severity"},
	)

	DetectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "detection_duration_seconds",
			Help:    "Duration of a full detection pass over one fix",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Scoring metrics
	SafetyScoreValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "safety_score",
			Help: "Latest safety score per tourist",
		},
		[]string{"tourist_id"},
	)

	SafetyStatusTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safety_status_total",
			Help: "Total number of score evaluations by resulting status",
		},
		[]string{"status"},
	)

	// Escalation metrics
	EscalationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escalation_transitions_total",
			Help: "Total number of escalation state transitions",
		},
		[]string{"to_state"},
	)

	EscalationsDegraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "escalations_degraded_total",
			Help: "Total number of escalations degraded after dispatch failures",
		},
	)

	// Session metrics
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_sessions",
			Help: "Current number of live tourist sessions",
		},
	)

	StorageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_errors_total",
			Help: "Total number of session storage failures",
		},
		[]string{"operation"}, // "get", "put", "delete"
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// WebSocket metrics
	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_clients",
			Help: "Current number of connected websocket clients",
		},
	)
)

// RecordAnomaly records one detected anomaly event.
func RecordAnomaly(anomalyType, severity string) {
	AnomaliesDetected.WithLabelValues(anomalyType, severity).Inc()
}

// RecordScore records a score evaluation outcome.
func RecordScore(touristID, status string, score float64) {
	SafetyScoreValue.WithLabelValues(touristID).Set(score)
	SafetyStatusTotal.WithLabelValues(status).Inc()
}

// RecordFixRejected records one rejected fix by reason.
func RecordFixRejected(reason string) {
	FixesRejected.WithLabelValues(reason).Inc()
}

// RecordDetectionPass records the duration of one detection pass.
func RecordDetectionPass(duration time.Duration) {
	DetectionDuration.Observe(duration.Seconds())
}

// RecordEscalationTransition records one state machine transition.
func RecordEscalationTransition(toState string) {
	EscalationTransitions.WithLabelValues(toState).Inc()
}

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, endpoint, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
