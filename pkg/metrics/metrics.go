package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records portal login attempts by role and result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insurai_auth_attempts_total",
			Help: "Total number of portal login attempts",
		},
		[]string{"role", "result"},
	)

	// GuardDecisions counts route guard evaluations by role and outcome (allow|deny).
	GuardDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insurai_guard_decisions_total",
			Help: "Total number of dashboard route guard decisions",
		},
		[]string{"role", "result"},
	)

	// ActiveSessions tracks portal sessions that are neither expired nor revoked.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "insurai_active_sessions",
			Help: "Number of active portal sessions",
		},
	)

	// BackendRequests counts calls to the system-of-record API by endpoint and result.
	BackendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insurai_backend_requests_total",
			Help: "Total number of backend API requests",
		},
		[]string{"endpoint", "result"},
	)

	// ClaimDecisions counts claim state transitions by target status and result.
	ClaimDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insurai_claim_decisions_total",
			Help: "Total number of claim approve/reject attempts",
		},
		[]string{"decision", "result"},
	)

	// ClaimValidations counts claim submission validation outcomes.
	ClaimValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insurai_claim_validations_total",
			Help: "Total number of claim submission validations",
		},
		[]string{"result"},
	)

	// NotificationPolls counts scheduled notification refreshes by result.
	NotificationPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insurai_notification_polls_total",
			Help: "Total number of scheduled notification refreshes",
		},
		[]string{"result"},
	)

	// ReportsGenerated counts report exports by kind and format.
	ReportsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insurai_reports_generated_total",
			Help: "Total number of generated report exports",
		},
		[]string{"kind", "format"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "insurai_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
