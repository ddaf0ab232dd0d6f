// Package metrics defines and registers all custom Prometheus metrics for the
// Pet Connect web gateway. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation (promauto) and exposed on /metrics by the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "petconnect"

// ── Session metrics ───────────────────────────────────────────────────────────

// AuthOperationsTotal counts session store operations triggered over HTTP.
// Labels:
//   - operation: "login", "register", "logout", "refresh"
//   - result: "success" or "failure"
var AuthOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_operations_total",
		Help:      "Total number of authentication operations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// GuardDecisionsTotal counts route guard outcomes.
// Label:
//   - outcome: "render", "redirect_login", "redirect_landing"
var GuardDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_decisions_total",
		Help:      "Total number of route guard evaluations, by outcome.",
	},
	[]string{"outcome"},
)

// SessionsActive tracks the number of session stores cached in memory.
var SessionsActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Current number of browser sessions held in the registry.",
	},
)

// SessionTransitionsTotal counts sessions signing in or out.
// Label:
//   - state: "authenticated" or "anonymous", the state entered
var SessionTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_transitions_total",
		Help:      "Total number of session authentication state changes, by state entered.",
	},
	[]string{"state"},
)

// ── Backend metrics ───────────────────────────────────────────────────────────

// BackendRequestsTotal counts calls made to the Pet Connect API.
// Labels:
//   - method: HTTP method
//   - status: response status code, or "error" when no response arrived
var BackendRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backend_requests_total",
		Help:      "Total number of requests sent to the backend API.",
	},
	[]string{"method", "status"},
)

// BackendRequestDuration measures backend round-trip latency.
// Label:
//   - method: HTTP method
var BackendRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backend_request_duration_seconds",
		Help:      "Duration of backend API requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method"},
)
