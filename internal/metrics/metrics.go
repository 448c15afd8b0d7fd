// Package metrics exposes the Prometheus collectors of the API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Budget evaluation states.
const (
	BudgetStateOK   = "ok"
	BudgetStateNear = "near_limit"
	BudgetStateOver = "over_limit"
)

var (
	rollupRecomputations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fintrack_rollup_recomputations_total",
			Help: "Total number of monthly snapshots recomputed",
		},
	)

	rollupCascadeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fintrack_rollup_cascade_duration_seconds",
			Help:    "Duration of a rollup cascade triggered by a transaction change",
			Buckets: prometheus.DefBuckets,
		},
	)

	rollupCascadeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fintrack_rollup_cascade_failures_total",
			Help: "Total number of rollup cascades that failed after a transaction change",
		},
	)

	budgetEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fintrack_budget_evaluations_total",
			Help: "Total number of budget evaluations by resulting state",
		},
		[]string{"state"}, // ok, near_limit, over_limit
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fintrack_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)
)

// RollupRecomputed counts one snapshot recomputation.
func RollupRecomputed() { rollupRecomputations.Inc() }

// ObserveCascade records the duration of a cascade started at start.
func ObserveCascade(start time.Time) {
	rollupCascadeDuration.Observe(time.Since(start).Seconds())
}

// CascadeFailed counts one failed cascade.
func CascadeFailed() { rollupCascadeFailures.Inc() }

// BudgetEvaluated counts one budget evaluation in the given state.
func BudgetEvaluated(state string) { budgetEvaluations.WithLabelValues(state).Inc() }

// HTTPRequest counts one served request.
func HTTPRequest(method, route, status string) {
	httpRequests.WithLabelValues(method, route, status).Inc()
}
