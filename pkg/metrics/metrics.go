package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Transitions tracks executor status transitions
	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cross_swap_transitions_total",
			Help: "Total number of executor status transitions",
		},
		[]string{"from", "to"},
	)

	// Errors tracks classified failures per kind
	Errors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cross_swap_errors_total",
			Help: "Total number of classified swap errors",
		},
		[]string{"kind"},
	)

	// Retries tracks automatic retries per kind
	Retries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cross_swap_retries_total",
			Help: "Total number of automatic step retries",
		},
		[]string{"kind"},
	)

	// RateChanges tracks exchange rate guard outcomes
	RateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cross_swap_rate_changes_total",
			Help: "Exchange rate checks by decision",
		},
		[]string{"decision"},
	)

	// StepDuration tracks how long a route step takes from signing to done
	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cross_swap_step_duration_seconds",
			Help:    "Route step duration in seconds",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200, 3600},
		},
		[]string{"chain"},
	)
)

// Rate guard decisions
const (
	DecisionWithinTolerance  = "within_tolerance"
	DecisionComparisonFailed = "comparison_failed"
	DecisionAwaiting         = "awaiting"
	DecisionAccepted         = "accepted"
	DecisionRejected         = "rejected"
)
