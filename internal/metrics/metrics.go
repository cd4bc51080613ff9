package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cartpick"

// Claim outcomes.
const (
	OutcomeClaimed = "claimed"
	OutcomeResumed = "resumed"
	OutcomeEmpty   = "empty"
	OutcomeNoCart  = "no_cart"
	OutcomeLocked  = "locked"
	OutcomeFailed  = "failed"
)

const (
	LockAcquired = "acquired"
	LockBusy     = "busy"
)

var (
	ClaimsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "claims_total",
		Help:      "Claim requests by outcome.",
	}, []string{"outcome"})

	LockAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "claim_lock_attempts_total",
		Help:      "Attempts to take the assignment table lock.",
	}, []string{"result"})

	ClaimDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "claim_duration_seconds",
		Help:      "Time spent serving a claim, retries included.",
		Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5},
	})

	AssignmentsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assignments_created_total",
		Help:      "Assignments created by claims.",
	})

	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assignment_transitions_total",
		Help:      "Assignments moved through the state machine.",
	}, []string{"transition"})

	LinesRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lines_recorded_total",
		Help:      "Cart lines persisted from picker submissions.",
	})
)
