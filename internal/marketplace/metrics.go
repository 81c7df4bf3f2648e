package marketplace

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/seantiz/proofmarket/internal/model"
)

// Match attempt outcomes.
const (
	outcomeMatched  = "matched"
	outcomeNoProver = "no_prover"
	outcomeRejected = "rejected"
)

var (
	jobsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proofmarket_jobs_submitted_total",
			Help: "Total number of jobs submitted.",
		},
		[]string{"proof_type"},
	)

	matchAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proofmarket_match_attempts_total",
			Help: "Total number of match attempts by outcome.",
		},
		[]string{"outcome"},
	)

	jobsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proofmarket_jobs_completed_total",
			Help: "Total number of jobs settled and completed.",
		},
		[]string{"proof_type"},
	)

	jobsCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "proofmarket_jobs_cancelled_total",
			Help: "Total number of jobs cancelled by their requester.",
		},
	)

	settlementFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proofmarket_settlement_failures_total",
			Help: "Total number of aborted completion attempts by reason.",
		},
		[]string{"reason"},
	)

	proversRegistered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "proofmarket_provers_registered_total",
			Help: "Total number of prover registrations, including re-registrations.",
		},
	)

	settledAmount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "proofmarket_settled_amount",
			Help:    "Amount paid to provers per settled job, in the smallest currency unit.",
			Buckets: prometheus.ExponentialBuckets(1, 10, 12),
		},
	)
)

func init() {
	prometheus.MustRegister(jobsSubmitted)
	prometheus.MustRegister(matchAttempts)
	prometheus.MustRegister(jobsCompleted)
	prometheus.MustRegister(jobsCancelled)
	prometheus.MustRegister(settlementFailures)
	prometheus.MustRegister(proversRegistered)
	prometheus.MustRegister(settledAmount)

	// Pre-initialize label combinations so they appear in /metrics with value 0.
	for _, pt := range model.ProofTypes {
		jobsSubmitted.WithLabelValues(string(pt))
		jobsCompleted.WithLabelValues(string(pt))
	}
	for _, o := range []string{outcomeMatched, outcomeNoProver, outcomeRejected} {
		matchAttempts.WithLabelValues(o)
	}
	for _, r := range []string{"not_found", "invalid_state", "unauthorized", "proof_rejected", "transfer_failed", "internal"} {
		settlementFailures.WithLabelValues(r)
	}
}

// failureReason buckets an aborted settlement error into a metric label.
func failureReason(err error) string {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrInvalidTransition):
		return "invalid_state"
	case errors.Is(err, model.ErrUnauthorized), errors.Is(err, model.ErrNoCaller):
		return "unauthorized"
	case errors.Is(err, model.ErrProofRejected):
		return "proof_rejected"
	case errors.Is(err, model.ErrTransferFailed):
		return "transfer_failed"
	default:
		return "internal"
	}
}
