// Package metrics registers the prometheus counters exposed by the status
// server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Transitions counts lifecycle transitions by outcome.
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "espalier_transitions_total",
		Help: "Run lifecycle transitions, by outcome.",
	}, []string{"outcome"})

	// Claims counts claim attempts by outcome.
	Claims = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "espalier_claims_total",
		Help: "Run claim attempts, by outcome.",
	}, []string{"outcome"})

	// StaleWrites counts optimistic-lock write refusals.
	StaleWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "espalier_stale_writes_total",
		Help: "Versioned writes refused because another writer won the race.",
	})

	// SweptClaims counts expired claims reclaimed by garbage collection.
	SweptClaims = promauto.NewCounter(prometheus.CounterOpts{
		Name: "espalier_swept_claims_total",
		Help: "Expired claims released by the sweeper.",
	})

	// VerificationEvents counts appended verification events by type.
	VerificationEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "espalier_verification_events_total",
		Help: "Verification events appended, by type.",
	}, []string{"type"})
)

const (
	// OutcomeOK labels successful operations.
	OutcomeOK = "ok"
	// OutcomeRejected labels validation rejections.
	OutcomeRejected = "rejected"
	// OutcomeConflict labels concurrency-class failures.
	OutcomeConflict = "conflict"
)
