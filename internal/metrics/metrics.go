// Package metrics holds the Prometheus instruments for claim evaluation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Evaluation outcomes
const (
	OutcomeFraud  = "fraud"
	OutcomeClean  = "clean"
	OutcomeFailed = "failed"
)

var (
	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimguard_evaluations_total",
		Help: "Total number of claim evaluations by outcome",
	}, []string{"outcome"})

	EvaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "claimguard_evaluation_duration_seconds",
		Help:    "Duration of EvaluateClaim calls",
		Buckets: prometheus.DefBuckets,
	})

	RetrievalTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimguard_retrieval_total",
		Help: "Similarity searches by result source",
	}, []string{"source"})

	NarrativeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimguard_narrative_total",
		Help: "Analysis narratives by source (generator or template)",
	}, []string{"source"})

	KnowledgeEntriesIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "claimguard_knowledge_entries_indexed_total",
		Help: "Knowledge entries written to the local index",
	})

	ExternalImportFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "claimguard_external_import_failures_total",
		Help: "Best-effort semantic memory imports that failed",
	})
)
