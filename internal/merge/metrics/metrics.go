package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MergesTotal counts merge attempts by outcome: applied, noop, error.
	MergesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trapper_merges_total",
		Help: "Entity merge attempts by outcome.",
	}, []string{"outcome"})

	// MergeDuration observes the time one merge transaction takes.
	MergeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trapper_merge_duration_seconds",
		Help:    "Duration of merge transactions.",
		Buckets: prometheus.DefBuckets,
	})

	// RepointedReferences counts references migrated per reference class.
	RepointedReferences = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trapper_merge_repointed_references_total",
		Help: "References migrated from losers to winners.",
	}, []string{"class"})

	// BatchPairs counts pairs considered by the batch driver, by result.
	BatchPairs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trapper_merge_batch_pairs_total",
		Help: "Candidate pairs processed by batch merge runs.",
	}, []string{"result"})
)
