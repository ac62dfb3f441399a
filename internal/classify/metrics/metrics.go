package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ClassificationsTotal counts classifier decisions by outcome.
	ClassificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trapper_classifications_total",
		Help: "Person canonical classifications by outcome.",
	}, []string{"outcome"})

	// RefreshDuration observes full canonical-flag refresh runs.
	RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trapper_classify_refresh_duration_seconds",
		Help:    "Duration of canonical flag refresh runs.",
		Buckets: prometheus.DefBuckets,
	})

	// RefreshedPersons counts persons examined during refresh runs.
	RefreshedPersons = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trapper_classify_refreshed_persons_total",
		Help: "Persons examined by canonical flag refresh.",
	})
)
