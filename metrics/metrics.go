package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obsquery_queries_total",
			Help: "Total number of queries served",
		},
		[]string{"endpoint", "status"},
	)

	QueryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obsquery_query_failures_total",
			Help: "Total number of queries that failed, by pipeline stage",
		},
		[]string{"stage"},
	)

	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "obsquery_search_duration_seconds",
			Help:    "Wall time spent waiting on the search backend",
			Buckets: prometheus.DefBuckets,
		},
	)

	SearchBackendTook = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "obsquery_search_backend_took_milliseconds",
			Help:    "Execution time reported by the search backend",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
	)

	ResolveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "obsquery_resolve_duration_seconds",
			Help:    "Time taken to look up search hits in the document store",
			Buckets: prometheus.DefBuckets,
		},
	)

	EventsUnresolved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "obsquery_events_unresolved_total",
			Help: "Search hits with no matching record in the document store",
		},
	)

	EventsMalformed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "obsquery_events_malformed_total",
			Help: "Stored records skipped because they could not be decoded",
		},
	)

	EventsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obsquery_events_loaded_total",
			Help: "Total number of events written, by destination",
		},
		[]string{"destination"},
	)

	SearchBreakerOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "obsquery_search_breaker_open",
			Help: "1 while the search backend circuit breaker is rejecting searches",
		},
	)

	APIPanicsRecovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "obsquery_api_panics_recovered_total",
			Help: "HTTP handler panics recovered by the API",
		},
	)
)
