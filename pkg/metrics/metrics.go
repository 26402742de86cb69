// Package metrics defines the Prometheus collectors shared by the searcher
// and indexer and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Search outcome labels for SearchTypeOutcomes.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Metrics holds all Prometheus collectors for the platform.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchTypeOutcomes   *prometheus.CounterVec
	SearchResultsCount   *prometheus.HistogramVec
	EngineLatency        *prometheus.HistogramVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	DocsIndexedTotal     *prometheus.CounterVec
	DocsDeletedTotal     *prometheus.CounterVec
	IndexFailuresTotal   *prometheus.CounterVec
	EventsConsumedTotal  *prometheus.CounterVec
	ReindexDocsTotal     *prometheus.CounterVec
	ReindexLastSuccess   prometheus.Gauge
}

// New creates the collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates the collectors and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, route, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total federated searches by result type (hit, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Federated search latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		SearchTypeOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_type_outcomes_total",
				Help: "Per-entity-type multi-search slot outcomes (ok, failed).",
			},
			[]string{"entity", "outcome"},
		),
		SearchResultsCount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of hits returned per entity type.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
			[]string{"entity"},
		),
		EngineLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "engine_request_duration_seconds",
				Help:    "Search engine round-trip latency by operation.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"op"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of search cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of search cache misses.",
			},
		),
		DocsIndexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Total documents written to the engine.",
			},
			[]string{"entity"},
		),
		DocsDeletedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docs_deleted_total",
				Help: "Total documents removed from the engine.",
			},
			[]string{"entity"},
		),
		IndexFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_failures_total",
				Help: "Failed index writes by entity and operation.",
			},
			[]string{"entity", "op"},
		),
		EventsConsumedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entity_events_consumed_total",
				Help: "Entity events handled by the indexer worker by status.",
			},
			[]string{"status"},
		),
		ReindexDocsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reindex_docs_total",
				Help: "Documents submitted by bulk reindex runs.",
			},
			[]string{"entity", "status"},
		),
		ReindexLastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "reindex_last_success_timestamp_seconds",
				Help: "Unix time of the last bulk reindex that finished without failures.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchTypeOutcomes,
		m.SearchResultsCount,
		m.EngineLatency,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DocsIndexedTotal,
		m.DocsDeletedTotal,
		m.IndexFailuresTotal,
		m.EventsConsumedTotal,
		m.ReindexDocsTotal,
		m.ReindexLastSuccess,
	)

	return m
}

// NewUnregistered returns collectors bound to a private registry, for
// one-shot tools and tests that never expose them.
func NewUnregistered() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
