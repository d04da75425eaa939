package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds all Prometheus metrics for the registry service
type MetricsRegistry struct {
	Registry *prometheus.Registry

	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight *prometheus.GaugeVec

	// Cache Metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Import Metrics
	ImportRowsTotal   *prometheus.CounterVec
	ImportRunsTotal   *prometheus.CounterVec
	ImportRunDuration prometheus.Histogram

	// Export Metrics
	ExportMembersTotal   *prometheus.CounterVec
	DecryptFailuresTotal *prometheus.CounterVec
	ExportRunDuration    prometheus.Histogram
}

// NewMetricsRegistry initializes a MetricsRegistry on its own prometheus
// registry, so several can coexist in one process.
func NewMetricsRegistry() *MetricsRegistry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &MetricsRegistry{
		Registry: reg,

		// HTTP Metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registry_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "registry_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "registry_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"endpoint"},
		),

		// Cache Metrics
		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registry_cache_hits_total",
				Help: "Total cache hits by cache key pattern",
			},
			[]string{"cache_key_pattern"},
		),
		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registry_cache_misses_total",
				Help: "Total cache misses by cache key pattern",
			},
			[]string{"cache_key_pattern"},
		),

		// Import Metrics
		ImportRowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registry_import_rows_total",
				Help: "Roster rows processed by outcome (imported, updated, skipped, error)",
			},
			[]string{"outcome"},
		),
		ImportRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registry_import_runs_total",
				Help: "Import runs by final batch status",
			},
			[]string{"status"},
		),
		ImportRunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "registry_import_run_duration_seconds",
				Help:    "Import run execution time in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
		),

		// Export Metrics
		ExportMembersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registry_export_members_total",
				Help: "Members considered by the export, by outcome (exported, skipped)",
			},
			[]string{"outcome"},
		),
		DecryptFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registry_decrypt_failures_total",
				Help: "Field decryption failures during export, by field",
			},
			[]string{"field"},
		),
		ExportRunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "registry_export_run_duration_seconds",
				Help:    "Export run execution time in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
		),
	}
}
