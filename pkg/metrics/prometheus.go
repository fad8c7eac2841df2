// Package metrics provides Prometheus metrics for the scholardash service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Analysis outcomes used as label values.
const (
	OutcomeOK           = "ok"
	OutcomeUnavailable  = "unavailable"
	OutcomeInsufficient = "insufficient"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	loadBuckets      []float64
	cohortBuckets    []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Data loading
	tableLoads       *prometheus.CounterVec
	tableLoadLatency *prometheus.HistogramVec
	tableRows        *prometheus.GaugeVec
	malformedRows    *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec

	// Analyses
	analysisRuns    *prometheus.CounterVec
	analysisLatency *prometheus.HistogramVec
	cohortSize      *prometheus.HistogramVec

	// Auth gate
	loginAttempts *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry served at /metrics

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "scholardash",
		subsystem:        "dashboard",
		histogramBuckets: prometheus.DefBuckets,
		loadBuckets:      []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		cohortBuckets:    []float64{0, 1, 3, 5, 10, 25, 50, 100, 250},
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.customLabels)

	m.tableLoads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("table_loads_total"),
		Help:        "CSV table loads by table and outcome",
		ConstLabels: constLabels,
	}, []string{"table", "outcome"})

	m.tableLoadLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("table_load_duration_milliseconds"),
		Help:        "Time spent reading and parsing a CSV table",
		Buckets:     m.loadBuckets,
		ConstLabels: constLabels,
	}, []string{"table"})

	m.tableRows = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("table_rows"),
		Help:        "Rows held in the table cache",
		ConstLabels: constLabels,
	}, []string{"table"})

	m.malformedRows = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("malformed_rows_total"),
		Help:        "Rows skipped or partially nulled because a value could not be parsed",
		ConstLabels: constLabels,
	}, []string{"table"})

	m.cacheHits = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("table_cache_lookups_total"),
		Help:        "Table cache lookups by result (hit, miss, shared)",
		ConstLabels: constLabels,
	}, []string{"result"})

	m.analysisRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("analysis_runs_total"),
		Help:        "Analysis computations by analysis and outcome",
		ConstLabels: constLabels,
	}, []string{"analysis", "outcome"})

	m.analysisLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("analysis_duration_milliseconds"),
		Help:        "Time spent computing an analysis",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	}, []string{"analysis"})

	m.cohortSize = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("cohort_size"),
		Help:        "Members per selected cohort",
		Buckets:     m.cohortBuckets,
		ConstLabels: constLabels,
	}, []string{"cohort"})

	m.loginAttempts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("login_attempts_total"),
		Help:        "Password gate attempts by result",
		ConstLabels: constLabels,
	}, []string{"result"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_requests_total"),
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_request_duration_milliseconds"),
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_type_total"),
		Help:        "Errors by type and severity",
		ConstLabels: constLabels,
	}, []string{"error_type", "severity"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_endpoint_total"),
		Help:        "Errors by endpoint",
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_memory_usage_bytes"),
		Help:        "System memory usage in bytes",
		ConstLabels: constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_goroutine_count"),
		Help:        "Number of goroutines",
		ConstLabels: constLabels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_gc_pause_time_milliseconds"),
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: constLabels,
	})
}

// RecordTableLoad counts a table load attempt.
func RecordTableLoad(table, outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.tableLoads.WithLabelValues(table, outcome).Inc()
}

// RecordTableLoadLatency observes how long a table took to parse.
func RecordTableLoadLatency(table string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.tableLoadLatency.WithLabelValues(table).Observe(latencyMs)
}

// UpdateTableRows sets the cached row count of a table.
func UpdateTableRows(table string, rows int) {
	if !globalManager.enabled {
		return
	}
	globalManager.tableRows.WithLabelValues(table).Set(float64(rows))
}

// RecordMalformedRows adds n malformed rows for table.
func RecordMalformedRows(table string, n int) {
	if !globalManager.enabled || n <= 0 {
		return
	}
	globalManager.malformedRows.WithLabelValues(table).Add(float64(n))
}

// RecordCacheLookup counts a cache lookup; result is hit, miss or shared.
func RecordCacheLookup(result string) {
	if !globalManager.enabled {
		return
	}
	globalManager.cacheHits.WithLabelValues(result).Inc()
}

// RecordAnalysis counts an analysis run and its latency.
func RecordAnalysis(analysis, outcome string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.analysisRuns.WithLabelValues(analysis, outcome).Inc()
	globalManager.analysisLatency.WithLabelValues(analysis).Observe(latencyMs)
}

// RecordCohortSize observes the size of a selected cohort.
func RecordCohortSize(cohort string, size int) {
	if !globalManager.enabled {
		return
	}
	globalManager.cohortSize.WithLabelValues(cohort).Observe(float64(size))
}

// RecordLoginAttempt counts a password gate attempt.
func RecordLoginAttempt(result string) {
	if !globalManager.enabled {
		return
	}
	globalManager.loginAttempts.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByType records an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage updates the memory usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount updates the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime observes an average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry the service metrics live on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RefreshInterval reports how often gauges should be refreshed.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}
