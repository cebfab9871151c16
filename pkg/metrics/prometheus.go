// Package metrics provides Prometheus metrics for the covidash dashboard.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the dashboard.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Dataset metrics, set once at startup
	datasetRecords      prometheus.Gauge
	datasetRegions      prometheus.Gauge
	datasetLoadDuration *prometheus.HistogramVec
	datasetLoadedUnix   prometheus.Gauge

	// Render metrics, one observation per interaction
	renderTotal    prometheus.Counter
	renderDuration prometheus.Histogram
	renderFailures prometheus.Counter
	renderEmpty    *prometheus.CounterVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Configure replaces the global manager with one built from opts on a fresh
// registry. Call it once at startup, before handlers read GetRegistry.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry = registry
}

// Enabled reports whether the global manager records observations.
func Enabled() bool {
	return globalManager.Enabled()
}

// RefreshInterval is how often the global gauges should be refreshed.
func RefreshInterval() time.Duration {
	return globalManager.RefreshInterval()
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "covidash",
		subsystem:        "dashboard",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval is how often callers should refresh gauge metrics.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

// Enabled reports whether observations are recorded.
func (m *Manager) Enabled() bool {
	return m.enabled
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
		Buckets:     buckets,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	m.datasetRecords = auto.NewGauge(m.gaugeOpts("dataset_records", "Number of case records loaded at startup"))
	m.datasetRegions = auto.NewGauge(m.gaugeOpts("dataset_regions", "Number of FSA boundaries loaded at startup"))
	m.datasetLoadDuration = auto.NewHistogramVec(
		m.histogramOpts("dataset_load_duration_milliseconds", "Startup load duration in milliseconds by source", m.histogramBuckets),
		[]string{"source"},
	)
	m.datasetLoadedUnix = auto.NewGauge(m.gaugeOpts("dataset_loaded_unix", "Unix timestamp of the dataset snapshot in memory"))

	m.renderTotal = auto.NewCounter(m.counterOpts("render_total", "Total number of dashboard recomputations"))
	m.renderDuration = auto.NewHistogram(m.histogramOpts("render_duration_milliseconds", "Dashboard recomputation latency in milliseconds", m.histogramBuckets))
	m.renderFailures = auto.NewCounter(m.counterOpts("render_failures_total", "Recomputations recovered into the no data state"))
	m.renderEmpty = auto.NewCounterVec(
		m.counterOpts("render_empty_total", "Figures rendered as the empty placeholder"),
		[]string{"figure"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_time_milliseconds",
		"GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	))
}

// UpdateDatasetRecords sets the number of loaded case records.
func UpdateDatasetRecords(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.datasetRecords.Set(float64(count))
}

// UpdateDatasetRegions sets the number of loaded boundaries.
func UpdateDatasetRegions(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.datasetRegions.Set(float64(count))
}

// RecordDatasetLoad records how long a startup source took to load.
func RecordDatasetLoad(source string, durationMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.datasetLoadDuration.WithLabelValues(source).Observe(durationMs)
}

// UpdateDatasetLoadedAt records when the in-memory snapshot was taken.
func UpdateDatasetLoadedAt(t time.Time) {
	if !globalManager.enabled {
		return
	}
	globalManager.datasetLoadedUnix.Set(float64(t.Unix()))
}

// RecordRender records one dashboard recomputation.
func RecordRender(durationMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.renderTotal.Inc()
	globalManager.renderDuration.Observe(durationMs)
}

// RecordRenderFailure increments the recovered render counter.
func RecordRenderFailure() {
	if !globalManager.enabled {
		return
	}
	globalManager.renderFailures.Inc()
}

// RecordEmptyFigure counts a figure that fell back to the placeholder.
func RecordEmptyFigure(figure string) {
	if !globalManager.enabled {
		return
	}
	globalManager.renderEmpty.WithLabelValues(figure).Inc()
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

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
