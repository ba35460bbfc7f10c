package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run results used as the "result" label.
const (
	ResultComputed = "computed"
	ResultSkipped  = "skipped"
	ResultFailed   = "failed"
)

// Manager manages all Prometheus metrics for the simulator.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Run metrics
	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	states      *prometheus.GaugeVec
	combos      *prometheus.GaugeVec
	populated   *prometheus.GaugeVec

	// Fold metrics
	foldSteps       prometheus.Counter
	foldStepLatency prometheus.Histogram
	foldStepStates  prometheus.Gauge

	// Store metrics
	storeWriteLatency *prometheus.HistogramVec
	storeRowsWritten  *prometheus.CounterVec
	storeQueryLatency *prometheus.HistogramVec
	storeErrors       *prometheus.CounterVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "champsim",
		subsystem:        "simulation",
		histogramBuckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 30000, 60000},
		constLabels:      make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.runs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "runs_total",
		Help:        "Total number of population runs by table and result",
		ConstLabels: m.constLabels,
	}, []string{"table", "result"})

	m.runDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "run_duration_milliseconds",
		Help:        "Duration of computed population runs in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"table"})

	m.states = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "states",
		Help:        "Distinct aggregated states written by the last run",
		ConstLabels: m.constLabels,
	}, []string{"table"})

	m.combos = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "combinations",
		Help:        "Raw position combinations represented by the last run",
		ConstLabels: m.constLabels,
	}, []string{"table"})

	m.populated = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "populated",
		Help:        "1 when the table is populated, 0 otherwise",
		ConstLabels: m.constLabels,
	}, []string{"table"})

	m.foldSteps = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fold_steps_total",
		Help:        "Total number of convolution steps executed",
		ConstLabels: m.constLabels,
	})

	m.foldStepLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fold_step_latency_milliseconds",
		Help:        "Latency of one convolution step in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.foldStepStates = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fold_step_states",
		Help:        "Distinct states after the most recent convolution step",
		ConstLabels: m.constLabels,
	})

	m.storeWriteLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_write_latency_milliseconds",
		Help:        "Latency of a full table replacement in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"table"})

	m.storeRowsWritten = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_rows_written_total",
		Help:        "Total number of rows inserted by table",
		ConstLabels: m.constLabels,
	}, []string{"table"})

	m.storeQueryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_query_latency_milliseconds",
		Help:        "Latency of read-side store queries in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"query"})

	m.storeErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_errors_total",
		Help:        "Total number of store errors by operation",
		ConstLabels: m.constLabels,
	}, []string{"operation"})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_errors_total",
			Help:        "Total number of failed HTTP requests by endpoint and error type",
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "error_type"},
	)
}

// RecordRun counts a population run. result is one of ResultComputed,
// ResultSkipped or ResultFailed.
func RecordRun(table, result string) error {
	switch result {
	case ResultComputed, ResultSkipped, ResultFailed:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownResult, result)
	}
	globalManager.runs.WithLabelValues(table, result).Inc()
	return nil
}

// RecordRunDuration records the duration of a computed run.
func RecordRunDuration(table string, d time.Duration) {
	globalManager.runDuration.WithLabelValues(table).Observe(millis(d))
}

// UpdateRunSize sets the state and combination gauges for a table.
func UpdateRunSize(table string, states int, combinations uint64) {
	globalManager.states.WithLabelValues(table).Set(float64(states))
	globalManager.combos.WithLabelValues(table).Set(float64(combinations))
}

// UpdatePopulated flips the populated gauge for a table.
func UpdatePopulated(table string, populated bool) {
	v := 0.0
	if populated {
		v = 1
	}
	globalManager.populated.WithLabelValues(table).Set(v)
}

// RecordFoldStep records one convolution step.
func RecordFoldStep(d time.Duration, states int) {
	globalManager.foldSteps.Inc()
	globalManager.foldStepLatency.Observe(millis(d))
	globalManager.foldStepStates.Set(float64(states))
}

// RecordStoreWrite records a completed table replacement.
func RecordStoreWrite(table string, rows int, d time.Duration) {
	globalManager.storeWriteLatency.WithLabelValues(table).Observe(millis(d))
	globalManager.storeRowsWritten.WithLabelValues(table).Add(float64(rows))
}

// RecordStoreQuery records a read-side query latency.
func RecordStoreQuery(query string, d time.Duration) {
	globalManager.storeQueryLatency.WithLabelValues(query).Observe(millis(d))
}

// RecordStoreError increments the store error counter for an operation.
func RecordStoreError(operation string) {
	globalManager.storeErrors.WithLabelValues(operation).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPError counts a request that ended with a 4xx or 5xx status.
func RecordHTTPError(endpoint, method, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
