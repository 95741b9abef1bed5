// Package metrics provides Prometheus metrics for the showctl daemon.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// defaultPollBuckets suit a poll tick that should finish well inside 20ms.
var defaultPollBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20} //nolint:gochecknoglobals // read-only defaults

// Manager manages all Prometheus metrics for the daemon.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	pollBuckets      []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Input devices
	devicesConnected     prometheus.Gauge
	devicesAdded         *prometheus.CounterVec
	devicesRemoved       prometheus.Counter
	deviceOpenErrors     prometheus.Counter
	inputScans           prometheus.Counter
	inputPollLatency     prometheus.Histogram
	inputSuspended       prometheus.Gauge
	notificationsDropped prometheus.Counter
	listenerPanics       prometheus.Counter

	// Analytics batching
	analyticsLogged      prometheus.Counter
	analyticsRejected    *prometheus.CounterVec
	analyticsSent        prometheus.Counter
	analyticsBatches     *prometheus.CounterVec
	analyticsSendLatency prometheus.Histogram
	analyticsPeriod      prometheus.Gauge
	analyticsPersisted   prometheus.Counter
	analyticsRestored    prometheus.Counter

	// Pending event queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "showctl",
		histogramBuckets: prometheus.DefBuckets,
		pollBuckets:      defaultPollBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(subsystem, name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) gauge(subsystem, name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(subsystem, name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.customLabels,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.devicesConnected = m.gauge("input", "devices_connected", "Number of input devices currently in the registry")
	m.devicesAdded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "input", Name: "devices_added_total",
		Help: "Total number of devices added to the registry", ConstLabels: m.customLabels,
	}, []string{"kind"})
	m.devicesRemoved = m.counter("input", "devices_removed_total", "Total number of devices removed from the registry")
	m.deviceOpenErrors = m.counter("input", "device_open_errors_total", "Total number of failed device opens")
	m.inputScans = m.counter("input", "scans_total", "Total number of device enumeration passes")
	m.inputPollLatency = m.histogram("input", "poll_latency_milliseconds", "Time spent polling every device in one tick",
		m.pollBuckets)
	m.inputSuspended = m.gauge("input", "suspended", "1 while the poll loop is suspended by the readiness gate")
	m.notificationsDropped = m.counter("input", "notifications_dropped_total", "Queued device notifications dropped because a watcher was full")
	m.listenerPanics = m.counter("input", "listener_panics_total", "Listener callbacks that panicked")

	m.analyticsLogged = m.counter("analytics", "events_logged_total", "Total number of analytics events accepted into the queue")
	m.analyticsRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "analytics", Name: "events_rejected_total",
		Help: "Analytics events not accepted into the queue", ConstLabels: m.customLabels,
	}, []string{"reason"})
	m.analyticsSent = m.counter("analytics", "events_sent_total", "Total number of analytics events delivered")
	m.analyticsBatches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "analytics", Name: "batches_total",
		Help: "Batch send attempts by result", ConstLabels: m.customLabels,
	}, []string{"result"})
	m.analyticsSendLatency = m.histogram("analytics", "send_latency_milliseconds", "Batch POST latency", m.histogramBuckets)
	m.analyticsPeriod = m.gauge("analytics", "batch_period_milliseconds", "Current batch period including backoff")
	m.analyticsPersisted = m.counter("analytics", "events_persisted_total", "Unsent events written to durable storage on stop")
	m.analyticsRestored = m.counter("analytics", "events_restored_total", "Persisted events reloaded on start")

	m.queueSize = m.gauge("queue", "size", "Current number of pending analytics events")
	m.queueCapacity = m.gauge("queue", "capacity", "Maximum number of pending analytics events")
	m.queueUtilization = m.gauge("queue", "utilization_ratio", "Pending queue utilization (0-1)")

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "http", Name: "requests_total",
		Help: "Total number of HTTP requests by endpoint and method", ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "http", Name: "request_duration_milliseconds",
		Help: "HTTP request duration in milliseconds", Buckets: m.histogramBuckets, ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status_code"})
	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "http", Name: "errors_total",
		Help: "Total number of errors by endpoint", ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = m.gauge("system", "memory_usage_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system", "goroutine_count", "Number of goroutines")
}

// Input device functions.

// UpdateDevicesConnected sets the registry size.
func UpdateDevicesConnected(count int) {
	globalManager.devicesConnected.Set(float64(count))
}

// RecordDeviceAdded counts a device added with the given kind label.
func RecordDeviceAdded(kind string) {
	globalManager.devicesAdded.WithLabelValues(kind).Inc()
}

// RecordDeviceRemoved counts a device removal.
func RecordDeviceRemoved() {
	globalManager.devicesRemoved.Inc()
}

// RecordDeviceOpenError counts a failed open.
func RecordDeviceOpenError() {
	globalManager.deviceOpenErrors.Inc()
}

// RecordInputScan counts an enumeration pass.
func RecordInputScan() {
	globalManager.inputScans.Inc()
}

// RecordInputPollLatency records one poll pass in milliseconds.
func RecordInputPollLatency(latencyMs float64) {
	globalManager.inputPollLatency.Observe(latencyMs)
}

// UpdateInputSuspended flags whether the poll loop is gated.
func UpdateInputSuspended(suspended bool) {
	v := 0.0
	if suspended {
		v = 1
	}
	globalManager.inputSuspended.Set(v)
}

// RecordNotificationDropped counts a dropped queued notification.
func RecordNotificationDropped() {
	globalManager.notificationsDropped.Inc()
}

// RecordListenerPanic counts a recovered listener panic.
func RecordListenerPanic() {
	globalManager.listenerPanics.Inc()
}

// Analytics functions.

// RecordAnalyticsLogged counts an accepted event.
func RecordAnalyticsLogged() {
	globalManager.analyticsLogged.Inc()
}

// RecordAnalyticsRejected counts an event that was not queued.
func RecordAnalyticsRejected(reason string) {
	globalManager.analyticsRejected.WithLabelValues(reason).Inc()
}

// RecordAnalyticsBatch records a batch attempt.
func RecordAnalyticsBatch(success bool, events int, latencyMs float64) {
	result := "failure"
	if success {
		result = "success"
		globalManager.analyticsSent.Add(float64(events))
	}
	globalManager.analyticsBatches.WithLabelValues(result).Inc()
	globalManager.analyticsSendLatency.Observe(latencyMs)
}

// UpdateAnalyticsPeriod sets the current batch period.
func UpdateAnalyticsPeriod(period time.Duration) {
	globalManager.analyticsPeriod.Set(float64(period.Milliseconds()))
}

// RecordAnalyticsPersisted counts events written on stop.
func RecordAnalyticsPersisted(n int) {
	globalManager.analyticsPersisted.Add(float64(n))
}

// RecordAnalyticsRestored counts events reloaded on start.
func RecordAnalyticsRestored(n int) {
	globalManager.analyticsRestored.Add(float64(n))
}

// Queue functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// HTTP functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
