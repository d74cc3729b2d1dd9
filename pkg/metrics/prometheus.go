// Package metrics provides Prometheus metrics for the genie evaluator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// defaultLatencyBuckets spans a fast local call up to a full commit timeout.
var defaultLatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1_000, 2_500, 5_000, 10_000, 30_000, 60_000, 120_000} //nolint:gochecknoglobals // read-only defaults

// Manager manages all Prometheus metrics for the evaluator.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	constLabels    map[string]string
	metricPrefix   string
	registry       prometheus.Registerer

	// Pipeline Metrics
	tasksSynthesized  prometheus.Counter
	tasksRejected     prometheus.Counter
	roundsQueried     prometheus.Counter
	roundsScored      prometheus.Counter
	roundsDiscarded   *prometheus.CounterVec
	solutionsAccepted prometheus.Counter
	solutionsRejected *prometheus.CounterVec
	phaseLatency      *prometheus.HistogramVec
	scoringLatency    prometheus.Histogram

	// Clock Metrics
	blockHeight   prometheus.Gauge
	sessionNumber prometheus.Gauge

	// Reputation Metrics
	ledgerEntries     prometheus.Gauge
	weightsPublished  prometheus.Counter
	publicationErrors prometheus.Counter
	archiveErrors     prometheus.Counter

	// Queue Metrics
	queueSize     *prometheus.GaugeVec
	queueCapacity *prometheus.GaugeVec
	queueEnqueues *prometheus.CounterVec
	queueDequeues *prometheus.CounterVec
	queueRejects  *prometheus.CounterVec

	// Loop Metrics
	loopIterations *prometheus.CounterVec
	loopErrors     *prometheus.CounterVec
	loopsActive    prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

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

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "genie",
		subsystem:      "evaluator",
		latencyBuckets: defaultLatencyBuckets,
		constLabels:    make(map[string]string),
		registry:       prometheus.DefaultRegisterer,
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

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.constLabels)

	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: constLabels,
		})
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: constLabels,
		}, labels)
	}
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: constLabels,
		})
	}
	gaugeVec := func(name, help string, labels ...string) *prometheus.GaugeVec {
		return auto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: constLabels,
		}, labels)
	}

	// Pipeline
	m.tasksSynthesized = counter("tasks_synthesized_total", "Total number of synthetic tasks added to the pending queue")
	m.tasksRejected = counter("tasks_rejected_total", "Total number of synthesis attempts rejected by backpressure")
	m.roundsQueried = counter("rounds_queried_total", "Total number of competition rounds that completed commit and reveal")
	m.roundsScored = counter("rounds_scored_total", "Total number of rounds scored into the reputation ledger")
	m.roundsDiscarded = counterVec("rounds_discarded_total", "Total number of rounds discarded before scoring", "reason")
	m.solutionsAccepted = counter("solutions_accepted_total", "Total number of verified solutions")
	m.solutionsRejected = counterVec("solutions_rejected_total", "Total number of solver responses rejected during verification", "reason")
	m.phaseLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("phase_latency_milliseconds"),
		Help: "Latency of commit and reveal fan-out phases in milliseconds", Buckets: m.latencyBuckets, ConstLabels: constLabels,
	}, []string{"phase"})
	m.scoringLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("scoring_latency_milliseconds"),
		Help: "Histogram of round scoring latency in milliseconds", Buckets: m.latencyBuckets, ConstLabels: constLabels,
	})

	// Clock
	m.blockHeight = gauge("block_height", "Last observed block height")
	m.sessionNumber = gauge("session_number", "Current session number derived from block height")

	// Reputation
	m.ledgerEntries = gauge("ledger_entries", "Number of solvers tracked in the reputation ledger")
	m.weightsPublished = counter("weights_published_total", "Total number of successful weight publications")
	m.publicationErrors = counter("publication_errors_total", "Total number of failed weight publications")
	m.archiveErrors = counter("archive_errors_total", "Total number of failed result archival attempts")

	// Queues
	m.queueSize = gaugeVec("queue_size", "Current number of items in a pending queue", "queue")
	m.queueCapacity = gaugeVec("queue_capacity", "Configured capacity of a pending queue", "queue")
	m.queueEnqueues = counterVec("queue_enqueue_total", "Total number of items enqueued", "queue")
	m.queueDequeues = counterVec("queue_dequeue_total", "Total number of items dequeued", "queue")
	m.queueRejects = counterVec("queue_rejected_total", "Total number of enqueue attempts rejected", "queue", "reason")

	// Loops
	m.loopIterations = counterVec("loop_iterations_total", "Total number of loop iterations", "loop")
	m.loopErrors = counterVec("loop_errors_total", "Total number of loop iterations that failed", "loop")
	m.loopsActive = gauge("loops_active", "Number of running pipeline loops")

	// HTTP
	m.httpRequests = counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("http_request_duration_milliseconds"),
		Help: "HTTP request duration in milliseconds", Buckets: m.latencyBuckets, ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status_code"})

	// Errors
	m.errorRateByComponent = counterVec("errors_by_component_total", "Errors by component and error type", "component", "error_type")
	m.errorRateByEndpoint = counterVec("errors_by_endpoint_total", "Errors by endpoint, method and error type", "endpoint", "method", "error_type")

	// System
	m.systemMemoryUsage = gauge("system_memory_usage_bytes", "Current heap allocation in bytes")
	m.systemGoroutineCount = gauge("system_goroutine_count", "Current number of goroutines")
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("system_gc_pause_time_milliseconds"),
		Help: "Average GC pause time in milliseconds", Buckets: m.latencyBuckets, ConstLabels: constLabels,
	})
}

// Pipeline Metrics Functions.

// RecordTaskSynthesized increments the synthesized task counter.
func RecordTaskSynthesized() {
	globalManager.tasksSynthesized.Inc()
}

// RecordTaskRejected increments the backpressure rejection counter.
func RecordTaskRejected() {
	globalManager.tasksRejected.Inc()
}

// RecordRoundQueried increments the queried round counter.
func RecordRoundQueried() {
	globalManager.roundsQueried.Inc()
}

// RecordRoundScored increments the scored round counter.
func RecordRoundScored() {
	globalManager.roundsScored.Inc()
}

// RecordRoundDiscarded increments the discarded round counter for reason.
func RecordRoundDiscarded(reason string) {
	globalManager.roundsDiscarded.WithLabelValues(reason).Inc()
}

// RecordSolutionAccepted increments the verified solution counter.
func RecordSolutionAccepted() {
	globalManager.solutionsAccepted.Inc()
}

// RecordSolutionRejected increments the rejected response counter for reason.
func RecordSolutionRejected(reason string) {
	globalManager.solutionsRejected.WithLabelValues(reason).Inc()
}

// RecordPhaseLatency records fan-out phase latency.
func RecordPhaseLatency(phase string, latencyMs float64) {
	globalManager.phaseLatency.WithLabelValues(phase).Observe(latencyMs)
}

// RecordScoringLatency records round scoring latency.
func RecordScoringLatency(latencyMs float64) {
	globalManager.scoringLatency.Observe(latencyMs)
}

// Clock Metrics Functions.

// UpdateBlockHeight sets the last observed block height.
func UpdateBlockHeight(block uint64) {
	globalManager.blockHeight.Set(float64(block))
}

// UpdateSessionNumber sets the current session number.
func UpdateSessionNumber(session uint64) {
	globalManager.sessionNumber.Set(float64(session))
}

// Reputation Metrics Functions.

// UpdateLedgerEntries sets the number of tracked solvers.
func UpdateLedgerEntries(count int) {
	globalManager.ledgerEntries.Set(float64(count))
}

// RecordWeightsPublished increments the successful publication counter.
func RecordWeightsPublished() {
	globalManager.weightsPublished.Inc()
}

// RecordPublicationError increments the failed publication counter.
func RecordPublicationError() {
	globalManager.publicationErrors.Inc()
}

// RecordArchiveError increments the failed archival counter.
func RecordArchiveError() {
	globalManager.archiveErrors.Inc()
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current size of a queue.
func UpdateQueueSize(queue string, size int) {
	globalManager.queueSize.WithLabelValues(queue).Set(float64(size))
}

// UpdateQueueCapacity sets the capacity of a queue.
func UpdateQueueCapacity(queue string, capacity int) {
	globalManager.queueCapacity.WithLabelValues(queue).Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue(queue string) {
	globalManager.queueEnqueues.WithLabelValues(queue).Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue(queue string) {
	globalManager.queueDequeues.WithLabelValues(queue).Inc()
}

// RecordQueueReject increments the rejected enqueue counter.
func RecordQueueReject(queue, reason string) {
	globalManager.queueRejects.WithLabelValues(queue, reason).Inc()
}

// Loop Metrics Functions.

// RecordLoopIteration increments the iteration counter of a loop.
func RecordLoopIteration(loop string) {
	globalManager.loopIterations.WithLabelValues(loop).Inc()
}

// RecordLoopError increments the error counter of a loop.
func RecordLoopError(loop string) {
	globalManager.loopErrors.WithLabelValues(loop).Inc()
}

// UpdateLoopsActive sets the number of running loops.
func UpdateLoopsActive(count int) {
	globalManager.loopsActive.Set(float64(count))
}

// HTTP Metrics Functions.

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
