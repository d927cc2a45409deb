// Package metrics provides Prometheus metrics for the faceoff ranking service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultRefreshInterval = 10 * time.Second

// Manager owns every metric exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Core ranking metrics
	outcomesApplied  prometheus.Counter
	outcomeErrors    *prometheus.CounterVec
	itemsAdmitted    prometheus.Counter
	pairsSelected    prometheus.Counter
	pairPoolSize     prometheus.Histogram
	ratingDelta      prometheus.Histogram
	ballotsDuplicate prometheus.Counter

	// Pool gauges
	itemsTotal prometheus.Gauge
	topRating  prometheus.Gauge

	// Repository
	repositoryUpdateLatency *prometheus.HistogramVec
	repositoryQueryLatency  *prometheus.HistogramVec

	// Queue and voter workers (simulator)
	queueSize       prometheus.Gauge
	queueCapacity   prometheus.Gauge
	queueEnqueued   prometheus.Counter
	queueRejected   *prometheus.CounterVec
	workerLatency   prometheus.Histogram
	workerErrors    prometheus.Counter
	workerActive    prometheus.Gauge
	standingsReport prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "faceoff",
		subsystem:        "ranking",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// RefreshInterval is how often periodic gauges should be refreshed.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.outcomesApplied = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "outcomes_applied_total",
		Help:      "Total number of pairwise outcomes applied to ratings",
	})

	m.outcomeErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "outcome_errors_total",
		Help:      "Outcomes rejected or failed, by error kind",
	}, []string{"kind"})

	m.itemsAdmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "items_admitted_total",
		Help:      "Total number of items admitted to the pool",
	})

	m.pairsSelected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pairs_selected_total",
		Help:      "Total number of pairs handed out for voting",
	})

	m.pairPoolSize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pair_pool_size",
		Help:      "Size of the least-voted candidate pool a pair was drawn from",
		Buckets:   []float64{2, 3, 5, 10, 20, 50, 100},
	})

	m.ratingDelta = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rating_delta_points",
		Help:      "Rating points gained by the winner of an outcome",
		Buckets:   []float64{1, 2, 4, 8, 12, 16, 20, 24, 28, 32},
	})

	m.ballotsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ballots_duplicate_total",
		Help:      "Ballots ignored because their id was already counted",
	})

	m.itemsTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "items",
		Help:      "Number of items in the pool",
	})

	m.topRating = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "top_rating",
		Help:      "Rating of the current leader",
	})

	m.repositoryUpdateLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_update_latency_milliseconds",
		Help:      "Repository write latency in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"backend"})

	m.repositoryQueryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_query_latency_milliseconds",
		Help:      "Repository read latency in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"backend"})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Ballot requests waiting in the queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Maximum ballot queue capacity",
	})

	m.queueEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueued_total",
		Help:      "Ballot requests accepted by the queue",
	})

	m.queueRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_rejected_total",
		Help:      "Ballot requests rejected by the queue, by reason",
	}, []string{"reason"})

	m.workerLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_ballot_latency_milliseconds",
		Help:      "Time a voter worker spends on one ballot",
		Buckets:   m.histogramBuckets,
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_errors_total",
		Help:      "Ballots a voter worker failed to complete",
	})

	m.workerActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_active",
		Help:      "Voter workers currently running",
	})

	m.standingsReport = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "standings_reports_total",
		Help:      "Scheduled standings reports produced",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_component_total",
		Help:      "Total number of errors by component",
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "Heap bytes allocated",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})
}

// RecordOutcomeApplied counts an applied outcome and the winner's gain.
func RecordOutcomeApplied(winnerDelta float64) {
	globalManager.outcomesApplied.Inc()
	globalManager.ratingDelta.Observe(winnerDelta)
}

// RecordOutcomeError counts a rejected or failed outcome.
func RecordOutcomeError(kind string) {
	globalManager.outcomeErrors.WithLabelValues(kind).Inc()
}

// RecordItemAdmitted counts a newly admitted item.
func RecordItemAdmitted() {
	globalManager.itemsAdmitted.Inc()
}

// RecordPairSelected counts a selected pair and the pool it came from.
func RecordPairSelected(poolSize int) {
	globalManager.pairsSelected.Inc()
	globalManager.pairPoolSize.Observe(float64(poolSize))
}

// RecordBallotDuplicate counts a ballot dropped by the dedupe tracker.
func RecordBallotDuplicate() {
	globalManager.ballotsDuplicate.Inc()
}

// UpdateItemsTotal sets the pool size gauge.
func UpdateItemsTotal(count int) {
	globalManager.itemsTotal.Set(float64(count))
}

// UpdateTopRating sets the leader rating gauge.
func UpdateTopRating(rating float64) {
	globalManager.topRating.Set(rating)
}

// RecordRepositoryUpdateLatency records a repository write latency.
func RecordRepositoryUpdateLatency(backend string, latencyMs float64) {
	globalManager.repositoryUpdateLatency.WithLabelValues(backend).Observe(latencyMs)
}

// RecordRepositoryQueryLatency records a repository read latency.
func RecordRepositoryQueryLatency(backend string, latencyMs float64) {
	globalManager.repositoryQueryLatency.WithLabelValues(backend).Observe(latencyMs)
}

// UpdateQueueSize sets the ballot queue depth.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the ballot queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts an accepted ballot request.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueRejected counts a rejected ballot request.
func RecordQueueRejected(reason string) {
	globalManager.queueRejected.WithLabelValues(reason).Inc()
}

// RecordWorkerLatency records how long one ballot took.
func RecordWorkerLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed ballot.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// UpdateWorkerActive sets the number of running voter workers.
func UpdateWorkerActive(count int) {
	globalManager.workerActive.Set(float64(count))
}

// RecordStandingsReport counts a scheduled standings report.
func RecordStandingsReport() {
	globalManager.standingsReport.Inc()
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the registry all service metrics live on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RefreshInterval is how often the global manager's periodic gauges should
// be refreshed.
func RefreshInterval() time.Duration {
	return globalManager.RefreshInterval()
}
