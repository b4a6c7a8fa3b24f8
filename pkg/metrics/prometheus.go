// Package metrics provides Prometheus metrics for the WC Timer backend.
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

// Manager owns every Prometheus collector used by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Duel metrics - the PVP mini-game lifecycle.
	roundsStarted    prometheus.Counter
	roundsSettled    prometheus.Counter
	roundsCancelled  prometheus.Counter
	clicksRegistered prometheus.Counter
	duelsWon         prometheus.Counter
	duelsLost        prometheus.Counter

	// Kaki currency metrics.
	kakiGranted  prometheus.Counter
	kakiDeducted prometheus.Counter

	// Timer session metrics.
	sessionsRecorded  prometheus.Counter
	sessionDuplicates prometheus.Counter
	earningsCents     prometheus.Counter

	// Ledger (leaderboard store) metrics.
	ledgerPlayers          prometheus.Gauge
	ledgerUpdateLatency    prometheus.Histogram
	ledgerQueryLatency     prometheus.Histogram
	ledgerSnapshotDuration prometheus.Histogram
	ledgerSnapshotLastUnix prometheus.Gauge
	ledgerSnapshotsTotal   prometheus.Counter

	// Report queue metrics.
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueues      prometheus.Counter
	queueDequeues      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Report worker metrics.
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter
	reportFailures          *prometheus.CounterVec

	// HTTP metrics.
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error tracking.
	errorsByComponent *prometheus.CounterVec

	// Process health.
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry so the default Go collectors do not pollute /healthz output.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// GetRegistry returns the registry all service metrics are registered on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "wctimer",
		subsystem:        "server",
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

// initializeMetrics creates all Prometheus collectors.
func (m *Manager) initializeMetrics() { //nolint:funlen // metric registration is inherently long
	auto := promauto.With(m.registry)

	m.roundsStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rounds_started_total",
		Help:      "Total number of duel rounds started",
	})

	m.roundsSettled = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rounds_settled_total",
		Help:      "Total number of duel rounds that reached settlement",
	})

	m.roundsCancelled = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rounds_cancelled_total",
		Help:      "Total number of duel rounds cancelled before settlement",
	})

	m.clicksRegistered = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "clicks_registered_total",
		Help:      "Total number of scored clicks across all rounds",
	})

	m.duelsWon = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "duels_won_total",
		Help:      "Total number of settled rounds won by the player",
	})

	m.duelsLost = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "duels_lost_total",
		Help:      "Total number of settled rounds lost by the player (ties included)",
	})

	m.kakiGranted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "kaki_granted_total",
		Help:      "Total kaki credited to players (duel wins and session awards)",
	})

	m.kakiDeducted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "kaki_deducted_total",
		Help:      "Total kaki debited from players (duel losses)",
	})

	m.sessionsRecorded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_recorded_total",
		Help:      "Total number of timer sessions persisted",
	})

	m.sessionDuplicates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "session_duplicates_total",
		Help:      "Total number of duplicate session submissions rejected",
	})

	m.earningsCents = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "session_earnings_cents_total",
		Help:      "Total notional earnings computed for recorded sessions, in cents",
	})

	m.ledgerPlayers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ledger_players",
		Help:      "Number of players tracked by the kaki ledger",
	})

	m.ledgerUpdateLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ledger_update_latency_milliseconds",
		Help:      "Ledger delta application latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.ledgerQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ledger_query_latency_milliseconds",
		Help:      "Ledger rank/top query latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.ledgerSnapshotDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ledger_snapshot_rebuild_duration_milliseconds",
		Help:      "Ledger snapshot rebuild duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.ledgerSnapshotLastUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ledger_snapshot_last_unix",
		Help:      "Unix timestamp of the last ledger snapshot publish",
	})

	m.ledgerSnapshotsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ledger_snapshots_total",
		Help:      "Total number of ledger snapshots published",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "report_queue_size",
		Help:      "Current size of the outcome report queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "report_queue_capacity",
		Help:      "Maximum capacity of the outcome report queue",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "report_queue_utilization_ratio",
		Help:      "Outcome report queue utilization (size / capacity)",
	})

	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "report_queue_enqueue_total",
		Help:      "Total number of outcome reports enqueued",
	})

	m.queueDequeues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "report_queue_dequeue_total",
		Help:      "Total number of outcome reports dequeued",
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "report_queue_enqueue_errors_total",
		Help:      "Total number of failed enqueue attempts",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "report_worker_count",
		Help:      "Number of outcome report workers",
	})

	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "report_worker_latency_milliseconds",
		Help:      "Outcome report processing latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "report_worker_errors_total",
		Help:      "Total number of outcome report processing errors",
	})

	m.reportFailures = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "report_failures_total",
			Help:      "Outcome report persistence failures by stage",
		},
		[]string{"stage"},
	)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint, method and status",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total number of errors by component and type",
		},
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "Heap allocation in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})
}

// Duel metric helpers.

// RecordRoundStarted increments the started rounds counter.
func RecordRoundStarted() { globalManager.roundsStarted.Inc() }

// RecordRoundSettled increments the settled rounds counter.
func RecordRoundSettled() { globalManager.roundsSettled.Inc() }

// RecordRoundCancelled increments the cancelled rounds counter.
func RecordRoundCancelled() { globalManager.roundsCancelled.Inc() }

// RecordClick increments the scored clicks counter.
func RecordClick() { globalManager.clicksRegistered.Inc() }

// RecordDuelOutcome increments the win or loss counter.
func RecordDuelOutcome(won bool) {
	if won {
		globalManager.duelsWon.Inc()
	} else {
		globalManager.duelsLost.Inc()
	}
}

// Kaki metric helpers.

// RecordKakiDelta tracks credited and debited kaki by sign.
func RecordKakiDelta(delta int64) {
	if delta >= 0 {
		globalManager.kakiGranted.Add(float64(delta))
	} else {
		globalManager.kakiDeducted.Add(float64(-delta))
	}
}

// Session metric helpers.

// RecordSession increments the recorded sessions counter and earnings total.
func RecordSession(earningsCents int64) {
	globalManager.sessionsRecorded.Inc()
	if earningsCents > 0 {
		globalManager.earningsCents.Add(float64(earningsCents))
	}
}

// RecordSessionDuplicate increments the duplicate session counter.
func RecordSessionDuplicate() { globalManager.sessionDuplicates.Inc() }

// Ledger metric helpers.

// UpdateLedgerPlayers sets the number of tracked players.
func UpdateLedgerPlayers(count int) { globalManager.ledgerPlayers.Set(float64(count)) }

// RecordLedgerUpdateLatency records delta application latency.
func RecordLedgerUpdateLatency(ms float64) { globalManager.ledgerUpdateLatency.Observe(ms) }

// RecordLedgerQueryLatency records rank/top query latency.
func RecordLedgerQueryLatency(ms float64) { globalManager.ledgerQueryLatency.Observe(ms) }

// RecordLedgerSnapshot records a snapshot publish and its rebuild duration.
func RecordLedgerSnapshot(ms float64) {
	globalManager.ledgerSnapshotDuration.Observe(ms)
	globalManager.ledgerSnapshotLastUnix.Set(float64(time.Now().Unix()))
	globalManager.ledgerSnapshotsTotal.Inc()
}

// Queue metric helpers.

// UpdateQueueSize sets the current report queue size and utilization.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the report queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the report queue utilization ratio.
func UpdateQueueUtilization(ratio float64) { globalManager.queueUtilization.Set(ratio) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueues.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeues.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// Worker metric helpers.

// UpdateWorkerCount sets the number of report workers.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records report processing latency.
func RecordWorkerProcessingLatency(ms float64) { globalManager.workerProcessingLatency.Observe(ms) }

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordReportFailure tracks a persistence failure at a pipeline stage
// (ledger, balance, history).
func RecordReportFailure(stage string) {
	globalManager.reportFailures.WithLabelValues(stage).Inc()
}

// HTTP metric helpers.

// RecordHTTPRequest records a request by endpoint, method and status.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

// Error metric helpers.

// RecordErrorByComponent tracks an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// System metric helpers.

// UpdateSystemMemoryUsage sets heap allocation bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the current goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}
