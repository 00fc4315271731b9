// Package metrics provides Prometheus metrics for the vitrin ranking engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager holds all Prometheus metrics for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Core business metrics
	eventsProcessed prometheus.Counter
	eventsDuplicate prometheus.Counter
	badgeAwards     *prometheus.CounterVec
	notifications   *prometheus.CounterVec

	// Scoring and leaderboard
	scoreRecomputes         prometheus.Counter
	scoreRecomputeLatency   prometheus.Histogram
	leaderboardBuildLatency prometheus.Histogram

	// Operational health
	trackedUsers    prometheus.Gauge
	trackedProjects prometheus.Gauge

	// Queue metrics
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueues    prometheus.Counter
	queueDequeues    prometheus.Counter
	queueEnqueueErrs prometheus.Counter

	// Worker metrics
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	authDenied          prometheus.Counter
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
		namespace:        "vitrin",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.eventsProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_processed_total",
		Help:      "Total number of activity events successfully applied",
	})
	m.eventsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_duplicate_total",
		Help:      "Total number of duplicate activity events absorbed",
	})
	m.badgeAwards = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "badge_awards_total",
		Help:      "Total number of badge awards, labeled by badge id",
	}, []string{"badge_id"})
	m.notifications = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notifications_emitted_total",
		Help:      "Total number of notification events emitted, by kind",
	}, []string{"kind"})

	m.scoreRecomputes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score_recomputes_total",
		Help:      "Total number of score recomputations",
	})
	m.scoreRecomputeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score_recompute_latency_milliseconds",
		Help:      "Histogram of score recomputation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.leaderboardBuildLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "leaderboard_build_latency_milliseconds",
		Help:      "Histogram of leaderboard build latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.trackedUsers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tracked_users",
		Help:      "Current number of users tracked by the engine",
	})
	m.trackedProjects = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tracked_projects",
		Help:      "Current number of projects tracked by the engine",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current number of queued activity events",
	})
	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Configured capacity of the activity queue",
	})
	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_utilization",
		Help:      "Queue fill ratio between 0 and 1",
	})
	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueues_total",
		Help:      "Total number of successful enqueues",
	})
	m.queueDequeues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeues_total",
		Help:      "Total number of dequeues",
	})
	m.queueEnqueueErrs = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_errors_total",
		Help:      "Total number of rejected enqueues (backpressure or closed)",
	})

	m.workerActiveCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_active_count",
		Help:      "Number of active workers",
	})
	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_processing_latency_milliseconds",
		Help:      "Histogram of per-event processing latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_errors_total",
		Help:      "Total number of worker processing errors",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "Histogram of HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})
	m.authDenied = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "auth_denied_total",
		Help:      "Total number of requests rejected for missing or invalid session tokens",
	})
}

// GetRegistry returns the registry metrics are exposed from.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package-level helpers against the global manager.

func RecordEventProcessed()  { globalManager.eventsProcessed.Inc() }
func RecordEventDuplicate()  { globalManager.eventsDuplicate.Inc() }
func RecordBadgeAward(badgeID string) {
	globalManager.badgeAwards.WithLabelValues(badgeID).Inc()
}
func RecordNotification(kind string) {
	globalManager.notifications.WithLabelValues(kind).Inc()
}

func RecordScoreRecompute() { globalManager.scoreRecomputes.Inc() }
func RecordScoreRecomputeLatency(latencyMs float64) {
	globalManager.scoreRecomputeLatency.Observe(latencyMs)
}
func RecordLeaderboardBuildLatency(latencyMs float64) {
	globalManager.leaderboardBuildLatency.Observe(latencyMs)
}

func UpdateTrackedUsers(count int)    { globalManager.trackedUsers.Set(float64(count)) }
func UpdateTrackedProjects(count int) { globalManager.trackedProjects.Set(float64(count)) }

func UpdateQueueSize(size int)                 { globalManager.queueSize.Set(float64(size)) }
func UpdateQueueCapacity(capacity int)         { globalManager.queueCapacity.Set(float64(capacity)) }
func UpdateQueueUtilization(ratio float64)     { globalManager.queueUtilization.Set(ratio) }
func RecordQueueEnqueue()                      { globalManager.queueEnqueues.Inc() }
func RecordQueueDequeue()                      { globalManager.queueDequeues.Inc() }
func RecordQueueEnqueueError()                 { globalManager.queueEnqueueErrs.Inc() }

func UpdateWorkerActiveCount(count int) { globalManager.workerActiveCount.Set(float64(count)) }
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}
func RecordWorkerError() { globalManager.workerErrors.Inc() }

func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}
func RecordHTTPRequestDuration(endpoint, method, status string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(durationMs)
}
func RecordAuthDenied() { globalManager.authDenied.Inc() }
