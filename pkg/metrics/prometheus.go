// Package metrics provides Prometheus metrics for the crewclock service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector the service exports.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Punch path
	punchesRecorded  *prometheus.CounterVec // by action
	punchesRejected  prometheus.Counter
	punchesDuplicate prometheus.Counter
	pairHours        prometheus.Histogram

	// Mirror pipeline
	mirrorJobsEnqueued prometheus.Counter
	mirrorJobsDropped  prometheus.Counter
	mirrorFailures     *prometheus.CounterVec // by classified kind
	rebuildsRun        prometheus.Counter
	rebuildDuration    prometheus.Histogram

	// Operational health
	queueSize        prometheus.Gauge
	queueUtilization prometheus.Gauge
	workerCount      prometheus.Gauge
	punchesStored    prometheus.Gauge

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// customRegistry keeps the default Go collectors out of our export.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers all collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "crewclock",
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

	m.punchesRecorded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "punch",
		Name:      "recorded_total",
		Help:      "Punches appended to the local store, by action",
	}, []string{"action"})

	m.punchesRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "punch",
		Name:      "rejected_total",
		Help:      "Punch submissions rejected before any store mutation",
	})

	m.punchesDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "punch",
		Name:      "duplicate_total",
		Help:      "Punch submissions acknowledged as duplicates by request id",
	})

	m.pairHours = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "punch",
		Name:      "pair_hours",
		Help:      "Hours computed when an OUT closes an open IN",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 6, 8, 10, 12, 16, 24},
	})

	m.mirrorJobsEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "mirror",
		Name:      "jobs_enqueued_total",
		Help:      "Mirror jobs accepted by the queue",
	})

	m.mirrorJobsDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "mirror",
		Name:      "jobs_dropped_total",
		Help:      "Mirror jobs dropped on backpressure or queue shutdown",
	})

	m.mirrorFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "mirror",
		Name:      "failures_total",
		Help:      "Mirror sink failures by classified kind",
	}, []string{"kind"})

	m.rebuildsRun = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "mirror",
		Name:      "rebuilds_total",
		Help:      "Bucket totals rebuilds executed",
	})

	m.rebuildDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "mirror",
		Name:      "rebuild_duration_milliseconds",
		Help:      "Duration of bucket totals rebuilds in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "mirror",
		Name:      "queue_size",
		Help:      "Current number of queued mirror jobs",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "mirror",
		Name:      "queue_utilization",
		Help:      "Queued mirror jobs as a fraction of queue capacity",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "mirror",
		Name:      "worker_count",
		Help:      "Number of mirror workers",
	})

	m.punchesStored = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "punch",
		Name:      "stored",
		Help:      "Total punches in the local store",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.httpErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "errors_total",
		Help:      "HTTP responses with status >= 400, by endpoint and type",
	}, []string{"endpoint", "method", "error_type"})
}

// GetRegistry exposes the custom registry for the metrics handler.
func GetRegistry() *prometheus.Registry { return customRegistry }

// Package-level helpers delegating to the global manager.

// RecordPunch counts a punch appended to the store.
func RecordPunch(action string) { globalManager.punchesRecorded.WithLabelValues(action).Inc() }

// RecordPunchRejected counts an invalid submission.
func RecordPunchRejected() { globalManager.punchesRejected.Inc() }

// RecordPunchDuplicate counts a duplicate submission ack.
func RecordPunchDuplicate() { globalManager.punchesDuplicate.Inc() }

// ObservePairHours records the hours of a closed interval.
func ObservePairHours(hours float64) { globalManager.pairHours.Observe(hours) }

// RecordMirrorEnqueue counts an accepted mirror job.
func RecordMirrorEnqueue() { globalManager.mirrorJobsEnqueued.Inc() }

// RecordMirrorDrop counts a dropped mirror job.
func RecordMirrorDrop() { globalManager.mirrorJobsDropped.Inc() }

// RecordMirrorFailure counts a sink failure by classified kind.
func RecordMirrorFailure(kind string) { globalManager.mirrorFailures.WithLabelValues(kind).Inc() }

// RecordRebuild counts one totals rebuild.
func RecordRebuild() { globalManager.rebuildsRun.Inc() }

// ObserveRebuildDuration records a rebuild duration in milliseconds.
func ObserveRebuildDuration(ms float64) { globalManager.rebuildDuration.Observe(ms) }

// UpdateQueueSize sets the current mirror queue depth.
func UpdateQueueSize(n int) { globalManager.queueSize.Set(float64(n)) }

// UpdateQueueUtilization sets the queue fill fraction.
func UpdateQueueUtilization(u float64) { globalManager.queueUtilization.Set(u) }

// UpdateWorkerCount sets the mirror worker gauge.
func UpdateWorkerCount(n int) { globalManager.workerCount.Set(float64(n)) }

// UpdatePunchesStored sets the store size gauge.
func UpdatePunchesStored(n int64) { globalManager.punchesStored.Set(float64(n)) }

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records an HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

// RecordHTTPError counts an error response.
func RecordHTTPError(endpoint, method, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}
