// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/phrazzld/taskflow-api/internal/jobs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "taskflow"

// Operation results.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics holds every collector, registered on a single registry.
type Metrics struct {
	gatherer prometheus.Gatherer

	taskOperations *prometheus.CounterVec
	syncJobs       *prometheus.CounterVec
	syncQueueDepth prometheus.Gauge
	httpDuration   *prometheus.HistogramVec
}

var _ jobs.Observer = (*Metrics)(nil)

// New registers the collectors on reg. A nil reg uses a fresh registry with
// the Go and process collectors.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		taskOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "task_operations_total",
				Help:      "Task operations by operation and result.",
			},
			[]string{"operation", "result"},
		),
		syncJobs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_sync_jobs_total",
				Help:      "Search index sync job outcomes.",
			},
			[]string{"result"},
		),
		syncQueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "search_sync_queue_depth",
				Help:      "Jobs waiting in the in-memory sync queue.",
			},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by method, route pattern and status.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}
}

// TaskOperation counts one task service operation.
func (m *Metrics) TaskOperation(operation string, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	m.taskOperations.WithLabelValues(operation, result).Inc()
}

// JobFinished implements jobs.Observer.
func (m *Metrics) JobFinished(_ string, result string) {
	m.syncJobs.WithLabelValues(result).Inc()
}

// QueueDepth implements jobs.Observer.
func (m *Metrics) QueueDepth(depth int) {
	m.syncQueueDepth.Set(float64(depth))
}

// ObserveHTTPRequest records one request. route is the matched pattern, not
// the raw path, to keep cardinality bounded.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
