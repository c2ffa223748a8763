// Package metrics exposes the framework's observational counters through a
// private Prometheus registry. Counters are never a source of truth; every
// subsystem keeps its own atomics and this package only mirrors them for
// scraping.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/goflare/flare/executor"
)

// Request path kinds, used as the label on request counters.
const (
	KindUltraFast = "ultra_fast"
	KindFast      = "fast"
	KindWorker    = "worker"
	KindHealth    = "health"
)

// Metrics bundles every collector behind one registry so multiple apps can
// coexist in a process without label collisions.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestErrors   prometheus.Counter

	breakerTrips      prometheus.Counter
	breakerRejections prometheus.Counter

	poolMisses   *prometheus.GaugeVec
	poolCapacity *prometheus.GaugeVec
	poolInFlight *prometheus.GaugeVec
}

// New builds a metrics bundle under the given namespace (e.g. "flare").
func New(namespace string) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_total",
		Help:      "Requests handled, labeled by dispatch path.",
	}, []string{"kind"})

	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "request_duration_seconds",
		Help:      "Request handling latency, labeled by dispatch path.",
		Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 16),
	}, []string{"kind"})

	m.requestErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "request_errors_total",
		Help:      "Handler and middleware failures.",
	})

	m.breakerTrips = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "breaker_trips_total",
		Help:      "Circuit breaker transitions into the open state, from closed or half-open.",
	})

	m.breakerRejections = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "breaker_rejections_total",
		Help:      "Requests rejected while the breaker was open.",
	})

	m.poolMisses = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "object_pool_misses",
		Help:      "Acquire calls that found the pool empty, by pool.",
	}, []string{"pool"})

	m.poolCapacity = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "object_pool_capacity",
		Help:      "Current admission limit, by pool.",
	}, []string{"pool"})

	m.poolInFlight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "object_pool_in_flight",
		Help:      "Entities acquired and not yet released, by pool.",
	}, []string{"pool"})

	m.registry.MustRegister(
		m.requestsTotal, m.requestDuration, m.requestErrors,
		m.breakerTrips, m.breakerRejections,
		m.poolMisses, m.poolCapacity, m.poolInFlight,
	)
	return m
}

// ObserveRequest records one handled request on the given dispatch path.
func (m *Metrics) ObserveRequest(kind string, d time.Duration) {
	m.requestsTotal.WithLabelValues(kind).Inc()
	m.requestDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordError counts a handler or middleware failure.
func (m *Metrics) RecordError() { m.requestErrors.Inc() }

// RecordBreakerTrip counts a transition into the open state, whether from
// closed or from half-open.
func (m *Metrics) RecordBreakerTrip() { m.breakerTrips.Inc() }

// RecordBreakerRejection counts an admission denied by an open breaker.
func (m *Metrics) RecordBreakerRejection() { m.breakerRejections.Inc() }

// RecordPool mirrors an object pool's gauges.
func (m *Metrics) RecordPool(name string, misses uint64, capacity int, inFlight int64) {
	m.poolMisses.WithLabelValues(name).Set(float64(misses))
	m.poolCapacity.WithLabelValues(name).Set(float64(capacity))
	m.poolInFlight.WithLabelValues(name).Set(float64(inFlight))
}

// RegisterWorkerPool exposes live worker-pool counters as gauges computed at
// scrape time from the pool's own snapshot.
func (m *Metrics) RegisterWorkerPool(namespace string, snapshot func() executor.Stats) {
	gauge := func(name, help string, read func(executor.Stats) float64) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return read(snapshot()) })
	}
	m.registry.MustRegister(
		gauge("worker_tasks_submitted", "Tasks submitted to the worker pool.",
			func(s executor.Stats) float64 { return float64(s.Submitted) }),
		gauge("worker_tasks_completed", "Tasks completed by the worker pool.",
			func(s executor.Stats) float64 { return float64(s.Completed) }),
		gauge("worker_tasks_rejected", "Tasks rejected by the worker pool.",
			func(s executor.Stats) float64 { return float64(s.Rejected) }),
		gauge("worker_live", "Live worker count.",
			func(s executor.Stats) float64 { return float64(s.LiveWorkers) }),
		gauge("worker_active", "Workers currently executing a task.",
			func(s executor.Stats) float64 { return float64(s.ActiveWorker) }),
		gauge("worker_queue_depth", "Queued task count.",
			func(s executor.Stats) float64 { return float64(s.QueueDepth) }),
	)
}

// Handler returns a fasthttp handler serving the Prometheus exposition
// format for this registry.
func (m *Metrics) Handler() fasthttp.RequestHandler {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return fasthttpadaptor.NewFastHTTPHandler(h)
}

// Registry returns the underlying registry for custom collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
