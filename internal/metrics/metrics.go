// Package metrics exposes generation and HTTP metrics for Prometheus.
//
// Collectors live on a private registry rather than the global default, so
// tests can create as many Metrics values as they like.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "labgen"

// Metrics holds the collectors. It implements core.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	datasetsTotal    prometheus.Counter
	rowsTotal        prometheus.Counter
	generateDuration prometheus.Histogram
	exportsTotal     *prometheus.CounterVec
	fallbacksTotal   *prometheus.CounterVec
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		datasetsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datasets_generated_total",
			Help:      "Number of datasets generated.",
		}),
		rowsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_generated_total",
			Help:      "Number of rows generated across all datasets.",
		}),
		generateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generate_duration_seconds",
			Help:      "Time spent sampling a dataset.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		exportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Number of datasets written out, by format.",
		}, []string{"format"}),
		fallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_fallbacks_total",
			Help:      "Number of requests served with a random configuration, by reason.",
		}, []string{"reason"}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.datasetsTotal,
		m.rowsTotal,
		m.generateDuration,
		m.exportsTotal,
		m.fallbacksTotal,
		m.requestsTotal,
		m.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// RecordGeneration counts one dataset of rows rows.
func (m *Metrics) RecordGeneration(rows int, elapsed time.Duration) {
	m.datasetsTotal.Inc()
	m.rowsTotal.Add(float64(rows))
	m.generateDuration.Observe(elapsed.Seconds())
}

// RecordExport counts one dataset written in format.
func (m *Metrics) RecordExport(format string) {
	m.exportsTotal.WithLabelValues(format).Inc()
}

// RecordFallback counts one random fallback.
func (m *Metrics) RecordFallback(reason string) {
	m.fallbacksTotal.WithLabelValues(reason).Inc()
}

// RecordRequest counts one HTTP request. route is the matched route
// pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) RecordRequest(route string, status int, elapsed time.Duration) {
	m.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
