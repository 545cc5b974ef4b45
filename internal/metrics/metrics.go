// Package metrics exports measurement activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "convbench"

// Metrics holds the harness collectors. It implements benchmark.Observer.
type Metrics struct {
	registry *prometheus.Registry

	Measurements        *prometheus.CounterVec
	MeasurementDuration *prometheus.HistogramVec
	LegMillis           *prometheus.GaugeVec
	Failures            *prometheus.CounterVec
	ScenarioMillis      *prometheus.GaugeVec
	ScenariosCompleted  *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them, together with the Go
// runtime and process collectors, on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.Measurements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "measurements_total",
			Help:      "Total number of successful leg measurements",
		},
		[]string{"scenario", "leg"},
	)

	m.MeasurementDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "measurement_duration_seconds",
			Help:      "Wall time of one backend invocation including process startup",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"scenario"},
	)

	m.LegMillis = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "leg_time_milliseconds",
			Help:      "Most recent timing reported by the backend for a leg",
		},
		[]string{"scenario", "leg"},
	)

	m.Failures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Total number of failed legs by error kind",
		},
		[]string{"scenario", "leg", "kind"},
	)

	m.ScenarioMillis = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scenario_value_milliseconds",
			Help:      "Most recent comparison value of a scenario",
		},
		[]string{"scenario"},
	)

	m.ScenariosCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scenarios_completed_total",
			Help:      "Total number of scenarios that produced a result",
		},
		[]string{"scenario"},
	)

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Measurements,
		m.MeasurementDuration,
		m.LegMillis,
		m.Failures,
		m.ScenarioMillis,
		m.ScenariosCompleted,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}

// ObserveSample records one successful measurement.
func (m *Metrics) ObserveSample(scenario, leg string, millis float64, elapsed time.Duration) {
	m.Measurements.WithLabelValues(scenario, leg).Inc()
	m.MeasurementDuration.WithLabelValues(scenario).Observe(elapsed.Seconds())
	m.LegMillis.WithLabelValues(scenario, leg).Set(millis)
}

// ObserveFailure records a failed leg.
func (m *Metrics) ObserveFailure(scenario, leg, kind string) {
	m.Failures.WithLabelValues(scenario, leg, kind).Inc()
}

// ObserveResult records a completed scenario.
func (m *Metrics) ObserveResult(scenario string, value float64) {
	m.ScenarioMillis.WithLabelValues(scenario).Set(value)
	m.ScenariosCompleted.WithLabelValues(scenario).Inc()
}

// Registry exposes the private registry, e.g. for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware for tracking HTTP requests
func (m *Metrics) RequestTrackingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, http.StatusText(rw.statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// responseWriter is a wrapper to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Handler returns the Prometheus HTTP handler for the private registry,
// wrapped in request tracking.
func (m *Metrics) Handler() http.Handler {
	return m.RequestTrackingMiddleware(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
