// Package metrics exposes Prometheus instrumentation for the API server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	eventChanges    *prometheus.CounterVec
	rejected        prometheus.Counter
	authAttempts    *prometheus.CounterVec
}

// New registers all collectors.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spotlight",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status",
	}, []string{"route", "method", "status"})
	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "spotlight",
		Name:      "http_request_duration_seconds",
		Help:      "Time spent serving HTTP requests",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})
	m.eventChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spotlight",
		Name:      "event_changes_total",
		Help:      "Stored events created, updated or deleted",
	}, []string{"kind"})
	m.rejected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "spotlight",
		Name:      "event_validation_failures_total",
		Help:      "Event payloads rejected by validation",
	})
	m.authAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spotlight",
		Name:      "auth_attempts_total",
		Help:      "Register and login attempts by outcome",
	}, []string{"action", "outcome"})

	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.eventChanges,
		m.rejected,
		m.authAttempts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records every request under its chi route pattern, which keeps
// label cardinality bounded for paths with ids.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// EventChanged counts a stored-event mutation; kind is a notice kind.
func (m *Metrics) EventChanged(kind string) {
	m.eventChanges.WithLabelValues(kind).Inc()
}

// ValidationFailed counts a rejected event payload.
func (m *Metrics) ValidationFailed() {
	m.rejected.Inc()
}

// AuthAttempt counts a register or login attempt.
func (m *Metrics) AuthAttempt(action string, ok bool) {
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	m.authAttempts.WithLabelValues(action, outcome).Inc()
}
