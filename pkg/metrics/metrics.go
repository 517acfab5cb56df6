// Package metrics exposes Prometheus metrics for the Grain server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/psantana5/grain/pkg/tracing"
)

const namespace = "grain"

// GraphQL operation outcomes
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics owns the registry and the instruments updated by the server
type Metrics struct {
	registry     *prometheus.Registry
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	graphqlOps   *prometheus.CounterVec
}

// New creates a registry with the HTTP, GraphQL, record, build and runtime
// collectors. counter may be nil when no store is attached.
func New(counter RecordCounter, log *zap.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	start := time.Now()

	m := &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		graphqlOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graphql_operations_total",
			Help:      "GraphQL operations by top-level field and outcome.",
		}, []string{"operation", "outcome"}),
	}

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Time since the server started.",
	}, func() float64 { return time.Since(start).Seconds() })

	reg.MustRegister(
		versioncollector.NewCollector(namespace),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if counter != nil {
		reg.MustRegister(newRecordsCollector(counter, log))
	}
	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveGraphQL counts one GraphQL operation
func (m *Metrics) ObserveGraphQL(operation string, failed bool) {
	if operation == "" {
		operation = "anonymous"
	}
	outcome := OutcomeSuccess
	if failed {
		outcome = OutcomeError
	}
	m.graphqlOps.WithLabelValues(operation, outcome).Inc()
}

// Middleware records request counts and latency per route template
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := tracing.RouteName(r)
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(rw.status)).Inc()
		m.httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
