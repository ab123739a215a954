package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iyulab/cyber-defense/internal/analyzer"
)

const metricsNamespace = "cyberdefense"

// Metrics holds the Prometheus collectors for one server. Each instance owns
// its registry so servers in tests do not collide.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	analysisTotal       *prometheus.CounterVec
	chatTotal           *prometheus.CounterVec
	gatewayErrorsTotal  *prometheus.CounterVec
	eventsIngested      *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "api",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "api",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
			},
			[]string{"method", "route"},
		),
		analysisTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "analysis_total",
				Help:      "Threat assessments produced, by source path",
			},
			[]string{"path"},
		),
		chatTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "chat_total",
				Help:      "Chat answers, by dispatch route",
			},
			[]string{"route"},
		),
		gatewayErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "gateway_errors_total",
				Help:      "Failed AI gateway calls, by kind",
			},
			[]string{"kind"},
		),
		eventsIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "events_ingested_total",
				Help:      "Security events stored, by severity",
			},
			[]string{"severity"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.analysisTotal,
		m.chatTotal,
		m.gatewayErrorsTotal,
		m.eventsIngested,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency per route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// EventsIngested counts stored records by severity.
func (m *Metrics) EventsIngested(severity string, n int) {
	m.eventsIngested.WithLabelValues(severity).Add(float64(n))
}

var _ analyzer.Observer = (*Metrics)(nil)

func (m *Metrics) AnalysisCompleted(source analyzer.Source) {
	m.analysisTotal.WithLabelValues(string(source)).Inc()
}

func (m *Metrics) ChatAnswered(route string) {
	m.chatTotal.WithLabelValues(route).Inc()
}

func (m *Metrics) GatewayFailed(kind string) {
	m.gatewayErrorsTotal.WithLabelValues(kind).Inc()
}
