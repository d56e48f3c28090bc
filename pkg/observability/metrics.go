package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Session metrics
	LoginsTotal          *prometheus.CounterVec
	LogoutsTotal         prometheus.Counter
	SessionRestoresTotal prometheus.Counter

	// Feature cache metrics
	FeatureRefreshTotal      *prometheus.CounterVec
	FeatureRefreshStaleTotal prometheus.Counter

	// Guard metrics
	GuardDecisionsTotal *prometheus.CounterVec
	GateDeniedTotal     *prometheus.CounterVec
}

// NewMetrics creates and registers the gateway metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portico_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portico_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portico_logins_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		LogoutsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "portico_logouts_total",
				Help: "Completed logouts",
			},
		),
		SessionRestoresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "portico_session_restores_total",
				Help: "Session restores from persisted state",
			},
		),
		FeatureRefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portico_feature_refresh_total",
				Help: "Feature-set refreshes by outcome",
			},
			[]string{"outcome"},
		),
		FeatureRefreshStaleTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "portico_feature_refresh_stale_total",
				Help: "Feature-set refresh results discarded as stale",
			},
		),
		GuardDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portico_guard_decisions_total",
				Help: "Route guard decisions by layer and outcome",
			},
			[]string{"layer", "decision"},
		),
		GateDeniedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portico_gate_denied_total",
				Help: "Gate denials by kind",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginsTotal,
		m.LogoutsTotal,
		m.SessionRestoresTotal,
		m.FeatureRefreshTotal,
		m.FeatureRefreshStaleTotal,
		m.GuardDecisionsTotal,
		m.GateDeniedTotal,
	)
	return m
}

// Handler returns the Prometheus scrape handler for the registry
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// statusRecorder captures the response status for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// HTTPMiddleware instruments a handler with request count and duration
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(recorder.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}
