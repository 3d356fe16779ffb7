package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"phaengine/ports"
)

// Metrics holds the server's Prometheus collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	evaluations *prometheus.CounterVec
	problems    *prometheus.CounterVec
	requests    *prometheus.HistogramVec
}

// NewMetrics registers the collectors plus the Go runtime collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phaengine",
			Name:      "evaluations_total",
			Help:      "Scenario values evaluated for the display boundary.",
		}, []string{"endpoint"}),
		problems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phaengine",
			Name:      "problems_total",
			Help:      "Evaluated values that carried a problem sentinel, by sentinel name.",
		}, []string{"problem"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "phaengine",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
	m.Registry.MustRegister(
		m.evaluations,
		m.problems,
		m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) observe(endpoint string, values ...ports.ScenarioValue) {
	m.evaluations.WithLabelValues(endpoint).Add(float64(len(values)))
	for _, v := range values {
		if v.Problem != "" {
			m.problems.WithLabelValues(v.Problem).Inc()
		}
	}
}

// instrument records request latency under the matched route pattern.
func (m *Metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(route, http.StatusText(status)).Observe(time.Since(start).Seconds())
	})
}
