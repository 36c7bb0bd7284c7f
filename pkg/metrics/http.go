package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics records request latency by route pattern.
type HTTPMetrics struct {
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewHTTPMetrics registers the HTTP metrics on the provided registerer.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		return &HTTPMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method, route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_requests_in_flight",
		Help: "Requests currently being served.",
	})
	reg.MustRegister(duration, inFlight)
	return &HTTPMetrics{duration: duration, inFlight: inFlight}
}

// Start marks a request as in flight and returns the function that records it.
func (h *HTTPMetrics) Start() func(method, route string, status int) {
	if h == nil || h.duration == nil {
		return func(string, string, int) {}
	}
	h.inFlight.Inc()
	began := time.Now()
	return func(method, route string, status int) {
		h.inFlight.Dec()
		h.duration.WithLabelValues(method, normalizeLabel(route), strconv.Itoa(status)).Observe(time.Since(began).Seconds())
	}
}
