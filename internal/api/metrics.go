package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

// serverMetrics holds Prometheus metrics for the HTTP surface
type serverMetrics struct {
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rateLimited     prometheus.Counter
	degradedReplies *prometheus.CounterVec
}

// registerMetrics sets up HTTP metrics on reg
func registerMetrics(reg prometheus.Registerer) *serverMetrics {
	m := &serverMetrics{
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logohunt_http_requests_total",
				Help: "Total number of HTTP requests processed",
			},
			[]string{"endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "logohunt_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		rateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "logohunt_http_rate_limited_total",
				Help: "Collect requests rejected by the rate limiter",
			},
		),
		degradedReplies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logohunt_http_degraded_responses_total",
				Help: "Successful responses that carried zeroed chains",
			},
			[]string{"endpoint"},
		),
	}

	reg.MustRegister(
		m.requestCounter,
		m.requestDuration,
		m.rateLimited,
		m.degradedReplies,
	)

	return m
}
