// Package metrics provides Prometheus instrumentation for the fraud
// detection service. A single Registry is created at startup and passed to
// every component that records observations.
package metrics

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns the service's collectors.
type Registry struct {
	reg *prometheus.Registry

	DetectionsTotal     *prometheus.CounterVec
	DetectionLatency    prometheus.Histogram
	DetectionFailures   prometheus.Counter
	ScorerFallbacks     *prometheus.CounterVec
	StreamMessagesTotal *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewRegistry creates and registers all collectors, including the Go
// runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		DetectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraud_detection_total",
				Help: "Total number of fraud detection requests",
			},
			[]string{"result"},
		),

		DetectionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fraud_detection_latency_seconds",
			Help:    "Fraud detection latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		DetectionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fraud_detection_failures_total",
			Help: "Fraud detection requests that failed during scoring.",
		}),

		ScorerFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraud_detection_scorer_fallbacks_total",
				Help: "Remote scorer calls resolved by the fallback policy.",
			},
			[]string{"policy"},
		),

		StreamMessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraud_detection_stream_messages_total",
				Help: "Kafka transaction messages handled by outcome.",
			},
			[]string{"outcome"},
		),

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraud_detection_http_requests_total",
				Help: "Total HTTP requests by method, path pattern, and status code.",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fraud_detection_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.DetectionsTotal,
		r.DetectionLatency,
		r.DetectionFailures,
		r.ScorerFallbacks,
		r.StreamMessagesTotal,
		r.HTTPRequestsTotal,
		r.HTTPRequestDuration,
	)

	return r
}

// ObserveLatency records the duration of one scoring run.
func (r *Registry) ObserveLatency(d time.Duration) {
	r.DetectionLatency.Observe(d.Seconds())
}

// RecordOutcome counts a scored transaction under its verdict label.
func (r *Registry) RecordOutcome(outcome string) {
	r.DetectionsTotal.WithLabelValues(outcome).Inc()
}

// RecordFailure counts a scoring run that produced no result.
func (r *Registry) RecordFailure() {
	r.DetectionFailures.Inc()
}

// RecordFallback counts a remote scorer fallback.
func (r *Registry) RecordFallback(policy string) {
	r.ScorerFallbacks.WithLabelValues(policy).Inc()
}

// RecordStreamMessage counts a consumed Kafka message.
func (r *Registry) RecordStreamMessage(outcome string) {
	r.StreamMessagesTotal.WithLabelValues(outcome).Inc()
}

// Gatherer exposes the underlying registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler returns the scrape handler for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Middleware returns a gin middleware that records request metrics.
func (r *Registry) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(r.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // route pattern keeps cardinality bounded
		))

		c.Next()

		timer.ObserveDuration()
		r.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
