package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kehila_http_requests_total",
			Help: "Total HTTP requests by method, path and status code.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kehila_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// RegistrationsTotal counts persisted event registrations by outcome
	// (registered/replaced).
	RegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kehila_registrations_total",
			Help: "Event registrations written, by outcome.",
		},
		[]string{"outcome"},
	)

	// SkipsTotal counts bundle events that could not be registered, by reason.
	SkipsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kehila_registration_skips_total",
			Help: "Bundle events skipped during registration, by reason.",
		},
		[]string{"reason"},
	)

	// BundleRegistrationsTotal counts completed bundle purchases.
	BundleRegistrationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kehila_bundle_registrations_total",
			Help: "Bundle registrations persisted.",
		},
	)

	// EmailsTotal counts notification emails by delivery result.
	EmailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kehila_emails_total",
			Help: "Notification emails attempted, by result.",
		},
		[]string{"result"},
	)
)

// HTTPMiddleware записывает метрики по каждому запросу
func HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		httpRequestsTotal.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status()),
		).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).
			Observe(time.Since(start).Seconds())
	}
}

// Handler отдает метрики в формате Prometheus
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
