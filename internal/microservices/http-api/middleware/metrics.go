package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics tracks request counts, latency and auth rejections.
type HTTPMetrics struct {
	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	authRejections *prometheus.CounterVec
}

// NewHTTPMetrics builds the collectors and registers them with reg.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"path", "method", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
		authRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_rejections_total",
				Help: "Total number of unauthorized or forbidden requests",
			},
			[]string{"reason"},
		),
	}
	reg.MustRegister(m.requests, m.duration, m.authRejections)
	return m
}

// Handler records every request. Paths are the route templates
// (/circles/:id) so circle ids do not explode the label set.
func (m *HTTPMetrics) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()

		m.requests.WithLabelValues(path, c.Request.Method, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(path, c.Request.Method).Observe(time.Since(start).Seconds())

		switch status {
		case http.StatusUnauthorized:
			m.authRejections.WithLabelValues("401_unauthorized").Inc()
		case http.StatusForbidden:
			m.authRejections.WithLabelValues("403_forbidden").Inc()
		}
	}
}
