package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	upvoteTogglesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upvote_toggles_total",
			Help: "Total number of upvote toggles by target and direction",
		},
		[]string{"target", "action"},
	)
)

// PrometheusMiddleware records a counter and a latency histogram per route.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

// RecordUpvoteToggle counts a completed toggle. target is "post" or
// "comment"; action is "add" or "remove".
func RecordUpvoteToggle(target string, upvoted bool) {
	action := "remove"
	if upvoted {
		action = "add"
	}
	upvoteTogglesTotal.WithLabelValues(target, action).Inc()
}
