// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the Prometheus instrumentation: generic HTTP traffic
// collectors plus a handful of domain counters (posts scheduled, submissions
// recorded, quota rejections) that handlers bump directly. Label sets stay
// small on purpose:
//
//   - method: HTTP verb
//   - path:   the registered Gin route (e.g. /api/v1/scheduledPosts/:id);
//     falls back to the raw URL path when no route matched
//   - status: numeric status code as a string
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// httpReqs counts requests by method, route path, and status code.
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// httpLat records request duration in seconds by method and route path.
	// Status is omitted to keep histogram cardinality down.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// httpInflight gauges the number of requests currently being processed.
	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// Scheduling payloads are small JSON documents; buckets stop at 1 MiB,
	// which is also the request body cap.
	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_response_size_bytes",
			Help: "Size of HTTP responses in bytes.",
			Buckets: []float64{
				200, 500, 1 << 10, 2 << 10, 5 << 10,
				10 << 10, 25 << 10, 50 << 10, 100 << 10,
				250 << 10, 500 << 10, 1 << 20,
			},
		},
		[]string{"method", "path"},
	)

	postsScheduled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_posts_scheduled_total",
			Help: "Total number of posts accepted for scheduling.",
		},
	)

	quotaRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_quota_rejections_total",
			Help: "Total number of schedule attempts rejected by the daily quota.",
		},
	)

	submissionsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_submissions_recorded_total",
			Help: "Total number of submission outcomes recorded, by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		httpReqs, httpLat, httpInflight, httpRespSize,
		postsScheduled, quotaRejections, submissionsRecorded,
	)
}

// CountPostScheduled bumps the scheduled-posts counter. Called by the handler
// after a post has been persisted.
func CountPostScheduled() { postsScheduled.Inc() }

// CountQuotaRejection bumps the quota-rejection counter.
func CountQuotaRejection() { quotaRejections.Inc() }

// CountSubmissionRecorded bumps the submissions counter with a success or
// failure label.
func CountSubmissionRecorded(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	submissionsRecorded.WithLabelValues(result).Inc()
}

// Metrics returns a Gin middleware that instruments requests with Prometheus.
//
// Per request it increments http_requests_total, observes
// http_request_duration_seconds and http_response_size_bytes, and tracks the
// http_requests_inflight gauge while the handler runs.
//
// The "path" label uses the registered route (c.FullPath()) to avoid unbounded
// cardinality from raw URLs; when no route matched (404) it falls back to
// c.Request.URL.Path.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		dur := time.Since(start).Seconds()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		httpReqs.WithLabelValues(method, path, status).Inc()
		httpLat.WithLabelValues(method, path).Observe(dur)
		if size := c.Writer.Size(); size >= 0 {
			// Hijacked connections report -1; skip those.
			httpRespSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}
