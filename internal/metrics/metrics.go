// Package metrics holds the Prometheus collectors shared by the service.
package metrics

import (
	"net/http"
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
			Name: "mealbrowser_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mealbrowser_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	upstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mealdb_requests_total",
			Help: "Total number of requests sent to TheMealDB",
		},
		[]string{"endpoint", "outcome"},
	)
	upstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mealdb_request_duration_seconds",
			Help:    "TheMealDB request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	cacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mealbrowser_cache_requests_total",
			Help: "Meal list cache lookups by result",
		},
		[]string{"result"},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mealbrowser_active_sessions",
			Help: "Number of live browser sessions",
		},
	)
)

// ObserveUpstream records one TheMealDB call.
func ObserveUpstream(endpoint string, err error, elapsed time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	upstreamRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	upstreamRequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// CacheHit records a cache hit.
func CacheHit() { cacheRequestsTotal.WithLabelValues("hit").Inc() }

// CacheMiss records a cache miss.
func CacheMiss() { cacheRequestsTotal.WithLabelValues("miss").Inc() }

// CacheError records a failing cache backend.
func CacheError() { cacheRequestsTotal.WithLabelValues("error").Inc() }

// SetActiveSessions reports the number of live sessions.
func SetActiveSessions(n int) { activeSessions.Set(float64(n)) }

// Middleware returns a gin middleware that counts and times requests.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
