// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exposes Prometheus instrumentation for HTTP traffic. Labels are
// kept bounded: the registered route rather than the raw URL, the method and
// the numeric status.
//
// Websocket upgrades are counted separately. Their handler returns only when
// the session ends, so mixing them into the latency and size histograms
// would drown every REST observation.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chat",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of REST requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chat",
			Name:      "http_requests_inflight",
			Help:      "Current number of in-flight REST requests.",
		},
	)

	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chat",
			Name:      "http_response_size_bytes",
			Help:      "Size of REST responses in bytes.",
			Buckets:   prometheus.ExponentialBuckets(200, 2.5, 10), // 200B..~760KiB
		},
		[]string{"method", "path"},
	)

	wsUpgrades = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "ws_upgrade_requests_total",
			Help:      "Websocket handshake attempts by resulting status.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize, wsUpgrades)
}

// Metrics returns a Gin middleware that instruments requests with Prometheus.
// Mount /metrics separately with promhttp.Handler().
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isUpgrade(c.Request) {
			c.Next()
			status := strconv.Itoa(upgradeStatus(c))
			wsUpgrades.WithLabelValues(status).Inc()
			httpReqs.WithLabelValues(c.Request.Method, routePath(c), status).Inc()
			return
		}

		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		path, method := routePath(c), c.Request.Method
		httpReqs.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}

// upgradeStatus reports 101 for a hijacked handshake, which gin still records
// as its default 200 because gorilla writes the response itself.
func upgradeStatus(c *gin.Context) int {
	if s := c.Writer.Status(); s != http.StatusOK {
		return s
	}
	return http.StatusSwitchingProtocols
}
