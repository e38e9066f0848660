package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(httpRequestsTotal, httpRequestLatencyMs)
}

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route pattern and status code.",
		},
		[]string{"path", "status"},
	)

	httpRequestLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_latency_ms",
			Help:    "HTTP request latency distribution in milliseconds.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 200, 400, 800, 1600},
		},
		[]string{"path"},
	)
)

func ObserveHTTPRequest(path string, status int, latencyMs float64) {
	httpRequestsTotal.WithLabelValues(path, strconv.Itoa(status)).Inc()
	httpRequestLatencyMs.WithLabelValues(path).Observe(latencyMs)
}
