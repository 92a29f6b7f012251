package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics contains Prometheus metrics for dashboard HTTP traffic
type HTTPMetrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	queryCacheHits  prometheus.Counter
}

// NewHTTPMetrics creates and registers new HTTP metrics
func NewHTTPMetrics(registry *prometheus.Registry) (*HTTPMetrics, error) {
	m := &HTTPMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *HTTPMetrics) initMetrics() {
	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"path", "method", "status"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	m.queryCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "http_query_cache_hits_total",
		Help: "Total number of aggregation responses served from cache",
	})
}

// Describe implements the Collector interface
func (m *HTTPMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.requestsTotal.Describe(ch)
	m.requestDuration.Describe(ch)
	m.queryCacheHits.Describe(ch)
}

// Collect implements the Collector interface
func (m *HTTPMetrics) Collect(ch chan<- prometheus.Metric) {
	m.requestsTotal.Collect(ch)
	m.requestDuration.Collect(ch)
	m.queryCacheHits.Collect(ch)
}

// RecordRequest records one served HTTP request
func (m *HTTPMetrics) RecordRequest(path, method, status string) {
	m.requestsTotal.WithLabelValues(path, method, status).Inc()
}

// RecordRequestDuration records request duration in seconds
func (m *HTTPMetrics) RecordRequestDuration(path string, seconds float64) {
	m.requestDuration.WithLabelValues(path).Observe(seconds)
}

// RecordQueryCacheHit records an aggregation response served from cache
func (m *HTTPMetrics) RecordQueryCacheHit() {
	m.queryCacheHits.Inc()
}
