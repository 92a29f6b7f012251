// Package metrics provides Prometheus metric collectors for the visit
// monitor services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LoaderMetrics contains Prometheus metrics for record set load operations
type LoaderMetrics struct {
	registry *prometheus.Registry

	loadsTotal      *prometheus.CounterVec
	loadErrorsTotal *prometheus.CounterVec
	loadDuration    prometheus.Histogram
	recordsLoaded   prometheus.Gauge
	rowsSkipped     prometheus.Counter
	cacheHitsTotal  prometheus.Counter
}

// NewLoaderMetrics creates and registers new loader metrics
func NewLoaderMetrics(registry *prometheus.Registry) (*LoaderMetrics, error) {
	m := &LoaderMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *LoaderMetrics) initMetrics() {
	m.loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visit_loads_total",
			Help: "Total number of record set load operations",
		},
		[]string{"status"}, // status: success, error
	)

	m.loadErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visit_load_errors_total",
			Help: "Total number of record set load errors",
		},
		[]string{"error_type"},
	)

	m.loadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "visit_load_duration_seconds",
		Help:    "Duration of record set load operations",
		Buckets: prometheus.DefBuckets,
	})

	m.recordsLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "visit_records_loaded",
		Help: "Number of records in the most recently loaded record set",
	})

	m.rowsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "visit_rows_skipped_total",
		Help: "Total number of malformed rows skipped in partial load mode",
	})

	m.cacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "visit_load_cache_hits_total",
		Help: "Total number of loads served from the memoized record set",
	})
}

// Describe implements the Collector interface
func (m *LoaderMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.loadsTotal.Describe(ch)
	m.loadErrorsTotal.Describe(ch)
	m.loadDuration.Describe(ch)
	m.recordsLoaded.Describe(ch)
	m.rowsSkipped.Describe(ch)
	m.cacheHitsTotal.Describe(ch)
}

// Collect implements the Collector interface
func (m *LoaderMetrics) Collect(ch chan<- prometheus.Metric) {
	m.loadsTotal.Collect(ch)
	m.loadErrorsTotal.Collect(ch)
	m.loadDuration.Collect(ch)
	m.recordsLoaded.Collect(ch)
	m.rowsSkipped.Collect(ch)
	m.cacheHitsTotal.Collect(ch)
}

// RecordLoad records a load operation outcome
func (m *LoaderMetrics) RecordLoad(status string) {
	m.loadsTotal.WithLabelValues(status).Inc()
}

// RecordLoadError records a load error by type
func (m *LoaderMetrics) RecordLoadError(errorType string) {
	m.loadErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordLoadDuration records the duration of a load operation in seconds
func (m *LoaderMetrics) RecordLoadDuration(seconds float64) {
	m.loadDuration.Observe(seconds)
}

// SetRecordsLoaded sets the size of the most recently loaded record set
func (m *LoaderMetrics) SetRecordsLoaded(count int) {
	m.recordsLoaded.Set(float64(count))
}

// RecordRowsSkipped adds skipped row count from a partial load
func (m *LoaderMetrics) RecordRowsSkipped(count int) {
	m.rowsSkipped.Add(float64(count))
}

// RecordCacheHit records a load served from the memoized record set
func (m *LoaderMetrics) RecordCacheHit() {
	m.cacheHitsTotal.Inc()
}
