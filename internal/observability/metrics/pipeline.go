// Package metrics provides pipeline metrics for observability
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics contains Prometheus metrics for roof analysis runs
type PipelineMetrics struct {
	registry *prometheus.Registry

	// Run metrics
	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	segmentsTotal   prometheus.Counter
	skippedElements *prometheus.CounterVec

	// Generic operation metrics fed through the Recorder interface
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec

	// Estimator metrics
	estimatorCallsTotal *prometheus.CounterVec
	estimatorCacheTotal *prometheus.CounterVec

	// Last run results
	coverageScore  prometheus.Gauge
	annualYieldKWh prometheus.Gauge
}

// NewPipelineMetrics creates and registers new pipeline metrics
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *PipelineMetrics) initMetrics() {
	m.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roofsolar_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"status"}, // success, error
	)

	m.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "roofsolar_run_duration_seconds",
		Help:    "Time taken for a complete pipeline run",
		Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12), // 10ms to ~40s
	})

	m.segmentsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "roofsolar_segments_total",
		Help: "Total number of roof segments produced",
	})

	m.skippedElements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roofsolar_skipped_elements_total",
			Help: "Total number of roof elements skipped during triangulation",
		},
		[]string{"reason"}, // no_geometry, error
	)

	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roofsolar_operations_total",
			Help: "Total number of pipeline operations",
		},
		[]string{"operation", "status"},
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roofsolar_operation_duration_seconds",
			Help:    "Time taken for pipeline operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12), // 1ms to ~2s
		},
		[]string{"operation"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roofsolar_errors_total",
			Help: "Total number of pipeline errors",
		},
		[]string{"operation", "error_type"},
	)

	m.estimatorCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roofsolar_estimator_calls_total",
			Help: "Total number of solar yield estimator calls",
		},
		[]string{"status"},
	)

	m.estimatorCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roofsolar_estimator_cache_total",
			Help: "Estimator response cache lookups",
		},
		[]string{"result"}, // hit, miss
	)

	m.coverageScore = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "roofsolar_coverage_score_percent",
		Help: "Renewable coverage score of the last run",
	})

	m.annualYieldKWh = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "roofsolar_annual_yield_kwh",
		Help: "Total annual yield of the last run",
	})
}

// Describe implements the Collector interface
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.runsTotal.Describe(ch)
	m.runDuration.Describe(ch)
	m.segmentsTotal.Describe(ch)
	m.skippedElements.Describe(ch)
	m.operationsTotal.Describe(ch)
	m.operationDuration.Describe(ch)
	m.errorsTotal.Describe(ch)
	m.estimatorCallsTotal.Describe(ch)
	m.estimatorCacheTotal.Describe(ch)
	m.coverageScore.Describe(ch)
	m.annualYieldKWh.Describe(ch)
}

// Collect implements the Collector interface
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.runsTotal.Collect(ch)
	m.runDuration.Collect(ch)
	m.segmentsTotal.Collect(ch)
	m.skippedElements.Collect(ch)
	m.operationsTotal.Collect(ch)
	m.operationDuration.Collect(ch)
	m.errorsTotal.Collect(ch)
	m.estimatorCallsTotal.Collect(ch)
	m.estimatorCacheTotal.Collect(ch)
	m.coverageScore.Collect(ch)
	m.annualYieldKWh.Collect(ch)
}

// RecordRun records a finished pipeline run with its outcome.
func (m *PipelineMetrics) RecordRun(status string, seconds float64) {
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.Observe(seconds)
}

// RecordSegments adds the number of segments produced by a run.
func (m *PipelineMetrics) RecordSegments(n int) {
	m.segmentsTotal.Add(float64(n))
}

// RecordSkippedElement records a roof element that produced no mesh.
func (m *PipelineMetrics) RecordSkippedElement(reason string) {
	m.skippedElements.WithLabelValues(reason).Inc()
}

// SetLastResult publishes the score and yield of the most recent run.
func (m *PipelineMetrics) SetLastResult(scorePercent, annualKWh float64) {
	m.coverageScore.Set(scorePercent)
	m.annualYieldKWh.Set(annualKWh)
}

// RecordOperation implements Recorder. Estimator calls and cache lookups
// are also counted on their dedicated series.
func (m *PipelineMetrics) RecordOperation(operation, status string) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
	switch operation {
	case OpEstimate:
		m.estimatorCallsTotal.WithLabelValues(status).Inc()
	case OpCacheGet:
		m.estimatorCacheTotal.WithLabelValues(status).Inc()
	}
}

// RecordDuration implements Recorder.
func (m *PipelineMetrics) RecordDuration(operation string, seconds float64) {
	m.operationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *PipelineMetrics) RecordError(operation, errorType string) {
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}
