package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipelineMetrics(t *testing.T) *PipelineMetrics {
	t.Helper()
	m, err := NewPipelineMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestPipelineMetrics_RecordOperationFansOut(t *testing.T) {
	t.Parallel()
	m := newTestPipelineMetrics(t)

	m.RecordOperation(OpEstimate, StatusSuccess)
	m.RecordOperation(OpEstimate, StatusError)
	m.RecordOperation(OpCacheGet, StatusHit)
	m.RecordOperation(OpTriangulate, StatusSkipped)

	assert.InDelta(t, 1.0, testutil.ToFloat64(m.estimatorCallsTotal.WithLabelValues(StatusSuccess)), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.estimatorCallsTotal.WithLabelValues(StatusError)), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.estimatorCacheTotal.WithLabelValues(StatusHit)), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues(OpTriangulate, StatusSkipped)), 0)
}

func TestPipelineMetrics_RunResults(t *testing.T) {
	t.Parallel()
	m := newTestPipelineMetrics(t)

	m.RecordRun(StatusSuccess, 0.5)
	m.RecordSegments(3)
	m.RecordSegments(2)
	m.RecordSkippedElement("no_geometry")
	m.RecordError(OpEstimate, "network")
	m.SetLastResult(33.3, 5000)

	assert.InDelta(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues(StatusSuccess)), 0)
	assert.InDelta(t, 5.0, testutil.ToFloat64(m.segmentsTotal), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.skippedElements.WithLabelValues("no_geometry")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.errorsTotal.WithLabelValues(OpEstimate, "network")), 0)
	assert.InDelta(t, 33.3, testutil.ToFloat64(m.coverageScore), 1e-9)
	assert.InDelta(t, 5000.0, testutil.ToFloat64(m.annualYieldKWh), 1e-9)
}

func TestNewPipelineMetrics_DuplicateRegistration(t *testing.T) {
	t.Parallel()
	registry := prometheus.NewRegistry()

	_, err := NewPipelineMetrics(registry)
	require.NoError(t, err)
	_, err = NewPipelineMetrics(registry)
	assert.Error(t, err)
}
