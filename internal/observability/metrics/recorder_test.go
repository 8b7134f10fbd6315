package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTestRecorder(t *testing.T) {
	t.Parallel()

	recorder := NewTestRecorder()
	recorder.RecordOperation(OpEstimate, StatusSuccess)
	recorder.RecordOperation(OpEstimate, StatusSuccess)
	recorder.RecordOperation(OpEstimate, StatusError)
	recorder.RecordDuration(OpEstimate, 0.25)
	recorder.RecordError(OpEstimate, "network")

	assert.Equal(t, 2, recorder.GetOperationCount(OpEstimate, StatusSuccess))
	assert.Equal(t, 1, recorder.GetOperationCount(OpEstimate, StatusError))
	assert.Equal(t, 0, recorder.GetOperationCount(OpRun, StatusSuccess))
	assert.Equal(t, []float64{0.25}, recorder.GetDurations(OpEstimate))
	assert.Nil(t, recorder.GetDurations("non_existent"))
	assert.Equal(t, 1, recorder.GetErrorCount(OpEstimate, "network"))

	// Returned durations are a copy
	durations := recorder.GetDurations(OpEstimate)
	durations[0] = 99
	assert.Equal(t, []float64{0.25}, recorder.GetDurations(OpEstimate))

	recorder.Reset()
	assert.False(t, recorder.HasRecordedMetrics())
}

func TestOrNoOp(t *testing.T) {
	t.Parallel()

	assert.IsType(t, &NoOpRecorder{}, OrNoOp(nil))

	recorder := NewTestRecorder()
	assert.Same(t, recorder, OrNoOp(recorder))
}

// Compile-time checks that the implementations satisfy Recorder.
var (
	_ Recorder = (*TestRecorder)(nil)
	_ Recorder = (*NoOpRecorder)(nil)
	_ Recorder = (*PipelineMetrics)(nil)
)
