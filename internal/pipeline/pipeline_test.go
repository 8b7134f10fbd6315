package pipeline

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/roofsolar/internal/building"
	"github.com/tphakala/roofsolar/internal/errors"
	"github.com/tphakala/roofsolar/internal/geometry"
	"github.com/tphakala/roofsolar/internal/observability/metrics"
	"github.com/tphakala/roofsolar/internal/production"
	"github.com/tphakala/roofsolar/internal/resolver"
)

const fixtureDir = "../building/testdata"

func openFixture(t *testing.T, name string) *building.Model {
	t.Helper()
	m, err := building.Open(filepath.Join(fixtureDir, name))
	require.NoError(t, err)
	return m
}

// azimuthEstimator answers from a table keyed by whole-degree azimuth.
type azimuthEstimator struct {
	mu       sync.Mutex
	yields   map[float64]float64
	azimuths []float64
}

func (e *azimuthEstimator) EstimateYield(_ context.Context, req production.YieldRequest) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	az := math.Round(req.Azimuth)
	e.azimuths = append(e.azimuths, az)
	if y, ok := e.yields[az]; ok {
		return y, nil
	}
	return 0, errors.Newf("no yield for azimuth %.0f", az).
		Category(errors.CategoryNetwork).
		Build()
}

func newTestPipeline(est production.YieldEstimator) *Pipeline {
	return New(nil, production.NewAggregator(est, production.NoDelay{}, nil))
}

// failingTriangulator fails for the listed element IDs and defers to the
// model otherwise.
type failingTriangulator struct {
	model *building.Model
	fail  map[string]bool
}

func (f failingTriangulator) Triangulate(ctx context.Context, e *building.Element) (*geometry.Mesh, error) {
	if f.fail[e.ID] {
		return nil, errors.Newf("kernel failure on %s", e.ID).
			Category(errors.CategoryGeometry).
			Build()
	}
	return f.model.Triangulate(ctx, e)
}

type emptyTriangulator struct{}

func (emptyTriangulator) Triangulate(context.Context, *building.Element) (*geometry.Mesh, error) {
	return nil, nil
}

func segmentAzimuths(res *Result) []float64 {
	var out []float64
	for _, s := range res.Segments() {
		out = append(out, math.Round(s.Azimuth))
	}
	slices.Sort(out)
	return out
}

func TestRun_Gable(t *testing.T) {
	t.Parallel()

	est := &azimuthEstimator{yields: map[float64]float64{190: 6000, 10: 4000}}
	p := newTestPipeline(est)

	res, err := p.Run(t.Context(), openFixture(t, "gable.json"), "houses", "gable.json", DefaultOptions())
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.NotEmpty(t, res.RunID)

	assert.Equal(t, LocationModel, res.LocationSource)
	assert.InDelta(t, 47.376667, res.Location.Latitude, 1e-9)
	assert.InDelta(t, 8.54, res.Location.Longitude, 1e-9)
	assert.Equal(t, "houses", res.Location.Name)

	// True north of 10 degrees rotates south to 190 and north to 10
	assert.InDelta(t, 10.0, res.TrueNorth, 1e-9)
	assert.True(t, res.TrueNorthUsed)
	assert.Equal(t, []float64{10, 190}, segmentAzimuths(res))

	for _, s := range res.Segments() {
		assert.InDelta(t, 45.0, s.Tilt, 0.1)
		assert.InDelta(t, 70.71, s.Area, 0.01)
		assert.Equal(t, production.StatusOK, s.Status)
		assert.NotEmpty(t, s.ElementID)
	}

	// The canopy has no mesh
	assert.Contains(t, res.Skipped, "s3")

	prod := res.Production
	assert.InDelta(t, 141.42, prod.TotalAreaM2, 0.01)
	assert.InDelta(t, 10000.0, prod.TotalKWh, 1e-9)
	assert.InDelta(t, 30000.0, prod.ConsumptionKWh, 1e-9)
	assert.InDelta(t, 33.3, prod.Score, 1e-9)

	// Geometry agrees with the authored roof area
	assert.Empty(t, res.Warnings)
}

func TestRun_TrueNorthDisabled(t *testing.T) {
	t.Parallel()

	est := &azimuthEstimator{yields: map[float64]float64{180: 1, 0: 1}}
	opts := DefaultOptions()
	opts.ApplyTrueNorth = false

	res, err := newTestPipeline(est).Run(t.Context(), openFixture(t, "gable.json"), "houses", "gable.json", opts)
	require.NoError(t, err)
	assert.False(t, res.TrueNorthUsed)
	assert.InDelta(t, 10.0, res.TrueNorth, 1e-9, "bearing is still reported")
	assert.Equal(t, []float64{0, 180}, segmentAzimuths(res))
}

func TestRun_Offline(t *testing.T) {
	t.Parallel()

	est := &azimuthEstimator{}
	opts := DefaultOptions()
	opts.CallAPI = false

	res, err := newTestPipeline(est).Run(t.Context(), openFixture(t, "gable.json"), "houses", "gable.json", opts)
	require.NoError(t, err)

	assert.Empty(t, est.azimuths, "estimator must not be called")
	assert.Zero(t, res.Production.TotalKWh)
	assert.Zero(t, res.Production.Score)
	assert.InDelta(t, 28.28, res.Production.TotalCapacity, 1e-9)
	assert.NotEmpty(t, res.Notes)
	for _, s := range res.Segments() {
		assert.Equal(t, production.StatusSkipped, s.Status)
	}
}

func TestRun_FailedSegmentWarns(t *testing.T) {
	t.Parallel()

	est := &azimuthEstimator{yields: map[float64]float64{190: 6000}}
	res, err := newTestPipeline(est).Run(t.Context(), openFixture(t, "gable.json"), "houses", "gable.json", DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Production.FailedSegments)
	assert.InDelta(t, 6000.0, res.Production.TotalKWh, 1e-9)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "1 of 2 segments")
}

func TestRun_NoLocation(t *testing.T) {
	t.Parallel()

	est := &azimuthEstimator{}
	res, err := newTestPipeline(est).Run(t.Context(), openFixture(t, "shed.yaml"), "sheds", "shed.yaml", DefaultOptions())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrNoLocation)
	assert.True(t, errors.IsCategory(err, errors.CategoryMetadata))
	assert.False(t, res.OK())
	assert.Nil(t, res.Production)
	assert.Empty(t, est.azimuths)
}

func TestRun_LocationOverride(t *testing.T) {
	t.Parallel()

	est := &azimuthEstimator{yields: map[float64]float64{}}
	opts := DefaultOptions()
	opts.CallAPI = false
	opts.LocationOverride = &resolver.Location{Latitude: 60.17, Longitude: 24.94}

	res, err := newTestPipeline(est).Run(t.Context(), openFixture(t, "shed.yaml"), "sheds", "shed.yaml", opts)
	require.NoError(t, err)
	assert.Equal(t, LocationOverride, res.LocationSource)
	assert.Equal(t, "sheds", res.Location.Name)
	assert.InDelta(t, 60.17, res.Location.Latitude, 1e-9)

	// Millimetre mesh scaled to a flat 3 m by 2 m roof
	require.Len(t, res.Segments(), 1)
	assert.InDelta(t, 6.0, res.Segments()[0].Area, 1e-6)
	assert.InDelta(t, 0.0, res.Segments()[0].Tilt, 1e-9)
}

func TestRun_OverrideWinsOverModel(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.CallAPI = false
	opts.LocationOverride = &resolver.Location{Latitude: 1, Longitude: 2, Name: "Elsewhere"}

	res, err := New(nil, nil).Run(t.Context(), openFixture(t, "gable.json"), "houses", "gable.json", opts)
	require.NoError(t, err)
	assert.Equal(t, LocationOverride, res.LocationSource)
	assert.Equal(t, "Elsewhere", res.Location.Name)
}

func TestRun_TriangulationFailureSkipsElement(t *testing.T) {
	t.Parallel()

	m := openFixture(t, "gable.json")
	est := &azimuthEstimator{yields: map[float64]float64{10: 4000}}
	p := newTestPipeline(est)
	p.SetTriangulator(failingTriangulator{model: m, fail: map[string]bool{"s1": true}})

	recorder := metrics.NewTestRecorder()
	p.recorder = recorder

	res, err := p.Run(t.Context(), m, "houses", "gable.json", DefaultOptions())
	require.NoError(t, err)

	assert.Contains(t, res.Skipped, "s1")
	assert.Equal(t, []float64{10}, segmentAzimuths(res))
	assert.Equal(t, 1, recorder.GetErrorCount(metrics.OpTriangulate, string(errors.CategoryGeometry)))
	assert.Equal(t, 1, recorder.GetOperationCount(metrics.OpTriangulate, metrics.StatusSuccess))

	// Half the authored roof area is missing from the geometry
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[len(res.Warnings)-1], "roof area mismatch")
}

func TestRun_NoSegments(t *testing.T) {
	t.Parallel()

	p := New(nil, nil)
	p.SetTriangulator(emptyTriangulator{})

	res, err := p.Run(t.Context(), openFixture(t, "gable.json"), "houses", "gable.json", DefaultOptions())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrNoSegments)
	assert.NotErrorIs(t, err, ErrNoLocation)
	assert.True(t, errors.IsCategory(err, errors.CategoryGeometry))
	require.NotNil(t, res, "a no-data outcome still returns the result")
	assert.False(t, res.OK())
	assert.Equal(t, err.Error(), res.Error)
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := New(nil, nil).Run(ctx, openFixture(t, "gable.json"), "houses", "gable.json", DefaultOptions())
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))
}

func TestRun_Metrics(t *testing.T) {
	t.Parallel()

	pm, err := metrics.NewPipelineMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	est := &azimuthEstimator{yields: map[float64]float64{190: 6000, 10: 4000}}
	agg := production.NewAggregator(est, production.NoDelay{}, pm)
	p := New(nil, agg)
	p.SetMetrics(pm)

	_, err = p.Run(t.Context(), openFixture(t, "gable.json"), "houses", "gable.json", DefaultOptions())
	require.NoError(t, err)
	_, err = p.Run(t.Context(), openFixture(t, "shed.yaml"), "sheds", "shed.yaml", DefaultOptions())
	require.Error(t, err)

	// One success and one error series
	assert.Equal(t, 2, testutil.CollectAndCount(pm, "roofsolar_runs_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(pm, "roofsolar_skipped_elements_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(pm, "roofsolar_estimator_calls_total"))
}

func TestRunFile_ProjectNameFromDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "Gable House")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	copyFixture(t, "gable.json", filepath.Join(dir, "model.json"))

	opts := DefaultOptions()
	opts.CallAPI = false

	res, err := New(nil, nil).RunFile(t.Context(), filepath.Join(dir, "model.json"), opts)
	require.NoError(t, err)
	assert.Equal(t, "Gable House", res.ProjectName)
	assert.Equal(t, "model.json", res.File)

	opts.ProjectName = "Named"
	res, err = New(nil, nil).RunFile(t.Context(), filepath.Join(dir, "model.json"), opts)
	require.NoError(t, err)
	assert.Equal(t, "Named", res.ProjectName)

	_, err = New(nil, nil).RunFile(t.Context(), filepath.Join(dir, "missing.json"), opts)
	require.Error(t, err)
}

func TestCrossValidate(t *testing.T) {
	t.Parallel()

	ptr := func(v float64) *float64 { return &v }

	tests := []struct {
		name      string
		geometric float64
		authored  *float64
		warn      bool
	}{
		{"no authored area", 100, nil, false},
		{"zero authored area", 100, ptr(0), false},
		{"within tolerance", 110, ptr(100), false},
		{"beyond tolerance", 141.42, ptr(100), true},
		{"geometry short", 50, ptr(100), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, ok := CrossValidate(tt.geometric, tt.authored, 20)
			assert.Equal(t, tt.warn, ok)
			if tt.warn {
				assert.Contains(t, w, "roof area mismatch")
			} else {
				assert.Empty(t, w)
			}
		})
	}
}

func copyFixture(t *testing.T, name, dst string) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(fixtureDir, name))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(dst, data, 0o600))
}
