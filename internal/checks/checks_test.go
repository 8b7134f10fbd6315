package checks

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/roofsolar/internal/building"
	"github.com/tphakala/roofsolar/internal/errors"
	"github.com/tphakala/roofsolar/internal/geometry"
	"github.com/tphakala/roofsolar/internal/pipeline"
	"github.com/tphakala/roofsolar/internal/production"
)

func openFixture(t *testing.T, name string) *building.Model {
	t.Helper()
	m, err := building.Open(filepath.Join("../building/testdata", name))
	require.NoError(t, err)
	return m
}

// tableEstimator answers from a table keyed by whole-degree azimuth.
type tableEstimator map[float64]float64

func (e tableEstimator) EstimateYield(_ context.Context, req production.YieldRequest) (float64, error) {
	if y, ok := e[math.Round(req.Azimuth)]; ok {
		return y, nil
	}
	return 0, errors.Newf("azimuth %.0f rejected", req.Azimuth).
		Category(errors.CategoryValidation).
		Build()
}

type noGeometry struct{}

func (noGeometry) Triangulate(context.Context, *building.Element) (*geometry.Mesh, error) {
	return nil, nil
}

func newChecker(est production.YieldEstimator, threshold float64) *Checker {
	p := pipeline.New(nil, production.NewAggregator(est, production.NoDelay{}, nil))
	return New(p, pipeline.DefaultOptions(), threshold)
}

func statuses(rows []ElementResult) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.CheckStatus)
	}
	return out
}

func TestCheckLocation(t *testing.T) {
	t.Parallel()

	c := newChecker(nil, 0)

	rows := c.CheckLocation(openFixture(t, "gable.json"))
	require.Len(t, rows, 1)
	assert.Equal(t, StatusPass, rows[0].CheckStatus)
	assert.Equal(t, "47.376667°N, 8.540000°E", rows[0].ActualValue)
	assert.Equal(t, "Zurich Plot", rows[0].ElementName)
	assert.Equal(t, "2site0000000000000001", rows[0].ElementID)

	rows = c.CheckLocation(openFixture(t, "shed.yaml"))
	require.Len(t, rows, 1)
	assert.Equal(t, StatusFail, rows[0].CheckStatus)
	assert.Empty(t, rows[0].ActualValue)

	rows = c.CheckLocation(&building.Model{Sites: []building.Site{{RefLatitude: []int{47}}}})
	require.Len(t, rows, 1)
	assert.Equal(t, StatusFail, rows[0].CheckStatus)
	assert.Equal(t, "lat=47, lon=none", rows[0].ActualValue)
	assert.Equal(t, "Site #1", rows[0].ElementName)

	rows = c.CheckLocation(&building.Model{})
	require.Len(t, rows, 1)
	assert.Equal(t, StatusFail, rows[0].CheckStatus)
	assert.Equal(t, "(no IfcSite found)", rows[0].ElementName)
}

func TestCheckBuildingAreas(t *testing.T) {
	t.Parallel()

	rows := newChecker(nil, 0).CheckBuildingAreas(openFixture(t, "gable.json"))
	require.Len(t, rows, 3)
	assert.Equal(t, []string{StatusPass, StatusPass, StatusPass}, statuses(rows))
	assert.Equal(t, "3.80 m²", rows[0].ActualValue)
	assert.Equal(t, "200.00 m²", rows[1].ActualValue)
	assert.Equal(t, "141.42 m²", rows[2].ActualValue)

	rows = newChecker(nil, 0).CheckBuildingAreas(&building.Model{})
	assert.Equal(t, []string{StatusBlocked, StatusBlocked, StatusBlocked}, statuses(rows))
	assert.Contains(t, rows[1].Comment, "not found")
}

func TestCheckRoofGeometry(t *testing.T) {
	t.Parallel()

	rows := newChecker(nil, 0).CheckRoofGeometry(t.Context(), openFixture(t, "gable.json"))
	require.Len(t, rows, 2, "authored and geometric roof areas agree")
	for _, r := range rows {
		assert.Equal(t, StatusPass, r.CheckStatus)
		assert.Equal(t, "IfcSlab", r.ElementType)
		assert.Contains(t, r.ActualValue, "tilt=45.0°")
		assert.Contains(t, r.ElementNameLong, "of 141.4 m² total")
		assert.Contains(t, r.Log, "true north")
	}
}

func TestCheckRoofGeometry_AreaMismatch(t *testing.T) {
	t.Parallel()

	m := openFixture(t, "gable.json")
	// Drop the north slab's mesh so the geometry covers half the roof
	north, ok := m.Element("s2")
	require.True(t, ok)
	north.Mesh = nil

	rows := newChecker(nil, 0).CheckRoofGeometry(t.Context(), m)
	require.Len(t, rows, 2)
	assert.Equal(t, StatusPass, rows[0].CheckStatus)
	assert.Equal(t, StatusWarning, rows[1].CheckStatus)
	assert.Contains(t, rows[1].Comment, "roof area mismatch")
}

func TestCheckRoofGeometry_NoSegments(t *testing.T) {
	t.Parallel()

	p := pipeline.New(nil, nil)
	p.SetTriangulator(noGeometry{})
	c := New(p, pipeline.DefaultOptions(), 0)

	rows := c.CheckRoofGeometry(t.Context(), openFixture(t, "gable.json"))
	require.Len(t, rows, 1)
	assert.Equal(t, StatusFail, rows[0].CheckStatus)
	assert.Equal(t, "0 segments", rows[0].ActualValue)

	rows = c.CheckLEEDScore(t.Context(), openFixture(t, "gable.json"))
	require.Len(t, rows, 1)
	assert.Equal(t, StatusFail, rows[0].CheckStatus)
	assert.Equal(t, "0%", rows[0].ActualValue)
}

func TestCheckRoofGeometry_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	rows := newChecker(nil, 0).CheckRoofGeometry(ctx, openFixture(t, "gable.json"))
	require.Len(t, rows, 1)
	assert.Equal(t, StatusBlocked, rows[0].CheckStatus)
	assert.Contains(t, rows[0].Comment, "Roof parsing failed")
}

func TestCheckSolarProduction(t *testing.T) {
	t.Parallel()

	c := newChecker(tableEstimator{190: 6000}, 0)
	rows := c.CheckSolarProduction(t.Context(), openFixture(t, "gable.json"))
	require.Len(t, rows, 2)

	byStatus := map[string]ElementResult{}
	for _, r := range rows {
		byStatus[r.CheckStatus] = r
	}
	assert.Equal(t, "6,000.00 kWh/yr", byStatus[StatusPass].ActualValue)
	assert.Equal(t, "0.00 kWh/yr", byStatus[StatusFail].ActualValue)
	assert.Contains(t, byStatus[StatusFail].Comment, "azimuth 10 rejected")
	assert.Contains(t, byStatus[StatusPass].ElementNameLong, "14.1 kW capacity")
}

func TestCheckSolarProduction_Blocked(t *testing.T) {
	t.Parallel()

	// No site coordinates
	rows := newChecker(tableEstimator{}, 0).CheckSolarProduction(t.Context(), openFixture(t, "shed.yaml"))
	require.Len(t, rows, 1)
	assert.Equal(t, StatusBlocked, rows[0].CheckStatus)
	assert.Equal(t, "IfcSite", rows[0].ElementType)

	// Offline
	opts := pipeline.DefaultOptions()
	opts.CallAPI = false
	rows = New(nil, opts, 0).CheckSolarProduction(t.Context(), openFixture(t, "gable.json"))
	require.Len(t, rows, 1)
	assert.Equal(t, StatusBlocked, rows[0].CheckStatus)
	assert.Contains(t, rows[0].Comment, "offline")
}

func TestCheckLEEDScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		threshold  float64
		wantStatus string
	}{
		{"default threshold", 0, StatusFail},
		{"below score", 30, StatusPass},
		{"at score", 33.3, StatusPass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newChecker(tableEstimator{190: 6000, 10: 4000}, tt.threshold)
			rows := c.CheckLEEDScore(t.Context(), openFixture(t, "gable.json"))
			require.Len(t, rows, 1)
			assert.Equal(t, tt.wantStatus, rows[0].CheckStatus)
			assert.Equal(t, "33.3%", rows[0].ActualValue)
			assert.Contains(t, rows[0].ElementNameLong, "10,000 kWh/yr vs consumption 30,000 kWh/yr")
		})
	}

	rows := newChecker(tableEstimator{190: 6000, 10: 4000}, 0).CheckLEEDScore(t.Context(), openFixture(t, "gable.json"))
	assert.Equal(t, "≥ 50%", rows[0].RequiredValue)
	assert.Contains(t, rows[0].Comment, "below the 50% threshold")
}

func TestRunAll(t *testing.T) {
	t.Parallel()

	c := newChecker(tableEstimator{190: 6000, 10: 4000}, 0)
	report := c.RunAll(t.Context(), openFixture(t, "gable.json"))

	require.Len(t, report.Checks, 5)
	names := make([]string, 0, 5)
	for _, run := range report.Checks {
		names = append(names, run.Name)
	}
	assert.Equal(t, []string{NameLocation, NameBuildingAreas, NameRoofGeometry, NameSolarProduction, NameLEEDScore}, names)

	assert.Equal(t, "Gable House", report.Project)
	assert.Equal(t, 8, report.Counts[StatusPass])
	assert.Equal(t, 1, report.Counts[StatusFail])
	assert.False(t, report.Passed)
	assert.Equal(t, StatusFail, report.Checks[4].Status)
	assert.Equal(t, StatusPass, report.Checks[0].Status)
}

func TestWorstStatus(t *testing.T) {
	t.Parallel()

	row := func(s string) ElementResult { return ElementResult{CheckStatus: s} }
	assert.Equal(t, StatusLog, worstStatus(nil))
	assert.Equal(t, StatusPass, worstStatus([]ElementResult{row(StatusLog), row(StatusPass)}))
	assert.Equal(t, StatusWarning, worstStatus([]ElementResult{row(StatusPass), row(StatusWarning)}))
	assert.Equal(t, StatusFail, worstStatus([]ElementResult{row(StatusBlocked), row(StatusFail), row(StatusPass)}))
}

func TestNewResult_DefaultNames(t *testing.T) {
	t.Parallel()

	r := newResult("", "IfcRoof", "", "", StatusLog, "", "", "")
	assert.Equal(t, "IfcRoof #?", r.ElementName)
	assert.Equal(t, "IfcRoof #?", r.ElementNameLong)

	r = newResult("abc", "IfcSlab", "", "", StatusLog, "", "", "")
	assert.Equal(t, "IfcSlab #abc", r.ElementName)
}
