package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/roofsolar/internal/building"
	"github.com/tphakala/roofsolar/internal/checks"
	"github.com/tphakala/roofsolar/internal/conf"
	"github.com/tphakala/roofsolar/internal/errors"
	"github.com/tphakala/roofsolar/internal/observability"
	"github.com/tphakala/roofsolar/internal/pipeline"
)

func testSettings() *conf.Settings {
	return &conf.Settings{
		Analysis: conf.AnalysisSettings{
			AngleTolerance:           conf.DefaultAngleTolerance,
			MinSegmentArea:           conf.DefaultMinSegmentArea,
			PanelEfficiency:          conf.DefaultPanelEfficiency,
			ConsumptionPerM2:         conf.DefaultConsumptionPerM2,
			FallbackConsumption:      conf.DefaultFallbackConsumption,
			CrossValidationTolerance: conf.DefaultCrossValidationTolerance,
			ApplyTrueNorth:           true,
		},
		PVWatts: conf.PVWattsSettings{
			BaseURL:   conf.DefaultPVWattsURL,
			Timeout:   time.Second,
			RateLimit: time.Millisecond,
		},
		Checks: conf.ChecksSettings{LEEDThreshold: conf.DefaultLEEDThreshold},
		Output: conf.OutputSettings{Format: "table"},
	}
}

func testContext(t *testing.T) *Context {
	t.Helper()
	m, err := observability.NewMetrics()
	require.NoError(t, err)
	var out bytes.Buffer
	return &Context{Settings: testSettings(), Version: "test", Metrics: m, Stdout: &out, initialized: true}
}

func TestNewPipeline_Offline(t *testing.T) {
	c := testContext(t)
	opts := c.Options()
	require.False(t, opts.CallAPI)

	p, err := c.NewPipeline(opts)
	require.NoError(t, err)

	res, err := p.RunFile(t.Context(), "../building/testdata/gable.json", opts)
	require.NoError(t, err)
	assert.Zero(t, res.Production.TotalKWh)
	assert.Len(t, res.Segments(), 2)
	assert.Equal(t, 1, testutil.CollectAndCount(c.Metrics.Pipeline, "roofsolar_runs_total"))
}

func TestNewPipeline_RequiresAPIKey(t *testing.T) {
	c := testContext(t)
	opts := c.Options()
	opts.CallAPI = true

	_, err := c.NewPipeline(opts)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	assert.Contains(t, err.Error(), "API key")
}

func TestNewPipeline_WithAPIKey(t *testing.T) {
	c := testContext(t)
	c.Settings.PVWatts.APIKey = "DEMO_KEY"
	opts := c.Options()
	opts.CallAPI = true

	p, err := c.NewPipeline(opts)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Len(t, c.clients, 1)

	require.NoError(t, c.Shutdown())
	assert.Empty(t, c.clients)
}

func TestResolver_AliasFile(t *testing.T) {
	c := testContext(t)

	res, err := c.Resolver()
	require.NoError(t, err)
	assert.NotEmpty(t, res.Aliases().Keys(), "embedded aliases")

	path := filepath.Join(t.TempDir(), "aliases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("floor_area:\n  - entity: IfcSpace\n    source: qset\n    set_name: Qto_SpaceBaseQuantities\n    key: NetFloorArea\n"), 0o600))
	c.Settings.Analysis.AliasFile = path

	res, err = c.Resolver()
	require.NoError(t, err)
	assert.Equal(t, []string{"floor_area"}, res.Aliases().Keys())

	require.NoError(t, os.WriteFile(path, []byte("floor_area: [{entity: IfcSpace, source: bogus}]\n"), 0o600))
	_, err = c.Resolver()
	require.Error(t, err)
}

func TestNewChecker(t *testing.T) {
	c := testContext(t)

	checker, err := c.NewChecker(pipeline.DefaultOptions())
	require.Error(t, err, "default options call the API without a key")
	assert.Nil(t, checker)

	checker, err = c.NewChecker(c.Options())
	require.NoError(t, err)
	m, err := building.Open("../building/testdata/gable.json")
	require.NoError(t, err)

	report := checker.RunAll(t.Context(), m)
	require.Len(t, report.Checks, 5)
	last := report.Checks[4].Results[0]
	assert.Equal(t, checks.StatusBlocked, last.CheckStatus, "offline runs block the score check")
}

func TestShutdown_WritesMetricsTextfile(t *testing.T) {
	c := testContext(t)
	c.Settings.Metrics.TextFile = filepath.Join(t.TempDir(), "metrics", "roofsolar.prom")

	p, err := c.NewPipeline(c.Options())
	require.NoError(t, err)
	_, err = p.RunFile(t.Context(), "../building/testdata/gable.json", c.Options())
	require.NoError(t, err)

	require.NoError(t, c.Shutdown())
	data, err := os.ReadFile(c.Settings.Metrics.TextFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "roofsolar_runs_total")
}

func TestShutdown_WithoutInit(t *testing.T) {
	c := NewContext("test")
	c.Settings.Metrics.TextFile = filepath.Join(t.TempDir(), "never.prom")

	require.NoError(t, c.Shutdown())
	assert.NoFileExists(t, c.Settings.Metrics.TextFile)
}

func TestConsole_RespectsColourSetting(t *testing.T) {
	c := testContext(t)
	out := c.Stdout.(*bytes.Buffer)

	c.Settings.Output.Color = false
	require.NoError(t, c.Console().Analysis(&pipeline.Result{Error: "boom"}))
	assert.NotContains(t, out.String(), "\x1b[")
}
