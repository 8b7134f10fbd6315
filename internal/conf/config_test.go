package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetViper isolates a test from global viper and config file state
func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	SetConfigFile("")
	t.Cleanup(func() {
		viper.Reset()
		SetConfigFile("")
	})
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_EmbeddedDefaults(t *testing.T) {
	resetViper(t)
	SetConfigFile(writeConfig(t, string(getDefaultConfig())))

	settings, err := Load()
	require.NoError(t, err)

	assert.InDelta(t, 15.0, settings.Analysis.AngleTolerance, 1e-9)
	assert.InDelta(t, 1.0, settings.Analysis.MinSegmentArea, 1e-9)
	assert.InDelta(t, 0.20, settings.Analysis.PanelEfficiency, 1e-9)
	assert.InDelta(t, 150.0, settings.Analysis.ConsumptionPerM2, 1e-9)
	assert.InDelta(t, 50000.0, settings.Analysis.FallbackConsumption, 1e-9)
	assert.InDelta(t, 20.0, settings.Analysis.CrossValidationTolerance, 1e-9)
	assert.True(t, settings.Analysis.ApplyTrueNorth)
	assert.True(t, settings.Analysis.CallAPI)

	assert.Equal(t, DefaultPVWattsURL, settings.PVWatts.BaseURL)
	assert.Equal(t, 30*time.Second, settings.PVWatts.Timeout)
	assert.Equal(t, time.Second, settings.PVWatts.RateLimit)
	assert.Equal(t, 1, settings.PVWatts.ArrayType)
	assert.Equal(t, 1, settings.PVWatts.ModuleType)
	assert.InDelta(t, 14.0, settings.PVWatts.Losses, 1e-9)

	assert.InDelta(t, 50.0, settings.Checks.LEEDThreshold, 1e-9)
	assert.Equal(t, "table", settings.Output.Format)
	assert.Equal(t, RotationDaily, settings.Log.Rotation)

	assert.Same(t, settings, GetSettings())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	resetViper(t)
	SetConfigFile(writeConfig(t, `
analysis:
  angletolerance: 10
  panelefficiency: 0.18
pvwatts:
  apikey: file-key
  ratelimit: 250ms
output:
  format: json
`))

	settings, err := Load()
	require.NoError(t, err)

	assert.InDelta(t, 10.0, settings.Analysis.AngleTolerance, 1e-9)
	assert.InDelta(t, 0.18, settings.Analysis.PanelEfficiency, 1e-9)
	assert.Equal(t, "file-key", settings.PVWatts.APIKey)
	assert.Equal(t, 250*time.Millisecond, settings.PVWatts.RateLimit)
	assert.Equal(t, "json", settings.Output.Format)

	// Untouched keys keep their defaults
	assert.InDelta(t, 150.0, settings.Analysis.ConsumptionPerM2, 1e-9)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	resetViper(t)
	t.Setenv("ROOFSOLAR_PANEL_EFFICIENCY", "0.22")
	t.Setenv("NREL_API_KEY", "env-key")
	SetConfigFile(writeConfig(t, "analysis:\n  panelefficiency: 0.18\n"))

	settings, err := Load()
	require.NoError(t, err)

	assert.InDelta(t, 0.22, settings.Analysis.PanelEfficiency, 1e-9)
	assert.Equal(t, "env-key", settings.PVWatts.APIKey)
}

func TestLoad_InvalidSettingsRejected(t *testing.T) {
	resetViper(t)
	SetConfigFile(writeConfig(t, "analysis:\n  angletolerance: 120\n"))

	_, err := Load()
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 1)
	assert.Contains(t, ve.Errors[0], "angletolerance")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	resetViper(t)
	SetConfigFile(filepath.Join(t.TempDir(), "does-not-exist.yaml"))

	_, err := Load()
	require.Error(t, err)
}
