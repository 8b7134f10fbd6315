package telemetry

import (
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/roofsolar/internal/conf"
)

func TestInitSentry_Disabled(t *testing.T) {
	settings := &conf.Settings{}
	require.NoError(t, InitSentry(settings, "test"))
	assert.False(t, Enabled())

	settings.Telemetry.Enabled = true
	require.NoError(t, InitSentry(settings, "test"), "missing DSN is not an error")
	assert.False(t, Enabled())
}

func TestApplyPrivacyFilters(t *testing.T) {
	t.Parallel()

	event := sentry.NewEvent()
	event.User = sentry.User{ID: "user", IPAddress: "10.0.0.1"}
	event.ServerName = "build-host"
	event.Contexts = map[string]sentry.Context{
		"os":      {"name": "linux"},
		"device":  {"arch": "amd64"},
		"runtime": {"name": "go"},
		"model":   {"value": "gable.json"},
	}
	event.Extra = map[string]any{"component": "pvwatts", "error_type": "x", "path": "/home/me"}
	event.Tags = map[string]string{"hostname": "h", "server_name": "s", "category": "network"}

	out := applyPrivacyFilters(event)

	assert.True(t, out.User.IsEmpty())
	assert.Empty(t, out.ServerName)
	assert.Equal(t, []string{"model"}, keys(out.Contexts))
	assert.Len(t, out.Extra, 2)
	assert.NotContains(t, out.Extra, "path")
	assert.Equal(t, map[string]string{"category": "network"}, out.Tags)
}

func keys(m map[string]sentry.Context) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
