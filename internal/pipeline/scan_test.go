package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scanTree lays out a small project tree:
//
//	root/
//	  house/gable.json
//	  shed/shed.yaml
//	  shed/notes.txt
//	  broken/model.json
func scanTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{"house", "shed", "broken"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
	}
	copyFixture(t, "gable.json", filepath.Join(root, "house", "gable.json"))
	copyFixture(t, "shed.yaml", filepath.Join(root, "shed", "shed.yaml"))
	require.NoError(t, os.WriteFile(filepath.Join(root, "shed", "notes.txt"), []byte("not a model"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken", "model.json"), []byte("{not json"), 0o600))
	return root
}

func TestFindModels(t *testing.T) {
	t.Parallel()

	root := scanTree(t)
	paths, err := FindModels(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "broken", "model.json"),
		filepath.Join(root, "house", "gable.json"),
		filepath.Join(root, "shed", "shed.yaml"),
	}, paths)

	_, err = FindModels(filepath.Join(root, "missing"))
	require.Error(t, err)
}

func TestScan_ContinuesPastFailures(t *testing.T) {
	t.Parallel()

	root := scanTree(t)
	opts := DefaultOptions()
	opts.CallAPI = false
	opts.ProjectName = "ignored in scans"

	out, err := New(nil, nil).Scan(t.Context(), root, opts)
	require.NoError(t, err)
	require.Len(t, out.Results, 3)

	// broken model cannot be opened, the shed has no site coordinates
	assert.Equal(t, 2, out.Failed)

	broken := out.Results[0]
	assert.Equal(t, "broken", broken.ProjectName)
	assert.Equal(t, "model.json", broken.File)
	assert.False(t, broken.OK())

	house := out.Results[1]
	assert.True(t, house.OK(), house.Error)
	assert.Equal(t, "house", house.ProjectName)
	assert.Len(t, house.Segments(), 2)

	shed := out.Results[2]
	assert.Equal(t, "shed", shed.ProjectName)
	assert.Contains(t, shed.Error, "no site location")
}

func TestScan_Cancelled(t *testing.T) {
	t.Parallel()

	root := scanTree(t)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	out, err := New(nil, nil).Scan(ctx, root, DefaultOptions())
	require.Error(t, err)
	assert.Empty(t, out.Results)
}

func TestScanMetadata(t *testing.T) {
	t.Parallel()

	root := scanTree(t)
	records, err := ScanMetadata(root, nil)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.True(t, records[0].HasError())
	assert.Equal(t, "broken", records[0].ProjectName)

	assert.Equal(t, "house", records[1].ProjectName)
	require.NotNil(t, records[1].FloorArea)
	assert.InDelta(t, 200.0, *records[1].FloorArea, 1e-9)

	assert.Nil(t, records[2].Latitude)
}
