package building

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/roofsolar/internal/errors"
	"github.com/tphakala/roofsolar/internal/geometry"
)

func openFixture(t *testing.T, name string) *Model {
	t.Helper()
	m, err := Open(filepath.Join("testdata", name))
	require.NoError(t, err)
	return m
}

func ids(elements []*Element) []string {
	out := make([]string, 0, len(elements))
	for _, e := range elements {
		out = append(out, e.ID)
	}
	return out
}

func TestOpen_JSON(t *testing.T) {
	t.Parallel()

	m := openFixture(t, "gable.json")
	assert.Equal(t, "Gable House", m.Project)
	assert.Len(t, m.Elements, 9)
	assert.Len(t, m.Sites, 1)

	e, ok := m.Element("w1")
	require.True(t, ok)
	h, ok := e.Attribute("OverallHeight")
	require.True(t, ok)
	assert.InDelta(t, 1.2, h, 1e-12)
}

func TestOpen_YAMLWithUnits(t *testing.T) {
	t.Parallel()

	m := openFixture(t, "shed.yaml")
	assert.InDelta(t, 0.001, m.LengthScale(), 1e-15)
	assert.InDelta(t, 1e-6, m.AreaScale(), 1e-18)

	roof, ok := m.Element("roof")
	require.True(t, ok)
	mesh, err := m.Triangulate(t.Context(), roof)
	require.NoError(t, err)
	require.NotNil(t, mesh)
	assert.InDelta(t, 3.0, mesh.Vertices[2].X, 1e-12)
	assert.InDelta(t, 2.0, mesh.Vertices[2].Y, 1e-12)
}

func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
		return p
	}

	tests := []struct {
		name     string
		path     string
		category errors.ErrorCategory
		contains string
	}{
		{"extension", write("model.ifc", "ISO-10303-21;"), errors.CategoryModelLoad, "unsupported"},
		{"missing", filepath.Join(dir, "absent.json"), errors.CategoryFileIO, ""},
		{"syntax", write("bad.json", "{"), errors.CategoryModelLoad, "parse JSON"},
		{"unknown field", write("extra.yaml", "project: x\nbogus: 1\n"), errors.CategoryModelLoad, "parse YAML"},
		{"duplicate id", write("dup.json", `{"elements":[{"id":"a","type":"IfcRoof"},{"id":"a","type":"IfcSlab"}]}`), errors.CategoryModelLoad, "duplicate element id"},
		{"dangling child", write("child.json", `{"elements":[{"id":"a","type":"IfcRoof","children":["zz"]}]}`), errors.CategoryModelLoad, "unknown element"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Open(tt.path)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, tt.category), "category of %v", err)
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestElementsByType_IncludesSubtypes(t *testing.T) {
	t.Parallel()

	m := openFixture(t, "gable.json")
	assert.Equal(t, []string{"w1", "w2", "w3"}, ids(m.ElementsByType(TypeWindow)))
	assert.Equal(t, []string{"s1", "s2", "s3", "f1", "f2"}, ids(m.ElementsByType(TypeSlab)))
	assert.Empty(t, m.ElementsByType("IfcSpace"))
}

func TestRoofElements(t *testing.T) {
	t.Parallel()

	m := openFixture(t, "gable.json")
	// Children of the roof first, then the standalone canopy; the ROOF
	// slabs already reached through the roof are not repeated.
	assert.Equal(t, []string{"s1", "s2", "s3"}, ids(m.RoofElements()))

	monolithic := openFixture(t, "shed.yaml")
	assert.Equal(t, []string{"roof"}, ids(monolithic.RoofElements()))
}

func TestTriangulate(t *testing.T) {
	t.Parallel()

	m := openFixture(t, "gable.json")

	north, _ := m.Element("s2")
	mesh, err := m.Triangulate(t.Context(), north)
	require.NoError(t, err)
	require.NotNil(t, mesh)
	assert.Equal(t, geometry.Vec3{X: 10, Y: 10, Z: 0}, mesh.Vertices[2])

	canopy, _ := m.Element("s3")
	mesh, err = m.Triangulate(t.Context(), canopy)
	require.NoError(t, err)
	assert.Nil(t, mesh)

	broken := &Element{ID: "x", Mesh: &MeshData{
		Vertices: [][3]float64{{0, 0, 0}},
		Faces:    [][3]int{{0, 1, 2}},
	}}
	_, err = m.Triangulate(t.Context(), broken)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryGeometry))
}

func TestProperty(t *testing.T) {
	t.Parallel()

	m := openFixture(t, "gable.json")
	w3, _ := m.Element("w3")

	v, ok := w3.Property("Pset_WindowCommon", "ThermalTransmittance")
	require.True(t, ok)
	assert.Equal(t, "1.1", v)

	_, ok = w3.Property("Pset_WindowCommon", "FireRating")
	assert.False(t, ok)
	_, ok = w3.Quantity("Qto_WindowBaseQuantities", "Area")
	assert.False(t, ok)
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Entrance canopy", (&Element{Name: "Entrance canopy"}).DisplayName())
	assert.Equal(t, "IfcSlab #abc", (&Element{Type: "IfcSlab", GlobalID: "abc"}).DisplayName())
	assert.True(t, strings.HasSuffix((&Element{Type: "IfcRoof"}).DisplayName(), "#?"))
}

func TestElement_ConcurrentLookupOnBuiltModel(t *testing.T) {
	t.Parallel()

	m := &Model{
		Elements: []*Element{
			{ID: "roof", Type: TypeRoof, Children: []string{"east", "west"}},
			{ID: "east", Type: TypeSlab, PredefinedType: PredefinedRoof},
			{ID: "west", Type: TypeSlab, PredefinedType: PredefinedRoof},
		},
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, id := range []string{"roof", "east", "west"} {
				e, ok := m.Element(id)
				assert.True(t, ok)
				assert.Equal(t, id, e.ID)
			}
			assert.Len(t, m.RoofElements(), 2)
		}()
	}
	wg.Wait()

	_, ok := m.Element("missing")
	assert.False(t, ok)
}
