package building

import (
	"context"

	"github.com/tphakala/roofsolar/internal/errors"
	"github.com/tphakala/roofsolar/internal/geometry"
)

// Triangulator produces an element's world-coordinate surface mesh in
// metres. A nil mesh with a nil error means the element has no usable
// geometry.
type Triangulator interface {
	Triangulate(ctx context.Context, e *Element) (*geometry.Mesh, error)
}

// Triangulate implements Triangulator for meshes stored in the document:
// local vertices are offset by the element placement and scaled to metres.
func (m *Model) Triangulate(ctx context.Context, e *Element) (*geometry.Mesh, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.Mesh == nil || len(e.Mesh.Vertices) == 0 || len(e.Mesh.Faces) == 0 {
		return nil, nil
	}

	n := len(e.Mesh.Vertices)
	for i, f := range e.Mesh.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= n {
				return nil, errors.Newf("face %d of element %s references vertex %d, mesh has %d vertices", i, e.ID, idx, n).
					Component("building").
					Category(errors.CategoryGeometry).
					Context("element_id", e.ID).
					Context("operation", "triangulate").
					Build()
			}
		}
	}

	scale := m.LengthScale()
	mesh := &geometry.Mesh{
		Vertices: make([]geometry.Vec3, n),
		Faces:    make([][3]int, len(e.Mesh.Faces)),
	}
	for i, v := range e.Mesh.Vertices {
		mesh.Vertices[i] = geometry.Vec3{
			X: (v[0] + e.Placement[0]) * scale,
			Y: (v[1] + e.Placement[1]) * scale,
			Z: (v[2] + e.Placement[2]) * scale,
		}
	}
	copy(mesh.Faces, e.Mesh.Faces)

	return mesh, nil
}
