package geometry

import (
	"github.com/tphakala/roofsolar/internal/errors"
)

// degenerateEpsilon is the cross-product magnitude below which a triangle
// is treated as having no usable orientation.
const degenerateEpsilon = 1e-12

// FallbackNormal is assigned to degenerate triangles. Their area is ~0 so
// they carry no weight in any cluster they end up in.
var FallbackNormal = Vec3{0, 0, 1}

// Mesh is a triangulated surface in world coordinates, metres.
type Mesh struct {
	Vertices []Vec3
	Faces    [][3]int
}

// ComputeNormalsAndAreas returns the unit normal and area of every face.
// The two slices are parallel to faces. Degenerate faces get FallbackNormal
// and their (near zero) area without raising an error. A face that
// references a vertex outside the vertex array is an error.
func ComputeNormalsAndAreas(vertices []Vec3, faces [][3]int) (normals []Vec3, areas []float64, err error) {
	normals = make([]Vec3, len(faces))
	areas = make([]float64, len(faces))

	for i, f := range faces {
		for _, idx := range f {
			if idx < 0 || idx >= len(vertices) {
				return nil, nil, errors.Newf("face %d references vertex %d, mesh has %d vertices", i, idx, len(vertices)).
					Component("geometry").
					Category(errors.CategoryGeometry).
					Context("operation", "compute_normals").
					Build()
			}
		}

		v0 := vertices[f[0]]
		cross := vertices[f[1]].Sub(v0).Cross(vertices[f[2]].Sub(v0))
		mag := cross.Norm()

		areas[i] = mag / 2
		if mag < degenerateEpsilon {
			normals[i] = FallbackNormal
			continue
		}
		normals[i] = cross.Scale(1 / mag)
	}

	return normals, areas, nil
}
