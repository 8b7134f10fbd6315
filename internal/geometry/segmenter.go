package geometry

// SourceMesh is the triangulated geometry of one roof element.
type SourceMesh struct {
	ElementID   string
	ElementType string
	Mesh        Mesh
}

// SegmenterOptions tunes BuildSegments.
type SegmenterOptions struct {
	AngleTolerance float64 // degrees
	MinArea        float64 // m², clusters below this are dropped
	AreaScale      float64 // applied to face areas, 1 for metre meshes
}

// DefaultSegmenterOptions returns the standard segmentation tunables.
func DefaultSegmenterOptions() SegmenterOptions {
	return SegmenterOptions{
		AngleTolerance: DefaultAngleTolerance,
		MinArea:        DefaultMinSegmentArea,
		AreaScale:      1,
	}
}

// SegmentationResult holds the segments plus the per-face data they were
// derived from.
type SegmentationResult struct {
	Segments      []Segment
	Clusters      int      // clusters before the area filter
	Faces         int      // faces across all meshes
	SkippedMeshes []string // element IDs whose mesh was unusable
}

// BuildSegments concatenates the element meshes, clusters all faces at once
// and summarises each cluster as a segment. Each face keeps a reference to
// its source element, and a segment is attributed to the element that
// contributes the most area to its cluster (earliest element on ties).
// Segments below MinArea are dropped and IDs count kept segments only.
func BuildSegments(meshes []SourceMesh, opts SegmenterOptions) SegmentationResult {
	if opts.AreaScale == 0 {
		opts.AreaScale = 1
	}

	var (
		result   SegmentationResult
		normals  []Vec3
		areas    []float64
		faceElem []int // index into meshes for every face
	)

	for mi, sm := range meshes {
		n, a, err := ComputeNormalsAndAreas(sm.Mesh.Vertices, sm.Mesh.Faces)
		if err != nil || len(n) == 0 {
			result.SkippedMeshes = append(result.SkippedMeshes, sm.ElementID)
			continue
		}
		normals = append(normals, n...)
		areas = append(areas, a...)
		for range n {
			faceElem = append(faceElem, mi)
		}
	}
	result.Faces = len(normals)

	clusters := ClusterFaces(normals, areas, opts.AngleTolerance)
	result.Clusters = len(clusters)

	for _, c := range clusters {
		props := ComputeSegmentProperties(c.Faces, normals, areas, opts.AreaScale)
		if props.Area < opts.MinArea {
			continue
		}

		seg := Segment{
			ID:      SegmentID(len(result.Segments) + 1),
			Area:    props.Area,
			Tilt:    props.Tilt,
			Azimuth: props.Azimuth,
		}
		if mi := dominantSource(c.Faces, areas, faceElem); mi >= 0 {
			seg.ElementID = meshes[mi].ElementID
			seg.ElementType = meshes[mi].ElementType
		}
		result.Segments = append(result.Segments, seg)
	}

	return result
}

// dominantSource returns the mesh index contributing the most face area,
// preferring the first seen on ties, or -1 for an empty cluster.
func dominantSource(faces []int, areas []float64, faceElem []int) int {
	contrib := make(map[int]float64)
	var order []int
	for _, fi := range faces {
		mi := faceElem[fi]
		if _, ok := contrib[mi]; !ok {
			order = append(order, mi)
		}
		contrib[mi] += areas[fi]
	}

	best := -1
	for _, mi := range order {
		if best < 0 || contrib[mi] > contrib[best] {
			best = mi
		}
	}
	return best
}
