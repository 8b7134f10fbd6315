package geometry

import "math"

// DefaultAngleTolerance is the maximum angle in degrees between a face
// normal and a cluster's mean normal for the face to join the cluster.
const DefaultAngleTolerance = 15.0

// Cluster is a group of upward-facing faces sharing an orientation.
type Cluster struct {
	Faces  []int // indices into the normal/area arrays, ascending
	Normal Vec3  // area-weighted mean unit normal

	weighted Vec3 // running Σ area·normal
}

// ClusterFaces groups upward-facing faces by normal direction in a single
// greedy pass over the faces in index order.
//
// Faces whose normal has a non-positive Z component are ignored. Each
// remaining face joins the first existing cluster whose current mean normal
// lies within tolerance degrees, even if a later cluster would be a closer
// match, and that cluster's mean is then recomputed from all its members.
// Tolerance is only checked on admission, so a member may end up outside
// tolerance of the final mean as it drifts. A face that matches no cluster
// seeds a new one. Clusters are returned in creation order, which makes the
// result reproducible for a given face order.
func ClusterFaces(normals []Vec3, areas []float64, tolerance float64) []Cluster {
	cosTol := math.Cos(tolerance * math.Pi / 180)
	var clusters []Cluster

	for idx, n := range normals {
		if n.Z <= 0 {
			continue
		}

		placed := false
		for ci := range clusters {
			c := &clusters[ci]
			if n.Dot(c.Normal) < cosTol {
				continue
			}
			c.Faces = append(c.Faces, idx)
			c.weighted = c.weighted.Add(n.Scale(areas[idx]))
			if mag := c.weighted.Norm(); mag > degenerateEpsilon {
				c.Normal = c.weighted.Scale(1 / mag)
			}
			placed = true
			break
		}

		if !placed {
			clusters = append(clusters, Cluster{
				Faces:    []int{idx},
				Normal:   n,
				weighted: n.Scale(areas[idx]),
			})
		}
	}

	return clusters
}
