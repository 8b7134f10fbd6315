package geometry

import (
	"fmt"
	"math"

	"github.com/tphakala/roofsolar/internal/mathutil"
)

// DefaultMinSegmentArea is the smallest cluster area in m² kept as a segment.
const DefaultMinSegmentArea = 1.0

// trueNorthEpsilon is how close to 0 or 360 degrees a true north bearing
// must be to be treated as no rotation.
const trueNorthEpsilon = 0.01

// Properties is the orientation summary of one cluster.
type Properties struct {
	Area    float64 // m², rounded to 0.01
	Tilt    float64 // degrees from horizontal, rounded to 0.1
	Azimuth float64 // degrees clockwise from model +Y, rounded to 0.1
}

// Segment is one planar roof surface.
type Segment struct {
	ID          string  `json:"id"`
	Area        float64 `json:"area"`
	Tilt        float64 `json:"tilt"`
	Azimuth     float64 `json:"azimuth"`
	ElementID   string  `json:"global_id,omitempty"`
	ElementType string  `json:"ifc_type,omitempty"`
}

// SegmentID formats the sequential identifier of the n-th kept segment.
func SegmentID(n int) string {
	return fmt.Sprintf("Roof_Seg_%02d", n)
}

// ComputeSegmentProperties returns the scaled area and the area-weighted
// tilt and azimuth of the faces in indices. Azimuth follows the compass
// convention in the model frame: +Y is 0°, +X is 90°. When the weighted
// normal cancels out the cluster is reported flat and facing north.
func ComputeSegmentProperties(indices []int, normals []Vec3, areas []float64, areaScale float64) Properties {
	var total float64
	var weighted Vec3
	for _, i := range indices {
		total += areas[i]
		weighted = weighted.Add(normals[i].Scale(areas[i]))
	}
	total *= areaScale

	mag := weighted.Norm()
	if mag < degenerateEpsilon {
		return Properties{Area: mathutil.Round(total, 2)}
	}
	avg := weighted.Scale(1 / mag)

	tilt := math.Acos(math.Max(-1, math.Min(1, avg.Z))) * 180 / math.Pi
	azimuth := mathutil.NormalizeDegrees(math.Atan2(avg.X, avg.Y) * 180 / math.Pi)

	return Properties{
		Area:    mathutil.Round(total, 2),
		Tilt:    mathutil.Round(tilt, 1),
		Azimuth: mathutil.NormalizeDegrees(mathutil.Round(azimuth, 1)),
	}
}

// HasTrueNorthRotation reports whether a true north bearing differs from
// the model's +Y axis enough to warrant rotating azimuths.
func HasTrueNorthRotation(trueNorth float64) bool {
	return math.Abs(trueNorth) > trueNorthEpsilon && math.Abs(trueNorth-360) > trueNorthEpsilon
}

// RotateAzimuth converts a model-frame azimuth to a compass bearing.
func RotateAzimuth(azimuth, trueNorth float64) float64 {
	return mathutil.NormalizeDegrees(mathutil.Round(mathutil.NormalizeDegrees(azimuth+trueNorth), 1))
}

// ApplyTrueNorth rotates every segment azimuth in place by trueNorth when
// the bearing is material. It reports whether a rotation was applied.
func ApplyTrueNorth(segments []Segment, trueNorth float64) bool {
	if len(segments) == 0 || !HasTrueNorthRotation(trueNorth) {
		return false
	}
	for i := range segments {
		segments[i].Azimuth = RotateAzimuth(segments[i].Azimuth, trueNorth)
	}
	return true
}
