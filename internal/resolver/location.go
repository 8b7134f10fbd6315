package resolver

import (
	"math"

	"github.com/tphakala/roofsolar/internal/building"
	"github.com/tphakala/roofsolar/internal/mathutil"
)

// Location is a site position in decimal degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name"`
}

// DecodeCompoundAngle converts [degrees, minutes, seconds, millionths of a
// second] to decimal degrees. Missing trailing parts count as zero. The sign
// is taken from the degree part alone; the other parts contribute their
// magnitude.
func DecodeCompoundAngle(parts []int) (float64, bool) {
	if len(parts) == 0 {
		return 0, false
	}
	part := func(i int) float64 {
		if i >= len(parts) {
			return 0
		}
		return math.Abs(float64(parts[i]))
	}

	sign := 1.0
	if parts[0] < 0 {
		sign = -1
	}
	return sign * (part(0) + part(1)/60 + part(2)/3600 + part(3)/3_600_000_000), true
}

// TrueNorth returns the compass bearing of the model's true north, in
// degrees clockwise from the +Y axis and rounded to 0.01, taken from the
// first context that is not a sub-context and carries a direction.
func TrueNorth(m *building.Model) (float64, bool) {
	for _, ctx := range m.Contexts {
		if ctx.SubContext || len(ctx.TrueNorth) < 2 {
			continue
		}
		x, y := ctx.TrueNorth[0], ctx.TrueNorth[1]
		ccw := math.Atan2(x, y) * 180 / math.Pi
		return mathutil.Round(mathutil.NormalizeDegrees(-ccw), 2), true
	}
	return 0, false
}

// ExtractLocation decodes the first site's coordinates, rounded to six
// decimals. The location name is projectName when given, else the site
// name. It returns false when the model has no site or the first site
// lacks either coordinate.
func ExtractLocation(m *building.Model, projectName string) (Location, bool) {
	if len(m.Sites) == 0 {
		return Location{}, false
	}
	site := m.Sites[0]

	lat, okLat := DecodeCompoundAngle(site.RefLatitude)
	lon, okLon := DecodeCompoundAngle(site.RefLongitude)
	if !okLat || !okLon {
		return Location{}, false
	}

	name := projectName
	if name == "" {
		name = site.Name
	}
	return Location{
		Latitude:  mathutil.Round(lat, 6),
		Longitude: mathutil.Round(lon, 6),
		Name:      name,
	}, true
}
