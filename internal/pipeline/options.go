package pipeline

import (
	"github.com/tphakala/roofsolar/internal/conf"
	"github.com/tphakala/roofsolar/internal/geometry"
	"github.com/tphakala/roofsolar/internal/production"
	"github.com/tphakala/roofsolar/internal/resolver"
)

// Options are the tunables of one run. They are passed by value so that
// concurrent runs never share mutable state.
type Options struct {
	AngleTolerance           float64 // degrees
	MinSegmentArea           float64 // m²
	PanelEfficiency          float64 // kW per m²
	ConsumptionPerM2         float64 // kWh/m²/yr
	FallbackConsumption      float64 // kWh/yr
	CrossValidationTolerance float64 // percent
	ApplyTrueNorth           bool
	CallAPI                  bool

	// ProjectName overrides the name derived from the file location.
	ProjectName string
	// LocationOverride takes precedence over the model's site coordinates.
	LocationOverride *resolver.Location
}

// DefaultOptions returns the stock run options.
func DefaultOptions() Options {
	return Options{
		AngleTolerance:           conf.DefaultAngleTolerance,
		MinSegmentArea:           conf.DefaultMinSegmentArea,
		PanelEfficiency:          conf.DefaultPanelEfficiency,
		ConsumptionPerM2:         conf.DefaultConsumptionPerM2,
		FallbackConsumption:      conf.DefaultFallbackConsumption,
		CrossValidationTolerance: conf.DefaultCrossValidationTolerance,
		ApplyTrueNorth:           true,
		CallAPI:                  true,
	}
}

// OptionsFromSettings maps the analysis settings block onto run options.
func OptionsFromSettings(s *conf.Settings) Options {
	a := s.Analysis
	return Options{
		AngleTolerance:           a.AngleTolerance,
		MinSegmentArea:           a.MinSegmentArea,
		PanelEfficiency:          a.PanelEfficiency,
		ConsumptionPerM2:         a.ConsumptionPerM2,
		FallbackConsumption:      a.FallbackConsumption,
		CrossValidationTolerance: a.CrossValidationTolerance,
		ApplyTrueNorth:           a.ApplyTrueNorth,
		CallAPI:                  a.CallAPI,
	}
}

func (o Options) segmenterOptions() geometry.SegmenterOptions {
	return geometry.SegmenterOptions{
		AngleTolerance: o.AngleTolerance,
		MinArea:        o.MinSegmentArea,
		AreaScale:      1, // triangulated meshes are already in metres
	}
}

func (o Options) productionParams() production.Params {
	return production.Params{
		PanelEfficiency:     o.PanelEfficiency,
		ConsumptionPerM2:    o.ConsumptionPerM2,
		FallbackConsumption: o.FallbackConsumption,
	}
}
