// Package production estimates the solar yield of roof segments and scores it
// against the building's expected consumption.
package production

import (
	"context"
	"time"

	"github.com/tphakala/roofsolar/internal/conf"
	"github.com/tphakala/roofsolar/internal/errors"
	"github.com/tphakala/roofsolar/internal/geometry"
	"github.com/tphakala/roofsolar/internal/mathutil"
	"github.com/tphakala/roofsolar/internal/observability/metrics"
	"github.com/tphakala/roofsolar/internal/resolver"
)

// Segment outcome values.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped" // not attempted, the run was cancelled or offline
)

// YieldRequest describes one roof system for the estimator.
type YieldRequest struct {
	CapacityKW float64
	Tilt       float64
	Azimuth    float64
	Latitude   float64
	Longitude  float64
}

// YieldEstimator returns the annual AC yield in kWh of one system.
type YieldEstimator interface {
	EstimateYield(ctx context.Context, req YieldRequest) (float64, error)
}

// Params are the per-run scoring parameters.
type Params struct {
	PanelEfficiency     float64 // kW per m²
	ConsumptionPerM2    float64 // kWh/m²/yr
	FallbackConsumption float64 // kWh/yr when floor area is unknown
}

// DefaultParams returns the stock scoring parameters.
func DefaultParams() Params {
	return Params{
		PanelEfficiency:     conf.DefaultPanelEfficiency,
		ConsumptionPerM2:    conf.DefaultConsumptionPerM2,
		FallbackConsumption: conf.DefaultFallbackConsumption,
	}
}

// SegmentResult is the yield of one roof segment.
type SegmentResult struct {
	geometry.Segment
	CapacityKW float64 `json:"capacity_kw"`
	AnnualKWh  float64 `json:"annual_kwh"`
	Status     string  `json:"status"`
	Error      string  `json:"error,omitempty"`
}

// Result is the aggregate production of a building.
type Result struct {
	Segments       []SegmentResult `json:"segments"`
	TotalAreaM2    float64         `json:"total_roof_area_m2"`
	TotalCapacity  float64         `json:"total_capacity_kw"`
	TotalKWh       float64         `json:"total_production"`
	ConsumptionKWh float64         `json:"consumption"`
	Score          float64         `json:"leed_score"`
	FailedSegments int             `json:"failed_segments"`
}

// Aggregator runs the estimator over the segments of a building.
type Aggregator struct {
	estimator YieldEstimator
	pacer     Pacer
	recorder  metrics.Recorder
}

// NewAggregator creates an aggregator. A nil pacer defaults to one call per
// DefaultInterval. A nil estimator runs offline: every segment gets zero yield.
func NewAggregator(estimator YieldEstimator, pacer Pacer, recorder metrics.Recorder) *Aggregator {
	if pacer == nil {
		pacer = NewIntervalPacer(DefaultInterval)
	}
	return &Aggregator{
		estimator: estimator,
		pacer:     pacer,
		recorder:  metrics.OrNoOp(recorder),
	}
}

// Aggregate estimates every segment sequentially. A failing segment yields 0
// and never aborts the batch. The only error returned is ctx's, in which case
// the partial result is still valid and the unattempted segments are marked
// skipped.
func (a *Aggregator) Aggregate(ctx context.Context, segments []geometry.Segment, loc resolver.Location, floorArea float64, params Params) (*Result, error) {
	res := &Result{Segments: make([]SegmentResult, 0, len(segments))}

	var total float64
	var runErr error
	for i := range segments {
		seg := segments[i]
		capacity := seg.Area * params.PanelEfficiency
		sr := SegmentResult{
			Segment:    seg,
			CapacityKW: mathutil.Round(capacity, 2),
			Status:     StatusSkipped,
		}

		if a.estimator != nil && runErr == nil {
			if err := a.pacer.Wait(ctx); err != nil {
				runErr = err
			} else {
				annual, err := a.estimate(ctx, seg, capacity, loc)
				if err != nil {
					sr.Status = StatusFailed
					sr.Error = err.Error()
					res.FailedSegments++
				} else {
					sr.Status = StatusOK
					sr.AnnualKWh = mathutil.Round(annual, 2)
					total += annual
				}
			}
		}
		res.Segments = append(res.Segments, sr)
	}

	if runErr != nil {
		getLogger().Warn("production run cancelled",
			"segments", len(segments),
			"error", runErr)
		runErr = errors.New(runErr).
			Component("production").
			Category(errors.CategoryCancellation).
			Build()
	}

	res.summarize(total, floorArea, params)
	return res, runErr
}

// estimate calls the estimator for one segment and records the outcome.
func (a *Aggregator) estimate(ctx context.Context, seg geometry.Segment, capacity float64, loc resolver.Location) (float64, error) {
	start := time.Now()
	annual, err := a.estimator.EstimateYield(ctx, YieldRequest{
		CapacityKW: capacity,
		Tilt:       seg.Tilt,
		Azimuth:    seg.Azimuth,
		Latitude:   loc.Latitude,
		Longitude:  loc.Longitude,
	})
	a.recorder.RecordDuration(metrics.OpEstimate, time.Since(start).Seconds())

	if err != nil {
		category := string(errors.CategoryGeneric)
		var enhancedErr *errors.EnhancedError
		if errors.As(err, &enhancedErr) {
			category = enhancedErr.GetCategory()
		}
		a.recorder.RecordOperation(metrics.OpEstimate, metrics.StatusError)
		a.recorder.RecordError(metrics.OpEstimate, category)
		getLogger().Warn("segment yield estimation failed, counting zero",
			"segment", seg.ID,
			"area", seg.Area,
			"tilt", seg.Tilt,
			"azimuth", seg.Azimuth,
			"error", err)
		return 0, err
	}

	a.recorder.RecordOperation(metrics.OpEstimate, metrics.StatusSuccess)
	getLogger().Debug("segment yield estimated",
		"segment", seg.ID,
		"capacity_kw", mathutil.Round(capacity, 3),
		"annual_kwh", annual)
	return annual, nil
}

// summarize fills the totals, consumption and score.
func (r *Result) summarize(totalKWh, floorArea float64, params Params) {
	for i := range r.Segments {
		r.TotalAreaM2 += r.Segments[i].Area
		r.TotalCapacity += r.Segments[i].CapacityKW
	}
	r.TotalAreaM2 = mathutil.Round(r.TotalAreaM2, 2)
	r.TotalCapacity = mathutil.Round(r.TotalCapacity, 2)
	r.TotalKWh = mathutil.Round(totalKWh, 2)

	consumption := ConsumptionEstimate(floorArea, params)
	r.ConsumptionKWh = mathutil.Round(consumption, 2)
	r.Score = mathutil.Round(Score(r.TotalKWh, consumption), 1)
}

// ConsumptionEstimate returns the expected annual consumption in kWh: floor
// area times the benchmark when the floor area is known, the fallback otherwise.
// The benchmark is used as given; settings validation rejects non-positive values.
func ConsumptionEstimate(floorArea float64, params Params) float64 {
	if floorArea > 0 {
		return floorArea * params.ConsumptionPerM2
	}
	return params.FallbackConsumption
}

// Score is production as a percentage of consumption, 0 when consumption is not positive.
func Score(totalKWh, consumption float64) float64 {
	if consumption <= 0 {
		return 0
	}
	return totalKWh / consumption * 100
}
