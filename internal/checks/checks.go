// Package checks runs the solar compliance checks over a building model and
// reports one row per checked element.
package checks

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tphakala/roofsolar/internal/building"
	"github.com/tphakala/roofsolar/internal/conf"
	"github.com/tphakala/roofsolar/internal/errors"
	"github.com/tphakala/roofsolar/internal/geometry"
	"github.com/tphakala/roofsolar/internal/pipeline"
	"github.com/tphakala/roofsolar/internal/production"
	"github.com/tphakala/roofsolar/internal/resolver"
)

// Check status constants
const (
	StatusPass    = "pass"
	StatusFail    = "fail"
	StatusWarning = "warning"
	StatusBlocked = "blocked"
	StatusLog     = "log"
)

// Check names
const (
	NameLocation        = "location"
	NameBuildingAreas   = "building_areas"
	NameRoofGeometry    = "roof_geometry"
	NameSolarProduction = "solar_production"
	NameLEEDScore       = "leed_score"
)

const (
	entitySite           = "IfcSite"
	entityBuilding       = "IfcBuilding"
	entityRoof           = "IfcRoof"
	requiredCoordinates  = "Latitude and longitude present"
	requiredSegment      = "At least 1 roof segment"
	requiredSegmentRange = "area > 0 m², tilt 0–90°"
)

// ElementResult is one checked element.
type ElementResult struct {
	ElementID       string `json:"element_id,omitempty"`
	ElementType     string `json:"element_type"`
	ElementName     string `json:"element_name"`
	ElementNameLong string `json:"element_name_long"`
	CheckStatus     string `json:"check_status"`
	ActualValue     string `json:"actual_value,omitempty"`
	RequiredValue   string `json:"required_value,omitempty"`
	Comment         string `json:"comment,omitempty"`
	Log             string `json:"log,omitempty"`
}

func newResult(id, entityType, name, nameLong, status, actual, required, comment string) ElementResult {
	if name == "" {
		ref := id
		if ref == "" {
			ref = "?"
		}
		name = fmt.Sprintf("%s #%s", entityType, ref)
	}
	if nameLong == "" {
		nameLong = name
	}
	return ElementResult{
		ElementID:       id,
		ElementType:     entityType,
		ElementName:     name,
		ElementNameLong: nameLong,
		CheckStatus:     status,
		ActualValue:     actual,
		RequiredValue:   required,
		Comment:         comment,
	}
}

// Checker runs the checks with one set of analysis options.
type Checker struct {
	pipeline  *pipeline.Pipeline
	opts      pipeline.Options
	threshold float64
	printer   *message.Printer
}

// New creates a checker. A non-positive threshold uses the default LEED pass
// threshold.
func New(p *pipeline.Pipeline, opts pipeline.Options, threshold float64) *Checker {
	if p == nil {
		p = pipeline.New(nil, nil)
	}
	if threshold <= 0 {
		threshold = conf.DefaultLEEDThreshold
	}
	return &Checker{
		pipeline:  p,
		opts:      opts,
		threshold: threshold,
		printer:   message.NewPrinter(language.English),
	}
}

// CheckLocation verifies every site carries both coordinates.
func (c *Checker) CheckLocation(m *building.Model) []ElementResult {
	if len(m.Sites) == 0 {
		return []ElementResult{newResult("", entitySite,
			"(no IfcSite found)", "No IfcSite entity in model",
			StatusFail, "", "IfcSite with latitude and longitude",
			"Model contains no site, the location cannot be determined.")}
	}

	results := make([]ElementResult, 0, len(m.Sites))
	for i, site := range m.Sites {
		name := site.Name
		if name == "" {
			name = fmt.Sprintf("Site #%d", i+1)
		}
		lat, hasLat := resolver.DecodeCompoundAngle(site.RefLatitude)
		lon, hasLon := resolver.DecodeCompoundAngle(site.RefLongitude)

		var status, actual, comment string
		switch {
		case hasLat && hasLon:
			status = StatusPass
			actual = fmt.Sprintf("%.6f°N, %.6f°E", lat, lon)
		case hasLat || hasLon:
			status = StatusFail
			actual = fmt.Sprintf("lat=%s, lon=%s", optionalAngle(lat, hasLat), optionalAngle(lon, hasLon))
			comment = "Only one coordinate present, both latitude and longitude are required."
		default:
			status = StatusFail
			comment = "No geographic coordinates found in the site."
		}

		results = append(results, newResult(site.GlobalID, entitySite, name,
			fmt.Sprintf("%s (GlobalId: %s)", name, site.GlobalID),
			status, actual, requiredCoordinates, comment))
	}
	return results
}

func optionalAngle(v float64, ok bool) string {
	if !ok {
		return "none"
	}
	return fmt.Sprintf("%g", v)
}

// CheckBuildingAreas verifies the window, floor and roof areas resolve to
// positive values.
func (c *Checker) CheckBuildingAreas(m *building.Model) []ElementResult {
	areas := []struct {
		key   string
		label string
	}{
		{resolver.KeyWindowArea, "Window area"},
		{resolver.KeyFloorArea, "Floor area"},
		{resolver.KeyRoofArea, "Roof area"},
	}

	results := make([]ElementResult, 0, len(areas))
	for _, a := range areas {
		v, ok := c.pipeline.Resolver().Resolve(m, a.key)

		var status, actual, comment string
		switch {
		case ok && v > 0:
			status = StatusPass
			actual = c.printer.Sprintf("%.2f m²", v)
		case !ok:
			status = StatusBlocked
			comment = a.label + " property not found in model metadata."
		default:
			status = StatusFail
			actual = fmt.Sprintf("%g m²", v)
			comment = a.label + " is zero or negative."
		}

		results = append(results, newResult("", entityBuilding, a.label,
			a.label+" (building-level metric)",
			status, actual, a.label+" > 0 m²", comment))
	}
	return results
}

// analysis is the shared roof and production state of the geometry-based
// checks.
type analysis struct {
	seg     *pipeline.Segmentation
	segErr  error
	loc     resolver.Location
	locErr  error
	prod    *production.Result
	prodErr error
}

// analyse segments the roof and, when wantProduction is set and a location
// resolves, estimates the production.
func (c *Checker) analyse(ctx context.Context, m *building.Model, wantProduction bool) *analysis {
	a := &analysis{}
	a.seg, a.segErr = c.pipeline.Segment(ctx, m, c.opts)
	if a.segErr != nil || !wantProduction {
		return a
	}

	a.loc, _, a.locErr = pipeline.ResolveLocation(m, "", c.opts)
	if a.locErr != nil || !c.opts.CallAPI {
		return a
	}

	floor, _ := c.pipeline.Resolver().Resolve(m, resolver.KeyFloorArea)
	a.prod, a.prodErr = c.pipeline.Produce(ctx, a.seg.Segments, a.loc, floor, c.opts)
	return a
}

// CheckRoofGeometry verifies that planar roof segments can be extracted.
func (c *Checker) CheckRoofGeometry(ctx context.Context, m *building.Model) []ElementResult {
	return c.roofGeometry(m, c.analyse(ctx, m, false))
}

func (c *Checker) roofGeometry(m *building.Model, a *analysis) []ElementResult {
	const label = "Roof geometry"
	if rows, done := segmentationRows(a, label, "Roof geometry extraction", requiredSegmentRange); done {
		return rows
	}

	segments := a.seg.Segments
	var total float64
	for _, s := range segments {
		total += s.Area
	}

	results := make([]ElementResult, 0, len(segments)+1)
	for _, s := range segments {
		areaOK := s.Area > 0
		tiltOK := s.Tilt >= 0 && s.Tilt <= 90
		status, comment := StatusPass, ""
		if !areaOK || !tiltOK {
			status = StatusFail
			comment = fmt.Sprintf("Invalid segment: area_ok=%t, tilt_ok=%t", areaOK, tiltOK)
		}
		r := newResult(s.ElementID, segmentType(s), s.ID,
			fmt.Sprintf("%s (%.1f m² of %.1f m² total)", s.ID, s.Area, total),
			status,
			fmt.Sprintf("area=%.1f m², tilt=%.1f°, azimuth=%.1f°", s.Area, s.Tilt, s.Azimuth),
			requiredSegmentRange, comment)
		if a.seg.TrueNorthUsed {
			r.Log = fmt.Sprintf("azimuth rotated %.2f° to true north", a.seg.TrueNorth)
		}
		results = append(results, r)
	}

	roofArea, ok := c.pipeline.Resolver().Resolve(m, resolver.KeyRoofArea)
	if ok {
		if w, mismatch := pipeline.CrossValidate(total, &roofArea, c.opts.CrossValidationTolerance); mismatch {
			results = append(results, newResult("", entityRoof, "Roof area cross-check",
				"Geometric roof area against the authored roof area",
				StatusWarning, c.printer.Sprintf("%.1f m²", total), c.printer.Sprintf("%.1f m²", roofArea), w))
		}
	}
	return results
}

// CheckSolarProduction estimates every segment and verifies it produces
// energy.
func (c *Checker) CheckSolarProduction(ctx context.Context, m *building.Model) []ElementResult {
	return c.solarProduction(c.analyse(ctx, m, true))
}

func (c *Checker) solarProduction(a *analysis) []ElementResult {
	const required = "> 0 kWh/yr"
	if rows, done := segmentationRows(a, "Roof segments", "Roof segments for solar analysis", requiredSegment); done {
		return rows
	}
	if row, blocked := c.productionBlocked(a, entityRoof, "Solar production", "Solar production estimate", required); blocked {
		return []ElementResult{row}
	}

	results := make([]ElementResult, 0, len(a.prod.Segments))
	for _, s := range a.prod.Segments {
		status, comment := StatusPass, ""
		if s.AnnualKWh <= 0 {
			status = StatusFail
			comment = "Segment produces 0 kWh, check orientation or the estimator response."
			if s.Error != "" {
				comment = "Yield estimation failed: " + s.Error
			}
		}
		results = append(results, newResult(s.ElementID, segmentType(s.Segment), s.ID,
			fmt.Sprintf("%s, %.1f m², %.1f kW capacity", s.ID, s.Area, s.CapacityKW),
			status, c.printer.Sprintf("%.2f kWh/yr", s.AnnualKWh), required, comment))
	}
	return results
}

// CheckLEEDScore scores the production against the expected consumption and
// passes at or above the threshold.
func (c *Checker) CheckLEEDScore(ctx context.Context, m *building.Model) []ElementResult {
	return c.leedScore(c.analyse(ctx, m, true))
}

func (c *Checker) leedScore(a *analysis) []ElementResult {
	const (
		name     = "LEED score"
		nameLong = "LEED renewable-energy score"
	)
	required := fmt.Sprintf("≥ %.0f%%", c.threshold)

	if a.segErr != nil {
		if errors.Is(a.segErr, pipeline.ErrNoSegments) {
			return []ElementResult{newResult("", entityBuilding, name, nameLong, StatusFail, "0%", required,
				"No roof segments found, solar production cannot be calculated.")}
		}
		return []ElementResult{newResult("", entityBuilding, name, nameLong, StatusBlocked, "", required,
			"Roof parsing failed: "+a.segErr.Error())}
	}
	if row, blocked := c.productionBlocked(a, entityBuilding, name, nameLong, required); blocked {
		return []ElementResult{row}
	}

	score := production.Score(a.prod.TotalKWh, a.prod.ConsumptionKWh)
	status, comment := StatusPass, ""
	if score < c.threshold {
		status = StatusFail
		comment = fmt.Sprintf("Score %.1f%% is below the %.0f%% threshold.", score, c.threshold)
	}
	return []ElementResult{newResult("", entityBuilding, name,
		c.printer.Sprintf("%s, production %.0f kWh/yr vs consumption %.0f kWh/yr",
			nameLong, a.prod.TotalKWh, a.prod.ConsumptionKWh),
		status, fmt.Sprintf("%.1f%%", score), required, comment)}
}

// segmentationRows returns the single row describing a failed segmentation.
func segmentationRows(a *analysis, name, nameLong, required string) ([]ElementResult, bool) {
	if a.segErr == nil {
		return nil, false
	}
	if errors.Is(a.segErr, pipeline.ErrNoSegments) {
		return []ElementResult{newResult("", entityRoof, name, nameLong, StatusFail, "0 segments", requiredSegment,
			"No roof segments found, the model may lack IfcRoof or IfcSlab(ROOF) geometry.")}, true
	}
	return []ElementResult{newResult("", entityRoof, name, nameLong, StatusBlocked, "", required,
		"Roof parsing failed: "+a.segErr.Error())}, true
}

// productionBlocked returns the row for a production that could not run.
func (c *Checker) productionBlocked(a *analysis, entityType, name, nameLong, required string) (ElementResult, bool) {
	switch {
	case a.locErr != nil:
		return newResult("", entitySite, name, nameLong, StatusBlocked, "", required,
			"No site coordinates, the yield estimator cannot be queried. Pass a location override."), true
	case !c.opts.CallAPI:
		return newResult("", entityType, name, nameLong, StatusBlocked, "", required,
			"Yield estimation is disabled (offline mode)."), true
	case a.prodErr != nil:
		return newResult("", entityType, name, nameLong, StatusBlocked, "", required,
			"Yield estimation aborted: "+a.prodErr.Error()), true
	}
	return ElementResult{}, false
}

func segmentType(s geometry.Segment) string {
	if s.ElementType == "" {
		return entityRoof
	}
	return s.ElementType
}

// CheckRun is the outcome of one check.
type CheckRun struct {
	Name    string          `json:"name"`
	Status  string          `json:"status"`
	Results []ElementResult `json:"element_results"`
}

// Report is the outcome of every check on one model.
type Report struct {
	Project   string         `json:"project"`
	Checks    []CheckRun     `json:"checks"`
	Counts    map[string]int `json:"counts"`
	Passed    bool           `json:"passed"`
	CheckedAt time.Time      `json:"checked_at"`
}

// RunAll runs the five checks. Segmentation and production are computed once
// and shared by the geometry-based checks.
func (c *Checker) RunAll(ctx context.Context, m *building.Model) *Report {
	a := c.analyse(ctx, m, true)

	report := &Report{
		Project:   m.Project,
		Counts:    make(map[string]int),
		CheckedAt: time.Now(),
	}
	runs := []struct {
		name    string
		results []ElementResult
	}{
		{NameLocation, c.CheckLocation(m)},
		{NameBuildingAreas, c.CheckBuildingAreas(m)},
		{NameRoofGeometry, c.roofGeometry(m, a)},
		{NameSolarProduction, c.solarProduction(a)},
		{NameLEEDScore, c.leedScore(a)},
	}
	for _, r := range runs {
		for _, row := range r.results {
			report.Counts[row.CheckStatus]++
		}
		report.Checks = append(report.Checks, CheckRun{
			Name:    r.name,
			Status:  worstStatus(r.results),
			Results: r.results,
		})
	}
	report.Passed = report.Counts[StatusFail] == 0 && report.Counts[StatusBlocked] == 0

	getLogger().Info("checks complete",
		"project", report.Project,
		"passed", report.Passed,
		"fail", report.Counts[StatusFail],
		"blocked", report.Counts[StatusBlocked],
		"warning", report.Counts[StatusWarning])
	return report
}

// statusRank orders statuses from least to most severe.
var statusRank = map[string]int{
	StatusLog:     0,
	StatusPass:    1,
	StatusWarning: 2,
	StatusBlocked: 3,
	StatusFail:    4,
}

func worstStatus(results []ElementResult) string {
	worst := StatusLog
	for _, r := range results {
		if statusRank[r.CheckStatus] > statusRank[worst] {
			worst = r.CheckStatus
		}
	}
	return worst
}
