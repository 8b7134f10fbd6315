// Package pipeline runs the full roof solar analysis over one building model:
// metadata resolution, roof segmentation, yield estimation and scoring.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/tphakala/roofsolar/internal/building"
	"github.com/tphakala/roofsolar/internal/errors"
	"github.com/tphakala/roofsolar/internal/geometry"
	"github.com/tphakala/roofsolar/internal/mathutil"
	"github.com/tphakala/roofsolar/internal/observability/metrics"
	"github.com/tphakala/roofsolar/internal/production"
	"github.com/tphakala/roofsolar/internal/resolver"
)

// Sentinel errors callers can test with errors.Is. Both report absent data
// in the model, not a failure of the run.
var (
	ErrNoLocation = errors.NewStd("no site location: the model has no site coordinates and none were given")
	ErrNoSegments = errors.NewStd("no roof segments found")
)

// Location sources.
const (
	LocationOverride = "override"
	LocationModel    = "model"
)

// Result is the outcome of one run.
type Result struct {
	RunID          string             `json:"run_id"`
	ProjectName    string             `json:"project_name"`
	File           string             `json:"ifc_file"`
	Metadata       resolver.Metadata  `json:"metadata"`
	Location       resolver.Location  `json:"location"`
	LocationSource string             `json:"location_source"`
	TrueNorth      float64            `json:"true_north_deg"`
	TrueNorthUsed  bool               `json:"true_north_applied"`
	Clusters       int                `json:"clusters"`
	Faces          int                `json:"faces"`
	Skipped        []string           `json:"skipped_elements,omitempty"`
	Production     *production.Result `json:"production"`
	Warnings       []string           `json:"warnings,omitempty"`
	Notes          []string           `json:"notes,omitempty"`
	Duration       time.Duration      `json:"duration_ns"`
	Error          string             `json:"error,omitempty"`
}

// OK reports whether the run completed.
func (r *Result) OK() bool {
	return r.Error == ""
}

// Segments returns the per-segment production list, or nil for a failed run.
func (r *Result) Segments() []production.SegmentResult {
	if r.Production == nil {
		return nil
	}
	return r.Production.Segments
}

// Pipeline composes the resolver, the segmenter and the aggregator.
// A Pipeline holds no per-run state and may be shared by concurrent runs
// as long as its estimator is safe for concurrent use.
type Pipeline struct {
	resolver     *resolver.Resolver
	aggregator   *production.Aggregator
	triangulator building.Triangulator
	recorder     metrics.Recorder
	runMetrics   *metrics.PipelineMetrics
}

// New creates a pipeline. A nil resolver uses the embedded alias chains.
// A nil aggregator runs every analysis offline.
func New(res *resolver.Resolver, agg *production.Aggregator) *Pipeline {
	if res == nil {
		res = resolver.New(resolver.DefaultAliases())
	}
	if agg == nil {
		agg = production.NewAggregator(nil, production.NoDelay{}, nil)
	}
	return &Pipeline{
		resolver:   res,
		aggregator: agg,
		recorder:   metrics.NewNoOpRecorder(),
	}
}

// SetTriangulator replaces the geometry kernel. By default each model
// triangulates its own embedded meshes.
func (p *Pipeline) SetTriangulator(t building.Triangulator) {
	p.triangulator = t
}

// SetMetrics routes run metrics to m. A nil m disables them.
func (p *Pipeline) SetMetrics(m *metrics.PipelineMetrics) {
	p.runMetrics = m
	if m == nil {
		p.recorder = metrics.NewNoOpRecorder()
		return
	}
	p.recorder = m
}

// RunFile opens a model document and analyses it. The project name defaults
// to the name of the directory holding the file.
func (p *Pipeline) RunFile(ctx context.Context, path string, opts Options) (*Result, error) {
	m, err := building.Open(path)
	if err != nil {
		return nil, err
	}
	project := opts.ProjectName
	if project == "" {
		project = filepath.Base(filepath.Dir(path))
	}
	return p.Run(ctx, m, project, filepath.Base(path), opts)
}

// Run analyses an opened model. The result is always returned and carries
// whatever was resolved before the run stopped.
//
// ErrNoLocation and ErrNoSegments, matched with errors.Is, are the no-data
// outcomes: the model has no usable site coordinates, or no roof segment
// survives segmentation. Any other error is a systemic failure or the
// cancellation of ctx. Per-element and per-segment failures are absorbed into
// the result.
func (p *Pipeline) Run(ctx context.Context, m *building.Model, projectName, fileName string, opts Options) (*Result, error) {
	start := time.Now()
	res := &Result{
		RunID:       uuid.New().String(),
		ProjectName: projectName,
		File:        fileName,
	}
	log := getLogger().With("run_id", res.RunID, "project", projectName, "file", fileName)
	log.Info("analysis started", "call_api", opts.CallAPI)

	err := p.run(ctx, m, res, opts)
	res.Duration = time.Since(start)

	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
		res.Error = err.Error()
		log.Error("analysis failed", "error", err, "duration_ms", res.Duration.Milliseconds())
	} else {
		log.Info("analysis finished",
			"segments", len(res.Production.Segments),
			"total_kwh", res.Production.TotalKWh,
			"score", res.Production.Score,
			"warnings", len(res.Warnings),
			"duration_ms", res.Duration.Milliseconds())
	}

	p.recorder.RecordOperation(metrics.OpRun, status)
	if p.runMetrics != nil {
		p.runMetrics.RecordRun(status, res.Duration.Seconds())
		if res.Production != nil {
			p.runMetrics.SetLastResult(res.Production.Score, res.Production.TotalKWh)
		}
	}
	return res, err
}

func (p *Pipeline) run(ctx context.Context, m *building.Model, res *Result, opts Options) error {
	log := getLogger().With("run_id", res.RunID)

	// Metadata
	res.Metadata = p.resolver.Extract(m, res.ProjectName, res.File)
	p.recorder.RecordOperation(metrics.OpResolve, metrics.StatusSuccess)

	loc, source, err := ResolveLocation(m, res.ProjectName, opts)
	if err != nil {
		return err
	}
	res.Location = loc
	res.LocationSource = source

	// Geometry
	seg, err := p.segment(ctx, m, opts, log)
	res.Skipped = seg.Skipped
	res.Warnings = append(res.Warnings, seg.Warnings...)
	res.Clusters = seg.Clusters
	res.Faces = seg.Faces
	res.TrueNorth = seg.TrueNorth
	res.TrueNorthUsed = seg.TrueNorthUsed
	if err != nil {
		return err
	}

	// Production
	floorArea := 0.0
	if res.Metadata.FloorArea != nil {
		floorArea = *res.Metadata.FloorArea
	}
	if !opts.CallAPI {
		res.Notes = append(res.Notes, "offline mode: yield estimation skipped, production and score are 0")
	}
	prod, err := p.Produce(ctx, seg.Segments, res.Location, floorArea, opts)
	res.Production = prod
	if err != nil {
		return err
	}
	if prod.FailedSegments > 0 {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("%d of %d segments failed yield estimation and count as 0 kWh", prod.FailedSegments, len(prod.Segments)))
	}

	// Cross-validation against the authored roof area
	if w, ok := CrossValidate(prod.TotalAreaM2, res.Metadata.RoofArea, opts.CrossValidationTolerance); ok {
		res.Warnings = append(res.Warnings, w)
		log.Warn("roof area mismatch", "warning", w)
	}
	return nil
}

// Produce estimates the yield of segments at loc and scores it against the
// consumption expected for floorArea. With opts.CallAPI unset no estimator
// is called and every segment is skipped.
func (p *Pipeline) Produce(ctx context.Context, segments []geometry.Segment, loc resolver.Location, floorArea float64, opts Options) (*production.Result, error) {
	agg := p.aggregator
	if !opts.CallAPI {
		agg = production.NewAggregator(nil, production.NoDelay{}, nil)
	}
	return agg.Aggregate(ctx, segments, loc, floorArea, opts.productionParams())
}

// Resolver returns the metadata resolver of the pipeline.
func (p *Pipeline) Resolver() *resolver.Resolver {
	return p.resolver
}

// ResolveLocation picks the site location of a run: the override when set,
// else the model's first site. It fails with ErrNoLocation otherwise.
func ResolveLocation(m *building.Model, projectName string, opts Options) (loc resolver.Location, source string, err error) {
	if opts.LocationOverride != nil {
		loc = *opts.LocationOverride
		if loc.Name == "" {
			loc.Name = projectName
		}
		return loc, LocationOverride, nil
	}
	loc, ok := resolver.ExtractLocation(m, projectName)
	if !ok {
		return resolver.Location{}, "", errors.New(ErrNoLocation).
			Component("pipeline").
			Category(errors.CategoryMetadata).
			Context("project", projectName).
			Build()
	}
	return loc, LocationModel, nil
}

// Segmentation is the roof geometry of one model.
type Segmentation struct {
	Segments      []geometry.Segment
	Clusters      int
	Faces         int
	Skipped       []string // roof element IDs without usable geometry
	TrueNorth     float64
	TrueNorthUsed bool
	Warnings      []string
}

// Segment triangulates the roof of m and groups its faces into planar
// segments, rotated to true north when opts allow. It fails with
// ErrNoSegments when no segment survives.
func (p *Pipeline) Segment(ctx context.Context, m *building.Model, opts Options) (*Segmentation, error) {
	return p.segment(ctx, m, opts, getLogger())
}

func (p *Pipeline) segment(ctx context.Context, m *building.Model, opts Options, log *slog.Logger) (*Segmentation, error) {
	out := &Segmentation{}

	sources, err := p.triangulateRoof(ctx, m, out, log)
	if err != nil {
		return out, err
	}

	segStart := time.Now()
	seg := geometry.BuildSegments(sources, opts.segmenterOptions())
	p.recorder.RecordDuration(metrics.OpSegment, time.Since(segStart).Seconds())
	out.Clusters = seg.Clusters
	out.Faces = seg.Faces
	out.Skipped = append(out.Skipped, seg.SkippedMeshes...)
	log.Debug("roof segmented",
		"meshes", len(sources),
		"faces", seg.Faces,
		"clusters", seg.Clusters,
		"segments", len(seg.Segments))

	if len(seg.Segments) == 0 {
		p.recorder.RecordOperation(metrics.OpSegment, metrics.StatusError)
		return out, errors.New(ErrNoSegments).
			Component("pipeline").
			Category(errors.CategoryGeometry).
			Context("roof_elements", len(sources)).
			Context("clusters", seg.Clusters).
			Build()
	}
	p.recorder.RecordOperation(metrics.OpSegment, metrics.StatusSuccess)
	if p.runMetrics != nil {
		p.runMetrics.RecordSegments(len(seg.Segments))
	}
	out.Segments = seg.Segments

	if tn, ok := resolver.TrueNorth(m); ok {
		out.TrueNorth = tn
		if opts.ApplyTrueNorth {
			out.TrueNorthUsed = geometry.ApplyTrueNorth(out.Segments, tn)
			if out.TrueNorthUsed {
				log.Info("applied true north correction", "degrees", tn)
			}
		}
	}
	return out, nil
}

// triangulateRoof meshes every roof element. Elements that fail or have no
// geometry are skipped and recorded on out.
func (p *Pipeline) triangulateRoof(ctx context.Context, m *building.Model, out *Segmentation, log *slog.Logger) ([]geometry.SourceMesh, error) {
	tri := p.triangulator
	if tri == nil {
		tri = m
	}

	elements := m.RoofElements()
	if len(elements) == 0 {
		out.Warnings = append(out.Warnings, "model has no roof elements")
	}

	sources := make([]geometry.SourceMesh, 0, len(elements))
	for _, e := range elements {
		if err := ctx.Err(); err != nil {
			return nil, errors.New(err).
				Component("pipeline").
				Category(errors.CategoryCancellation).
				Build()
		}

		start := time.Now()
		mesh, err := tri.Triangulate(ctx, e)
		p.recorder.RecordDuration(metrics.OpTriangulate, time.Since(start).Seconds())

		switch {
		case err != nil:
			log.Warn("roof element triangulation failed, skipping",
				"element_id", e.ID,
				"type", e.Type,
				"error", err)
			p.recorder.RecordOperation(metrics.OpTriangulate, metrics.StatusError)
			p.recorder.RecordError(metrics.OpTriangulate, errorCategory(err))
			if p.runMetrics != nil {
				p.runMetrics.RecordSkippedElement("error")
			}
			out.Skipped = append(out.Skipped, e.ID)
		case mesh == nil || len(mesh.Faces) == 0:
			log.Debug("roof element has no geometry", "element_id", e.ID)
			p.recorder.RecordOperation(metrics.OpTriangulate, metrics.StatusSkipped)
			if p.runMetrics != nil {
				p.runMetrics.RecordSkippedElement("no_geometry")
			}
			out.Skipped = append(out.Skipped, e.ID)
		default:
			p.recorder.RecordOperation(metrics.OpTriangulate, metrics.StatusSuccess)
			id := e.GlobalID
			if id == "" {
				id = e.ID
			}
			sources = append(sources, geometry.SourceMesh{
				ElementID:   id,
				ElementType: e.Type,
				Mesh:        *mesh,
			})
		}
	}
	return sources, nil
}

// CrossValidate compares the geometric roof area with the authored one and
// returns a warning when they differ by more than tolerance percent.
func CrossValidate(geometric float64, authored *float64, tolerance float64) (string, bool) {
	if authored == nil || *authored <= 0 {
		return "", false
	}
	diff := mathutil.PercentDiff(geometric, *authored)
	if diff <= tolerance {
		return "", false
	}
	return fmt.Sprintf("roof area mismatch: geometry %.1f m², metadata %.1f m² (%.0f%% difference)",
		geometric, *authored, diff), true
}

func errorCategory(err error) string {
	var enhancedErr *errors.EnhancedError
	if errors.As(err, &enhancedErr) {
		return enhancedErr.GetCategory()
	}
	return string(errors.CategoryGeneric)
}
