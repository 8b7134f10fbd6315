package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/tphakala/roofsolar/internal/errors"
	"github.com/tphakala/roofsolar/internal/pipeline"
	"github.com/tphakala/roofsolar/internal/resolver"
)

// MetadataColumns is the header of the metadata CSV.
var MetadataColumns = []string{
	"project_name", "file", "window_area_m2", "floor_area_m2", "roof_area_m2",
	"true_north_angle_deg", "latitude", "longitude", "error",
}

// SegmentColumns is the header of the segments CSV.
var SegmentColumns = []string{
	"project_name", "segment_id", "global_id", "ifc_type", "area_m2", "tilt_deg",
	"azimuth_deg", "capacity_kw", "annual_kwh", "status", "error",
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.New(err).
			Component("report").
			Category(errors.CategoryFileIO).
			Context("operation", "write_json").
			Build()
	}
	return nil
}

// WriteSegmentsCSV writes one row per segment of every successful result.
func WriteSegmentsCSV(w io.Writer, results ...*pipeline.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SegmentColumns); err != nil {
		return csvError(err, "segments")
	}
	for _, res := range results {
		for _, s := range res.Segments() {
			row := []string{
				res.ProjectName,
				s.ID,
				s.ElementID,
				s.ElementType,
				formatFloat(s.Area),
				formatFloat(s.Tilt),
				formatFloat(s.Azimuth),
				formatFloat(s.CapacityKW),
				formatFloat(s.AnnualKWh),
				s.Status,
				s.Error,
			}
			if err := cw.Write(row); err != nil {
				return csvError(err, "segments")
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return csvError(err, "segments")
	}
	return nil
}

// WriteMetadataCSV writes one row per metadata record. Missing values are
// empty cells.
func WriteMetadataCSV(w io.Writer, records []resolver.Metadata) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(MetadataColumns); err != nil {
		return csvError(err, "metadata")
	}
	for i := range records {
		md := &records[i]
		row := []string{
			md.ProjectName,
			md.File,
			optionalFloat(md.WindowArea),
			optionalFloat(md.FloorArea),
			optionalFloat(md.RoofArea),
			optionalFloat(md.TrueNorth),
			optionalFloat(md.Latitude),
			optionalFloat(md.Longitude),
			md.Error,
		}
		if err := cw.Write(row); err != nil {
			return csvError(err, "metadata")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return csvError(err, "metadata")
	}
	return nil
}

// CreateFile creates path and its parent directories for an export.
func CreateFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.New(err).
			Component("report").
			Category(errors.CategoryFileIO).
			FileContext(path).
			Build()
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.New(err).
			Component("report").
			Category(errors.CategoryFileIO).
			FileContext(path).
			Build()
	}
	return f, nil
}

// ExportResult writes <name>.json and <name>_segments.csv for res into dir
// and returns the paths written. The name is derived from the project name.
func ExportResult(dir string, res *pipeline.Result) ([]string, error) {
	base := filepath.Join(dir, FileStem(res.ProjectName))

	jsonPath := base + ".json"
	if err := writeFile(jsonPath, func(w io.Writer) error { return WriteJSON(w, res) }); err != nil {
		return nil, err
	}
	csvPath := base + "_segments.csv"
	if err := writeFile(csvPath, func(w io.Writer) error { return WriteSegmentsCSV(w, res) }); err != nil {
		return nil, err
	}
	return []string{jsonPath, csvPath}, nil
}

// FileStem turns a project name into a file name stem. Runs of characters
// other than letters and digits collapse to one underscore.
func FileStem(name string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	stem := strings.TrimSuffix(b.String(), "_")
	if stem == "" {
		return "project"
	}
	return stem
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := CreateFile(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.New(err).
			Component("report").
			Category(errors.CategoryFileIO).
			FileContext(path).
			Build()
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func csvError(err error, export string) error {
	return errors.New(err).
		Component("report").
		Category(errors.CategoryFileIO).
		Context("export", export).
		Build()
}
