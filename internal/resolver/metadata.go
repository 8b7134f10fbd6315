package resolver

import (
	"path/filepath"

	"github.com/tphakala/roofsolar/internal/building"
	"github.com/tphakala/roofsolar/internal/mathutil"
)

// ElementRecord is one source element listed in the metadata export.
type ElementRecord struct {
	GlobalID  string   `json:"global_id"`
	Type      string   `json:"ifc_type"`
	Value     *float64 `json:"value,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// MetadataElements lists the elements behind each metadata metric.
type MetadataElements struct {
	WindowArea []ElementRecord `json:"window_area_m2"`
	FloorArea  []ElementRecord `json:"floor_area_m2"`
	RoofArea   []ElementRecord `json:"roof_area_m2"`
	Sites      []ElementRecord `json:"site"`
}

// Metadata is the per-file metrics record. Nil fields were not present in
// the model.
type Metadata struct {
	ProjectName string            `json:"project_name"`
	File        string            `json:"ifc_file"`
	WindowArea  *float64          `json:"window_area_m2"`
	FloorArea   *float64          `json:"floor_area_m2"`
	RoofArea    *float64          `json:"roof_area_m2"`
	TrueNorth   *float64          `json:"true_north_angle_deg"`
	Latitude    *float64          `json:"latitude"`
	Longitude   *float64          `json:"longitude"`
	Error       string            `json:"error,omitempty"`
	Elements    *MetadataElements `json:"elements,omitempty"`
}

// HasError reports whether the file could not be processed.
func (md *Metadata) HasError() bool {
	return md.Error != ""
}

func ptr(v float64) *float64 { return &v }

// Extract resolves every metadata metric of an opened model. The element
// listing is always filled.
func (r *Resolver) Extract(m *building.Model, projectName, fileName string) Metadata {
	md := Metadata{ProjectName: projectName, File: fileName}

	if v, ok := r.Resolve(m, KeyWindowArea); ok {
		md.WindowArea = ptr(v)
	}
	if v, ok := r.Resolve(m, KeyFloorArea); ok {
		md.FloorArea = ptr(v)
	}
	if v, ok := r.Resolve(m, KeyRoofArea); ok {
		md.RoofArea = ptr(v)
	}
	if tn, ok := TrueNorth(m); ok {
		md.TrueNorth = ptr(tn)
	}
	if loc, ok := ExtractLocation(m, ""); ok {
		md.Latitude = ptr(loc.Latitude)
		md.Longitude = ptr(loc.Longitude)
	}

	md.Elements = listElements(m)
	return md
}

// ExtractFile opens a model and extracts its metadata. The project name is
// the name of the directory holding the file. A model that cannot be opened
// yields a record carrying the error text instead of a Go error, so batch
// callers can keep going.
func (r *Resolver) ExtractFile(path string) (Metadata, *building.Model) {
	projectName := filepath.Base(filepath.Dir(path))
	fileName := filepath.Base(path)

	m, err := building.Open(path)
	if err != nil {
		getLogger().Error("cannot open model", "path", path, "error", err)
		return Metadata{ProjectName: projectName, File: fileName, Error: err.Error()}, nil
	}
	return r.Extract(m, projectName, fileName), m
}

// listElements builds the per-metric element listing: windows by overall
// height times width, floor and untyped slabs by gross area, every roof,
// roof slabs by gross area, and every site.
func listElements(m *building.Model) *MetadataElements {
	const (
		slabQto   = "Qto_SlabBaseQuantities"
		grossArea = "GrossArea"
	)
	areaScale := m.AreaScale()
	lengthScale := m.LengthScale()

	out := &MetadataElements{
		WindowArea: []ElementRecord{},
		FloorArea:  []ElementRecord{},
		RoofArea:   []ElementRecord{},
		Sites:      []ElementRecord{},
	}

	for _, w := range m.ElementsByType(building.TypeWindow) {
		h, okH := w.Attribute("OverallHeight")
		wd, okW := w.Attribute("OverallWidth")
		if !okH || !okW {
			continue
		}
		out.WindowArea = append(out.WindowArea, ElementRecord{
			GlobalID: w.GlobalID,
			Type:     w.Type,
			Value:    ptr(mathutil.Round(h*wd*lengthScale*lengthScale, 4)),
		})
	}

	for _, slab := range m.ElementsByType(building.TypeSlab) {
		if slab.PredefinedType != building.PredefinedFloor && slab.PredefinedType != "" {
			continue
		}
		if v, ok := slab.Quantity(slabQto, grossArea); ok {
			out.FloorArea = append(out.FloorArea, ElementRecord{
				GlobalID: slab.GlobalID,
				Type:     slab.Type,
				Value:    ptr(mathutil.Round(v*areaScale, 4)),
			})
		}
	}

	for _, roof := range m.ElementsByType(building.TypeRoof) {
		out.RoofArea = append(out.RoofArea, ElementRecord{GlobalID: roof.GlobalID, Type: roof.Type})
	}
	for _, slab := range m.ElementsByType(building.TypeSlab) {
		if slab.PredefinedType != building.PredefinedRoof {
			continue
		}
		rec := ElementRecord{GlobalID: slab.GlobalID, Type: slab.Type}
		if v, ok := slab.Quantity(slabQto, grossArea); ok && v != 0 {
			rec.Value = ptr(mathutil.Round(v*areaScale, 4))
		}
		out.RoofArea = append(out.RoofArea, rec)
	}

	for _, site := range m.Sites {
		rec := ElementRecord{GlobalID: site.GlobalID, Type: building.TypeSite}
		if lat, ok := DecodeCompoundAngle(site.RefLatitude); ok {
			rec.Latitude = ptr(mathutil.Round(lat, 6))
		}
		if lon, ok := DecodeCompoundAngle(site.RefLongitude); ok {
			rec.Longitude = ptr(mathutil.Round(lon, 6))
		}
		out.Sites = append(out.Sites, rec)
	}

	return out
}
