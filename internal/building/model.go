// Package building provides the in-memory building model the analysis runs
// against: elements with their quantity and property sets, site records,
// representation contexts and per-element surface meshes.
package building

import (
	"slices"
	"sync"
)

// Entity type names used by the analysis.
const (
	TypeRoof   = "IfcRoof"
	TypeSlab   = "IfcSlab"
	TypeWindow = "IfcWindow"
	TypeSite   = "IfcSite"

	PredefinedRoof  = "ROOF"
	PredefinedFloor = "FLOOR"
)

// subtypes lists the concrete entity types a lookup by supertype also returns.
var subtypes = map[string][]string{
	"IfcSlab":   {"IfcSlabStandardCase", "IfcSlabElementedCase"},
	"IfcWindow": {"IfcWindowStandardCase"},
	"IfcWall":   {"IfcWallStandardCase"},
	"IfcDoor":   {"IfcDoorStandardCase"},
}

// Units holds the factors converting model units to metres and m².
type Units struct {
	LengthScale float64 `json:"length_scale" yaml:"length_scale"`
	AreaScale   float64 `json:"area_scale" yaml:"area_scale"`
}

// Context is a geometric representation context.
type Context struct {
	ID         string    `json:"id" yaml:"id"`
	SubContext bool      `json:"sub_context" yaml:"sub_context"`
	TrueNorth  []float64 `json:"true_north,omitempty" yaml:"true_north,omitempty"` // direction ratios x, y
}

// Site is a site record with compound-angle coordinates
// [degrees, minutes, seconds, millionths of a second].
type Site struct {
	GlobalID     string `json:"global_id" yaml:"global_id"`
	Name         string `json:"name" yaml:"name"`
	RefLatitude  []int  `json:"ref_latitude,omitempty" yaml:"ref_latitude,omitempty"`
	RefLongitude []int  `json:"ref_longitude,omitempty" yaml:"ref_longitude,omitempty"`
}

// MeshData is an element's triangulated surface in its local frame.
type MeshData struct {
	Vertices [][3]float64 `json:"vertices" yaml:"vertices"`
	Faces    [][3]int     `json:"faces" yaml:"faces"`
}

// Element is a building element.
type Element struct {
	ID             string                        `json:"id" yaml:"id"`
	GlobalID       string                        `json:"global_id" yaml:"global_id"`
	Type           string                        `json:"type" yaml:"type"`
	PredefinedType string                        `json:"predefined_type,omitempty" yaml:"predefined_type,omitempty"`
	Name           string                        `json:"name,omitempty" yaml:"name,omitempty"`
	Attributes     map[string]float64            `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	QuantitySets   map[string]map[string]float64 `json:"quantity_sets,omitempty" yaml:"quantity_sets,omitempty"`
	PropertySets   map[string]map[string]any     `json:"property_sets,omitempty" yaml:"property_sets,omitempty"`
	Children       []string                      `json:"children,omitempty" yaml:"children,omitempty"` // aggregated element IDs
	Placement      [3]float64                    `json:"placement" yaml:"placement"`                    // world offset of the local frame
	Mesh           *MeshData                     `json:"mesh,omitempty" yaml:"mesh,omitempty"`
}

// Attribute returns a direct numeric attribute.
func (e *Element) Attribute(name string) (float64, bool) {
	v, ok := e.Attributes[name]
	return v, ok
}

// Quantity returns a quantity from a named quantity set.
func (e *Element) Quantity(setName, name string) (float64, bool) {
	set, ok := e.QuantitySets[setName]
	if !ok {
		return 0, false
	}
	v, ok := set[name]
	return v, ok
}

// Property returns the raw value of a property from a named property set.
func (e *Element) Property(setName, name string) (any, bool) {
	set, ok := e.PropertySets[setName]
	if !ok {
		return nil, false
	}
	v, ok := set[name]
	return v, ok
}

// DisplayName returns the element name, or its type and global ID.
func (e *Element) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	id := e.GlobalID
	if id == "" {
		id = "?"
	}
	return e.Type + " #" + id
}

// Model is a parsed building model document.
type Model struct {
	Project  string     `json:"project" yaml:"project"`
	Schema   string     `json:"schema,omitempty" yaml:"schema,omitempty"`
	Units    Units      `json:"units" yaml:"units"`
	Contexts []Context  `json:"contexts,omitempty" yaml:"contexts,omitempty"`
	Sites    []Site     `json:"sites,omitempty" yaml:"sites,omitempty"`
	Elements []*Element `json:"elements" yaml:"elements"`

	indexOnce sync.Once
	byID      map[string]*Element
}

// LengthScale returns the factor converting model length units to metres.
func (m *Model) LengthScale() float64 {
	if m.Units.LengthScale <= 0 {
		return 1
	}
	return m.Units.LengthScale
}

// AreaScale returns the factor converting model area units to m².
func (m *Model) AreaScale() float64 {
	if m.Units.AreaScale <= 0 {
		return 1
	}
	return m.Units.AreaScale
}

// Element returns the element with the given ID. The ID index is built once,
// on the first lookup of a model that was not decoded, so elements must be
// complete before a model is shared.
func (m *Model) Element(id string) (*Element, bool) {
	m.indexOnce.Do(m.index)
	e, ok := m.byID[id]
	return e, ok
}

func (m *Model) index() {
	m.byID = make(map[string]*Element, len(m.Elements))
	for _, e := range m.Elements {
		m.byID[e.ID] = e
	}
}

// ElementsByType returns elements of the given type or one of its known
// subtypes, in document order.
func (m *Model) ElementsByType(entityType string) []*Element {
	var out []*Element
	for _, e := range m.Elements {
		if e.Type == entityType || slices.Contains(subtypes[entityType], e.Type) {
			out = append(out, e)
		}
	}
	return out
}

// Children returns the elements aggregated by e.
func (m *Model) Children(e *Element) []*Element {
	var out []*Element
	for _, id := range e.Children {
		if child, ok := m.Element(id); ok {
			out = append(out, child)
		}
	}
	return out
}

// RoofElements collects the leaf elements carrying roof geometry: the
// aggregated children of every roof, or the roof itself when it has none,
// followed by standalone slabs typed ROOF. Each element appears once, in
// discovery order.
func (m *Model) RoofElements() []*Element {
	var out []*Element
	seen := make(map[string]bool)
	add := func(e *Element) {
		if seen[e.ID] {
			return
		}
		seen[e.ID] = true
		out = append(out, e)
	}

	for _, roof := range m.ElementsByType(TypeRoof) {
		children := m.Children(roof)
		if len(children) == 0 {
			add(roof)
			continue
		}
		for _, child := range children {
			add(child)
		}
	}

	for _, slab := range m.ElementsByType(TypeSlab) {
		if slab.PredefinedType == PredefinedRoof {
			add(slab)
		}
	}

	return out
}
