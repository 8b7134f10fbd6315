package building

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tphakala/roofsolar/internal/errors"
	"gopkg.in/yaml.v3"
)

// Format is a building model document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the document format from a file extension.
func FormatForPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	default:
		return "", false
	}
}

// IsModelFile reports whether path has a building model extension.
func IsModelFile(path string) bool {
	_, ok := FormatForPath(path)
	return ok
}

// Open reads and validates a building model document.
func Open(path string) (*Model, error) {
	format, ok := FormatForPath(path)
	if !ok {
		return nil, errors.Newf("unsupported building model extension %q", filepath.Ext(path)).
			Component("building").
			Category(errors.CategoryModelLoad).
			FileContext(path).
			Build()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).
			Component("building").
			Category(errors.CategoryFileIO).
			FileContext(path).
			Context("operation", "open_model").
			Build()
	}

	m, err := Decode(bytes.NewReader(data), format)
	if err != nil {
		return nil, errors.New(err).
			Component("building").
			Category(errors.CategoryModelLoad).
			FileContext(path).
			Build()
	}
	return m, nil
}

// Decode parses a building model document from r.
func Decode(r io.Reader, format Format) (*Model, error) {
	m := &Model{}

	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(m); err != nil {
			return nil, fmt.Errorf("failed to parse JSON model: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(m); err != nil {
			return nil, fmt.Errorf("failed to parse YAML model: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown model format %q", format)
	}

	if err := m.validate(); err != nil {
		return nil, err
	}
	m.indexOnce.Do(m.index)
	return m, nil
}

// validate checks element identity and references.
func (m *Model) validate() error {
	ids := make(map[string]bool, len(m.Elements))
	for i, e := range m.Elements {
		if e == nil {
			return errors.Newf("element %d is empty", i).
				Component("building").
				Category(errors.CategoryValidation).
				Build()
		}
		if e.ID == "" {
			return errors.Newf("element %d has no id", i).
				Component("building").
				Category(errors.CategoryValidation).
				Build()
		}
		if ids[e.ID] {
			return errors.Newf("duplicate element id %q", e.ID).
				Component("building").
				Category(errors.CategoryValidation).
				Build()
		}
		ids[e.ID] = true
	}

	for _, e := range m.Elements {
		for _, child := range e.Children {
			if !ids[child] {
				return errors.Newf("element %q aggregates unknown element %q", e.ID, child).
					Component("building").
					Category(errors.CategoryValidation).
					Build()
			}
		}
	}
	return nil
}
