// Package resolver extracts building metrics from models whose metadata
// naming depends on the exporting tool, using ordered alias chains.
package resolver

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"slices"
	"sort"

	"github.com/tphakala/roofsolar/internal/errors"
	"gopkg.in/yaml.v3"
)

//go:embed key_aliases.yaml
var defaultAliasData []byte

// Canonical metric keys.
const (
	KeyWindowArea = "window_area"
	KeyFloorArea  = "floor_area"
	KeyRoofArea   = "roof_area"
)

// Source is where a strategy reads its value from.
type Source string

const (
	SourceQuantitySet Source = "qset"
	SourcePropertySet Source = "pset"
	SourceAttribute   Source = "attr"
)

// OpMultiply combines attribute values by multiplication.
const OpMultiply = "multiply"

// Strategy is one way of extracting a metric.
type Strategy struct {
	Entity         string   `yaml:"entity" json:"entity"`
	Source         Source   `yaml:"source" json:"source"`
	SetName        string   `yaml:"set_name,omitempty" json:"set_name,omitempty"`
	Key            string   `yaml:"key,omitempty" json:"key,omitempty"`
	Keys           []string `yaml:"keys,omitempty" json:"keys,omitempty"`
	Op             string   `yaml:"op,omitempty" json:"op,omitempty"`
	PredefinedType string   `yaml:"predefined_type,omitempty" json:"predefined_type,omitempty"`
	Note           string   `yaml:"note,omitempty" json:"note,omitempty"`
}

// String renders the strategy for log output.
func (s Strategy) String() string {
	switch s.Source {
	case SourceAttribute:
		if s.Op != "" {
			return fmt.Sprintf("%s attr %s(%v)", s.Entity, s.Op, s.Keys)
		}
		return fmt.Sprintf("%s attr %s", s.Entity, s.Key)
	default:
		str := fmt.Sprintf("%s %s %s/%s", s.Entity, s.Source, s.SetName, s.Key)
		if s.PredefinedType != "" {
			str += " [" + s.PredefinedType + "]"
		}
		return str
	}
}

func (s Strategy) validate() error {
	if s.Entity == "" {
		return fmt.Errorf("strategy has no entity")
	}
	switch s.Source {
	case SourceQuantitySet, SourcePropertySet:
		if s.SetName == "" || s.Key == "" {
			return fmt.Errorf("%s strategy for %s needs set_name and key", s.Source, s.Entity)
		}
	case SourceAttribute:
		if s.Op != "" && s.Op != OpMultiply {
			return fmt.Errorf("unsupported attribute op %q", s.Op)
		}
		if s.Op == OpMultiply && len(s.Keys) == 0 {
			return fmt.Errorf("multiply strategy for %s needs keys", s.Entity)
		}
	default:
		return fmt.Errorf("unknown strategy source %q", s.Source)
	}
	return nil
}

// AliasConfig maps canonical metric names to ordered strategy chains.
// It is read-only after loading.
type AliasConfig struct {
	Version int
	chains  map[string][]Strategy
}

// Chain returns the strategies for a canonical key, in priority order.
func (c *AliasConfig) Chain(key string) []Strategy {
	if c == nil {
		return nil
	}
	return slices.Clone(c.chains[key])
}

// Keys returns the canonical keys, sorted.
func (c *AliasConfig) Keys() []string {
	if c == nil {
		return nil
	}
	keys := make([]string, 0, len(c.chains))
	for k := range c.chains {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Covers reports whether any chain already reads the given set key.
func (c *AliasConfig) Covers(entity string, source Source, setName, key string) bool {
	if c == nil {
		return false
	}
	for _, chain := range c.chains {
		for _, s := range chain {
			if s.Entity == entity && s.Source == source && s.SetName == setName && s.Key == key {
				return true
			}
		}
	}
	return false
}

// ParseAliases decodes an alias document. Both the versioned form
// (version + aliases) and a flat map of key to strategy list are accepted,
// in YAML or JSON.
func ParseAliases(data []byte) (*AliasConfig, error) {
	var doc map[string]yaml.Node
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return nil, errors.New(fmt.Errorf("failed to parse alias file: %w", err)).
			Component("resolver").
			Category(errors.CategoryFileParsing).
			Build()
	}

	cfg := &AliasConfig{chains: make(map[string][]Strategy)}

	for name, node := range doc {
		var err error
		switch {
		case name == "version":
			err = node.Decode(&cfg.Version)
		case name == "aliases":
			var chains map[string][]Strategy
			if err = node.Decode(&chains); err == nil {
				for k, v := range chains {
					cfg.chains[k] = v
				}
			}
		case node.Kind == yaml.SequenceNode:
			var chain []Strategy
			if err = node.Decode(&chain); err == nil {
				cfg.chains[name] = chain
			}
		}
		if err != nil {
			return nil, errors.New(fmt.Errorf("failed to decode alias entry %q: %w", name, err)).
				Component("resolver").
				Category(errors.CategoryFileParsing).
				Build()
		}
	}

	for key, chain := range cfg.chains {
		for i, s := range chain {
			if err := s.validate(); err != nil {
				return nil, errors.New(fmt.Errorf("alias %s strategy %d: %w", key, i+1, err)).
					Component("resolver").
					Category(errors.CategoryValidation).
					Context("alias", key).
					Build()
			}
		}
	}

	return cfg, nil
}

// DefaultAliases returns the built-in alias chains.
func DefaultAliases() *AliasConfig {
	cfg, err := ParseAliases(defaultAliasData)
	if err != nil {
		panic(fmt.Sprintf("embedded key_aliases.yaml is invalid: %v", err))
	}
	return cfg
}

// LoadAliases reads an alias file. An empty path selects the built-in
// chains. A file that does not exist yields an empty configuration, so every
// lookup resolves to no data; a file that exists but cannot be parsed is an
// error.
func LoadAliases(path string) (*AliasConfig, error) {
	if path == "" {
		return DefaultAliases(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			getLogger().Warn("alias file not found, using empty alias map", "path", path)
			return &AliasConfig{chains: map[string][]Strategy{}}, nil
		}
		return nil, errors.New(err).
			Component("resolver").
			Category(errors.CategoryFileIO).
			FileContext(path).
			Build()
	}

	cfg, err := ParseAliases(data)
	if err != nil {
		return nil, errors.New(err).
			Component("resolver").
			Category(errors.CategoryConfiguration).
			FileContext(path).
			Build()
	}
	return cfg, nil
}
