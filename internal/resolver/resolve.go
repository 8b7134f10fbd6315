package resolver

import (
	"math"
	"strconv"
	"strings"

	"github.com/tphakala/roofsolar/internal/building"
	"github.com/tphakala/roofsolar/internal/mathutil"
)

// Contribution is one element's share of a resolved metric.
type Contribution struct {
	ElementID string
	GlobalID  string
	Type      string
	Value     float64 // scaled to metres / m²
}

// Resolution is the outcome of a successful lookup.
type Resolution struct {
	Key          string
	Value        float64 // rounded to 4 decimals
	Strategy     Strategy
	Index        int // position of the winning strategy in the chain
	Contributors []Contribution
}

// Resolver evaluates alias chains against building models. It holds no
// per-model state and may be shared.
type Resolver struct {
	aliases *AliasConfig
}

// New creates a resolver over the given alias configuration. A nil
// configuration resolves every key to no data.
func New(aliases *AliasConfig) *Resolver {
	return &Resolver{aliases: aliases}
}

// Aliases returns the configuration the resolver was built with.
func (r *Resolver) Aliases() *AliasConfig {
	return r.aliases
}

// Resolve returns the value of a canonical metric, or false when no
// strategy in its chain finds any data.
func (r *Resolver) Resolve(m *building.Model, key string) (float64, bool) {
	res, ok := r.ResolveDetailed(m, key)
	if !ok {
		return 0, false
	}
	return res.Value, true
}

// ResolveDetailed is Resolve that also reports which strategy matched and
// the contributing elements.
//
// Strategies are tried in order. The first strategy for which at least one
// element has data wins, even if the summed value is zero; later strategies
// are not evaluated.
func (r *Resolver) ResolveDetailed(m *building.Model, key string) (Resolution, bool) {
	chain := r.aliases.Chain(key)
	for i, s := range chain {
		contributions, ok := evaluate(m, s)
		if !ok {
			continue
		}

		var total float64
		for _, c := range contributions {
			total += c.Value
		}
		res := Resolution{
			Key:          key,
			Value:        mathutil.Round(total, 4),
			Strategy:     s,
			Index:        i,
			Contributors: contributions,
		}
		getLogger().Debug("metric resolved",
			"key", key,
			"strategy", s.String(),
			"index", i,
			"elements", len(contributions),
			"value", res.Value)
		return res, true
	}

	if len(chain) > 0 {
		getLogger().Debug("metric not present", "key", key, "strategies", len(chain))
	}
	return Resolution{Key: key}, false
}

// evaluate applies one strategy to every matching element.
func evaluate(m *building.Model, s Strategy) ([]Contribution, bool) {
	switch s.Source {
	case SourceAttribute:
		if s.Op != OpMultiply {
			// Plain attribute entries (coordinates, true north) are read by
			// dedicated extractors.
			return nil, false
		}
		return evaluateProduct(m, s)
	case SourceQuantitySet, SourcePropertySet:
		return evaluateSet(m, s)
	default:
		return nil, false
	}
}

func evaluateSet(m *building.Model, s Strategy) ([]Contribution, bool) {
	scale := m.AreaScale()
	var out []Contribution

	for _, e := range m.ElementsByType(s.Entity) {
		if s.PredefinedType != "" && e.PredefinedType != s.PredefinedType {
			continue
		}

		var (
			v  float64
			ok bool
		)
		if s.Source == SourceQuantitySet {
			v, ok = e.Quantity(s.SetName, s.Key)
		} else {
			var raw any
			if raw, ok = e.Property(s.SetName, s.Key); ok {
				v, ok = toFloat(raw)
			}
		}
		if !ok {
			continue
		}
		out = append(out, contribution(e, v*scale))
	}
	return out, len(out) > 0
}

// evaluateProduct multiplies the listed attributes per element. Elements
// missing any of them are skipped.
func evaluateProduct(m *building.Model, s Strategy) ([]Contribution, bool) {
	scale := math.Pow(m.LengthScale(), float64(len(s.Keys)))
	var out []Contribution

	for _, e := range m.ElementsByType(s.Entity) {
		if s.PredefinedType != "" && e.PredefinedType != s.PredefinedType {
			continue
		}
		product, complete := 1.0, true
		for _, k := range s.Keys {
			v, ok := e.Attribute(k)
			if !ok {
				complete = false
				break
			}
			product *= v
		}
		if !complete {
			continue
		}
		out = append(out, contribution(e, product*scale))
	}
	return out, len(out) > 0
}

func contribution(e *building.Element, v float64) Contribution {
	return Contribution{ElementID: e.ID, GlobalID: e.GlobalID, Type: e.Type, Value: v}
}

// toFloat converts a property value to a number. Numeric strings are
// accepted; booleans and other text are not numeric.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
