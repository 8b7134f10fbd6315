package resolver

import (
	"sort"
	"strings"

	"github.com/tphakala/roofsolar/internal/building"
)

// KeyUsage counts how many elements of a type carry a set key.
type KeyUsage struct {
	EntityType string `json:"entity_type"`
	Source     Source `json:"source"`
	SetName    string `json:"set_name"`
	Key        string `json:"key"`
	Count      int    `json:"count"`
}

// areaKeywords flag quantity names that look like areas.
var areaKeywords = []string{"area", "fläche", "superficie"}

// Inventory lists every quantity and property key present in the model,
// sorted by entity type, source, set name and key.
func Inventory(m *building.Model) []KeyUsage {
	type usageKey struct {
		entity, set, key string
		source           Source
	}
	counts := make(map[usageKey]int)

	for _, e := range m.Elements {
		for setName, set := range e.QuantitySets {
			for key := range set {
				counts[usageKey{e.Type, setName, key, SourceQuantitySet}]++
			}
		}
		for setName, set := range e.PropertySets {
			for key := range set {
				counts[usageKey{e.Type, setName, key, SourcePropertySet}]++
			}
		}
	}

	out := make([]KeyUsage, 0, len(counts))
	for k, n := range counts {
		out = append(out, KeyUsage{EntityType: k.entity, Source: k.source, SetName: k.set, Key: k.key, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.EntityType != b.EntityType {
			return a.EntityType < b.EntityType
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.SetName != b.SetName {
			return a.SetName < b.SetName
		}
		return a.Key < b.Key
	})
	return out
}

// SuggestAliases returns area-like quantity keys in the inventory that no
// alias chain reads yet, as strategies ready to paste into an alias file.
func SuggestAliases(inventory []KeyUsage, aliases *AliasConfig) []Strategy {
	var out []Strategy
	for _, u := range inventory {
		if u.Source != SourceQuantitySet || !looksLikeArea(u.Key) {
			continue
		}
		if aliases.Covers(u.EntityType, u.Source, u.SetName, u.Key) {
			continue
		}
		out = append(out, Strategy{
			Entity:  u.EntityType,
			Source:  u.Source,
			SetName: u.SetName,
			Key:     u.Key,
		})
	}
	return out
}

func looksLikeArea(key string) bool {
	lower := strings.ToLower(key)
	for _, kw := range areaKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
