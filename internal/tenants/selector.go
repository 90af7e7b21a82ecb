package tenants

import (
	"github.com/odyssey-erp/abilities/internal/ability"
	"github.com/odyssey-erp/abilities/internal/catalog"
)

// Selector derives the abilities a tenant may grant from its feature selection.
type Selector struct {
	catalog *catalog.Catalog
}

// NewSelector constructs a Selector over the catalogue.
func NewSelector(cat *catalog.Catalog) *Selector {
	return &Selector{catalog: cat}
}

// SelectedFeatureAbilities returns the chosen abilities per selected feature.
// A stored override is returned as-is, restricted to the selected features;
// without one every catalogued ability of each selected feature is chosen.
func (s *Selector) SelectedFeatureAbilities(t Tenant) map[string]ability.Set {
	out := make(map[string]ability.Set, len(t.SelectedFeatures))
	if t.FeatureAbilities != nil {
		for _, feature := range t.SelectedFeatures {
			chosen, ok := t.FeatureAbilities[feature]
			if !ok {
				continue
			}
			out[feature] = ability.NewSet(chosen...)
		}
		return out
	}
	for _, feature := range t.SelectedFeatures {
		set := s.catalog.Abilities(feature)
		if set == nil {
			continue
		}
		out[feature] = set
	}
	return out
}

// AllowedAbilities flattens the selection after clamping each feature against
// its current catalogue entry, so abilities removed from the catalogue are
// never granted through a stale override.
func (s *Selector) AllowedAbilities(t Tenant) ability.Set {
	allowed := make(ability.Set)
	for feature, chosen := range s.SelectedFeatureAbilities(t) {
		full := s.catalog.Abilities(feature)
		if full == nil {
			continue
		}
		allowed.Union(chosen.Intersect(full))
	}
	return allowed
}
