// Package catalog holds the static feature catalogue and the ability alias
// table. Both are loaded once at start and never mutated afterwards.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/odyssey-erp/abilities/internal/ability"
	"github.com/odyssey-erp/abilities/internal/shared"
)

// ErrInvalidCatalog wraps every load-time validation failure.
var ErrInvalidCatalog = errors.New("catalog: invalid catalogue")

// FeatureDefinition describes a feature and the closed list of abilities it defines.
type FeatureDefinition struct {
	Slug      string   `yaml:"slug"`
	Label     string   `yaml:"label"`
	Abilities []string `yaml:"abilities"`
}

// Catalog is the immutable feature catalogue.
type Catalog struct {
	features []FeatureDefinition
	bySlug   map[string]int
	sets     map[string]ability.Set
	aliases  map[string]string
}

// New validates the definitions and alias table and builds a Catalog.
func New(features []FeatureDefinition, aliases map[string]string) (*Catalog, error) {
	c := &Catalog{
		features: make([]FeatureDefinition, 0, len(features)),
		bySlug:   make(map[string]int, len(features)),
		sets:     make(map[string]ability.Set, len(features)),
		aliases:  make(map[string]string, len(aliases)),
	}
	reserved := make(map[string]struct{})
	for _, scope := range shared.CoreScopes() {
		reserved[ability.Feature(scope)] = struct{}{}
	}
	all := make(ability.Set)
	for _, def := range features {
		slug := strings.TrimSpace(def.Slug)
		if slug == "" || strings.Contains(slug, ".") {
			return nil, fmt.Errorf("%w: bad feature slug %q", ErrInvalidCatalog, def.Slug)
		}
		// platform abilities must never be grantable through a tenant's feature selection
		if _, ok := reserved[slug]; ok {
			return nil, fmt.Errorf("%w: feature %q is reserved for platform abilities", ErrInvalidCatalog, slug)
		}
		if _, dup := c.bySlug[slug]; dup {
			return nil, fmt.Errorf("%w: duplicate feature %q", ErrInvalidCatalog, slug)
		}
		set := make(ability.Set, len(def.Abilities))
		abilities := make([]string, 0, len(def.Abilities))
		for _, a := range def.Abilities {
			if !ability.Valid(a) {
				return nil, fmt.Errorf("%w: feature %q ability %q does not match feature.action", ErrInvalidCatalog, slug, a)
			}
			if ability.Feature(a) != slug {
				return nil, fmt.Errorf("%w: ability %q is outside feature %q", ErrInvalidCatalog, a, slug)
			}
			if set.Has(a) {
				return nil, fmt.Errorf("%w: feature %q lists %q twice", ErrInvalidCatalog, slug, a)
			}
			set.Add(a)
			all.Add(a)
			abilities = append(abilities, a)
		}
		label := strings.TrimSpace(def.Label)
		if label == "" {
			label = slug
		}
		c.bySlug[slug] = len(c.features)
		c.features = append(c.features, FeatureDefinition{Slug: slug, Label: label, Abilities: abilities})
		c.sets[slug] = set
	}
	for from, to := range aliases {
		if !ability.Valid(from) {
			return nil, fmt.Errorf("%w: alias %q is malformed", ErrInvalidCatalog, from)
		}
		if !all.Has(to) {
			return nil, fmt.Errorf("%w: alias %q points at unknown ability %q", ErrInvalidCatalog, from, to)
		}
		c.aliases[from] = to
	}
	return c, nil
}

// Features returns the definitions in catalogue order.
func (c *Catalog) Features() []FeatureDefinition {
	out := make([]FeatureDefinition, len(c.features))
	for i, def := range c.features {
		out[i] = FeatureDefinition{Slug: def.Slug, Label: def.Label, Abilities: append([]string(nil), def.Abilities...)}
	}
	return out
}

// Feature looks up a definition by slug.
func (c *Catalog) Feature(slug string) (FeatureDefinition, bool) {
	idx, ok := c.bySlug[slug]
	if !ok {
		return FeatureDefinition{}, false
	}
	def := c.features[idx]
	return FeatureDefinition{Slug: def.Slug, Label: def.Label, Abilities: append([]string(nil), def.Abilities...)}, true
}

// Has reports whether slug is a catalogued feature.
func (c *Catalog) Has(slug string) bool {
	_, ok := c.bySlug[slug]
	return ok
}

// Abilities returns a copy of the feature's ability set, or nil for unknown slugs.
func (c *Catalog) Abilities(slug string) ability.Set {
	set, ok := c.sets[slug]
	if !ok {
		return nil
	}
	return set.Clone()
}

// Defines reports whether the feature lists the ability.
func (c *Catalog) Defines(slug, a string) bool {
	return c.sets[slug].Has(a)
}

// Aliases returns a copy of the legacy-to-canonical alias table.
func (c *Catalog) Aliases() map[string]string {
	out := make(map[string]string, len(c.aliases))
	for from, to := range c.aliases {
		out[from] = to
	}
	return out
}
