package tenants

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/abilities/internal/catalog"
	"github.com/odyssey-erp/abilities/internal/shared"
)

// ValidationError lists field level problems with a feature configuration.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "tenants: invalid feature configuration: " + strings.Join(parts, "; ")
}

// Unwrap lets callers match shared.ErrValidation.
func (e *ValidationError) Unwrap() error {
	return shared.ErrValidation
}

type configValidator struct {
	validate *validator.Validate
	catalog  *catalog.Catalog
}

func newConfigValidator(cat *catalog.Catalog) *configValidator {
	return &configValidator{validate: validator.New(), catalog: cat}
}

// check validates structure and catalogue membership and returns the
// configuration with duplicates dropped and ability spellings normalized.
func (v *configValidator) check(cfg FeatureConfig) (FeatureConfig, error) {
	fields := make(map[string]string)
	if err := v.validate.Struct(cfg); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields[fe.Namespace()] = fe.Tag()
			}
		} else {
			return FeatureConfig{}, err
		}
		return FeatureConfig{}, &ValidationError{Fields: fields}
	}

	selected := make(map[string]struct{}, len(cfg.Features))
	features := make([]string, 0, len(cfg.Features))
	for _, f := range cfg.Features {
		f = strings.TrimSpace(f)
		if !v.catalog.Has(f) {
			fields["features"] = fmt.Sprintf("unknown feature %q", f)
			continue
		}
		if _, dup := selected[f]; dup {
			continue
		}
		selected[f] = struct{}{}
		features = append(features, f)
	}

	var overrides map[string][]string
	if cfg.FeatureAbilities != nil {
		overrides = make(map[string][]string, len(cfg.FeatureAbilities))
		for feature, requested := range cfg.FeatureAbilities {
			key := "feature_abilities." + feature
			if _, ok := selected[feature]; !ok {
				fields[key] = "feature is not selected"
				continue
			}
			for _, a := range v.catalog.ExpandRequestedAbilities(requested) {
				if v.catalog.Defines(feature, a) {
					continue
				}
				if v.catalog.Defines(feature, v.catalog.Normalize(a)) {
					continue
				}
				fields[key] = fmt.Sprintf("ability %q is not part of feature %q", a, feature)
			}
			overrides[feature] = v.catalog.NormalizeList(requested)
		}
	}

	if len(fields) > 0 {
		return FeatureConfig{}, &ValidationError{Fields: fields}
	}
	return FeatureConfig{Features: features, FeatureAbilities: overrides}, nil
}
