package tenants

import "time"

// Tenant is a customer account and its feature configuration.
type Tenant struct {
	ID               int64               `json:"id"`
	Name             string              `json:"name"`
	SelectedFeatures []string            `json:"selected_features"`
	FeatureAbilities map[string][]string `json:"feature_abilities"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// HasFeature reports whether the tenant selected the feature.
func (t Tenant) HasFeature(slug string) bool {
	for _, f := range t.SelectedFeatures {
		if f == slug {
			return true
		}
	}
	return false
}

// FeatureConfig is the mutable part of a tenant. A nil FeatureAbilities means
// every ability of each selected feature.
type FeatureConfig struct {
	Features         []string            `json:"features" validate:"dive,required"`
	FeatureAbilities map[string][]string `json:"feature_abilities" validate:"omitempty,dive,keys,required,endkeys,dive,required"`
}

// CreateInput carries the data needed to create a tenant.
type CreateInput struct {
	Name string `json:"name" validate:"required,max=200"`
	FeatureConfig
}
