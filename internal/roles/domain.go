package roles

import (
	"time"

	"github.com/odyssey-erp/abilities/internal/ability"
)

// Role is a named bundle of abilities. A nil TenantID marks a global role.
type Role struct {
	ID        int64     `json:"id"`
	TenantID  *int64    `json:"tenant_id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Abilities []string  `json:"abilities"`
	Level     int       `json:"level"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Seniority levels; lower is more senior.
const (
	LevelSuperAdmin        = 0
	LevelTenant            = 1
	LevelManager           = 2
	LevelViewer            = 3
	LevelEditor            = 3
	LevelClientContributor = 4
	LevelClientViewer      = 5
	LevelMember            = 6
)

// Well-known role slugs.
const (
	SlugSuperAdmin        = "super_admin"
	SlugTenant            = "tenant"
	SlugMember            = "member"
	SlugClientViewer      = "client_viewer"
	SlugClientContributor = "client_contributor"
)

// Blueprint is a synthesized role definition before it is merged into storage.
type Blueprint struct {
	Slug      string
	Name      string
	Abilities ability.Set
	Level     int
}

// Merge applies the reconciliation rule to an existing role: abilities are
// unioned and the level only ever moves towards more senior. A nil existing
// role yields the blueprint itself.
func Merge(existing *Role, bp Blueprint) ([]string, int) {
	merged := bp.Abilities.Clone()
	if merged == nil {
		merged = make(ability.Set)
	}
	if existing == nil {
		return merged.Sorted(), bp.Level
	}
	merged.Add(existing.Abilities...)
	level := bp.Level
	if existing.Level < level {
		level = existing.Level
	}
	return merged.Sorted(), level
}
