package roles

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/odyssey-erp/abilities/internal/ability"
	"github.com/odyssey-erp/abilities/internal/catalog"
	"github.com/odyssey-erp/abilities/internal/shared"
	"github.com/odyssey-erp/abilities/internal/tenants"
)

// Store is the role persistence used by the synthesizer.
type Store interface {
	UpsertMerge(ctx context.Context, tenantID int64, bp Blueprint) (Role, error)
}

// Synthesizer keeps a tenant's default roles in line with its feature selection.
type Synthesizer struct {
	catalog  *catalog.Catalog
	selector *tenants.Selector
	store    Store
	locker   Locker
	logger   *slog.Logger
}

// NewSynthesizer wires the synthesizer. A nil locker disables cross-process locking.
func NewSynthesizer(cat *catalog.Catalog, store Store, locker Locker, logger *slog.Logger) *Synthesizer {
	if locker == nil {
		locker = noopLocker{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		catalog:  cat,
		selector: tenants.NewSelector(cat),
		store:    store,
		locker:   locker,
		logger:   logger,
	}
}

// EnsureSeedRoles creates the tenant administrator and member roles if missing.
func (s *Synthesizer) EnsureSeedRoles(ctx context.Context, tenantID int64) error {
	seeds := []Blueprint{
		{Slug: SlugTenant, Name: "Tenant Administrator", Level: LevelTenant},
		{Slug: SlugMember, Name: "Member", Level: LevelMember},
	}
	for _, bp := range seeds {
		if _, err := s.store.UpsertMerge(ctx, tenantID, bp); err != nil {
			return err
		}
	}
	return nil
}

// SyncDefaultRolesForFeatures merges the synthesized roles for the tenant's
// selected features into storage and widens the tenant administrator role to
// everything the tenant may grant. Existing abilities are never removed.
func (s *Synthesizer) SyncDefaultRolesForFeatures(ctx context.Context, t tenants.Tenant, abilityMap map[string]ability.Set) error {
	release, err := s.locker.Acquire(ctx, shared.TenantRolesLockKey(t.ID))
	if err != nil {
		return err
	}
	defer release()

	runID := uuid.NewString()
	logger := s.logger.With(slog.Int64("tenant_id", t.ID), slog.String("run_id", runID))
	logger.Debug("role reconciliation started", slog.Any("features", t.SelectedFeatures))

	blueprints := Blueprints(s.catalog, t.SelectedFeatures, abilityMap)
	for _, bp := range blueprints {
		if _, err := s.store.UpsertMerge(ctx, t.ID, bp); err != nil {
			return err
		}
	}

	admin := s.selector.AllowedAbilities(t)
	if t.HasFeature("reports") {
		admin.Add("reports.view", "reports.manage")
	}
	if _, err := s.store.UpsertMerge(ctx, t.ID, Blueprint{
		Slug:      SlugTenant,
		Name:      "Tenant Administrator",
		Abilities: admin,
		Level:     LevelTenant,
	}); err != nil {
		return err
	}

	logger.Info("role reconciliation finished", slog.Int("synthesized", len(blueprints)), slog.Int("admin_abilities", len(admin)))
	return nil
}
