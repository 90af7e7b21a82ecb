// Package provisioning keeps a tenant's synthesized roles in step with its
// feature configuration.
package provisioning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/abilities/internal/ability"
	"github.com/odyssey-erp/abilities/internal/tenants"
)

// TenantSource loads tenants for reconciliation.
type TenantSource interface {
	Get(ctx context.Context, id int64) (tenants.Tenant, error)
	ListIDs(ctx context.Context) ([]int64, error)
}

// RoleSynthesizer writes the default roles of a tenant.
type RoleSynthesizer interface {
	EnsureSeedRoles(ctx context.Context, tenantID int64) error
	SyncDefaultRolesForFeatures(ctx context.Context, t tenants.Tenant, abilityMap map[string]ability.Set) error
}

// Provisioner runs Selector then Synthesizer for a tenant. It implements
// tenants.ConfigurationListener.
type Provisioner struct {
	source      TenantSource
	selector    *tenants.Selector
	synth       RoleSynthesizer
	logger      *slog.Logger
	concurrency int
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithConcurrency bounds the number of tenants reconciled at once by ReconcileAll.
func WithConcurrency(n int) Option {
	return func(p *Provisioner) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// New constructs a Provisioner.
func New(source TenantSource, selector *tenants.Selector, synth RoleSynthesizer, logger *slog.Logger, opts ...Option) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Provisioner{source: source, selector: selector, synth: synth, logger: logger, concurrency: 4}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OnTenantCreated seeds the administrator and member roles, then reconciles.
func (p *Provisioner) OnTenantCreated(ctx context.Context, t tenants.Tenant) error {
	if err := p.synth.EnsureSeedRoles(ctx, t.ID); err != nil {
		return fmt.Errorf("provisioning: seed roles for tenant %d: %w", t.ID, err)
	}
	return p.reconcile(ctx, t)
}

// OnTenantFeatureConfigurationChanged reconciles the tenant's roles against its
// new feature configuration.
func (p *Provisioner) OnTenantFeatureConfigurationChanged(ctx context.Context, t tenants.Tenant) error {
	return p.reconcile(ctx, t)
}

// ReconcileTenant reloads the tenant and reconciles its roles.
func (p *Provisioner) ReconcileTenant(ctx context.Context, id int64) error {
	t, err := p.source.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("provisioning: load tenant %d: %w", id, err)
	}
	if err := p.synth.EnsureSeedRoles(ctx, t.ID); err != nil {
		return fmt.Errorf("provisioning: seed roles for tenant %d: %w", t.ID, err)
	}
	return p.reconcile(ctx, t)
}

// Result summarises a ReconcileAll run.
type Result struct {
	Tenants int
	Failed  []int64
}

// ReconcileAll reconciles every tenant. A failing tenant does not stop the
// others; the joined errors are returned alongside the result.
func (p *Provisioner) ReconcileAll(ctx context.Context) (Result, error) {
	ids, err := p.source.ListIDs(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("provisioning: list tenants: %w", err)
	}
	errs := make([]error, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = p.ReconcileTenant(gctx, id)
			return nil
		})
	}
	_ = g.Wait()

	res := Result{Tenants: len(ids)}
	for i, err := range errs {
		if err != nil {
			res.Failed = append(res.Failed, ids[i])
			p.logger.Error("reconcile tenant", slog.Int64("tenant_id", ids[i]), slog.Any("error", err))
		}
	}
	p.logger.Info("reconcile all finished", slog.Int("tenants", res.Tenants), slog.Int("failed", len(res.Failed)))
	return res, errors.Join(errs...)
}

func (p *Provisioner) reconcile(ctx context.Context, t tenants.Tenant) error {
	abilityMap := p.selector.SelectedFeatureAbilities(t)
	if err := p.synth.SyncDefaultRolesForFeatures(ctx, t, abilityMap); err != nil {
		return fmt.Errorf("provisioning: reconcile tenant %d: %w", t.ID, err)
	}
	return nil
}
