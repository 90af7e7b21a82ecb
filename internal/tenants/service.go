package tenants

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/odyssey-erp/abilities/internal/ability"
	"github.com/odyssey-erp/abilities/internal/catalog"
)

// RepositoryPort defines data access methods for tenants.
type RepositoryPort interface {
	Create(ctx context.Context, name string, cfg FeatureConfig) (Tenant, error)
	Get(ctx context.Context, id int64) (Tenant, error)
	UpdateFeatures(ctx context.Context, id int64, cfg FeatureConfig) (Tenant, error)
	ListIDs(ctx context.Context) ([]int64, error)
}

// ConfigurationListener is notified after a tenant's feature configuration is
// written: once on creation and on every feature update.
type ConfigurationListener interface {
	OnTenantCreated(ctx context.Context, t Tenant) error
	OnTenantFeatureConfigurationChanged(ctx context.Context, t Tenant) error
}

// ReconcileScheduler queues a reconciliation to run outside the request.
type ReconcileScheduler interface {
	ScheduleReconcile(ctx context.Context, tenantID int64) error
}

// Service handles tenant business logic.
type Service struct {
	repo      RepositoryPort
	selector  *Selector
	validator *configValidator
	listener  ConfigurationListener
	fallback  ReconcileScheduler
	logger    *slog.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithReconcileFallback queues a reconciliation when the listener fails after
// the configuration was saved. The request then succeeds and the worker
// retries the reconciliation.
func WithReconcileFallback(scheduler ReconcileScheduler) Option {
	return func(s *Service) {
		s.fallback = scheduler
	}
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, cat *catalog.Catalog, listener ConfigurationListener, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:      repo,
		selector:  NewSelector(cat),
		validator: newConfigValidator(cat),
		listener:  listener,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a tenant by id.
func (s *Service) Get(ctx context.Context, id int64) (Tenant, error) {
	return s.repo.Get(ctx, id)
}

// ListIDs returns every tenant id.
func (s *Service) ListIDs(ctx context.Context) ([]int64, error) {
	return s.repo.ListIDs(ctx)
}

// Create validates and persists a tenant, then notifies the listener.
func (s *Service) Create(ctx context.Context, in CreateInput) (Tenant, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Tenant{}, &ValidationError{Fields: map[string]string{"name": "required"}}
	}
	cfg, err := s.validator.check(in.FeatureConfig)
	if err != nil {
		return Tenant{}, err
	}
	t, err := s.repo.Create(ctx, name, cfg)
	if err != nil {
		return Tenant{}, err
	}
	s.logger.Info("tenant created", slog.Int64("tenant_id", t.ID), slog.Any("features", t.SelectedFeatures))
	if s.listener == nil {
		return t, nil
	}
	return t, s.settle(ctx, t, s.listener.OnTenantCreated(ctx, t))
}

// UpdateFeatures replaces the tenant's feature configuration. The row is only
// rewritten when the selection or the overrides changed, but the listener runs
// on every call so resubmitting a configuration repairs roles left stale by an
// earlier failed reconciliation.
func (s *Service) UpdateFeatures(ctx context.Context, id int64, in FeatureConfig) (Tenant, error) {
	cfg, err := s.validator.check(in)
	if err != nil {
		return Tenant{}, err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Tenant{}, err
	}
	updated := current
	if !sameConfig(current, cfg) {
		updated, err = s.repo.UpdateFeatures(ctx, id, cfg)
		if err != nil {
			return Tenant{}, err
		}
		s.logger.Info("tenant features updated", slog.Int64("tenant_id", id), slog.Any("features", updated.SelectedFeatures))
	}
	if s.listener == nil {
		return updated, nil
	}
	return updated, s.settle(ctx, updated, s.listener.OnTenantFeatureConfigurationChanged(ctx, updated))
}

// settle hands a failed reconciliation to the fallback scheduler. The
// configuration is already saved, so only a failure to queue is returned.
func (s *Service) settle(ctx context.Context, t Tenant, err error) error {
	if err == nil {
		return nil
	}
	if s.fallback == nil {
		return err
	}
	if qerr := s.fallback.ScheduleReconcile(ctx, t.ID); qerr != nil {
		return errors.Join(err, fmt.Errorf("tenants: schedule reconcile: %w", qerr))
	}
	s.logger.Warn("reconcile deferred to worker", slog.Int64("tenant_id", t.ID), slog.Any("error", err))
	return nil
}

// AllowedAbilities returns the sorted effective abilities of a tenant.
func (s *Service) AllowedAbilities(ctx context.Context, id int64) ([]string, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.selector.AllowedAbilities(t).Sorted(), nil
}

func sameConfig(t Tenant, cfg FeatureConfig) bool {
	if !ability.NewSet(t.SelectedFeatures...).Equal(ability.NewSet(cfg.Features...)) {
		return false
	}
	if (t.FeatureAbilities == nil) != (cfg.FeatureAbilities == nil) {
		return false
	}
	if len(t.FeatureAbilities) != len(cfg.FeatureAbilities) {
		return false
	}
	for feature, stored := range t.FeatureAbilities {
		requested, ok := cfg.FeatureAbilities[feature]
		if !ok {
			return false
		}
		a, b := slices.Clone(stored), slices.Clone(requested)
		slices.Sort(a)
		slices.Sort(b)
		if !slices.Equal(slices.Compact(a), slices.Compact(b)) {
			return false
		}
	}
	return true
}
