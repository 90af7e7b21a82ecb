package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/abilities/internal/catalog"
	"github.com/odyssey-erp/abilities/internal/observability"
	"github.com/odyssey-erp/abilities/internal/platform/cache"
	"github.com/odyssey-erp/abilities/internal/platform/db"
	"github.com/odyssey-erp/abilities/internal/provisioning"
	"github.com/odyssey-erp/abilities/internal/rbac"
	"github.com/odyssey-erp/abilities/internal/roles"
	"github.com/odyssey-erp/abilities/internal/tenantctx"
	"github.com/odyssey-erp/abilities/internal/tenants"
	"github.com/odyssey-erp/abilities/internal/users"
	"github.com/odyssey-erp/abilities/jobs"
)

// Services holds the engine components shared by the server, the worker and
// the operator CLI.
type Services struct {
	Catalog     *catalog.Catalog
	Pool        *pgxpool.Pool
	Redis       *redis.Client
	Tenants     *tenants.Service
	Roles       *roles.Service
	Provisioner *provisioning.Provisioner
	RBAC        *rbac.Service
	Users       *users.Service
	Sessions    *tenantctx.SessionStore
	Queue       *jobs.Client
}

// Bootstrap loads the catalogue, connects storage and wires the engine.
// metrics may be nil.
func Bootstrap(ctx context.Context, cfg *Config, logger *slog.Logger, metrics *observability.Metrics) (*Services, error) {
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("app: load catalog: %w", err)
	}
	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.PGDSN, logger); err != nil {
			return nil, err
		}
	}
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return nil, err
	}
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		pool.Close()
		return nil, err
	}

	tenantRepo := tenants.NewRepository(pool)
	roleRepo := roles.NewRepository(pool, cfg.ReconcileMaxAttempts)
	locker := roles.NewRedisLocker(redisClient, cfg.ReconcileLockTTL, cfg.ReconcileLockWait)
	synth := roles.NewSynthesizer(cat, roleRepo, locker, logger)
	provisioner := provisioning.New(tenantRepo, tenants.NewSelector(cat), synth, logger,
		provisioning.WithConcurrency(cfg.ReconcileConcurrency))
	queue := jobs.NewClient(cache.AsynqOpt(cfg.RedisAddr), cfg.ReconcileMaxAttempts)
	tenantService := tenants.NewService(tenantRepo, cat, provisioner, logger, tenants.WithReconcileFallback(queue))

	var recorder rbac.DecisionRecorder
	if metrics != nil {
		recorder = metrics
	}
	rbacRepo := rbac.NewRepository(pool)

	return &Services{
		Catalog:     cat,
		Pool:        pool,
		Redis:       redisClient,
		Tenants:     tenantService,
		Roles:       roles.NewService(roleRepo),
		Provisioner: provisioner,
		RBAC:        rbac.NewService(rbacRepo, recorder, logger),
		Users:       users.NewService(users.NewRepository(pool), roleRepo, rbacRepo, logger),
		Sessions:    tenantctx.NewSessionStore(redisClient, cfg.SessionTTL),
		Queue:       queue,
	}, nil
}

// Close releases storage and queue connections.
func (s *Services) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.Queue != nil {
		errs = append(errs, s.Queue.Close())
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
	if s.Redis != nil {
		errs = append(errs, s.Redis.Close())
	}
	return errors.Join(errs...)
}
