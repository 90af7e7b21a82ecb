package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/abilities/internal/app"
	"github.com/odyssey-erp/abilities/internal/observability"
	"github.com/odyssey-erp/abilities/internal/platform/cache"
	"github.com/odyssey-erp/abilities/internal/rbac"
	"github.com/odyssey-erp/abilities/internal/roles"
	"github.com/odyssey-erp/abilities/internal/tenantctx"
	"github.com/odyssey-erp/abilities/internal/tenants"
	"github.com/odyssey-erp/abilities/internal/users"
	"github.com/odyssey-erp/abilities/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	metrics := observability.NewMetrics()

	services, err := app.Bootstrap(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("bootstrap", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := services.Close(); err != nil {
			logger.Warn("close services", slog.Any("error", err))
		}
	}()
	logger.Info("catalog loaded", slog.Int("features", len(services.Catalog.Features())))

	rbacMiddleware := rbac.Middleware{Service: services.RBAC, Logger: logger}

	inspector := asynq.NewInspector(cache.AsynqOpt(cfg.RedisAddr))
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger: logger,
		Config: cfg,
		Binder: tenantctx.Binder{
			Sessions:   services.Sessions,
			CookieName: cfg.SessionCookie,
			Logger:     logger,
		},
		RBACHandler:    rbac.NewHandler(logger, services.RBAC, services.Sessions),
		TenantsHandler: tenants.NewHandler(logger, services.Tenants, rbacMiddleware),
		RolesHandler:   roles.NewHandler(logger, services.Roles, rbacMiddleware),
		UsersHandler:   users.NewHandler(logger, services.Users, rbacMiddleware),
		JobHandler:     jobs.NewHandler(inspector, logger),
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
