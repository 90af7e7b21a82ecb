package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/odyssey-erp/abilities/cmd/abilitiesctl/cli"
	"github.com/odyssey-erp/abilities/internal/app"
	"github.com/odyssey-erp/abilities/internal/platform/cache"
	"github.com/odyssey-erp/abilities/internal/platform/db"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

func run(ctx context.Context) int {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return cli.ExitError
	}
	logger := app.NewLogger(cfg)

	return cli.Execute(ctx, os.Args[1:], cli.Options{
		CatalogPath: cfg.CatalogPath,
		Migrate: func() error {
			return db.Migrate(cfg.PGDSN, logger)
		},
		Connect: func(ctx context.Context) (*cli.Runtime, error) {
			services, err := app.Bootstrap(ctx, cfg, logger, nil)
			if err != nil {
				return nil, err
			}
			inspector := cli.NewJobsInspector(cache.AsynqOpt(cfg.RedisAddr))
			return &cli.Runtime{
				Reconciler: services.Provisioner,
				Authorizer: services.RBAC,
				Enqueuer:   services.Queue,
				Queue:      inspector,
				Close: func() error {
					return errors.Join(inspector.Close(), services.Close())
				},
			}, nil
		},
	})
}
