package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/abilities/internal/jobs"
	"github.com/odyssey-erp/abilities/internal/provisioning"
	"github.com/odyssey-erp/abilities/internal/shared"
)

// Reconciler describes the provisioning entry points driven by the jobs.
type Reconciler interface {
	ReconcileTenant(ctx context.Context, id int64) error
	ReconcileAll(ctx context.Context) (provisioning.Result, error)
}

// ReconcileJob runs role reconciliation in the background.
type ReconcileJob struct {
	Reconciler Reconciler
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// NewReconcileJob constructs the job handler.
func NewReconcileJob(reconciler Reconciler, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReconcileJob {
	return &ReconcileJob{Reconciler: reconciler, Logger: logger, Metrics: metrics}
}

// Handlers returns the task handlers to register on the worker.
func (j *ReconcileJob) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskReconcileTenant, Handler: j.HandleTenant},
		{Type: TaskReconcileAll, Handler: j.HandleAll},
	}
}

// HandleTenant reconciles a single tenant. Unknown tenants are not retried;
// lock contention and storage errors are.
func (j *ReconcileJob) HandleTenant(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Reconciler == nil {
		return errors.New("reconcile tenant: dependencies not configured")
	}
	var payload ReconcileTenantPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil || payload.TenantID <= 0 {
		return fmt.Errorf("reconcile tenant: invalid payload: %w", asynq.SkipRetry)
	}

	run := j.Metrics.Start(TaskReconcileTenant)
	err := j.Reconciler.ReconcileTenant(ctx, payload.TenantID)
	if err != nil {
		j.log().Error("reconcile tenant", slog.Int64("tenant_id", payload.TenantID), slog.Any("error", err))
		run.Tenants(0, 1)
		if errors.Is(err, shared.ErrNotFound) {
			return run.Finish(fmt.Errorf("%w: %w", err, asynq.SkipRetry))
		}
		return run.Finish(err)
	}
	return run.Tenants(1, 0).Finish(nil)
}

// HandleAll reconciles every tenant. The task is retried when any tenant fails;
// reconciliation is idempotent so already reconciled tenants are unaffected.
func (j *ReconcileJob) HandleAll(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Reconciler == nil {
		return errors.New("reconcile all: dependencies not configured")
	}
	run := j.Metrics.Start(TaskReconcileAll)
	res, err := j.Reconciler.ReconcileAll(ctx)
	run.Tenants(res.Tenants-len(res.Failed), len(res.Failed))
	if err != nil {
		j.log().Error("reconcile all", slog.Int("tenants", res.Tenants), slog.Any("failed", res.Failed))
	} else {
		j.log().Info("reconcile all", slog.Int("tenants", res.Tenants))
	}
	return run.Finish(err)
}

func (j *ReconcileJob) log() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
