package jobs

import (
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReconcileTenant reconciles the default roles of one tenant.
	TaskReconcileTenant = "roles:reconcile_tenant"
	// TaskReconcileAll reconciles the default roles of every tenant.
	TaskReconcileAll = "roles:reconcile_all"
)

// ReconcileTenantPayload identifies the tenant to reconcile.
type ReconcileTenantPayload struct {
	TenantID int64 `json:"tenant_id"`
}

// NewReconcileTenantTask constructs an Asynq task.
func NewReconcileTenantTask(tenantID int64) (*asynq.Task, error) {
	if tenantID <= 0 {
		return nil, errors.New("jobs: tenant id must be positive")
	}
	data, err := json.Marshal(ReconcileTenantPayload{TenantID: tenantID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReconcileTenant, data, asynq.Queue(QueueDefault)), nil
}

// NewReconcileAllTask constructs the task resynchronising every tenant.
func NewReconcileAllTask() *asynq.Task {
	return asynq.NewTask(TaskReconcileAll, nil, asynq.Queue(QueueDefault))
}
