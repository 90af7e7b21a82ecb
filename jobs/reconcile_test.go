package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/abilities/internal/jobs"
	"github.com/odyssey-erp/abilities/internal/provisioning"
	"github.com/odyssey-erp/abilities/internal/tenants"
)

type stubReconciler struct {
	tenantErr error
	allErr    error
	result    provisioning.Result
	tenants   []int64
}

func (s *stubReconciler) ReconcileTenant(_ context.Context, id int64) error {
	s.tenants = append(s.tenants, id)
	return s.tenantErr
}

func (s *stubReconciler) ReconcileAll(context.Context) (provisioning.Result, error) {
	return s.result, s.allErr
}

func newJob(r Reconciler) *ReconcileJob {
	return NewReconcileJob(r, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
}

func TestReconcileTenantTask(t *testing.T) {
	task, err := NewReconcileTenantTask(7)
	require.NoError(t, err)
	assert.Equal(t, TaskReconcileTenant, task.Type())
	var payload ReconcileTenantPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, int64(7), payload.TenantID)

	_, err = NewReconcileTenantTask(0)
	assert.Error(t, err)
}

func TestHandleTenant(t *testing.T) {
	stub := &stubReconciler{}
	job := newJob(stub)
	task, err := NewReconcileTenantTask(3)
	require.NoError(t, err)

	require.NoError(t, job.HandleTenant(context.Background(), task))
	assert.Equal(t, []int64{3}, stub.tenants)
}

func TestHandleTenantRetrySemantics(t *testing.T) {
	task, err := NewReconcileTenantTask(3)
	require.NoError(t, err)

	err = newJob(&stubReconciler{tenantErr: tenants.ErrNotFound}).HandleTenant(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry, "unknown tenant is not retried")

	err = newJob(&stubReconciler{tenantErr: errors.New("lock held")}).HandleTenant(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)

	bad := asynq.NewTask(TaskReconcileTenant, []byte(`{"tenant_id":"x"}`))
	err = newJob(&stubReconciler{}).HandleTenant(context.Background(), bad)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleAll(t *testing.T) {
	stub := &stubReconciler{result: provisioning.Result{Tenants: 3, Failed: []int64{2}}, allErr: errors.New("tenant 2")}
	err := newJob(stub).HandleAll(context.Background(), NewReconcileAllTask())
	assert.Error(t, err)

	stub = &stubReconciler{result: provisioning.Result{Tenants: 3}}
	assert.NoError(t, newJob(stub).HandleAll(context.Background(), NewReconcileAllTask()))
}

func TestHandlersRegistered(t *testing.T) {
	handlers := newJob(&stubReconciler{}).Handlers()
	types := make([]string, 0, len(handlers))
	for _, h := range handlers {
		types = append(types, h.Type)
	}
	assert.ElementsMatch(t, []string{TaskReconcileTenant, TaskReconcileAll}, types)
}

func TestUnconfiguredJob(t *testing.T) {
	var job *ReconcileJob
	assert.Error(t, job.HandleAll(context.Background(), NewReconcileAllTask()))
}
