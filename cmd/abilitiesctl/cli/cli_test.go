package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/abilities/internal/ability"
	"github.com/odyssey-erp/abilities/internal/provisioning"
	"github.com/odyssey-erp/abilities/internal/rbac"
	"github.com/odyssey-erp/abilities/jobs"
)

type stubReconciler struct {
	tenants []int64
	result  provisioning.Result
	err     error
}

func (s *stubReconciler) ReconcileTenant(ctx context.Context, id int64) error {
	s.tenants = append(s.tenants, id)
	return s.err
}

func (s *stubReconciler) ReconcileAll(ctx context.Context) (provisioning.Result, error) {
	return s.result, s.err
}

type stubAuthorizer struct {
	held   ability.Set
	tenant *int64
}

func (s stubAuthorizer) AuthorizeCode(ctx context.Context, userID int64, code string, tenantID *int64) (bool, error) {
	if userID != 7 {
		return false, errors.New("user not found")
	}
	if _, err := rbac.ParseCode(code); err != nil {
		return false, err
	}
	return ability.NewClosure(s.held).AllowsAny(mustParse(code)), nil
}

func (s stubAuthorizer) UserClosure(ctx context.Context, userID int64, tenantID *int64) (ability.Closure, *int64, error) {
	return ability.NewClosure(s.held), s.tenant, nil
}

func mustParse(code string) []string {
	abilities, err := rbac.ParseCode(code)
	if err != nil {
		panic(err)
	}
	return abilities
}

type stubEnqueuer struct {
	tenant int64
	all    bool
}

func (s *stubEnqueuer) EnqueueReconcileTenant(ctx context.Context, tenantID int64) (*asynq.TaskInfo, error) {
	s.tenant = tenantID
	return &asynq.TaskInfo{ID: "t-1", Type: jobs.TaskReconcileTenant}, nil
}

func (s *stubEnqueuer) EnqueueReconcileAll(ctx context.Context) (*asynq.TaskInfo, error) {
	s.all = true
	return &asynq.TaskInfo{ID: "t-2", Type: jobs.TaskReconcileAll}, nil
}

type stubQueue struct{}

func (stubQueue) InspectQueue(ctx context.Context) (QueueStats, error) {
	return QueueStats{Queue: jobs.QueueDefault, Pending: 2, Retry: 1}, nil
}

func (stubQueue) ListScheduled(ctx context.Context, size int) ([]*asynq.TaskInfo, error) {
	return nil, nil
}

func run(t *testing.T, rt *Runtime, args ...string) (int, string, string) {
	t.Helper()
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	closed := false
	opts := Options{Stdout: stdout, Stderr: stderr}
	if rt != nil {
		rt.Close = func() error { closed = true; return nil }
		opts.Connect = func(context.Context) (*Runtime, error) { return rt, nil }
	}
	code := Execute(context.Background(), args, opts)
	if rt != nil && code != ExitError {
		require.True(t, closed, "runtime should be closed")
	}
	return code, stdout.String(), stderr.String()
}

func TestCatalogValidateEmbedded(t *testing.T) {
	code, stdout, stderr := run(t, nil, "catalog", "validate")
	require.Equal(t, ExitOK, code)
	require.Empty(t, stderr)
	require.Contains(t, stdout, "FEATURE")
	require.Contains(t, stdout, "catalog ok:")
}

func TestCatalogValidateJSON(t *testing.T) {
	code, stdout, _ := run(t, nil, "catalog", "validate", "--json")
	require.Equal(t, ExitOK, code)

	var summary catalogSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	require.NotEmpty(t, summary.Features)
	require.Positive(t, summary.Abilities)
}

func TestCatalogValidateRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yml")
	body := "features:\n  - slug: reports\n    abilities: [dashboard.view]\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	code, _, stderr := run(t, nil, "catalog", "validate", "--file", path)
	require.Equal(t, ExitError, code)
	require.Contains(t, stderr, "outside feature")
}

func TestReconcileTenant(t *testing.T) {
	rec := &stubReconciler{}
	code, stdout, _ := run(t, &Runtime{Reconciler: rec}, "reconcile", "--tenant", "42")
	require.Equal(t, ExitOK, code)
	require.Equal(t, []int64{42}, rec.tenants)
	require.Contains(t, stdout, "reconciled tenant 42")
}

func TestReconcileAllReportsFailures(t *testing.T) {
	rec := &stubReconciler{result: provisioning.Result{Tenants: 3, Failed: []int64{2}}, err: errors.New("lock busy")}
	code, stdout, stderr := run(t, &Runtime{Reconciler: rec}, "reconcile", "--all")
	require.Equal(t, ExitError, code)
	require.Contains(t, stdout, "reconciled 2 tenants, 1 failed")
	require.Contains(t, stderr, "[2]")
}

func TestReconcileRequiresExactlyOneTarget(t *testing.T) {
	for _, args := range [][]string{
		{"reconcile"},
		{"reconcile", "--all", "--tenant", "3"},
	} {
		code, _, stderr := run(t, nil, args...)
		require.Equal(t, ExitError, code)
		require.Contains(t, stderr, "exactly one")
	}
}

func TestReconcileAsyncEnqueues(t *testing.T) {
	enq := &stubEnqueuer{}
	code, stdout, _ := run(t, &Runtime{Enqueuer: enq}, "reconcile", "--tenant", "5", "--async")
	require.Equal(t, ExitOK, code)
	require.EqualValues(t, 5, enq.tenant)
	require.Contains(t, stdout, jobs.TaskReconcileTenant)

	code, _, _ = run(t, &Runtime{Enqueuer: enq}, "reconcile", "--all", "--async")
	require.Equal(t, ExitOK, code)
	require.True(t, enq.all)
}

func TestCheckExitCodes(t *testing.T) {
	authz := stubAuthorizer{held: ability.NewSet("tasks.manage")}

	code, stdout, _ := run(t, &Runtime{Authorizer: authz}, "check", "--user", "7", "--ability", "tasks.create")
	require.Equal(t, ExitOK, code)
	require.Contains(t, stdout, "allowed")

	code, stdout, _ = run(t, &Runtime{Authorizer: authz}, "check", "--user", "7", "--ability", "clients.view")
	require.Equal(t, ExitDenied, code)
	require.Contains(t, stdout, "denied")

	code, _, _ = run(t, &Runtime{Authorizer: authz}, "check", "--user", "7", "--ability", "clients.view|tasks.view")
	require.Equal(t, ExitOK, code)

	code, _, stderr := run(t, &Runtime{Authorizer: authz}, "check", "--user", "7", "--ability", "bogus")
	require.Equal(t, ExitError, code)
	require.NotEmpty(t, stderr)
}

func TestCheckListsClosure(t *testing.T) {
	tenant := int64(3)
	authz := stubAuthorizer{held: ability.NewSet("tasks.view", "dashboard.view"), tenant: &tenant}
	code, stdout, _ := run(t, &Runtime{Authorizer: authz}, "check", "--user", "7", "--list")
	require.Equal(t, ExitOK, code)
	require.Contains(t, stdout, "tenant 3")
	require.Contains(t, stdout, "dashboard.view, tasks.view")

	code, stdout, _ = run(t, &Runtime{Authorizer: stubAuthorizer{held: ability.NewSet(ability.Wildcard)}}, "check", "--user", "1", "--list")
	require.Equal(t, ExitOK, code)
	require.Contains(t, stdout, "global): all abilities")
}

func TestJobsStats(t *testing.T) {
	code, stdout, _ := run(t, &Runtime{Queue: stubQueue{}}, "jobs", "stats")
	require.Equal(t, ExitOK, code)
	require.Contains(t, stdout, "PENDING")
	require.Contains(t, stdout, jobs.QueueDefault)
}

func TestMigrateWithoutStorage(t *testing.T) {
	code, _, stderr := run(t, nil, "migrate")
	require.Equal(t, ExitError, code)
	require.Contains(t, stderr, "not configured")
}
