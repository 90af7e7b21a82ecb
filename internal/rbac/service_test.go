package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/abilities/internal/ability"
	"github.com/odyssey-erp/abilities/internal/shared"
)

type fakeRepo struct {
	users       map[int64]User
	memberships map[int64][]Membership
	// leaky skips the tenant filter so the in-code isolation check is exercised.
	leaky bool
	err   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: map[int64]User{}, memberships: map[int64][]Membership{}}
}

func (f *fakeRepo) GetUser(_ context.Context, id int64) (User, error) {
	u, ok := f.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (f *fakeRepo) Memberships(_ context.Context, userID int64, tenantID *int64) ([]Membership, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []Membership
	for _, m := range f.memberships[userID] {
		if f.leaky || m.TenantID == nil || (tenantID != nil && *m.TenantID == *tenantID) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeRepo) grant(userID int64, tenantID *int64, abilities ...string) {
	f.memberships[userID] = append(f.memberships[userID], Membership{
		RoleID:    int64(len(f.memberships[userID]) + 1),
		TenantID:  tenantID,
		Abilities: abilities,
	})
}

type countingRecorder struct {
	allowed, denied, failed int
}

func (c *countingRecorder) ObserveDecision(allowed bool, err error) {
	switch {
	case err != nil:
		c.failed++
	case allowed:
		c.allowed++
	default:
		c.denied++
	}
}

func ptr(v int64) *int64 { return &v }

func TestWildcardAllowsEverything(t *testing.T) {
	repo := newFakeRepo()
	repo.users[1] = User{ID: 1}
	repo.grant(1, nil, ability.Wildcard)
	svc := NewService(repo, nil, nil)

	for _, a := range []string{"tasks.view", "tenants.delete", "anything.at.all"} {
		ok, err := svc.UserHasAbility(context.Background(), repo.users[1], a, ptr(9))
		require.NoError(t, err)
		assert.True(t, ok, a)
	}
}

func TestManageGrantsWithinFeatureOnly(t *testing.T) {
	repo := newFakeRepo()
	repo.users[1] = User{ID: 1, TenantID: ptr(1)}
	repo.grant(1, ptr(1), "tasks.manage")
	svc := NewService(repo, nil, nil)
	user := repo.users[1]

	ok, err := svc.UserHasAbility(context.Background(), user, "tasks.create", nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.UserHasAbility(context.Background(), user, "files.view", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSpecificAbilityDoesNotImplyManage(t *testing.T) {
	repo := newFakeRepo()
	repo.users[1] = User{ID: 1, TenantID: ptr(1)}
	repo.grant(1, ptr(1), "tasks.view")
	svc := NewService(repo, nil, nil)

	ok, err := svc.UserHasAbility(context.Background(), repo.users[1], "tasks.manage", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTenantIsolation(t *testing.T) {
	for _, leaky := range []bool{false, true} {
		repo := newFakeRepo()
		repo.leaky = leaky
		repo.users[1] = User{ID: 1, TenantID: ptr(1)}
		repo.grant(1, ptr(1), "tasks.manage")
		repo.grant(1, nil, "notifications.view")
		svc := NewService(repo, nil, nil)
		user := repo.users[1]

		ok, err := svc.UserHasAbility(context.Background(), user, "tasks.view", ptr(2))
		require.NoError(t, err)
		assert.False(t, ok, "tenant 1 assignment must not apply in tenant 2 (leaky=%v)", leaky)

		ok, err = svc.UserHasAbility(context.Background(), user, "notifications.view", ptr(2))
		require.NoError(t, err)
		assert.True(t, ok, "global assignment applies everywhere")

		ok, err = svc.UserHasAbility(context.Background(), user, "tasks.view", ptr(1))
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestNilTenantUsesHomeTenant(t *testing.T) {
	repo := newFakeRepo()
	repo.users[1] = User{ID: 1, TenantID: ptr(3)}
	repo.grant(1, ptr(3), "files.view")
	svc := NewService(repo, nil, nil)

	held, err := svc.ResolveAbilities(context.Background(), repo.users[1], nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"files.view"}, held.Sorted())
}

func TestUserWithoutTenantResolvesGlobalOnly(t *testing.T) {
	repo := newFakeRepo()
	repo.leaky = true
	repo.users[1] = User{ID: 1}
	repo.grant(1, ptr(3), "files.view")
	repo.grant(1, nil, "tenants.view")
	svc := NewService(repo, nil, nil)

	held, err := svc.ResolveAbilities(context.Background(), repo.users[1], nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"tenants.view"}, held.Sorted())
}

func TestReportsViewImpliesDashboard(t *testing.T) {
	repo := newFakeRepo()
	repo.users[1] = User{ID: 1, TenantID: ptr(1)}
	repo.grant(1, ptr(1), "reports.view")
	svc := NewService(repo, nil, nil)

	ok, err := svc.UserHasAbility(context.Background(), repo.users[1], "dashboard.view", nil)
	require.NoError(t, err)
	assert.True(t, ok)

	repo2 := newFakeRepo()
	repo2.users[1] = User{ID: 1, TenantID: ptr(1)}
	repo2.grant(1, ptr(1), "dashboard.view")
	ok, err = NewService(repo2, nil, nil).UserHasAbility(context.Background(), repo2.users[1], "reports.view", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTenantsManageBundle(t *testing.T) {
	repo := newFakeRepo()
	repo.users[1] = User{ID: 1}
	repo.grant(1, nil, shared.AbilityTenantsManage)
	svc := NewService(repo, nil, nil)

	for _, a := range []string{"tenants.delete", "tenants.update", "tenants.impersonate", "tenants.view"} {
		ok, err := svc.UserHasAbility(context.Background(), repo.users[1], a, nil)
		require.NoError(t, err)
		assert.True(t, ok, a)
	}
}

func TestAuthorizeCodeAnyOf(t *testing.T) {
	repo := newFakeRepo()
	repo.users[1] = User{ID: 1, TenantID: ptr(1)}
	repo.grant(1, ptr(1), "reports.view")
	rec := &countingRecorder{}
	svc := NewService(repo, rec, nil)

	ok, err := svc.AuthorizeCode(context.Background(), 1, "tasks.view | reports.view", nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.AuthorizeCode(context.Background(), 1, "tasks.view|files.view", nil)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 1, rec.allowed)
	assert.Equal(t, 1, rec.denied)
}

func TestAuthorizeRejectsMalformed(t *testing.T) {
	repo := newFakeRepo()
	repo.users[1] = User{ID: 1}
	rec := &countingRecorder{}
	svc := NewService(repo, rec, nil)

	for _, code := range []string{"", "tasks", "tasks.view|", "Tasks.View", "tasks..view"} {
		_, err := svc.AuthorizeCode(context.Background(), 1, code, nil)
		assert.ErrorIs(t, err, ability.ErrMalformed, code)
	}
	_, err := svc.Authorize(context.Background(), 1, "nope", nil)
	assert.ErrorIs(t, err, ability.ErrMalformed)
	assert.Equal(t, 6, rec.failed)
}

func TestUnknownUser(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, nil)
	_, err := svc.Authorize(context.Background(), 42, "tasks.view", nil)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestStorageErrorPropagates(t *testing.T) {
	repo := newFakeRepo()
	repo.users[1] = User{ID: 1}
	repo.err = errors.New("connection reset")
	svc := NewService(repo, nil, nil)

	ok, err := svc.Authorize(context.Background(), 1, "tasks.view", nil)
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestUserClosureReportsBoundTenant(t *testing.T) {
	repo := newFakeRepo()
	repo.users[1] = User{ID: 1, TenantID: ptr(4)}
	repo.grant(1, ptr(4), "clients.view", "clients.client.view")
	svc := NewService(repo, nil, nil)

	closure, tenantID, err := svc.UserClosure(context.Background(), 1, nil)
	require.NoError(t, err)
	require.NotNil(t, tenantID)
	assert.Equal(t, int64(4), *tenantID)
	assert.False(t, closure.All())
	assert.Equal(t, []string{"clients.client.view", "clients.view"}, closure.Held().Sorted())
}

func TestParseCode(t *testing.T) {
	codes, err := ParseCode("tasks.view|reports.manage")
	require.NoError(t, err)
	assert.Equal(t, []string{"tasks.view", "reports.manage"}, codes)

	codes, err = ParseCode("*")
	require.NoError(t, err)
	assert.Equal(t, []string{"*"}, codes)
}
