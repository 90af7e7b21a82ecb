package provisioning

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/abilities/internal/catalog"
	"github.com/odyssey-erp/abilities/internal/roles"
	"github.com/odyssey-erp/abilities/internal/shared"
	"github.com/odyssey-erp/abilities/internal/tenants"
)

type tenantSource struct {
	tenants map[int64]tenants.Tenant
}

func (s tenantSource) Get(_ context.Context, id int64) (tenants.Tenant, error) {
	t, ok := s.tenants[id]
	if !ok {
		return tenants.Tenant{}, tenants.ErrNotFound
	}
	return t, nil
}

func (s tenantSource) ListIDs(context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(s.tenants))
	for id := range s.tenants {
		ids = append(ids, id)
	}
	return ids, nil
}

type roleStore struct {
	mu    sync.Mutex
	roles map[string]roles.Role
	fail  map[int64]bool
}

func newRoleStore() *roleStore {
	return &roleStore{roles: map[string]roles.Role{}, fail: map[int64]bool{}}
}

func (s *roleStore) UpsertMerge(_ context.Context, tenantID int64, bp roles.Blueprint) (roles.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[tenantID] {
		return roles.Role{}, errors.New("write failed")
	}
	key := fmt.Sprintf("%d:%s", tenantID, bp.Slug)
	var existing *roles.Role
	if r, ok := s.roles[key]; ok {
		existing = &r
	}
	abilities, level := roles.Merge(existing, bp)
	r := roles.Role{TenantID: &tenantID, Slug: bp.Slug, Name: bp.Name, Abilities: abilities, Level: level}
	s.roles[key] = r
	return r, nil
}

func (s *roleStore) get(tenantID int64, slug string) (roles.Role, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[fmt.Sprintf("%d:%s", tenantID, slug)]
	return r, ok
}

func setup(t *testing.T, ts map[int64]tenants.Tenant) (*Provisioner, *roleStore) {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	store := newRoleStore()
	synth := roles.NewSynthesizer(cat, store, nil, nil)
	return New(tenantSource{tenants: ts}, tenants.NewSelector(cat), synth, nil, WithConcurrency(2)), store
}

func TestOnTenantCreatedSeedsAndReconciles(t *testing.T) {
	tenant := tenants.Tenant{ID: 1, SelectedFeatures: []string{"tasks"}}
	p, store := setup(t, map[int64]tenants.Tenant{1: tenant})

	require.NoError(t, p.OnTenantCreated(context.Background(), tenant))

	member, ok := store.get(1, roles.SlugMember)
	require.True(t, ok)
	assert.Empty(t, member.Abilities)
	assert.Equal(t, roles.LevelMember, member.Level)

	admin, ok := store.get(1, roles.SlugTenant)
	require.True(t, ok)
	assert.Contains(t, admin.Abilities, "tasks.manage")

	viewer, ok := store.get(1, "tasks_viewer")
	require.True(t, ok)
	assert.Equal(t, []string{"tasks.view"}, viewer.Abilities)
	_, ok = store.get(1, roles.SlugClientContributor)
	assert.True(t, ok)
}

func TestFeatureChangeOnlyWidens(t *testing.T) {
	tenant := tenants.Tenant{ID: 1, SelectedFeatures: []string{"tasks", "files"}}
	p, store := setup(t, map[int64]tenants.Tenant{1: tenant})
	ctx := context.Background()
	require.NoError(t, p.OnTenantCreated(ctx, tenant))

	tenant.SelectedFeatures = []string{"tasks"}
	tenant.FeatureAbilities = map[string][]string{"tasks": {"tasks.view"}}
	require.NoError(t, p.OnTenantFeatureConfigurationChanged(ctx, tenant))

	admin, _ := store.get(1, roles.SlugTenant)
	assert.Contains(t, admin.Abilities, "files.manage", "deselected features are not revoked")
	editor, _ := store.get(1, "tasks_editor")
	assert.Contains(t, editor.Abilities, "tasks.create")
}

func TestReconcileTenantNotFound(t *testing.T) {
	p, _ := setup(t, map[int64]tenants.Tenant{})
	err := p.ReconcileTenant(context.Background(), 3)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestReconcileAllContinuesPastFailures(t *testing.T) {
	ts := map[int64]tenants.Tenant{
		1: {ID: 1, SelectedFeatures: []string{"reports"}},
		2: {ID: 2, SelectedFeatures: []string{"tasks"}},
		3: {ID: 3, SelectedFeatures: []string{"notifications"}},
	}
	p, store := setup(t, ts)
	store.fail[2] = true

	res, err := p.ReconcileAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, 3, res.Tenants)
	assert.Equal(t, []int64{2}, res.Failed)

	admin, ok := store.get(1, roles.SlugTenant)
	require.True(t, ok)
	assert.Contains(t, admin.Abilities, "reports.manage")
	_, ok = store.get(3, "notifications_manager")
	assert.True(t, ok)
}

func TestReconcileAllCancelled(t *testing.T) {
	p, _ := setup(t, map[int64]tenants.Tenant{1: {ID: 1}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.ReconcileAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
