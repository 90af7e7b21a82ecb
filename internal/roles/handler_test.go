package roles

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/abilities/internal/rbac"
	"github.com/odyssey-erp/abilities/internal/tenantctx"
)

type listRepo struct {
	roles []Role
}

func (l listRepo) ListByTenant(_ context.Context, tenantID int64) ([]Role, error) {
	var out []Role
	for _, r := range l.roles {
		if r.TenantID == nil || *r.TenantID == tenantID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (l listRepo) FindBySlug(_ context.Context, tenantID int64, slug string) (Role, error) {
	for _, r := range l.roles {
		if r.TenantID != nil && *r.TenantID == tenantID && r.Slug == slug {
			return r, nil
		}
	}
	return Role{}, ErrNotFound
}

type viewerUsers struct{}

func (viewerUsers) GetUser(_ context.Context, id int64) (rbac.User, error) {
	return rbac.User{ID: id}, nil
}

func (viewerUsers) Memberships(_ context.Context, userID int64, _ *int64) ([]rbac.Membership, error) {
	tenant := int64(4)
	switch userID {
	case 1:
		return []rbac.Membership{{Abilities: []string{"roles.view"}}}, nil
	case 3:
		return []rbac.Membership{{TenantID: &tenant, Abilities: []string{"roles.manage"}}}, nil
	}
	return nil, nil
}

func TestRolesHandler(t *testing.T) {
	tenant := int64(4)
	repo := listRepo{roles: []Role{
		{ID: 1, Slug: SlugSuperAdmin, Abilities: []string{"*"}},
		{ID: 2, TenantID: &tenant, Slug: "tasks_viewer", Abilities: []string{"tasks.view"}, Level: LevelViewer},
	}}
	mw := rbac.Middleware{Service: rbac.NewService(viewerUsers{}, nil, nil)}
	router := chi.NewRouter()
	router.Route("/tenants/{id}/roles", NewHandler(nil, NewService(repo), mw).MountRoutes)

	get := func(path string, userID int64) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req = req.WithContext(tenantctx.WithUser(req.Context(), userID))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	rr := get("/tenants/4/roles", 1)
	require.Equal(t, http.StatusOK, rr.Code)
	var list []Role
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	rr = get("/tenants/4/roles/tasks_viewer", 1)
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, http.StatusNotFound, get("/tenants/4/roles/missing", 1).Code)
	assert.Equal(t, http.StatusForbidden, get("/tenants/4/roles", 2).Code)
	assert.Equal(t, http.StatusBadRequest, get("/tenants/x/roles", 1).Code)
}

func TestRolesHandlerAuthorizesInPathTenant(t *testing.T) {
	tenantA, tenantB := int64(4), int64(5)
	repo := listRepo{roles: []Role{
		{ID: 2, TenantID: &tenantA, Slug: "tasks_viewer", Abilities: []string{"tasks.view"}, Level: LevelViewer},
		{ID: 3, TenantID: &tenantB, Slug: "tasks_viewer", Abilities: []string{"tasks.view"}, Level: LevelViewer},
	}}
	mw := rbac.Middleware{Service: rbac.NewService(viewerUsers{}, nil, nil)}
	router := chi.NewRouter()
	router.Route("/tenants/{id}/roles", NewHandler(nil, NewService(repo), mw).MountRoutes)

	get := func(path string, bound *int64) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		ctx := tenantctx.WithUser(req.Context(), 3)
		if bound != nil {
			ctx = tenantctx.WithTenant(ctx, *bound)
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req.WithContext(ctx))
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, get("/tenants/4/roles", &tenantA))
	assert.Equal(t, http.StatusForbidden, get("/tenants/5/roles", &tenantA))
	assert.Equal(t, http.StatusForbidden, get("/tenants/5/roles/tasks_viewer", nil))
	assert.Equal(t, http.StatusForbidden, get("/tenants/5/roles", &tenantB), "binding to 5 does not carry the grant held in 4")
}
