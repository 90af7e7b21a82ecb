package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/abilities/internal/observability"
	"github.com/odyssey-erp/abilities/internal/rbac"
	"github.com/odyssey-erp/abilities/internal/roles"
	"github.com/odyssey-erp/abilities/internal/tenantctx"
	"github.com/odyssey-erp/abilities/internal/tenants"
	"github.com/odyssey-erp/abilities/internal/users"
	"github.com/odyssey-erp/abilities/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Binder         tenantctx.Binder
	RBACHandler    *rbac.Handler
	TenantsHandler *tenants.Handler
	RolesHandler   *roles.Handler
	UsersHandler   *users.Handler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with the service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Binder:  params.Binder,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		if params.RBACHandler != nil {
			params.RBACHandler.MountRoutes(r)
		}
		r.Route("/tenants", func(r chi.Router) {
			if params.TenantsHandler != nil {
				params.TenantsHandler.MountRoutes(r)
			}
			if params.RolesHandler != nil {
				r.Route("/{id}/roles", params.RolesHandler.MountRoutes)
			}
			if params.UsersHandler != nil {
				r.Route("/{id}/users", params.UsersHandler.MountRoutes)
			}
		})
	})
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
