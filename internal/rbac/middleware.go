package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/abilities/internal/platform/httpx"
	"github.com/odyssey-erp/abilities/internal/shared"
	"github.com/odyssey-erp/abilities/internal/tenantctx"
)

// Authorizer is the part of Service the middleware depends on.
type Authorizer interface {
	AuthorizeCode(ctx context.Context, userID int64, code string, tenantID *int64) (bool, error)
}

// TenantFunc extracts the tenant a request acts on.
type TenantFunc func(r *http.Request) (int64, bool)

// TenantParam reads the target tenant from a chi URL parameter.
func TenantParam(name string) TenantFunc {
	return func(r *http.Request) (int64, bool) {
		id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
		return id, err == nil && id > 0
	}
}

// Middleware wires ability checks into HTTP handlers.
type Middleware struct {
	Service Authorizer
	Logger  *slog.Logger
}

// RequireAbility guards a route with a pipe-delimited ability code checked in
// the request's bound tenant. Any listed ability grants, and so does the
// manage ability of its feature. Malformed codes panic at route registration.
func (m Middleware) RequireAbility(code string) func(http.Handler) http.Handler {
	mustParse(code)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := tenantctx.UserID(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			if m.allow(w, r, userID, code, tenantctx.TenantID(r.Context())) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// RequireAny ensures the current user has at least one of the abilities.
func (m Middleware) RequireAny(abilities ...string) func(http.Handler) http.Handler {
	return m.RequireAbility(strings.Join(abilities, "|"))
}

// RequireAbilityIn guards a route that acts on the tenant named by the
// request, usually the {id} path segment. The code is checked in that tenant's
// context. When the request is bound to a different tenant the user must also
// hold tenants.impersonate in the target tenant.
func (m Middleware) RequireAbilityIn(code string, tenantOf TenantFunc) func(http.Handler) http.Handler {
	mustParse(code)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := tenantctx.UserID(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			target, ok := tenantOf(r)
			if !ok {
				httpx.Problem(w, http.StatusBadRequest, "Invalid Tenant", "tenant id must be a positive integer")
				return
			}
			if bound := tenantctx.TenantID(r.Context()); bound != nil && *bound != target {
				if !m.allow(w, r, userID, shared.AbilityTenantsImpersonate, &target) {
					return
				}
			}
			if m.allow(w, r, userID, code, &target) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// RequireAnyIn is RequireAbilityIn for a list of abilities.
func (m Middleware) RequireAnyIn(tenantOf TenantFunc, abilities ...string) func(http.Handler) http.Handler {
	return m.RequireAbilityIn(strings.Join(abilities, "|"), tenantOf)
}

// allow writes the rejection itself and reports whether the request may continue.
func (m Middleware) allow(w http.ResponseWriter, r *http.Request, userID int64, code string, tenantID *int64) bool {
	allowed, err := m.Service.AuthorizeCode(r.Context(), userID, code, tenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, shared.ErrForbidden)
			return false
		}
		m.logger().Error("rbac require ability", slog.String("code", code), slog.Any("error", err))
		httpx.RespondError(w, err)
		return false
	}
	if !allowed {
		m.logger().Debug("rbac denied", slog.Int64("user_id", userID), slog.String("code", code))
		httpx.RespondError(w, shared.ErrForbidden)
		return false
	}
	return true
}

func mustParse(code string) {
	if _, err := ParseCode(code); err != nil {
		panic(err)
	}
}

func (m Middleware) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}
