package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/abilities/internal/platform/httpx"
	"github.com/odyssey-erp/abilities/internal/rbac"
	"github.com/odyssey-erp/abilities/internal/shared"
	"github.com/odyssey-erp/abilities/internal/tenantctx"
)

// Handler manages role assignment endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers user routes under /tenants/{id}/users.
func (h *Handler) MountRoutes(r chi.Router) {
	inTenant := rbac.TenantParam("id")
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAnyIn(inTenant, shared.AbilityRolesView, shared.AbilityRolesManage))
		r.Get("/{userID}/roles", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAbilityIn(shared.AbilityRolesManage, inTenant))
		r.Put("/{userID}/roles/{slug}", h.assign)
		r.Delete("/{userID}/roles/{slug}", h.unassign)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := parseIDs(w, r)
	if !ok {
		return
	}
	out, err := h.service.ListRoles(r.Context(), tenantID, userID)
	if err != nil {
		h.fail(w, "list user roles", tenantID, userID, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := parseIDs(w, r)
	if !ok {
		return
	}
	actorID, _ := tenantctx.UserID(r.Context())
	if err := h.service.Assign(r.Context(), actorID, tenantID, userID, chi.URLParam(r, "slug")); err != nil {
		h.fail(w, "assign role", tenantID, userID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) unassign(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := parseIDs(w, r)
	if !ok {
		return
	}
	actorID, _ := tenantctx.UserID(r.Context())
	if err := h.service.Unassign(r.Context(), actorID, tenantID, userID, chi.URLParam(r, "slug")); err != nil {
		h.fail(w, "remove role", tenantID, userID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, tenantID, userID int64, err error) {
	if !errors.Is(err, shared.ErrNotFound) && !errors.Is(err, shared.ErrForbidden) {
		h.logger.Error(msg, slog.Int64("tenant_id", tenantID), slog.Int64("user_id", userID), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func parseIDs(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	tenantID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || tenantID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Tenant", "tenant id must be a positive integer")
		return 0, 0, false
	}
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid User", "user id must be a positive integer")
		return 0, 0, false
	}
	return tenantID, userID, true
}
