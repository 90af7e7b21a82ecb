package roles

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/abilities/internal/platform/httpx"
	"github.com/odyssey-erp/abilities/internal/rbac"
	"github.com/odyssey-erp/abilities/internal/shared"
)

// Handler exposes tenant role listings.
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

// MountRoutes registers role routes under /tenants/{id}/roles.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAnyIn(rbac.TenantParam("id"), shared.AbilityRolesView, shared.AbilityRolesManage))
		r.Get("/", h.list)
		r.Get("/{slug}", h.show)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := parseTenant(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListRoles(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("list roles", slog.Int64("tenant_id", tenantID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if list == nil {
		list = []Role{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := parseTenant(w, r)
	if !ok {
		return
	}
	role, err := h.service.FindBySlug(r.Context(), tenantID, chi.URLParam(r, "slug"))
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("find role", slog.Int64("tenant_id", tenantID), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func parseTenant(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Tenant", "tenant id must be a positive integer")
		return 0, false
	}
	return id, true
}
