package tenants

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

// Handler exposes tenant configuration endpoints.
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

// MountRoutes registers tenant routes. Routes under /{id} are authorized in
// the context of that tenant.
func (h *Handler) MountRoutes(r chi.Router) {
	inTenant := rbac.TenantParam("id")
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAbility(shared.AbilityTenantsManage))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAbilityIn(shared.AbilityTenantsView, inTenant))
		r.Get("/{id}", h.show)
		r.Get("/{id}/abilities", h.abilities)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAnyIn(inTenant, shared.AbilityTenantsUpdate, shared.AbilityTenantsManage))
		r.Put("/{id}/features", h.updateFeatures)
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	t, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "create tenant", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := tenantID(w, r)
	if !ok {
		return
	}
	t, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get tenant", err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) updateFeatures(w http.ResponseWriter, r *http.Request) {
	id, ok := tenantID(w, r)
	if !ok {
		return
	}
	var in FeatureConfig
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	t, err := h.service.UpdateFeatures(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update tenant features", err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

type abilitiesResponse struct {
	TenantID  int64    `json:"tenant_id"`
	Abilities []string `json:"abilities"`
}

func (h *Handler) abilities(w http.ResponseWriter, r *http.Request) {
	id, ok := tenantID(w, r)
	if !ok {
		return
	}
	allowed, err := h.service.AllowedAbilities(r.Context(), id)
	if err != nil {
		h.fail(w, "tenant abilities", err)
		return
	}
	httpx.JSON(w, http.StatusOK, abilitiesResponse{TenantID: id, Abilities: allowed})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		httpx.JSON(w, http.StatusBadRequest, map[string]any{
			"title":  "Validation Failed",
			"status": http.StatusBadRequest,
			"fields": verr.Fields,
		})
		return
	}
	if !errors.Is(err, shared.ErrNotFound) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func tenantID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Tenant", "tenant id must be a positive integer")
		return 0, false
	}
	return id, true
}
