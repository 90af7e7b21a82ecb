package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/abilities/internal/ability"
	"github.com/odyssey-erp/abilities/internal/platform/httpx"
	"github.com/odyssey-erp/abilities/internal/shared"
	"github.com/odyssey-erp/abilities/internal/tenantctx"
)

// TenantSwitcher changes the active tenant of a session.
type TenantSwitcher interface {
	SwitchTenant(ctx context.Context, token string, tenantID int64) error
}

// Handler exposes the authorization check endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	sessions TenantSwitcher
}

// NewHandler builds Handler instance. sessions may be nil, which disables
// tenant switching.
func NewHandler(logger *slog.Logger, service *Service, sessions TenantSwitcher) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, sessions: sessions}
}

// MountRoutes registers authorization routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/authorize", h.check)
	r.Get("/me/abilities", h.abilities)
	if h.sessions != nil {
		r.Put("/me/tenant", h.switchTenant)
	}
}

type checkResponse struct {
	Ability  string `json:"ability"`
	TenantID *int64 `json:"tenant_id"`
	Allowed  bool   `json:"allowed"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenantctx.UserID(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	code := r.URL.Query().Get("ability")
	tenantID := tenantctx.TenantID(r.Context())
	allowed, err := h.service.AuthorizeCode(r.Context(), userID, code, tenantID)
	if err != nil {
		if errors.Is(err, ability.ErrMalformed) {
			httpx.Problem(w, http.StatusBadRequest, "Malformed Ability", err.Error())
			return
		}
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("authorize", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, checkResponse{Ability: code, TenantID: tenantID, Allowed: allowed})
}

type abilitiesResponse struct {
	TenantID  *int64   `json:"tenant_id"`
	All       bool     `json:"all"`
	Abilities []string `json:"abilities"`
}

func (h *Handler) abilities(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenantctx.UserID(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	closure, tenantID, err := h.service.UserClosure(r.Context(), userID, tenantctx.TenantID(r.Context()))
	if err != nil {
		h.logger.Error("resolve abilities", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, abilitiesResponse{TenantID: tenantID, All: closure.All(), Abilities: closure.Held().Sorted()})
}

type switchTenantRequest struct {
	TenantID int64 `json:"tenant_id"`
}

// switchTenant binds another tenant to the session. Users may always return to
// their home tenant; any other tenant requires tenants.impersonate there.
func (h *Handler) switchTenant(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenantctx.UserID(r.Context())
	token := tenantctx.Token(r.Context())
	if !ok || token == "" {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	var req switchTenantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.TenantID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Tenant", "tenant_id must be a positive integer")
		return
	}
	user, err := h.service.repo.GetUser(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	home := user.TenantID != nil && *user.TenantID == req.TenantID
	if !home {
		allowed, err := h.service.UserHasAbility(r.Context(), user, shared.AbilityTenantsImpersonate, &req.TenantID)
		if err != nil {
			h.logger.Error("switch tenant", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		if !allowed {
			httpx.RespondError(w, shared.ErrForbidden)
			return
		}
	}
	if err := h.sessions.SwitchTenant(r.Context(), token, req.TenantID); err != nil {
		h.logger.Error("switch tenant", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("tenant switched", slog.Int64("user_id", userID), slog.Int64("tenant_id", req.TenantID), slog.Bool("impersonating", !home))
	w.WriteHeader(http.StatusNoContent)
}
