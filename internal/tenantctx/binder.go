package tenantctx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

// TenantHeader lets API clients pick the active tenant per request.
const TenantHeader = "X-Tenant-ID"

// SessionLoader is the part of SessionStore the binder needs.
type SessionLoader interface {
	Load(ctx context.Context, token string) (Session, error)
}

// Binder resolves the acting user and active tenant for each request.
type Binder struct {
	Sessions   SessionLoader
	CookieName string
	Logger     *slog.Logger
}

// Middleware binds user and tenant into the request context. Requests without
// a valid session pass through unauthenticated; authorization middleware
// rejects them where an ability is required.
func (b Binder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if token := b.token(r); token != "" {
			sess, err := b.Sessions.Load(ctx, token)
			switch {
			case err == nil:
				ctx = WithToken(WithUser(ctx, sess.UserID), token)
				if sess.TenantID != nil {
					ctx = WithTenant(ctx, *sess.TenantID)
				}
			case errors.Is(err, ErrSessionNotFound):
				// expired or forged token: continue anonymous
			default:
				b.logger().Error("tenantctx load session", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
		}
		if raw := strings.TrimSpace(r.Header.Get(TenantHeader)); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				http.Error(w, "invalid "+TenantHeader, http.StatusBadRequest)
				return
			}
			ctx = WithTenant(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (b Binder) token(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if b.CookieName == "" {
		return ""
	}
	cookie, err := r.Cookie(b.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (b Binder) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}
