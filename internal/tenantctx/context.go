// Package tenantctx binds the acting user and the active tenant to a request.
// The values travel in the request context and are passed explicitly to the
// resolver; there is no process-wide current tenant.
package tenantctx

import "context"

type userKey struct{}

type tenantKey struct{}

type tokenKey struct{}

// WithUser stores the acting user id.
func WithUser(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserID returns the acting user id.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userKey{}).(int64)
	return id, ok
}

// WithTenant stores the active tenant id.
func WithTenant(ctx context.Context, tenantID int64) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

// TenantID returns the active tenant or nil when none is bound, in which case
// the user's home tenant applies.
func TenantID(ctx context.Context) *int64 {
	id, ok := ctx.Value(tenantKey{}).(int64)
	if !ok {
		return nil
	}
	return &id
}

// WithToken stores the session token the request authenticated with.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// Token returns the session token, or "" for anonymous requests.
func Token(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}
