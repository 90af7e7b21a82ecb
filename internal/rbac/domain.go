package rbac

import "time"

// User is the subject of an authorization check. TenantID is the user's home
// tenant and the default context for resolution.
type User struct {
	ID       int64
	TenantID *int64
}

// Assignment links a user to a role within an assignment tenant context. A
// nil TenantID is a global assignment, valid in every tenant context.
type Assignment struct {
	UserID    int64
	RoleID    int64
	TenantID  *int64
	CreatedAt time.Time
}

// Membership is an assignment joined with the abilities of its role.
type Membership struct {
	RoleID    int64
	RoleSlug  string
	TenantID  *int64
	Abilities []string
}
