package users

import "time"

// User is an account that can be granted roles.
type User struct {
	ID        int64     `json:"id"`
	TenantID  *int64    `json:"tenant_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// AssignedRole is a role the user holds in a tenant context. Global is true
// when the assignment itself carries no tenant and applies everywhere.
type AssignedRole struct {
	RoleID int64  `json:"role_id"`
	Slug   string `json:"slug"`
	Name   string `json:"name"`
	Level  int    `json:"level"`
	Global bool   `json:"global"`
}

// Roles is the response for a user's assignments within a tenant.
type Roles struct {
	User     User           `json:"user"`
	TenantID int64          `json:"tenant_id"`
	Roles    []AssignedRole `json:"roles"`
}
