package shared

import "fmt"

// TenantRolesLockKey builds the redis key guarding role reconciliation of a tenant.
func TenantRolesLockKey(tenantID int64) string {
	return fmt.Sprintf("tenant:%d:roles:sync:lock", tenantID)
}
