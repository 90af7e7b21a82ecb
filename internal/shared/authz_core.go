package shared

// Platform abilities. They are not part of any tenant feature and are only
// held through global roles such as super_admin.
const (
	AbilityTenantsView        = "tenants.view"
	AbilityTenantsUpdate      = "tenants.update"
	AbilityTenantsDelete      = "tenants.delete"
	AbilityTenantsManage      = "tenants.manage"
	AbilityTenantsImpersonate = "tenants.impersonate"

	AbilityRolesView   = "roles.view"
	AbilityRolesManage = "roles.manage"
)

// CoreScopes lists the platform abilities.
func CoreScopes() []string {
	return []string{
		AbilityTenantsView,
		AbilityTenantsUpdate,
		AbilityTenantsDelete,
		AbilityTenantsManage,
		AbilityTenantsImpersonate,
		AbilityRolesView,
		AbilityRolesManage,
	}
}
