package rbac

import (
	"strings"

	"github.com/porticohq/portico/pkg/identity"
)

// Token is a dot-namespaced permission token, e.g. "tenant.users.create".
// The leading segment is the namespace and must match the principal kind:
// "system.*" tokens are only ever granted to system roles, "tenant.*" tokens
// only to tenant roles.
type Token string

// Namespace returns the leading dot segment of the token
func (t Token) Namespace() string {
	s := string(t)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return s[:i]
	}
	return s
}

// Permission namespaces, one per principal kind
const (
	NamespaceSystem = "system"
	NamespaceTenant = "tenant"
)

// System-scope permission tokens
const (
	SystemDashboardView  Token = "system.dashboard.view"
	SystemTenantsView    Token = "system.tenants.view"
	SystemTenantsCreate  Token = "system.tenants.create"
	SystemTenantsUpdate  Token = "system.tenants.update"
	SystemTenantsSuspend Token = "system.tenants.suspend"
	SystemTenantsDelete  Token = "system.tenants.delete"
	SystemUsersView      Token = "system.users.view"
	SystemUsersCreate    Token = "system.users.create"
	SystemUsersUpdate    Token = "system.users.update"
	SystemUsersDelete    Token = "system.users.delete"
	SystemBillingView    Token = "system.billing.view"
	SystemBillingManage  Token = "system.billing.manage"
	SystemSettingsView   Token = "system.settings.view"
	SystemSettingsManage Token = "system.settings.manage"
	SystemAuditView      Token = "system.audit.view"
)

// Tenant-scope permission tokens
const (
	TenantDashboardView       Token = "tenant.dashboard.view"
	TenantUsersView           Token = "tenant.users.view"
	TenantUsersCreate         Token = "tenant.users.create"
	TenantUsersUpdate         Token = "tenant.users.update"
	TenantUsersDelete         Token = "tenant.users.delete"
	TenantBillingView         Token = "tenant.billing.view"
	TenantBillingManage       Token = "tenant.billing.manage"
	TenantSettingsView        Token = "tenant.settings.view"
	TenantSettingsManage      Token = "tenant.settings.manage"
	TenantFilesView           Token = "tenant.files.view"
	TenantFilesUpload         Token = "tenant.files.upload"
	TenantFilesDelete         Token = "tenant.files.delete"
	TenantNotificationsView   Token = "tenant.notifications.view"
	TenantNotificationsManage Token = "tenant.notifications.manage"
	TenantReportsView         Token = "tenant.reports.view"
)

// systemRolePermissions is the canonical system-kind role→permission table,
// the single source for both enforcement and matrix display.
//
// Carve-out: operator is read-mostly. It can view and update tenants but
// never suspend or delete them, and it cannot touch platform settings or
// manage billing.
var systemRolePermissions = map[identity.SystemRole][]Token{
	identity.SystemRoleAdmin: {
		SystemDashboardView,
		SystemTenantsView,
		SystemTenantsCreate,
		SystemTenantsUpdate,
		SystemTenantsSuspend,
		SystemTenantsDelete,
		SystemUsersView,
		SystemUsersCreate,
		SystemUsersUpdate,
		SystemUsersDelete,
		SystemBillingView,
		SystemBillingManage,
		SystemSettingsView,
		SystemSettingsManage,
		SystemAuditView,
	},
	identity.SystemRoleOperator: {
		SystemDashboardView,
		SystemTenantsView,
		SystemTenantsUpdate,
		SystemUsersView,
		SystemBillingView,
		SystemAuditView,
	},
}

// tenantRolePermissions is the canonical tenant-kind role→permission table.
//
// Carve-out: tenant admin can view billing but only the owner manages it
// (plan changes, payment methods). Everything else admin holds is a strict
// superset of member.
var tenantRolePermissions = map[identity.TenantRole][]Token{
	identity.TenantRoleOwner: {
		TenantDashboardView,
		TenantUsersView,
		TenantUsersCreate,
		TenantUsersUpdate,
		TenantUsersDelete,
		TenantBillingView,
		TenantBillingManage,
		TenantSettingsView,
		TenantSettingsManage,
		TenantFilesView,
		TenantFilesUpload,
		TenantFilesDelete,
		TenantNotificationsView,
		TenantNotificationsManage,
		TenantReportsView,
	},
	identity.TenantRoleAdmin: {
		TenantDashboardView,
		TenantUsersView,
		TenantUsersCreate,
		TenantUsersUpdate,
		TenantUsersDelete,
		TenantBillingView,
		TenantSettingsView,
		TenantSettingsManage,
		TenantFilesView,
		TenantFilesUpload,
		TenantFilesDelete,
		TenantNotificationsView,
		TenantNotificationsManage,
		TenantReportsView,
	},
	identity.TenantRoleMember: {
		TenantDashboardView,
		TenantFilesView,
		TenantFilesUpload,
		TenantNotificationsView,
		TenantReportsView,
	},
}

// SystemRolePermissions returns a copy of the system-kind table keyed by
// role name, for display surfaces.
func SystemRolePermissions() map[string][]Token {
	out := make(map[string][]Token, len(systemRolePermissions))
	for role, tokens := range systemRolePermissions {
		out[string(role)] = append([]Token(nil), tokens...)
	}
	return out
}

// TenantRolePermissions returns a copy of the tenant-kind table keyed by
// role name, for display surfaces.
func TenantRolePermissions() map[string][]Token {
	out := make(map[string][]Token, len(tenantRolePermissions))
	for role, tokens := range tenantRolePermissions {
		out[string(role)] = append([]Token(nil), tokens...)
	}
	return out
}
