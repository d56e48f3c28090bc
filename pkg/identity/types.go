package identity

import (
	"time"

	"github.com/google/uuid"
)

// SystemRole represents platform-staff roles
type SystemRole string

const (
	SystemRoleAdmin    SystemRole = "admin"    // Full platform access
	SystemRoleOperator SystemRole = "operator" // Day-to-day platform operations
)

// TenantRole represents roles inside a business-organization tenant
type TenantRole string

const (
	TenantRoleOwner  TenantRole = "owner"  // Full access including billing
	TenantRoleAdmin  TenantRole = "admin"  // Administers the tenant
	TenantRoleMember TenantRole = "member" // Regular tenant user
)

// Kind discriminates between the two principal variants
type Kind string

const (
	KindSystem Kind = "system"
	KindTenant Kind = "tenant"
)

// Principal is the authenticated actor. Exactly one of SystemRole/TenantRole
// is set; the variant is decided by TenantID nullity, never by which role
// field happens to be populated (role fields may be absent for legacy rows).
type Principal struct {
	ID          uuid.UUID   `json:"id"`
	Email       string      `json:"email"`
	FullName    string      `json:"full_name"`
	TenantID    *uuid.UUID  `json:"tenant_id,omitempty"`
	SystemRole  *SystemRole `json:"system_role,omitempty"`
	TenantRole  *TenantRole `json:"tenant_role,omitempty"`
	IsActive    bool        `json:"is_active"`
	IsVerified  bool        `json:"is_verified"`
	CreatedAt   time.Time   `json:"created_at"`
	LastLoginAt *time.Time  `json:"last_login_at,omitempty"`
}

// Tenant represents the business organization a tenant principal belongs to
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Subdomain string    `json:"subdomain"`
	TierCode  string    `json:"tier_code"`
}

// Kind returns the principal variant, discriminated by tenant association
func (p *Principal) Kind() Kind {
	if p.TenantID == nil {
		return KindSystem
	}
	return KindTenant
}

// IsSystem reports whether the principal is platform staff
func (p *Principal) IsSystem() bool {
	return p != nil && p.TenantID == nil
}

// IsTenant reports whether the principal belongs to a tenant
func (p *Principal) IsTenant() bool {
	return p != nil && p.TenantID != nil
}

// IsSystemAdmin reports whether the principal is a system admin
func (p *Principal) IsSystemAdmin() bool {
	return p.IsSystem() && p.SystemRole != nil && *p.SystemRole == SystemRoleAdmin
}

// IsSystemOperator reports whether the principal is a system operator
func (p *Principal) IsSystemOperator() bool {
	return p.IsSystem() && p.SystemRole != nil && *p.SystemRole == SystemRoleOperator
}

// IsTenantOwner reports whether the principal owns its tenant
func (p *Principal) IsTenantOwner() bool {
	return p.IsTenant() && p.TenantRole != nil && *p.TenantRole == TenantRoleOwner
}

// IsTenantAdmin reports whether the principal administers its tenant
func (p *Principal) IsTenantAdmin() bool {
	return p.IsTenant() && p.TenantRole != nil && *p.TenantRole == TenantRoleAdmin
}

// IsTenantMember reports whether the principal is a regular tenant member
func (p *Principal) IsTenantMember() bool {
	return p.IsTenant() && p.TenantRole != nil && *p.TenantRole == TenantRoleMember
}

// RoleName returns the role string for whichever variant the principal is,
// or "" when the role field is absent.
func (p *Principal) RoleName() string {
	if p == nil {
		return ""
	}
	if p.IsSystem() {
		if p.SystemRole == nil {
			return ""
		}
		return string(*p.SystemRole)
	}
	if p.TenantRole == nil {
		return ""
	}
	return string(*p.TenantRole)
}
