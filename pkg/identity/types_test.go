package identity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func systemPrincipal(role SystemRole) *Principal {
	return &Principal{
		ID:         uuid.New(),
		Email:      "ops@example.com",
		FullName:   "Platform Ops",
		SystemRole: &role,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
	}
}

func tenantPrincipal(role TenantRole) *Principal {
	tenantID := uuid.New()
	return &Principal{
		ID:         uuid.New(),
		Email:      "user@acme.example",
		FullName:   "Acme User",
		TenantID:   &tenantID,
		TenantRole: &role,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
	}
}

func TestPrincipal_KindIsExclusive(t *testing.T) {
	sys := systemPrincipal(SystemRoleAdmin)
	assert.True(t, sys.IsSystem())
	assert.False(t, sys.IsTenant())
	assert.Equal(t, KindSystem, sys.Kind())
	assert.NotNil(t, sys.SystemRole)
	assert.Nil(t, sys.TenantRole)

	ten := tenantPrincipal(TenantRoleOwner)
	assert.True(t, ten.IsTenant())
	assert.False(t, ten.IsSystem())
	assert.Equal(t, KindTenant, ten.Kind())
	assert.NotNil(t, ten.TenantRole)
	assert.Nil(t, ten.SystemRole)
}

func TestPrincipal_KindIgnoresRoleFields(t *testing.T) {
	// Legacy rows may miss role fields; the discriminant is tenant
	// association, not role presence.
	tenantID := uuid.New()
	p := &Principal{ID: uuid.New(), TenantID: &tenantID}
	assert.True(t, p.IsTenant())
	assert.False(t, p.IsTenantOwner())
	assert.Equal(t, "", p.RoleName())

	p = &Principal{ID: uuid.New()}
	assert.True(t, p.IsSystem())
	assert.False(t, p.IsSystemAdmin())
	assert.Equal(t, "", p.RoleName())
}

func TestPrincipal_RolePredicates(t *testing.T) {
	assert.True(t, systemPrincipal(SystemRoleAdmin).IsSystemAdmin())
	assert.False(t, systemPrincipal(SystemRoleAdmin).IsSystemOperator())
	assert.True(t, systemPrincipal(SystemRoleOperator).IsSystemOperator())

	assert.True(t, tenantPrincipal(TenantRoleOwner).IsTenantOwner())
	assert.True(t, tenantPrincipal(TenantRoleAdmin).IsTenantAdmin())
	assert.True(t, tenantPrincipal(TenantRoleMember).IsTenantMember())
	assert.False(t, tenantPrincipal(TenantRoleMember).IsTenantAdmin())

	// Cross-kind predicates are always false.
	assert.False(t, systemPrincipal(SystemRoleAdmin).IsTenantOwner())
	assert.False(t, tenantPrincipal(TenantRoleOwner).IsSystemAdmin())
}

func TestPrincipal_RoleName(t *testing.T) {
	assert.Equal(t, "operator", systemPrincipal(SystemRoleOperator).RoleName())
	assert.Equal(t, "member", tenantPrincipal(TenantRoleMember).RoleName())
}

func TestCookie_RoundTrip(t *testing.T) {
	p := tenantPrincipal(TenantRoleAdmin)
	encoded, err := EncodeCookie(NewCookieIdentity(p))
	require.NoError(t, err)

	decoded := DecodeCookie(encoded)
	require.NotNil(t, decoded)
	assert.Equal(t, p.ID, decoded.ID)
	assert.Equal(t, p.Email, decoded.Email)
	assert.Equal(t, "admin", decoded.Role)
	require.NotNil(t, decoded.TenantID)
	assert.Equal(t, *p.TenantID, *decoded.TenantID)
	assert.Equal(t, KindTenant, decoded.Kind())
}

func TestCookie_RoundTripSystem(t *testing.T) {
	p := systemPrincipal(SystemRoleAdmin)
	encoded, err := EncodeCookie(NewCookieIdentity(p))
	require.NoError(t, err)

	decoded := DecodeCookie(encoded)
	require.NotNil(t, decoded)
	assert.Nil(t, decoded.TenantID)
	assert.Equal(t, KindSystem, decoded.Kind())
}

func TestDecodeCookie_MalformedIsNil(t *testing.T) {
	cases := []string{
		"",
		"{not json",
		"%7Bnot%20json",
		"%ZZ",                    // bad URL escape
		"%7B%22id%22%3A%22x%22%7D", // invalid uuid
		"null",
		"%7B%7D", // empty object, nil uuid
	}
	for _, c := range cases {
		assert.Nil(t, DecodeCookie(c), "value %q should decode to nil", c)
	}
}
