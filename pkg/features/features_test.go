package features

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/porticohq/portico/pkg/identity"
)

func TestSet_Has(t *testing.T) {
	s := NewSet([]string{"inventory.adjustments", "reports.export", ""})
	assert.True(t, s.Has("inventory.adjustments"))
	assert.False(t, s.Has("inventory"))
	assert.False(t, s.Has(""))
	assert.Len(t, s.Codes(), 2)
}

func TestSet_HasAnyAll(t *testing.T) {
	s := NewSet([]string{"inventory.adjustments", "reports.export"})

	assert.True(t, s.HasAny("billing.invoices", "reports.export"))
	assert.False(t, s.HasAny("billing.invoices", "billing.refunds"))
	assert.True(t, s.HasAll("inventory.adjustments", "reports.export"))
	assert.False(t, s.HasAll("inventory.adjustments", "billing.invoices"))

	// Empty input: All vacuously true, Any false.
	assert.True(t, s.HasAll())
	assert.False(t, s.HasAny())
}

func TestSet_ModuleEnabled(t *testing.T) {
	s := NewSet([]string{"inventory.adjustments", "reports", "inventoried.x"})

	assert.True(t, s.ModuleEnabled("inventory"))
	assert.True(t, s.ModuleEnabled("reports"))
	assert.False(t, s.ModuleEnabled("billing"))
	assert.False(t, s.ModuleEnabled(""))
	// Prefix must be a dot segment, not a substring.
	assert.False(t, s.ModuleEnabled("invent"))
	assert.True(t, s.ModuleEnabled("inventoried"))
}

func TestHasForPrincipal_SystemAlwaysFalse(t *testing.T) {
	s := NewSet([]string{"inventory.adjustments"})
	role := identity.SystemRoleAdmin
	sys := &identity.Principal{ID: uuid.New(), SystemRole: &role}

	assert.False(t, HasForPrincipal(sys, s, "inventory.adjustments"))
	assert.False(t, HasForPrincipal(nil, s, "inventory.adjustments"))

	tenantID := uuid.New()
	tenantRole := identity.TenantRoleMember
	ten := &identity.Principal{ID: uuid.New(), TenantID: &tenantID, TenantRole: &tenantRole}
	assert.True(t, HasForPrincipal(ten, s, "inventory.adjustments"))
	assert.False(t, HasForPrincipal(ten, s, "billing.invoices"))
}
