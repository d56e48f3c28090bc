// Package session holds the client-side authentication state behind the
// guarded surface: the current principal, its tenant, and the cached feature
// set. State changes are atomic snapshot replacements so readers never see a
// principal from one login paired with features from another. The store is
// injectable; nothing in this package is a process-wide singleton.
package session

import (
	"github.com/porticohq/portico/pkg/features"
	"github.com/porticohq/portico/pkg/identity"
)

// Snapshot is an immutable view of the session state. Authenticated is
// derived, never stored: a principal with no resolved tenant context (for
// tenant principals) is still mid-login and must not read as authenticated.
type Snapshot struct {
	Principal     *identity.Principal
	Tenant        *identity.Tenant
	Features      features.Set
	Authenticated bool
	Loading       bool
	LastError     string
}

// deriveAuthenticated computes the authenticated flag from its inputs.
// System principals have no tenant; tenant principals need both halves.
func deriveAuthenticated(p *identity.Principal, t *identity.Tenant) bool {
	if p == nil {
		return false
	}
	if p.IsSystem() {
		return true
	}
	return t != nil
}

// IsSystem reports whether the snapshot holds a system principal
func (s Snapshot) IsSystem() bool {
	return s.Principal.IsSystem()
}

// IsTenant reports whether the snapshot holds a tenant principal
func (s Snapshot) IsTenant() bool {
	return s.Principal.IsTenant()
}

// HasFeature reports whether the feature is enabled for the snapshot's
// principal. Always false for system principals.
func (s Snapshot) HasFeature(code string) bool {
	return features.HasForPrincipal(s.Principal, s.Features, code)
}
