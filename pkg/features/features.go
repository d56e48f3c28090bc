// Package features resolves tenant feature flags. Feature codes are
// dot-namespaced strings ("inventory.adjustments") derived server-side from
// the tenant's subscription tier plus explicit overrides; this package only
// answers membership questions over the cached set. Checks apply to tenant
// principals exclusively: system principals carry an implicitly empty set and
// every check resolves false for them.
package features

import (
	"strings"

	"github.com/porticohq/portico/pkg/identity"
)

// Set is a tenant's enabled feature codes
type Set map[string]struct{}

// NewSet builds a Set from a list of feature codes
func NewSet(codes []string) Set {
	s := make(Set, len(codes))
	for _, code := range codes {
		if code == "" {
			continue
		}
		s[code] = struct{}{}
	}
	return s
}

// Codes returns the feature codes in the set
func (s Set) Codes() []string {
	codes := make([]string, 0, len(s))
	for code := range s {
		codes = append(codes, code)
	}
	return codes
}

// Has reports whether the code is enabled
func (s Set) Has(code string) bool {
	_, ok := s[code]
	return ok
}

// HasAny reports whether at least one of the codes is enabled. Empty input
// resolves false.
func (s Set) HasAny(codes ...string) bool {
	for _, code := range codes {
		if s.Has(code) {
			return true
		}
	}
	return false
}

// HasAll reports whether every code is enabled. Empty input resolves true.
func (s Set) HasAll(codes ...string) bool {
	for _, code := range codes {
		if !s.Has(code) {
			return false
		}
	}
	return true
}

// ModuleEnabled reports whether any enabled code has the module name as its
// dot-prefix, e.g. ModuleEnabled("inventory") matches "inventory.adjustments"
// and the bare "inventory" code.
func (s Set) ModuleEnabled(module string) bool {
	if module == "" {
		return false
	}
	for code := range s {
		if code == module || strings.HasPrefix(code, module+".") {
			return true
		}
	}
	return false
}

// HasForPrincipal reports whether the feature is enabled for the principal.
// System principals never gate on tenant features, so any check against one
// resolves false regardless of the set's contents.
func HasForPrincipal(p *identity.Principal, s Set, code string) bool {
	if p == nil || !p.IsTenant() {
		return false
	}
	return s.Has(code)
}
