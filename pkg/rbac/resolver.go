package rbac

import (
	"github.com/porticohq/portico/pkg/identity"
)

// Resolve reports whether the principal holds the permission token.
//
// The answer is false for a nil principal, for a token whose namespace does
// not match the principal kind, and for roles missing from the kind's table
// (fail closed). The cross-namespace rejection is an explicit guard, not a
// property of the tables: a system principal can never satisfy a tenant.*
// token even if a table were ever misauthored.
func Resolve(p *identity.Principal, token Token) bool {
	if p == nil {
		return false
	}

	switch p.Kind() {
	case identity.KindSystem:
		if token.Namespace() != NamespaceSystem {
			return false
		}
		if p.SystemRole == nil {
			return false
		}
		return contains(systemRolePermissions[*p.SystemRole], token)
	case identity.KindTenant:
		if token.Namespace() != NamespaceTenant {
			return false
		}
		if p.TenantRole == nil {
			return false
		}
		return contains(tenantRolePermissions[*p.TenantRole], token)
	}
	return false
}

// ResolveAny reports whether the principal holds at least one of the tokens.
// An empty list resolves false. The principal pointer is captured once, so
// the whole evaluation sees a single snapshot.
func ResolveAny(p *identity.Principal, tokens []Token) bool {
	for _, token := range tokens {
		if Resolve(p, token) {
			return true
		}
	}
	return false
}

// ResolveAll reports whether the principal holds every token. An empty list
// resolves true.
func ResolveAll(p *identity.Principal, tokens []Token) bool {
	for _, token := range tokens {
		if !Resolve(p, token) {
			return false
		}
	}
	return true
}

func contains(tokens []Token, token Token) bool {
	for _, t := range tokens {
		if t == token {
			return true
		}
	}
	return false
}
