// Package guard routes principals to the surface they belong on. A single
// pure decision function drives both enforcement layers: the edge middleware,
// which sees only the redacted identity cookie, and the session-backed layer,
// which sees the restored session. Both layers agreeing on one function is
// the point; they must never drift.
package guard

import (
	"strings"

	"github.com/porticohq/portico/pkg/identity"
)

// Decision is the outcome of evaluating a path against an identity
type Decision int

const (
	Allow Decision = iota
	RedirectLogin
	RedirectSystemHome
	RedirectTenantHome
)

// String returns the decision label used in logs and metrics
func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case RedirectSystemHome:
		return "redirect_system_home"
	case RedirectTenantHome:
		return "redirect_tenant_home"
	default:
		return "unknown"
	}
}

// Navigation targets
const (
	LoginPath      = "/login"
	SystemHomePath = "/system/dashboard"
	TenantHomePath = "/dashboard"

	// SystemPrefix marks the platform-staff surface
	SystemPrefix = "/system"
)

// publicPaths need no authentication; an authenticated principal visiting
// one is sent home instead.
var publicPaths = map[string]struct{}{
	"/":                {},
	"/login":           {},
	"/register":        {},
	"/forgot-password": {},
	"/reset-password":  {},
}

// IsPublic reports whether the path requires no authentication
func IsPublic(path string) bool {
	_, ok := publicPaths[path]
	return ok
}

// IsSystemPath reports whether the path belongs to the platform-staff
// surface. "/systematic" must not match.
func IsSystemPath(path string) bool {
	return path == SystemPrefix || strings.HasPrefix(path, SystemPrefix+"/")
}

// Decide evaluates a path against a redacted identity. A nil identity is an
// unauthenticated visitor; a decoded cookie is trusted only for routing,
// enforcement stays with the backend.
//
// Public paths pass unconditionally only for anonymous visitors. An
// authenticated principal on a public path is sent to its home surface
// instead, so a logged-in user never sees the login or landing page.
func Decide(path string, id *identity.CookieIdentity) Decision {
	if IsPublic(path) {
		if id == nil {
			return Allow
		}
		if id.Kind() == identity.KindSystem {
			return RedirectSystemHome
		}
		return RedirectTenantHome
	}

	if id == nil {
		return RedirectLogin
	}

	if IsSystemPath(path) {
		if id.Kind() == identity.KindSystem {
			return Allow
		}
		return RedirectTenantHome
	}

	if id.Kind() == identity.KindSystem {
		return RedirectSystemHome
	}
	return Allow
}

// Target returns the redirect location for a decision, or "" for Allow
func Target(d Decision) string {
	switch d {
	case RedirectLogin:
		return LoginPath
	case RedirectSystemHome:
		return SystemHomePath
	case RedirectTenantHome:
		return TenantHomePath
	default:
		return ""
	}
}
