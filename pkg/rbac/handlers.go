package rbac

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/porticohq/portico/pkg/httputil"
)

// Handlers exposes the role/permission matrix for admin display surfaces.
// It serves the same canonical tables the resolver enforces with, so the
// matrix shown to users can never drift from enforcement.
type Handlers struct{}

// NewHandlers creates role-matrix display handlers
func NewHandlers() *Handlers {
	return &Handlers{}
}

// RegisterRoutes registers the matrix routes on the router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/rbac/roles", h.listRoleMatrices).Methods("GET")
	router.HandleFunc("/api/v1/rbac/roles/{kind}", h.getRoleMatrix).Methods("GET")
}

// listRoleMatrices handles GET /api/v1/rbac/roles
func (h *Handlers) listRoleMatrices(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]interface{}{
		"system": SystemRolePermissions(),
		"tenant": TenantRolePermissions(),
	})
}

// getRoleMatrix handles GET /api/v1/rbac/roles/{kind}
func (h *Handlers) getRoleMatrix(w http.ResponseWriter, r *http.Request) {
	kind := mux.Vars(r)["kind"]

	switch kind {
	case NamespaceSystem:
		httputil.WriteSuccess(w, map[string]interface{}{"kind": kind, "roles": SystemRolePermissions()})
	case NamespaceTenant:
		httputil.WriteSuccess(w, map[string]interface{}{"kind": kind, "roles": TenantRolePermissions()})
	default:
		httputil.WriteNotFoundError(w, "unknown principal kind: "+kind)
	}
}
