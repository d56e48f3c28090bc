package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/porticohq/portico/pkg/httputil"
	"github.com/porticohq/portico/pkg/session"
)

// HealthHandlers serves liveness and readiness probes on the health port
type HealthHandlers struct {
	sessions *session.Store
	version  string
}

// NewHealthHandlers creates the health handler set
func NewHealthHandlers(sessions *session.Store, version string) *HealthHandlers {
	return &HealthHandlers{sessions: sessions, version: version}
}

// RegisterRoutes registers the probe endpoints
func (h *HealthHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/healthz", h.Liveness).Methods(http.MethodGet)
	router.HandleFunc("/readyz", h.Readiness).Methods(http.MethodGet)
}

// Liveness reports the process is up
func (h *HealthHandlers) Liveness(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

// Readiness reports whether the gateway can answer guard decisions, which
// requires the initial session restore to have run.
func (h *HealthHandlers) Readiness(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Restored() {
		httputil.WriteServiceUnavailable(w, "session restore pending", 1)
		return
	}
	httputil.WriteSuccess(w, map[string]string{"status": "ready"})
}
