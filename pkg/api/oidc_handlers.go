package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/porticohq/portico/pkg/audit"
	"github.com/porticohq/portico/pkg/authclient"
	"github.com/porticohq/portico/pkg/guard"
	"github.com/porticohq/portico/pkg/httputil"
	"github.com/porticohq/portico/pkg/observability"
	"github.com/porticohq/portico/pkg/session"
)

// oidcStateCookie binds the callback to the browser that started the flow
const oidcStateCookie = "portico_oidc_state"

// CodeExchanger is the provider leg of the SSO flow, satisfied by
// authclient.OIDCAuthenticator.
type CodeExchanger interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*authclient.LoginResponse, error)
}

// OIDCHandlers serves the single sign-on endpoints. The provider
// authenticates; the exchanged response flows into the same session store as
// a credential login.
type OIDCHandlers struct {
	exchanger CodeExchanger
	sessions  *session.Store
	audit     audit.Logger
	logger    *observability.Logger
}

// NewOIDCHandlers creates the SSO handler set
func NewOIDCHandlers(exchanger CodeExchanger, sessions *session.Store, auditLogger audit.Logger, logger *observability.Logger) *OIDCHandlers {
	if auditLogger == nil {
		auditLogger = audit.NopLogger{}
	}
	return &OIDCHandlers{exchanger: exchanger, sessions: sessions, audit: auditLogger, logger: logger}
}

// RegisterRoutes registers the SSO endpoints on the router
func (h *OIDCHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/auth/oidc/login", h.Begin).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/auth/oidc/callback", h.Callback).Methods(http.MethodGet)
}

// Begin sends the browser to the provider with a state nonce bound to a
// short-lived cookie
func (h *OIDCHandlers) Begin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     oidcStateCookie,
		Value:    state,
		Path:     "/api/v1/auth/oidc",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.exchanger.AuthCodeURL(state), http.StatusFound)
}

// Callback verifies the state, exchanges the authorization code, and signs
// the session in. On success the browser lands on its home surface.
func (h *OIDCHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	clearState := &http.Cookie{
		Name:     oidcStateCookie,
		Path:     "/api/v1/auth/oidc",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, clearState)

	query := r.URL.Query()
	stateCookie, err := r.Cookie(oidcStateCookie)
	if err != nil || query.Get("state") == "" || stateCookie.Value != query.Get("state") {
		httputil.WriteBadRequest(w, "login state mismatch")
		return
	}

	if providerErr := query.Get("error"); providerErr != "" {
		recordAudit(h.audit, h.logger, r, audit.EventTypeAuthLoginFailed, audit.EventStatusFailure, session.Snapshot{}, providerErr)
		httputil.WriteUnauthorized(w, "provider rejected the sign-in")
		return
	}
	code := query.Get("code")
	if code == "" {
		httputil.WriteBadRequest(w, "missing authorization code")
		return
	}

	resp, err := h.exchanger.Exchange(r.Context(), code)
	if err != nil {
		recordAudit(h.audit, h.logger, r, audit.EventTypeAuthLoginFailed, audit.EventStatusFailure, session.Snapshot{}, err.Error())
		httputil.WriteErrorMessage(w, http.StatusBadGateway, "sign-in failed")
		return
	}

	snap, err := h.sessions.LoginSSO(r.Context(), resp)
	if err != nil {
		recordAudit(h.audit, h.logger, r, audit.EventTypeAuthLoginFailed, audit.EventStatusFailure, snap, err.Error())
		httputil.WriteErrorMessage(w, authStatus(err), err.Error())
		return
	}

	recordAudit(h.audit, h.logger, r, audit.EventTypeAuthLogin, audit.EventStatusSuccess, snap, "sso")
	setIdentityCookie(w, h.sessions.CookieValue())

	target := guard.TenantHomePath
	if snap.Principal != nil && snap.Principal.IsSystem() {
		target = guard.SystemHomePath
	}
	http.Redirect(w, r, target, http.StatusFound)
}
