// Package api exposes the gateway's HTTP surface: credential endpoints that
// drive the session store, session introspection, and the role matrix.
package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/porticohq/portico/pkg/audit"
	"github.com/porticohq/portico/pkg/authclient"
	"github.com/porticohq/portico/pkg/contextkeys"
	"github.com/porticohq/portico/pkg/httputil"
	"github.com/porticohq/portico/pkg/identity"
	"github.com/porticohq/portico/pkg/observability"
	"github.com/porticohq/portico/pkg/session"
)

// AuthHandlers serves the credential and session endpoints
type AuthHandlers struct {
	sessions *session.Store
	audit    audit.Logger
	logger   *observability.Logger
}

// NewAuthHandlers creates the auth handler set
func NewAuthHandlers(sessions *session.Store, auditLogger audit.Logger, logger *observability.Logger) *AuthHandlers {
	if auditLogger == nil {
		auditLogger = audit.NopLogger{}
	}
	return &AuthHandlers{sessions: sessions, audit: auditLogger, logger: logger}
}

// RegisterRoutes registers the auth endpoints on the router
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/auth/login", h.Login).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/auth/register", h.Register).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/auth/logout", h.Logout).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/auth/session", h.Session).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/auth/refresh", h.Refresh).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/features", h.Features).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/features/refresh", h.RefreshFeatures).Methods(http.MethodPost)
}

// sessionResponse is the wire form of a session snapshot
type sessionResponse struct {
	Authenticated bool                `json:"authenticated"`
	User          *identity.Principal `json:"user,omitempty"`
	Tenant        *identity.Tenant    `json:"tenant,omitempty"`
	Features      []string            `json:"features"`
	Loading       bool                `json:"loading"`
	Error         string              `json:"error,omitempty"`
}

func toSessionResponse(snap session.Snapshot) sessionResponse {
	return sessionResponse{
		Authenticated: snap.Authenticated,
		User:          snap.Principal,
		Tenant:        snap.Tenant,
		Features:      snap.Features.Codes(),
		Loading:       snap.Loading,
		Error:         snap.LastError,
	}
}

// setIdentityCookie writes the redacted identity cookie for the edge guard,
// or clears it when the session is gone. The cookie is routing state, not a
// credential, so it is deliberately not HttpOnly.
func setIdentityCookie(w http.ResponseWriter, value string) {
	cookie := &http.Cookie{
		Name:     identity.CookieName,
		Value:    value,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		cookie.MaxAge = -1
	}
	http.SetCookie(w, cookie)
}

// authStatus maps a login failure to a response code. Backend rejections
// pass through their status; transport failures read as bad gateway.
func authStatus(err error) int {
	var apiErr *authclient.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return http.StatusBadGateway
}

// recordAudit writes an auth event, attaching the actor when the snapshot
// has one. Audit write failures are logged, never surfaced to the request.
func recordAudit(al audit.Logger, logger *observability.Logger, r *http.Request, eventType audit.EventType, status audit.EventStatus, snap session.Snapshot, message string) {
	event := audit.NewEvent(eventType, status).
		WithRequest(r.URL.Path, r.RemoteAddr, contextkeys.GetRequestID(r.Context())).
		WithMessage(message)
	if snap.Principal != nil {
		event.WithPrincipal(snap.Principal.ID, snap.Principal.Email, snap.Principal.TenantID)
	}
	if err := al.Log(r.Context(), event); err != nil && logger != nil {
		logger.WithError(err).Warn("Failed to write audit event")
	}
}

func (h *AuthHandlers) auditAuth(r *http.Request, eventType audit.EventType, status audit.EventStatus, snap session.Snapshot, message string) {
	recordAudit(h.audit, h.logger, r, eventType, status, snap, message)
}

// Login authenticates credentials against the backend
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var creds authclient.Credentials
	if !httputil.ParseJSONOrError(w, r, &creds) {
		return
	}

	snap, err := h.sessions.Login(r.Context(), creds)
	if err != nil {
		h.auditAuth(r, audit.EventTypeAuthLoginFailed, audit.EventStatusFailure, snap, err.Error())
		httputil.WriteErrorMessage(w, authStatus(err), err.Error())
		return
	}

	h.auditAuth(r, audit.EventTypeAuthLogin, audit.EventStatusSuccess, snap, "")
	setIdentityCookie(w, h.sessions.CookieValue())
	httputil.WriteSuccess(w, toSessionResponse(snap))
}

// Register creates an account and signs it in
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var payload authclient.Registration
	if !httputil.ParseJSONOrError(w, r, &payload) {
		return
	}

	snap, err := h.sessions.Register(r.Context(), payload)
	if err != nil {
		h.auditAuth(r, audit.EventTypeAuthLoginFailed, audit.EventStatusFailure, snap, err.Error())
		httputil.WriteErrorMessage(w, authStatus(err), err.Error())
		return
	}

	h.auditAuth(r, audit.EventTypeAuthRegister, audit.EventStatusSuccess, snap, "")
	setIdentityCookie(w, h.sessions.CookieValue())
	httputil.WriteCreated(w, toSessionResponse(snap))
}

// Logout ends the session. The local session and cookie are cleared even
// when the backend call fails.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	snap := h.sessions.Snapshot()
	err := h.sessions.Logout(r.Context())
	setIdentityCookie(w, h.sessions.CookieValue())
	h.auditAuth(r, audit.EventTypeAuthLogout, audit.EventStatusSuccess, snap, "")

	if err != nil && h.logger != nil {
		h.logger.WithError(err).Warn("Backend logout returned an error")
	}
	httputil.WriteNoContent(w)
}

// Session returns the current session snapshot
func (h *AuthHandlers) Session(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, toSessionResponse(h.sessions.Snapshot()))
}

// Refresh re-fetches the principal from the backend
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.RefreshPrincipal(r.Context()); err != nil {
		snap := h.sessions.Snapshot()
		if !snap.Authenticated {
			setIdentityCookie(w, h.sessions.CookieValue())
			h.auditAuth(r, audit.EventTypeSessionExpired, audit.EventStatusFailure, snap, err.Error())
			httputil.WriteUnauthorized(w, err.Error())
			return
		}
		httputil.WriteErrorMessage(w, http.StatusBadGateway, err.Error())
		return
	}

	setIdentityCookie(w, h.sessions.CookieValue())
	httputil.WriteSuccess(w, toSessionResponse(h.sessions.Snapshot()))
}

// Features returns the cached feature codes
func (h *AuthHandlers) Features(w http.ResponseWriter, r *http.Request) {
	snap := h.sessions.Snapshot()
	httputil.WriteSuccess(w, map[string]interface{}{
		"features": snap.Features.Codes(),
	})
}

// RefreshFeatures forces a feature refresh. Failures keep the cached set,
// so the response always carries usable features.
func (h *AuthHandlers) RefreshFeatures(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.RefreshFeatures(r.Context()); err != nil && h.logger != nil {
		h.logger.WithError(err).Warn("Manual feature refresh failed")
	}
	snap := h.sessions.Snapshot()
	httputil.WriteSuccess(w, map[string]interface{}{
		"features": snap.Features.Codes(),
	})
}
