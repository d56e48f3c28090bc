package guard

import (
	"net/http"

	"github.com/porticohq/portico/pkg/audit"
	"github.com/porticohq/portico/pkg/contextkeys"
	"github.com/porticohq/portico/pkg/httputil"
	"github.com/porticohq/portico/pkg/identity"
	"github.com/porticohq/portico/pkg/observability"
	"github.com/porticohq/portico/pkg/session"
)

// Client is the second enforcement layer, backed by the restored session
// rather than the raw cookie. It catches what the edge cannot: a cookie that
// lies about a session the backend has already invalidated. Until the first
// restore completes it answers 503 instead of guessing, because redirecting
// on an unknown session state flashes the wrong surface at the user.
type Client struct {
	store             *session.Store
	retryAfterSeconds int
	logger            *observability.Logger
	metrics           *observability.Metrics
	audit             audit.Logger
}

// ClientOption configures the session-backed guard
type ClientOption func(*Client)

// WithClientLogger attaches a structured logger
func WithClientLogger(logger *observability.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithClientMetrics attaches gateway metrics
func WithClientMetrics(m *observability.Metrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// WithClientAudit records redirect decisions in the audit trail
func WithClientAudit(al audit.Logger) ClientOption {
	return func(c *Client) { c.audit = al }
}

// NewClient creates the session-backed guard
func NewClient(store *session.Store, retryAfterSeconds int, opts ...ClientOption) *Client {
	c := &Client{store: store, retryAfterSeconds: retryAfterSeconds}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Middleware evaluates requests against the restored session using the same
// decision function as the edge layer
func (c *Client) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !c.store.Restored() {
			if c.metrics != nil {
				c.metrics.GuardDecisionsTotal.WithLabelValues("client", "not_restored").Inc()
			}
			httputil.WriteServiceUnavailable(w, "session not restored", c.retryAfterSeconds)
			return
		}

		snap := c.store.Snapshot()
		var id *identity.CookieIdentity
		if snap.Authenticated {
			id = identity.NewCookieIdentity(snap.Principal)
		}

		decision := Decide(r.URL.Path, id)
		if c.metrics != nil {
			c.metrics.GuardDecisionsTotal.WithLabelValues("client", decision.String()).Inc()
		}

		if decision != Allow {
			if c.logger != nil {
				c.logger.WithFields(map[string]interface{}{
					"path":     r.URL.Path,
					"decision": decision.String(),
				}).Debug("Session guard redirect")
			}
			if c.audit != nil {
				event := audit.NewEvent(audit.EventTypeAuthzGuardRedirect, audit.EventStatusDenied).
					WithRequest(r.URL.Path, r.RemoteAddr, contextkeys.GetRequestID(r.Context())).
					WithMessage(decision.String())
				if snap.Principal != nil {
					event.WithPrincipal(snap.Principal.ID, snap.Principal.Email, snap.Principal.TenantID)
				}
				c.audit.Log(r.Context(), event)
			}
			httputil.Redirect(w, r, Target(decision))
			return
		}

		next.ServeHTTP(w, r)
	})
}
