// Package gate wraps handlers with permission and feature checks against the
// session. A gate decides visibility, not enforcement: a denied request gets
// the fallback response, and the backend re-checks everything on data access
// regardless. Default fallback is 403 for permission gates and 404 for
// feature gates; a missing feature means the surface does not exist for that
// tenant, not that it is forbidden.
package gate

import (
	"net/http"

	"github.com/porticohq/portico/pkg/audit"
	"github.com/porticohq/portico/pkg/contextkeys"
	"github.com/porticohq/portico/pkg/httputil"
	"github.com/porticohq/portico/pkg/observability"
	"github.com/porticohq/portico/pkg/rbac"
	"github.com/porticohq/portico/pkg/session"
)

// Gate builds permission- and feature-gated handlers around a session store
type Gate struct {
	store   *session.Store
	metrics *observability.Metrics
	audit   audit.Logger
}

// Option configures a Gate
type Option func(*Gate)

// WithMetrics attaches gateway metrics
func WithMetrics(m *observability.Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

// WithAudit records denied requests in the audit trail
func WithAudit(al audit.Logger) Option {
	return func(g *Gate) { g.audit = al }
}

// New creates a Gate backed by the session store
func New(store *session.Store, opts ...Option) *Gate {
	g := &Gate{store: store}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Config holds per-gate overrides
type Config struct {
	// Fallback runs when the check denies; nil uses the gate's default
	Fallback http.Handler
}

// GateOption configures one gated handler
type GateOption func(*Config)

// WithFallback overrides the denied response
func WithFallback(h http.Handler) GateOption {
	return func(c *Config) { c.Fallback = h }
}

func buildConfig(opts []GateOption) Config {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func forbidden(w http.ResponseWriter, r *http.Request) {
	httputil.WriteForbidden(w, "insufficient permissions")
}

func notFound(w http.ResponseWriter, r *http.Request) {
	httputil.WriteNotFoundError(w, "not found")
}

func (g *Gate) deny(kind string, cfg Config, defaultFallback http.HandlerFunc, w http.ResponseWriter, r *http.Request, snap session.Snapshot) {
	if g.metrics != nil {
		g.metrics.GateDeniedTotal.WithLabelValues(kind).Inc()
	}
	if g.audit != nil {
		event := audit.NewEvent(audit.EventTypeAuthzAccessDenied, audit.EventStatusDenied).
			WithRequest(r.URL.Path, r.RemoteAddr, contextkeys.GetRequestID(r.Context())).
			WithMessage(kind)
		if snap.Principal != nil {
			event.WithPrincipal(snap.Principal.ID, snap.Principal.Email, snap.Principal.TenantID)
		}
		g.audit.Log(r.Context(), event)
	}
	if cfg.Fallback != nil {
		cfg.Fallback.ServeHTTP(w, r)
		return
	}
	defaultFallback(w, r)
}

// RequirePermission gates on a single permission token
func (g *Gate) RequirePermission(token rbac.Token, next http.Handler, opts ...GateOption) http.Handler {
	cfg := buildConfig(opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap := g.store.Snapshot()
		if !rbac.Resolve(snap.Principal, token) {
			g.deny("permission", cfg, forbidden, w, r, snap)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAnyPermission gates on holding at least one of the tokens. An empty
// list denies.
func (g *Gate) RequireAnyPermission(tokens []rbac.Token, next http.Handler, opts ...GateOption) http.Handler {
	cfg := buildConfig(opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap := g.store.Snapshot()
		if !rbac.ResolveAny(snap.Principal, tokens) {
			g.deny("permission", cfg, forbidden, w, r, snap)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAllPermissions gates on holding every token. An empty list allows.
func (g *Gate) RequireAllPermissions(tokens []rbac.Token, next http.Handler, opts ...GateOption) http.Handler {
	cfg := buildConfig(opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap := g.store.Snapshot()
		if !rbac.ResolveAll(snap.Principal, tokens) {
			g.deny("permission", cfg, forbidden, w, r, snap)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireFeature gates on a feature code being enabled for the session's
// tenant. Always denies for system principals.
func (g *Gate) RequireFeature(code string, next http.Handler, opts ...GateOption) http.Handler {
	cfg := buildConfig(opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap := g.store.Snapshot()
		if !snap.HasFeature(code) {
			g.deny("feature", cfg, notFound, w, r, snap)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireModule gates on any feature under the module prefix being enabled.
// Always denies for system principals.
func (g *Gate) RequireModule(module string, next http.Handler, opts ...GateOption) http.Handler {
	cfg := buildConfig(opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap := g.store.Snapshot()
		if snap.Principal == nil || !snap.Principal.IsTenant() || !snap.Features.ModuleEnabled(module) {
			g.deny("feature", cfg, notFound, w, r, snap)
			return
		}
		next.ServeHTTP(w, r)
	})
}
