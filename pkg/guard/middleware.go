package guard

import (
	"net/http"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/porticohq/portico/pkg/contextkeys"
	"github.com/porticohq/portico/pkg/httputil"
	"github.com/porticohq/portico/pkg/identity"
	"github.com/porticohq/portico/pkg/observability"
)

// Edge is the first enforcement layer. It runs on every request before any
// handler, reads only the identity cookie, and redirects principals off
// surfaces they do not belong on. It never calls the backend: a forged
// cookie can change routing but grants nothing, since every data access is
// re-checked server-side.
type Edge struct {
	cache   *lru.Cache[string, *identity.CookieIdentity]
	logger  *observability.Logger
	metrics *observability.Metrics
}

// EdgeOption configures the edge guard
type EdgeOption func(*Edge)

// WithEdgeLogger attaches a structured logger
func WithEdgeLogger(logger *observability.Logger) EdgeOption {
	return func(e *Edge) { e.logger = logger }
}

// WithEdgeMetrics attaches gateway metrics
func WithEdgeMetrics(m *observability.Metrics) EdgeOption {
	return func(e *Edge) { e.metrics = m }
}

// NewEdge creates the edge guard with an LRU cache of cookie decode results.
// cacheSize bounds the cache; decoding is cheap but runs on every request
// and the same cookie value repeats for the life of a session.
func NewEdge(cacheSize int, opts ...EdgeOption) (*Edge, error) {
	cache, err := lru.New[string, *identity.CookieIdentity](cacheSize)
	if err != nil {
		return nil, err
	}
	e := &Edge{cache: cache}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// decodeCookie resolves the request's identity cookie through the cache.
// Malformed values cache as nil so repeated garbage is not re-parsed.
func (e *Edge) decodeCookie(r *http.Request) *identity.CookieIdentity {
	cookie, err := r.Cookie(identity.CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	if cached, ok := e.cache.Get(cookie.Value); ok {
		return cached
	}

	decoded := identity.DecodeCookie(cookie.Value)
	e.cache.Add(cookie.Value, decoded)
	return decoded
}

// Middleware evaluates every request against the shared decision function
func (e *Edge) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := e.decodeCookie(r)
		decision := Decide(r.URL.Path, id)

		if e.metrics != nil {
			e.metrics.GuardDecisionsTotal.WithLabelValues("edge", decision.String()).Inc()
		}

		if decision != Allow {
			if e.logger != nil {
				e.logger.WithFields(map[string]interface{}{
					"path":     r.URL.Path,
					"decision": decision.String(),
				}).Debug("Edge guard redirect")
			}
			httputil.Redirect(w, r, Target(decision))
			return
		}

		if id != nil {
			r = r.WithContext(contextkeys.WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
