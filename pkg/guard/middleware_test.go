package guard

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/porticohq/portico/pkg/contextkeys"
	"github.com/porticohq/portico/pkg/identity"
)

func edgeRequest(t *testing.T, path string, id *identity.CookieIdentity) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if id != nil {
		value, err := identity.EncodeCookie(id)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: identity.CookieName, Value: value})
	}
	return req
}

func TestEdgeAgreesWithDecisionTable(t *testing.T) {
	edge, err := NewEdge(16)
	require.NoError(t, err)

	handler := edge.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, tc := range decisionTable {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, edgeRequest(t, tc.path, tc.identity()))

			if tc.want == Allow {
				assert.Equal(t, http.StatusOK, rec.Code)
			} else {
				assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
				assert.Equal(t, Target(tc.want), rec.Header().Get("Location"))
			}
		})
	}
}

func TestEdgeInjectsIdentityIntoContext(t *testing.T) {
	edge, err := NewEdge(16)
	require.NoError(t, err)

	id := tenantIdentity()
	var got *identity.CookieIdentity
	handler := edge.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = r.Context().Value(contextkeys.IdentityKey).(*identity.CookieIdentity)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), edgeRequest(t, "/dashboard", id))
	require.NotNil(t, got)
	assert.Equal(t, id.ID, got.ID)
}

func TestEdgeMalformedCookieRedirectsToLogin(t *testing.T) {
	edge, err := NewEdge(16)
	require.NoError(t, err)

	handler := edge.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: identity.CookieName, Value: "%7Bnot-json"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, LoginPath, rec.Header().Get("Location"))
}

func TestEdgeCachesDecodeResults(t *testing.T) {
	edge, err := NewEdge(16)
	require.NoError(t, err)

	handler := edge.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	id := tenantIdentity()
	req := edgeRequest(t, "/dashboard", id)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, 1, edge.cache.Len())

	// same cookie value hits the cache rather than growing it
	handler.ServeHTTP(httptest.NewRecorder(), edgeRequest(t, "/inventory", id))
	assert.Equal(t, 1, edge.cache.Len())
}
