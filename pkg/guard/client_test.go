package guard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/porticohq/portico/pkg/audit"
	"github.com/porticohq/portico/pkg/authclient"
	"github.com/porticohq/portico/pkg/identity"
	"github.com/porticohq/portico/pkg/kvstore"
	"github.com/porticohq/portico/pkg/session"
)

// stubClient satisfies authclient.Client for restore-only session stores
type stubClient struct{}

func (stubClient) Login(context.Context, authclient.Credentials) (*authclient.LoginResponse, error) {
	return nil, errors.New("not implemented")
}

func (stubClient) Register(context.Context, authclient.Registration) (*authclient.LoginResponse, error) {
	return nil, errors.New("not implemented")
}

func (stubClient) Logout(context.Context) error { return nil }

func (stubClient) CurrentPrincipal(context.Context) (*identity.Principal, error) {
	return nil, errors.New("not implemented")
}

func (stubClient) Features(context.Context, uuid.UUID) ([]string, error) {
	return nil, errors.New("not implemented")
}

func persistIdentity(t *testing.T, kv kvstore.Store, id *identity.CookieIdentity) {
	t.Helper()
	ctx := context.Background()

	principal := &identity.Principal{
		ID:       id.ID,
		Email:    id.Email,
		IsActive: id.IsActive,
		TenantID: id.TenantID,
	}
	if id.TenantID != nil {
		role := identity.TenantRole(id.Role)
		principal.TenantRole = &role
		tenant := &identity.Tenant{ID: *id.TenantID, Name: "Acme", Subdomain: "acme"}
		data, err := json.Marshal(tenant)
		require.NoError(t, err)
		require.NoError(t, kv.Set(ctx, "portico:session:tenant", data))
	} else {
		role := identity.SystemRole(id.Role)
		principal.SystemRole = &role
	}

	data, err := json.Marshal(principal)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "portico:session:principal", data))
}

func TestClientReturns503BeforeRestore(t *testing.T) {
	store := session.NewStore(stubClient{}, kvstore.NewMemoryStore())
	client := NewClient(store, 2)

	handler := client.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run before restore")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
}

func TestClientAgreesWithDecisionTable(t *testing.T) {
	for _, tc := range decisionTable {
		t.Run(tc.name, func(t *testing.T) {
			kv := kvstore.NewMemoryStore()
			if id := tc.identity(); id != nil {
				persistIdentity(t, kv, id)
			}

			store := session.NewStore(stubClient{}, kv)
			store.RestoreSession(context.Background())

			handler := NewClient(store, 1).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))

			if tc.want == Allow {
				assert.Equal(t, http.StatusOK, rec.Code)
			} else {
				assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
				assert.Equal(t, Target(tc.want), rec.Header().Get("Location"))
			}
		})
	}
}

func TestClientAllowsAfterRestoreOfEmptyStore(t *testing.T) {
	store := session.NewStore(stubClient{}, kvstore.NewMemoryStore())
	store.RestoreSession(context.Background())

	handler := NewClient(store, 1).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// public path allowed, protected path redirected
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, LoginPath, rec.Header().Get("Location"))
}

func TestClientRecordsRedirectAuditEvent(t *testing.T) {
	auditLog := audit.NewMemoryLogger()
	store := session.NewStore(stubClient{}, kvstore.NewMemoryStore())
	store.RestoreSession(context.Background())

	handler := NewClient(store, 1, WithClientAudit(auditLog)).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// allowed request leaves no trail
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, auditLog.Events())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)

	events := auditLog.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventTypeAuthzGuardRedirect, events[0].EventType)
	assert.Equal(t, "redirect_login", events[0].Message)
	assert.Equal(t, "/dashboard", events[0].Path)
}
