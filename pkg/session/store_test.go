package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/porticohq/portico/pkg/authclient"
	"github.com/porticohq/portico/pkg/identity"
	"github.com/porticohq/portico/pkg/kvstore"
)

// fakeClient is a scriptable auth backend
type fakeClient struct {
	loginFn     func(ctx context.Context, creds authclient.Credentials) (*authclient.LoginResponse, error)
	registerFn  func(ctx context.Context, payload authclient.Registration) (*authclient.LoginResponse, error)
	logoutFn    func(ctx context.Context) error
	principalFn func(ctx context.Context) (*identity.Principal, error)
	featuresFn  func(ctx context.Context, tenantID uuid.UUID) ([]string, error)
}

func (f *fakeClient) Login(ctx context.Context, creds authclient.Credentials) (*authclient.LoginResponse, error) {
	return f.loginFn(ctx, creds)
}

func (f *fakeClient) Register(ctx context.Context, payload authclient.Registration) (*authclient.LoginResponse, error) {
	return f.registerFn(ctx, payload)
}

func (f *fakeClient) Logout(ctx context.Context) error {
	if f.logoutFn != nil {
		return f.logoutFn(ctx)
	}
	return nil
}

func (f *fakeClient) CurrentPrincipal(ctx context.Context) (*identity.Principal, error) {
	return f.principalFn(ctx)
}

func (f *fakeClient) Features(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	if f.featuresFn != nil {
		return f.featuresFn(ctx, tenantID)
	}
	return nil, nil
}

func tenantPrincipal(t *testing.T) (*identity.Principal, *identity.Tenant) {
	t.Helper()
	tenantID := uuid.New()
	role := identity.TenantRoleMember
	principal := &identity.Principal{
		ID:         uuid.New(),
		Email:      "member@acme.test",
		FullName:   "Member",
		TenantID:   &tenantID,
		TenantRole: &role,
		IsActive:   true,
	}
	tenant := &identity.Tenant{
		ID:        tenantID,
		Name:      "Acme",
		Subdomain: "acme",
		TierCode:  "pro",
	}
	return principal, tenant
}

func systemPrincipal() *identity.Principal {
	role := identity.SystemRoleAdmin
	return &identity.Principal{
		ID:         uuid.New(),
		Email:      "admin@platform.test",
		SystemRole: &role,
		IsActive:   true,
	}
}

func TestRestoreSessionEmptyStore(t *testing.T) {
	store := NewStore(&fakeClient{}, kvstore.NewMemoryStore())

	snap := store.RestoreSession(context.Background())
	assert.False(t, snap.Authenticated)
	assert.Nil(t, snap.Principal)
	assert.True(t, store.Restored())
}

func TestRestoreSessionFromPersistedState(t *testing.T) {
	principal, tenant := tenantPrincipal(t)
	kv := kvstore.NewMemoryStore()
	ctx := context.Background()

	data, err := json.Marshal(principal)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "portico:session:principal", data))
	data, err = json.Marshal(tenant)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "portico:session:tenant", data))
	data, err = json.Marshal([]string{"inventory", "reports.export"})
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "portico:session:features", data))

	store := NewStore(&fakeClient{}, kv)
	snap := store.RestoreSession(ctx)

	assert.True(t, snap.Authenticated)
	assert.Equal(t, principal.ID, snap.Principal.ID)
	assert.Equal(t, tenant.ID, snap.Tenant.ID)
	assert.True(t, snap.Features.Has("inventory"))
	assert.True(t, snap.Features.Has("reports.export"))
}

func TestRestoreSessionIdempotent(t *testing.T) {
	principal, tenant := tenantPrincipal(t)
	kv := kvstore.NewMemoryStore()
	ctx := context.Background()

	data, _ := json.Marshal(principal)
	require.NoError(t, kv.Set(ctx, "portico:session:principal", data))
	data, _ = json.Marshal(tenant)
	require.NoError(t, kv.Set(ctx, "portico:session:tenant", data))

	store := NewStore(&fakeClient{}, kv)
	first := store.RestoreSession(ctx)
	require.True(t, first.Authenticated)

	// wiping the backing store between calls must not change the outcome
	require.NoError(t, kv.Delete(ctx, "portico:session:principal"))
	second := store.RestoreSession(ctx)
	assert.Equal(t, first.Principal.ID, second.Principal.ID)
	assert.True(t, second.Authenticated)
}

func TestRestoreSessionRefreshesTenantFeatures(t *testing.T) {
	principal, tenant := tenantPrincipal(t)
	kv := kvstore.NewMemoryStore()
	ctx := context.Background()

	data, _ := json.Marshal(principal)
	require.NoError(t, kv.Set(ctx, "portico:session:principal", data))
	data, _ = json.Marshal(tenant)
	require.NoError(t, kv.Set(ctx, "portico:session:tenant", data))
	data, _ = json.Marshal([]string{"inventory"})
	require.NoError(t, kv.Set(ctx, "portico:session:features", data))

	client := &fakeClient{
		featuresFn: func(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
			assert.Equal(t, *principal.TenantID, tenantID)
			return []string{"inventory", "reports.export"}, nil
		},
	}
	store := NewStore(client, kv)

	snap := store.RestoreSession(ctx)
	// the returned snapshot holds the persisted set; the refresh lands later
	assert.True(t, snap.Features.Has("inventory"))
	assert.False(t, snap.Features.Has("reports.export"))

	waitForFeature(t, store, "reports.export")
}

func TestRestoreSessionSystemSkipsFeatureRefresh(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	ctx := context.Background()

	data, _ := json.Marshal(systemPrincipal())
	require.NoError(t, kv.Set(ctx, "portico:session:principal", data))

	fetched := make(chan struct{}, 1)
	client := &fakeClient{
		featuresFn: func(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
			fetched <- struct{}{}
			return nil, nil
		},
	}
	store := NewStore(client, kv)

	snap := store.RestoreSession(ctx)
	require.True(t, snap.Authenticated)

	select {
	case <-fetched:
		t.Fatal("restore of a system principal fetched features")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRestoreSessionMalformedPrincipal(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, "portico:session:principal", []byte("{not json")))

	store := NewStore(&fakeClient{}, kv)
	snap := store.RestoreSession(ctx)
	assert.False(t, snap.Authenticated)
	assert.Nil(t, snap.Principal)
}

func TestCookieValue(t *testing.T) {
	principal, tenant := tenantPrincipal(t)
	client := &fakeClient{
		loginFn: func(ctx context.Context, creds authclient.Credentials) (*authclient.LoginResponse, error) {
			return &authclient.LoginResponse{User: principal, Tenant: tenant}, nil
		},
	}
	store := NewStore(client, kvstore.NewMemoryStore())

	assert.Empty(t, store.CookieValue())

	_, err := store.Login(context.Background(), authclient.Credentials{Email: "member@acme.test"})
	require.NoError(t, err)

	decoded := identity.DecodeCookie(store.CookieValue())
	require.NotNil(t, decoded)
	assert.Equal(t, principal.ID, decoded.ID)
	require.NotNil(t, decoded.TenantID)
	assert.Equal(t, *principal.TenantID, *decoded.TenantID)
}

// watchableStore wraps a memory store with a manually triggered watch
type watchableStore struct {
	*kvstore.MemoryStore
	onChange func()
}

func (w *watchableStore) Watch(onChange func()) error {
	w.onChange = onChange
	return nil
}

func TestWatchStorePropagatesExternalLogout(t *testing.T) {
	principal, tenant := tenantPrincipal(t)
	kv := &watchableStore{MemoryStore: kvstore.NewMemoryStore()}
	ctx := context.Background()

	data, _ := json.Marshal(principal)
	require.NoError(t, kv.Set(ctx, "portico:session:principal", data))
	data, _ = json.Marshal(tenant)
	require.NoError(t, kv.Set(ctx, "portico:session:tenant", data))

	store := NewStore(&fakeClient{}, kv)
	snap := store.RestoreSession(ctx)
	require.True(t, snap.Authenticated)

	watching, err := store.WatchStore()
	require.NoError(t, err)
	require.True(t, watching)

	// another process logs out and clears the persisted session
	require.NoError(t, kv.Delete(ctx, "portico:session:principal"))
	kv.onChange()

	assert.False(t, store.Snapshot().Authenticated)
}

func TestWatchStoreUnsupportedBackend(t *testing.T) {
	store := NewStore(&fakeClient{}, kvstore.NewMemoryStore())
	watching, err := store.WatchStore()
	require.NoError(t, err)
	assert.False(t, watching)
}

func waitForFeature(t *testing.T, store *Store, code string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return store.Snapshot().Features.Has(code)
	}, 2*time.Second, 10*time.Millisecond)
}
