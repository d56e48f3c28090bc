package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/porticohq/portico/pkg/async"
	"github.com/porticohq/portico/pkg/authclient"
	"github.com/porticohq/portico/pkg/features"
	"github.com/porticohq/portico/pkg/identity"
	"github.com/porticohq/portico/pkg/kvstore"
	"github.com/porticohq/portico/pkg/observability"
)

// Persisted state keys. Written through on every auth change; restore reads
// them back without touching the network.
const (
	keyPrincipal = "portico:session:principal"
	keyTenant    = "portico:session:tenant"
	keyFeatures  = "portico:session:features"
)

// Store holds session state for one browser-equivalent client. All reads go
// through Snapshot; all writes replace the snapshot under the lock.
type Store struct {
	client authclient.Client
	kv     kvstore.Store

	logger  *observability.Logger
	metrics *observability.Metrics

	refreshTimeout time.Duration

	mu       sync.RWMutex
	snapshot Snapshot
	restored bool

	// generation invalidates in-flight feature refreshes when the principal
	// changes underneath them
	generation uint64
	sf         singleflight.Group
}

// Option configures a Store
type Option func(*Store)

// WithLogger attaches a structured logger
func WithLogger(logger *observability.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithMetrics attaches gateway metrics
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithRefreshTimeout sets the deadline for background feature refreshes
func WithRefreshTimeout(d time.Duration) Option {
	return func(s *Store) { s.refreshTimeout = d }
}

// NewStore creates a session store backed by the auth client and the
// key-value store for persistence
func NewStore(client authclient.Client, kv kvstore.Store, opts ...Option) *Store {
	s := &Store{
		client:         client,
		kv:             kv,
		refreshTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current session state. The returned value is a copy;
// mutating it does not affect the store.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Restored reports whether RestoreSession has completed at least once.
// Guard layers return 503 rather than a misleading redirect before this.
func (s *Store) Restored() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restored
}

// CookieValue returns the encoded identity cookie for the current principal,
// or "" when unauthenticated.
func (s *Store) CookieValue() string {
	snap := s.Snapshot()
	if snap.Principal == nil {
		return ""
	}
	value, err := identity.EncodeCookie(identity.NewCookieIdentity(snap.Principal))
	if err != nil {
		return ""
	}
	return value
}

// RestoreSession loads persisted state and returns without waiting on the
// network. It is idempotent: the first call decides the state, later calls
// are no-ops. Malformed or missing persisted state restores to
// unauthenticated. Restoring a tenant principal schedules a fire-and-forget
// feature refresh so the cached set does not wait for the next schedule;
// the returned snapshot still carries the persisted set.
func (s *Store) RestoreSession(ctx context.Context) Snapshot {
	s.mu.Lock()

	if s.restored {
		defer s.mu.Unlock()
		return s.snapshot
	}
	s.restored = true

	principal, tenant, featureSet, ok := s.loadPersisted(ctx)
	if !ok {
		s.snapshot = Snapshot{}
		s.mu.Unlock()
		return s.snapshot
	}

	s.snapshot = Snapshot{
		Principal:     principal,
		Tenant:        tenant,
		Features:      featureSet,
		Authenticated: deriveAuthenticated(principal, tenant),
	}
	snap := s.snapshot
	generation := s.generation
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SessionRestoresTotal.Inc()
	}

	if principal.IsTenant() {
		async.SafeGo(s.refreshTimeout, "feature-refresh", func(ctx context.Context) error {
			return s.refreshFeatures(ctx, generation)
		})
	}
	return snap
}

// WatchStore subscribes to external writes when the backing store supports
// it, reloading persisted state so a logout in one process propagates to the
// others. Returns false when the backend is not watchable.
func (s *Store) WatchStore() (bool, error) {
	watchable, ok := s.kv.(kvstore.Watchable)
	if !ok {
		return false, nil
	}
	err := watchable.Watch(func() {
		s.reloadFromStore()
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// reloadFromStore re-reads persisted state after an external change. Only
// meaningful once restored; before that the initial restore will pick the
// state up anyway.
func (s *Store) reloadFromStore() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.restored {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	principal, tenant, featureSet, ok := s.loadPersisted(ctx)
	if !ok {
		s.generation++
		s.snapshot = Snapshot{}
		return
	}
	s.generation++
	s.snapshot = Snapshot{
		Principal:     principal,
		Tenant:        tenant,
		Features:      featureSet,
		Authenticated: deriveAuthenticated(principal, tenant),
	}
}

// loadPersisted reads and decodes the persisted session. Callers hold the
// lock. Returns ok=false when there is no usable principal.
func (s *Store) loadPersisted(ctx context.Context) (*identity.Principal, *identity.Tenant, features.Set, bool) {
	raw, err := s.kv.Get(ctx, keyPrincipal)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) && s.logger != nil {
			s.logger.WithError(err).Warn("Failed to read persisted principal")
		}
		return nil, nil, nil, false
	}

	var principal identity.Principal
	if err := json.Unmarshal(raw, &principal); err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Warn("Discarding malformed persisted principal")
		}
		return nil, nil, nil, false
	}

	var tenant *identity.Tenant
	if raw, err := s.kv.Get(ctx, keyTenant); err == nil {
		var t identity.Tenant
		if err := json.Unmarshal(raw, &t); err == nil {
			tenant = &t
		}
	}

	featureSet := features.NewSet(nil)
	if raw, err := s.kv.Get(ctx, keyFeatures); err == nil {
		var codes []string
		if err := json.Unmarshal(raw, &codes); err == nil {
			featureSet = features.NewSet(codes)
		}
	}

	return &principal, tenant, featureSet, true
}

// persistAll writes the full session through to the store. Persistence
// failures are logged, not surfaced: the in-memory session stays usable.
func (s *Store) persistAll(ctx context.Context, snap Snapshot) {
	if snap.Principal == nil {
		s.clearPersisted(ctx)
		return
	}

	if data, err := json.Marshal(snap.Principal); err == nil {
		if err := s.kv.Set(ctx, keyPrincipal, data); err != nil && s.logger != nil {
			s.logger.WithError(err).Warn("Failed to persist principal")
		}
	}

	if snap.Tenant != nil {
		if data, err := json.Marshal(snap.Tenant); err == nil {
			if err := s.kv.Set(ctx, keyTenant, data); err != nil && s.logger != nil {
				s.logger.WithError(err).Warn("Failed to persist tenant")
			}
		}
	} else {
		s.kv.Delete(ctx, keyTenant)
	}

	s.persistFeatures(ctx, snap.Features)
}

func (s *Store) persistFeatures(ctx context.Context, set features.Set) error {
	data, err := json.Marshal(set.Codes())
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, keyFeatures, data); err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Warn("Failed to persist feature set")
		}
		return err
	}
	return nil
}

func (s *Store) clearPersisted(ctx context.Context) {
	for _, key := range []string{keyPrincipal, keyTenant, keyFeatures} {
		if err := s.kv.Delete(ctx, key); err != nil && s.logger != nil {
			s.logger.WithError(err).Warn("Failed to clear persisted session key")
		}
	}
}
