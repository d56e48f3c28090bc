package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/porticohq/portico/pkg/async"
	"github.com/porticohq/portico/pkg/authclient"
	"github.com/porticohq/portico/pkg/features"
	"github.com/porticohq/portico/pkg/optimistic"
)

// Login authenticates with credentials. On success the snapshot holds the
// principal and tenant immediately; the feature set arrives via a
// fire-and-forget refresh so login latency never waits on it.
func (s *Store) Login(ctx context.Context, creds authclient.Credentials) (Snapshot, error) {
	return s.authenticate(ctx, "login", func(ctx context.Context) (*authclient.LoginResponse, error) {
		return s.client.Login(ctx, creds)
	})
}

// Register creates an account and authenticates it, with the same snapshot
// semantics as Login.
func (s *Store) Register(ctx context.Context, payload authclient.Registration) (Snapshot, error) {
	return s.authenticate(ctx, "register", func(ctx context.Context) (*authclient.LoginResponse, error) {
		return s.client.Register(ctx, payload)
	})
}

// LoginSSO installs a login response produced outside the credential path,
// the OIDC code exchange. The backend client adopts the provider-issued
// tokens when it can, then the snapshot semantics match Login.
func (s *Store) LoginSSO(ctx context.Context, resp *authclient.LoginResponse) (Snapshot, error) {
	if resp != nil {
		if carrier, ok := s.client.(authclient.TokenCarrier); ok {
			carrier.SetTokens(resp.Tokens)
		}
	}
	return s.authenticate(ctx, "sso", func(context.Context) (*authclient.LoginResponse, error) {
		if resp == nil {
			return nil, errors.New("sso exchange returned no response")
		}
		return resp, nil
	})
}

func (s *Store) authenticate(ctx context.Context, op string, call func(context.Context) (*authclient.LoginResponse, error)) (Snapshot, error) {
	s.setLoading(true)

	resp, err := call(ctx)
	if err != nil {
		s.setError(err)
		if s.metrics != nil {
			s.metrics.LoginsTotal.WithLabelValues("failure").Inc()
		}
		if s.logger != nil {
			s.logger.WithError(err).Warnf("Authentication failed during %s", op)
		}
		return s.Snapshot(), err
	}
	if resp.User == nil {
		err := fmt.Errorf("%s response missing user", op)
		s.setError(err)
		return s.Snapshot(), err
	}

	s.mu.Lock()
	s.generation++
	generation := s.generation
	s.restored = true
	s.snapshot = Snapshot{
		Principal:     resp.User,
		Tenant:        resp.Tenant,
		Features:      features.NewSet(nil),
		Authenticated: deriveAuthenticated(resp.User, resp.Tenant),
	}
	snap := s.snapshot
	s.mu.Unlock()

	s.persistAll(ctx, snap)

	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues("success").Inc()
	}

	if resp.User.IsTenant() {
		async.SafeGo(s.refreshTimeout, "feature-refresh", func(ctx context.Context) error {
			return s.refreshFeatures(ctx, generation)
		})
	}

	return snap, nil
}

// Logout invalidates the backend session and clears local state. Local state
// is cleared even when the backend call fails; the tokens are gone either
// way and a half-logged-out session is worse than a dead one.
func (s *Store) Logout(ctx context.Context) error {
	err := s.client.Logout(ctx)
	if err != nil && s.logger != nil {
		s.logger.WithError(err).Warn("Backend logout failed, clearing local session anyway")
	}

	s.mu.Lock()
	s.generation++
	s.snapshot = Snapshot{}
	s.mu.Unlock()

	s.clearPersisted(ctx)

	if s.metrics != nil {
		s.metrics.LogoutsTotal.Inc()
	}
	return err
}

// RefreshPrincipal re-fetches the authenticated principal from the backend,
// picking up role or profile changes. A 401 means the backend session is
// gone and clears local state; any other failure keeps the current snapshot.
func (s *Store) RefreshPrincipal(ctx context.Context) error {
	snap := s.Snapshot()
	if snap.Principal == nil {
		return errors.New("session: no principal to refresh")
	}

	principal, err := s.client.CurrentPrincipal(ctx)
	if err != nil {
		var apiErr *authclient.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			s.mu.Lock()
			s.generation++
			s.snapshot = Snapshot{}
			s.mu.Unlock()
			s.clearPersisted(ctx)
		}
		return err
	}

	s.mu.Lock()
	s.snapshot.Principal = principal
	s.snapshot.Authenticated = deriveAuthenticated(principal, s.snapshot.Tenant)
	snap = s.snapshot
	s.mu.Unlock()

	s.persistAll(ctx, snap)
	return nil
}

// RefreshFeatures re-fetches the feature set for the current tenant. Safe to
// call from background schedules; concurrent calls collapse into one fetch.
// The returned error is informational: failures keep the cached set and
// callers only need it for logging.
func (s *Store) RefreshFeatures(ctx context.Context) error {
	s.mu.RLock()
	generation := s.generation
	s.mu.RUnlock()
	return s.refreshFeatures(ctx, generation)
}

// refreshFeatures fetches features and applies them only if the session
// generation is unchanged; a logout or re-login mid-fetch discards the
// result rather than attaching one principal's features to another.
func (s *Store) refreshFeatures(ctx context.Context, generation uint64) error {
	snap := s.Snapshot()
	if snap.Principal == nil || !snap.Principal.IsTenant() {
		return nil
	}
	tenantID := *snap.Principal.TenantID

	_, err, _ := s.sf.Do("features", func() (interface{}, error) {
		codes, err := s.client.Features(ctx, tenantID)
		if err != nil {
			if s.metrics != nil {
				s.metrics.FeatureRefreshTotal.WithLabelValues("failure").Inc()
			}
			if s.logger != nil {
				s.logger.WithError(err).Warn("Feature refresh failed, keeping cached set")
			}
			return nil, err
		}

		newSet := features.NewSet(codes)

		s.mu.Lock()
		if s.generation != generation {
			s.mu.Unlock()
			if s.metrics != nil {
				s.metrics.FeatureRefreshStaleTotal.Inc()
			}
			return nil, nil
		}
		oldSet := s.snapshot.Features
		applyErr := optimistic.Do(ctx, optimistic.Mutation[features.Set]{
			Snapshot: func() features.Set { return oldSet },
			Apply: func() {
				s.snapshot.Features = newSet
			},
			Commit: func(ctx context.Context) error {
				return s.persistFeatures(ctx, newSet)
			},
			Rollback: func(prev features.Set) {
				s.snapshot.Features = prev
			},
		})
		s.mu.Unlock()
		if applyErr != nil {
			if s.metrics != nil {
				s.metrics.FeatureRefreshTotal.WithLabelValues("failure").Inc()
			}
			return nil, applyErr
		}

		if s.metrics != nil {
			s.metrics.FeatureRefreshTotal.WithLabelValues("success").Inc()
		}
		return nil, nil
	})
	return err
}

func (s *Store) setLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Loading = loading
	if loading {
		s.snapshot.LastError = ""
	}
}

// setError records the failure and ends the loading state in one step so no
// reader observes an errored snapshot still marked loading.
func (s *Store) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.LastError = err.Error()
	s.snapshot.Loading = false
}
