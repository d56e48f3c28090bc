// Package authclient is the HTTP client for the platform auth backend. The
// backend issues tokens and enforces permissions server-side; everything in
// this repository treats its answers as authoritative.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/porticohq/portico/pkg/identity"
)

// HTTPClient implements Client against the auth backend's REST API
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client

	mu     sync.RWMutex
	tokens TokenPair
}

// Option configures an HTTPClient
type Option func(*HTTPClient)

// WithHTTPClient overrides the underlying http.Client (timeouts, transport
// wrapping for tracing).
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) {
		h.httpClient = c
	}
}

// New creates a client for the auth backend at baseURL
func New(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tokens returns the most recently issued token pair
func (c *HTTPClient) Tokens() TokenPair {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

// SetTokens installs a token pair (restored from persisted state)
func (c *HTTPClient) SetTokens(tokens TokenPair) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = tokens
}

// Login authenticates with credentials
func (c *HTTPClient) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	return c.authenticate(ctx, "/api/v1/auth/login", creds)
}

// Register creates an account and authenticates it
func (c *HTTPClient) Register(ctx context.Context, payload Registration) (*LoginResponse, error) {
	return c.authenticate(ctx, "/api/v1/auth/register", payload)
}

func (c *HTTPClient) authenticate(ctx context.Context, path string, payload interface{}) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, path, payload, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, fmt.Errorf("auth backend returned no user")
	}
	c.SetTokens(resp.Tokens)
	return &resp, nil
}

// Logout invalidates the server-side tokens and forgets the local pair
func (c *HTTPClient) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil)
	c.SetTokens(TokenPair{})
	return err
}

// CurrentPrincipal re-fetches the authenticated principal
func (c *HTTPClient) CurrentPrincipal(ctx context.Context) (*identity.Principal, error) {
	var resp struct {
		User *identity.Principal `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, fmt.Errorf("auth backend returned no user")
	}
	return resp.User, nil
}

// Features fetches the enabled feature codes for a tenant
func (c *HTTPClient) Features(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	var resp struct {
		Features []string `json:"features"`
	}
	path := fmt.Sprintf("/api/v1/tenants/%s/features", tenantID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Features, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tokens := c.Tokens(); tokens.AccessToken != "" {
		req.Header.Set("Authorization", tokens.TokenType+" "+tokens.AccessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth backend request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return NewAPIError(resp.StatusCode, data)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
