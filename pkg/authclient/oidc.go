package authclient

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/porticohq/portico/pkg/identity"
)

// OIDCConfig configures the SSO login path
type OIDCConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// OIDCAuthenticator exchanges an authorization code with an OIDC provider
// and maps the ID-token claims onto the same login response shape the REST
// login produces, so the session store treats both paths identically.
type OIDCAuthenticator struct {
	verifier     *oidc.IDTokenVerifier
	oauth2Config *oauth2.Config
}

// NewOIDC discovers the provider and builds an authenticator
func NewOIDC(ctx context.Context, cfg OIDCConfig) (*OIDCAuthenticator, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	return &OIDCAuthenticator{
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
		},
	}, nil
}

// AuthCodeURL returns the provider's authorization URL for the given state
func (a *OIDCAuthenticator) AuthCodeURL(state string) string {
	return a.oauth2Config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// oidcClaims are the claims the platform's identity provider is configured
// to emit. tenant_id and role mirror the auth backend's own token claims.
type oidcClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	TenantID      string `json:"tenant_id"`
	Role          string `json:"role"`
}

// Exchange trades an authorization code for tokens and maps the verified
// ID-token claims to a login response.
func (a *OIDCAuthenticator) Exchange(ctx context.Context, code string) (*LoginResponse, error) {
	token, err := a.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("missing id_token in provider response")
	}

	idToken, err := a.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}

	var claims oidcClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	principal, err := principalFromClaims(idToken.Subject, claims)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		User: principal,
		Tokens: TokenPair{
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
			TokenType:    "Bearer",
		},
	}, nil
}

func principalFromClaims(subject string, claims oidcClaims) (*identity.Principal, error) {
	id, err := uuid.Parse(subject)
	if err != nil {
		// Providers that issue opaque subjects get a stable derived id.
		id = uuid.NewSHA1(uuid.NameSpaceURL, []byte(subject))
	}

	now := time.Now().UTC()
	principal := &identity.Principal{
		ID:         id,
		Email:      claims.Email,
		FullName:   claims.Name,
		IsActive:   true,
		IsVerified: claims.EmailVerified,
		CreatedAt:  now,
	}

	if claims.TenantID != "" {
		tenantID, err := uuid.Parse(claims.TenantID)
		if err != nil {
			return nil, fmt.Errorf("invalid tenant_id claim: %w", err)
		}
		principal.TenantID = &tenantID
		if claims.Role != "" {
			role := identity.TenantRole(claims.Role)
			principal.TenantRole = &role
		}
	} else if claims.Role != "" {
		role := identity.SystemRole(claims.Role)
		principal.SystemRole = &role
	}

	return principal, nil
}
