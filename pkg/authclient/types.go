package authclient

import (
	"context"

	"github.com/google/uuid"

	"github.com/porticohq/portico/pkg/identity"
)

// Credentials is the login payload
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the tenant sign-up payload
type Registration struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FullName   string `json:"full_name"`
	TenantName string `json:"tenant_name,omitempty"`
	Subdomain  string `json:"subdomain,omitempty"`
}

// TokenPair carries the tokens issued by the auth backend
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// LoginResponse is the success shape shared by login and register
type LoginResponse struct {
	User   *identity.Principal `json:"user"`
	Tenant *identity.Tenant    `json:"tenant"`
	Tokens TokenPair           `json:"tokens"`
}

// TokenCarrier is implemented by clients that hold the issued token pair
// locally. The SSO callback uses it to hand provider-issued tokens to the
// REST client so follow-up calls authenticate.
type TokenCarrier interface {
	SetTokens(TokenPair)
}

// Client is the auth backend collaborator consumed by the session store.
// The backend is the source of truth for identity and enforcement; this
// client only transports its answers.
type Client interface {
	// Login authenticates with credentials
	Login(ctx context.Context, creds Credentials) (*LoginResponse, error)

	// Register creates an account and authenticates it
	Register(ctx context.Context, payload Registration) (*LoginResponse, error)

	// Logout invalidates the server-side tokens
	Logout(ctx context.Context) error

	// CurrentPrincipal re-fetches the authenticated principal
	CurrentPrincipal(ctx context.Context) (*identity.Principal, error)

	// Features fetches the enabled feature codes for a tenant
	Features(ctx context.Context, tenantID uuid.UUID) ([]string, error)
}
