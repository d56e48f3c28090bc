package identity

import (
	"encoding/json"
	"net/url"

	"github.com/google/uuid"
)

// CookieName is the name of the redacted identity cookie read by the edge guard
const CookieName = "portico_identity"

// CookieIdentity is the redacted identity persisted in a cookie for the edge
// guard. It carries only what routing decisions need; tokens and profile
// details never appear here. TenantID must round-trip (including absence)
// because the edge layer discriminates principal kind from this field alone.
type CookieIdentity struct {
	ID       uuid.UUID  `json:"id"`
	Email    string     `json:"email"`
	FullName string     `json:"full_name"`
	Role     string     `json:"role"`
	IsActive bool       `json:"is_active"`
	TenantID *uuid.UUID `json:"tenant_id,omitempty"`
}

// Kind returns the principal variant encoded in the cookie
func (c *CookieIdentity) Kind() Kind {
	if c.TenantID == nil {
		return KindSystem
	}
	return KindTenant
}

// NewCookieIdentity redacts a principal down to its cookie form
func NewCookieIdentity(p *Principal) *CookieIdentity {
	if p == nil {
		return nil
	}
	return &CookieIdentity{
		ID:       p.ID,
		Email:    p.Email,
		FullName: p.FullName,
		Role:     p.RoleName(),
		IsActive: p.IsActive,
		TenantID: p.TenantID,
	}
}

// EncodeCookie serializes a redacted identity as URL-encoded JSON, the exact
// format the edge guard consumes.
func EncodeCookie(c *CookieIdentity) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return url.QueryEscape(string(data)), nil
}

// DecodeCookie parses a URL-encoded JSON identity cookie value. Any decoding
// failure returns nil: a corrupt cookie degrades to "not authenticated"
// rather than locking the user behind an error.
func DecodeCookie(value string) *CookieIdentity {
	if value == "" {
		return nil
	}
	raw, err := url.QueryUnescape(value)
	if err != nil {
		return nil
	}
	var c CookieIdentity
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil
	}
	if c.ID == uuid.Nil {
		return nil
	}
	return &c
}
