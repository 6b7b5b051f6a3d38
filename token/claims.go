package token

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Type discriminates access tokens from refresh tokens. A token of one type
// is never accepted where the other is required.
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

// Claims is the signed payload of a session token.
type Claims struct {
	TenantID    string   `json:"tenant_id,omitempty"`
	Email       string   `json:"email,omitempty"` // informational only
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	Type        Type     `json:"token_type"`
	jwt.RegisteredClaims
}

// UserID returns the subject of the token.
func (c *Claims) UserID() string {
	return c.Subject
}

// ExpiresAtTime returns the expiry as a time.Time, zero when absent.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// HasRole reports whether the token carries the role.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// HasPermission reports whether the token carries the permission.
func (c *Claims) HasPermission(permission string) bool {
	return slices.Contains(c.Permissions, permission)
}
