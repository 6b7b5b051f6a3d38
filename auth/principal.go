package auth

import (
	"context"
	"slices"
	"sort"

	"github.com/jrsteele09/go-tenant-guard/tenantctx"
	"github.com/jrsteele09/go-tenant-guard/token"
)

// RolePrefix tags role authorities so roles and permissions can share one
// namespace.
const RolePrefix = "ROLE_"

// Principal is the authorization view of a verified access token.
type Principal struct {
	UserID      string
	TenantID    string
	Email       string
	TokenID     string
	roles       []string
	permissions []string
	authorities map[string]struct{}
}

// NewPrincipal derives authorities = {"ROLE_"+r} ∪ permissions.
func NewPrincipal(claims *token.Claims) *Principal {
	p := &Principal{
		UserID:      claims.UserID(),
		TenantID:    claims.TenantID,
		Email:       claims.Email,
		TokenID:     claims.ID,
		roles:       slices.Clone(claims.Roles),
		permissions: slices.Clone(claims.Permissions),
		authorities: make(map[string]struct{}, len(claims.Roles)+len(claims.Permissions)),
	}
	for _, r := range claims.Roles {
		p.authorities[RolePrefix+r] = struct{}{}
	}
	for _, perm := range claims.Permissions {
		p.authorities[perm] = struct{}{}
	}
	return p
}

// Authorities returns the sorted authority set.
func (p *Principal) Authorities() []string {
	out := make([]string, 0, len(p.authorities))
	for a := range p.authorities {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

func (p *Principal) HasAuthority(authority string) bool {
	_, ok := p.authorities[authority]
	return ok
}

func (p *Principal) HasRole(role string) bool {
	return p.HasAuthority(RolePrefix + role)
}

func (p *Principal) HasPermission(permission string) bool {
	return p.HasAuthority(permission)
}

// TenantContext builds the request scoped tenant identity.
func (p *Principal) TenantContext() tenantctx.Context {
	return tenantctx.New(p.TenantID, p.UserID, p.Email, p.roles, p.permissions)
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
