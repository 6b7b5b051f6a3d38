// Package tenantctx carries the verified tenant identity of a request on its
// context.Context. A value is built once per request and never mutated, so
// concurrent requests cannot observe each other's identity.
package tenantctx

import (
	"context"
	"fmt"
	"slices"

	apperrors "github.com/jrsteele09/go-tenant-guard/internal/errors"
)

// Source records how the tenant identity was established.
type Source string

const (
	SourceToken  Source = "token"
	SourceHeader Source = "header"
)

// Context is the request scoped tenant identity.
type Context struct {
	tenantID    string
	userID      string
	email       string
	roles       []string
	permissions []string
	source      Source
}

// New builds a token derived tenant context. Role and permission slices are
// copied.
func New(tenantID, userID, email string, roles, permissions []string) Context {
	return Context{
		tenantID:    tenantID,
		userID:      userID,
		email:       email,
		roles:       slices.Clone(roles),
		permissions: slices.Clone(permissions),
		source:      SourceToken,
	}
}

// FromHeader builds a context that carries only a tenant id taken from a
// request header. It has no user and no authorities.
func FromHeader(tenantID string) Context {
	return Context{tenantID: tenantID, source: SourceHeader}
}

func (c Context) TenantID() string { return c.tenantID }
func (c Context) UserID() string   { return c.userID }
func (c Context) Email() string    { return c.email }
func (c Context) Source() Source   { return c.source }

// Roles returns a copy of the roles.
func (c Context) Roles() []string { return slices.Clone(c.roles) }

// Permissions returns a copy of the permissions.
func (c Context) Permissions() []string { return slices.Clone(c.permissions) }

func (c Context) HasRole(role string) bool {
	return slices.Contains(c.roles, role)
}

func (c Context) HasPermission(permission string) bool {
	return slices.Contains(c.permissions, permission)
}

type contextKey struct{}

// WithTenant returns a child of ctx carrying tc.
func WithTenant(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, contextKey{}, tc)
}

// FromContext returns the tenant context and whether one was attached.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(contextKey{}).(Context)
	if !ok || tc.tenantID == "" {
		return Context{}, false
	}
	return tc, true
}

// Require returns the tenant context or ErrTenantIdentityMissing.
func Require(ctx context.Context) (Context, error) {
	tc, ok := FromContext(ctx)
	if !ok {
		return Context{}, apperrors.ErrTenantIdentityMissing
	}
	return tc, nil
}

// MustFromContext returns the tenant context and panics when none is
// attached. Intended for code paths that sit behind the service verifier.
func MustFromContext(ctx context.Context) Context {
	tc, err := Require(ctx)
	if err != nil {
		panic(fmt.Errorf("tenantctx: %w", err))
	}
	return tc
}
