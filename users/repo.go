package users

import (
	"context"
	"time"
)

// UserRepo stores user credentials and tenant memberships. Lookups of an
// unknown user return errors.ErrUserNotFound.
type UserRepo interface {
	Upsert(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	CountByTenant(ctx context.Context, tenantID string) (int, error)
	SetBlocked(ctx context.Context, id string, blocked bool) error
	SetVerified(ctx context.Context, id string, verified bool) error
	SetLastLogin(ctx context.Context, id string, at time.Time) error
}
