package tenants

import "context"

// Repo is the tenant registry. Get returns errors.ErrTenantNotFound for an
// unknown id.
type Repo interface {
	Upsert(ctx context.Context, tenant *Tenant) error
	Get(ctx context.Context, tenantID string) (*Tenant, error)
	List(ctx context.Context, offset, limit int) ([]*Tenant, error)
	SetActive(ctx context.Context, tenantID string, active bool) error
}
