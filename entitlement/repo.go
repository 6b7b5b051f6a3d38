package entitlement

import (
	"context"
	"time"
)

// Repo persists licenses, the module catalogue and per-tenant enablement.
// GetLicense returns errors.ErrLicenseNotFound and GetModule returns
// errors.ErrModuleNotFound for unknown keys.
type Repo interface {
	GetLicense(ctx context.Context, tenantID string) (*License, error)
	UpsertLicense(ctx context.Context, license *License) error
	ListLicenses(ctx context.Context) ([]*License, error)
	UpdateLicenseStatus(ctx context.Context, tenantID string, status LicenseStatus, at time.Time) error

	GetModule(ctx context.Context, code string) (*Module, error)
	UpsertModule(ctx context.Context, module *Module) error
	ListModules(ctx context.Context) ([]*Module, error)

	// GetTenantModule reports found=false when the tenant has no record.
	GetTenantModule(ctx context.Context, tenantID, code string) (*TenantModule, bool, error)
	SetTenantModule(ctx context.Context, tenantID, code string, enabled bool, at time.Time) error
	ListTenantModules(ctx context.Context, tenantID string) ([]*TenantModule, error)

	// ExpireLicense atomically marks the license EXPIRED and disables every
	// non-core module of the tenant, returning how many records changed.
	ExpireLicense(ctx context.Context, tenantID string, at time.Time) (int, error)
}
