package entitlement

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-tenant-guard/internal/errors"
)

// Admin performs administrative changes to licenses and module enablement.
type Admin struct {
	repo Repo
	opts options
}

func NewAdmin(repo Repo, opts ...Option) *Admin {
	return &Admin{repo: repo, opts: newOptions(opts)}
}

// SetLicense creates or replaces a tenant's license. Status is derived from
// the dates. A lapsed license being replaced is expired first, and a license
// set with a past date is expired at once, so non-core modules are disabled
// on every path into EXPIRED.
func (a *Admin) SetLicense(ctx context.Context, license License) (*License, error) {
	if strings.TrimSpace(license.TenantID) == "" || license.ExpiryDate.IsZero() {
		return nil, fmt.Errorf("%w: tenant id and expiry date are required", apperrors.ErrInvalidInput)
	}
	if license.GracePeriodDays < 0 || license.UserLimit < 0 {
		return nil, fmt.Errorf("%w: grace period and user limit must not be negative", apperrors.ErrInvalidInput)
	}
	now := a.opts.nowFunc()
	current, err := a.repo.GetLicense(ctx, license.TenantID)
	switch {
	case err == nil:
		if err := a.settleExpiry(ctx, current, now); err != nil {
			return nil, err
		}
	case !apperrors.Is(err, apperrors.ErrLicenseNotFound):
		return nil, err
	}

	license.Status = license.StatusAt(now)
	license.UpdatedAt = now
	if err := a.repo.UpsertLicense(ctx, &license); err != nil {
		return nil, err
	}
	if err := a.settleExpiry(ctx, &license, now); err != nil {
		return nil, err
	}
	a.opts.logger.Info().
		Str("audit", "license_set").
		Str("tenant_id", license.TenantID).
		Str("plan", license.Plan).
		Time("expiry_date", license.ExpiryDate).
		Msg("license set")
	return &license, nil
}

// RenewLicense moves the expiry date into the future and makes the license
// ACTIVE. Modules disabled by an earlier expiry stay disabled until enabled
// explicitly.
func (a *Admin) RenewLicense(ctx context.Context, tenantID string, newExpiry time.Time) (*License, error) {
	now := a.opts.nowFunc()
	if !newExpiry.After(now) {
		return nil, fmt.Errorf("%w: new expiry must be in the future", apperrors.ErrInvalidInput)
	}
	license, err := a.repo.GetLicense(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := a.settleExpiry(ctx, license, now); err != nil {
		return nil, err
	}
	previous := license.Status
	license.ExpiryDate = newExpiry
	license.Status = license.StatusAt(now)
	license.UpdatedAt = now
	if err := a.repo.UpsertLicense(ctx, license); err != nil {
		return nil, err
	}
	a.opts.logger.Info().
		Str("audit", "license_renewed").
		Str("tenant_id", tenantID).
		Str("from", string(previous)).
		Time("expiry_date", newExpiry).
		Msg("license renewed")
	return license, nil
}

// settleExpiry applies an expiry that has not been persisted yet. It is a
// no-op unless the license is EXPIRED by its dates at now.
func (a *Admin) settleExpiry(ctx context.Context, license *License, now time.Time) error {
	if license.StatusAt(now) != StatusExpired {
		return nil
	}
	disabled, err := a.repo.ExpireLicense(ctx, license.TenantID, now)
	if err != nil {
		return err
	}
	license.Status = StatusExpired
	if disabled > 0 {
		a.opts.logger.Warn().
			Str("audit", "license_expired").
			Str("tenant_id", license.TenantID).
			Int("modules_disabled", disabled).
			Msg("license expired, non-core modules disabled")
	}
	return nil
}

// EnableModule enables a module for a tenant. Non-core modules need a license
// that has not expired.
func (a *Admin) EnableModule(ctx context.Context, tenantID, code string) error {
	module, err := a.repo.GetModule(ctx, code)
	if err != nil {
		return err
	}
	now := a.opts.nowFunc()
	if !module.Core {
		license, err := a.repo.GetLicense(ctx, tenantID)
		if err != nil {
			return err
		}
		if !license.Usable(now) {
			return fmt.Errorf("%w: cannot enable %s", apperrors.ErrLicenseExpired, code)
		}
	}
	if err := a.repo.SetTenantModule(ctx, tenantID, code, true, now); err != nil {
		return err
	}
	a.opts.logger.Info().Str("audit", "module_enabled").Str("tenant_id", tenantID).Str("module", code).Msg("module enabled")
	return nil
}

// DisableModule disables a non-core module for a tenant.
func (a *Admin) DisableModule(ctx context.Context, tenantID, code string) error {
	module, err := a.repo.GetModule(ctx, code)
	if err != nil {
		return err
	}
	if module.Core {
		return fmt.Errorf("%w: core module %s cannot be disabled", apperrors.ErrInvalidInput, code)
	}
	if err := a.repo.SetTenantModule(ctx, tenantID, code, false, a.opts.nowFunc()); err != nil {
		return err
	}
	a.opts.logger.Info().Str("audit", "module_disabled").Str("tenant_id", tenantID).Str("module", code).Msg("module disabled")
	return nil
}

// CheckUserLimit returns ErrUserLimitReached when adding one more user would
// exceed the license. A zero limit means unlimited.
func (a *Admin) CheckUserLimit(ctx context.Context, tenantID string, currentUsers int) error {
	license, err := a.repo.GetLicense(ctx, tenantID)
	if err != nil {
		return err
	}
	if license.UserLimit > 0 && currentUsers >= license.UserLimit {
		return fmt.Errorf("%w: %d of %d", apperrors.ErrUserLimitReached, currentUsers, license.UserLimit)
	}
	return nil
}

// Describe returns the license with derived display values and the tenant's
// module records.
func (a *Admin) Describe(ctx context.Context, tenantID string) (LicenseView, error) {
	license, err := a.repo.GetLicense(ctx, tenantID)
	if err != nil {
		return LicenseView{}, err
	}
	records, err := a.repo.ListTenantModules(ctx, tenantID)
	if err != nil {
		return LicenseView{}, err
	}
	modules := make([]TenantModule, 0, len(records))
	for _, tm := range records {
		modules = append(modules, *tm)
	}
	return NewLicenseView(*license, modules, a.opts.nowFunc()), nil
}
