package entitlement

import (
	"context"
	"fmt"

	apperrors "github.com/jrsteele09/go-tenant-guard/internal/errors"
)

// Gate answers module entitlement questions for request handling. Lookups
// are bounded by a timeout and any store failure fails closed.
type Gate struct {
	repo Repo
	opts options
}

func NewGate(repo Repo, opts ...Option) *Gate {
	return &Gate{repo: repo, opts: newOptions(opts)}
}

// IsModuleEnabled reports whether tenantID may use the module. Unknown
// modules and tenants without a license are not enabled. A non-nil error
// always comes with false.
func (g *Gate) IsModuleEnabled(ctx context.Context, tenantID, code string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, g.opts.timeout)
	defer cancel()

	module, err := g.repo.GetModule(ctx, code)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrModuleNotFound) {
			return false, nil
		}
		return false, g.storeError("module lookup", err)
	}
	if module.Core {
		return true, nil
	}

	tm, found, err := g.repo.GetTenantModule(ctx, tenantID, code)
	if err != nil {
		return false, g.storeError("tenant module lookup", err)
	}
	if !found || !tm.Enabled {
		return false, nil
	}

	license, err := g.repo.GetLicense(ctx, tenantID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrLicenseNotFound) {
			return false, nil
		}
		return false, g.storeError("license lookup", err)
	}
	return license.Usable(g.opts.nowFunc()), nil
}

// Require returns ErrModuleNotEntitled when the module may not be used, and
// ErrStoreUnavailable when the decision could not be made.
func (g *Gate) Require(ctx context.Context, tenantID, code string) error {
	enabled, err := g.IsModuleEnabled(ctx, tenantID, code)
	if err != nil {
		return err
	}
	if !enabled {
		return fmt.Errorf("%w: %s", apperrors.ErrModuleNotEntitled, code)
	}
	return nil
}

func (g *Gate) storeError(op string, err error) error {
	g.opts.logger.Error().Err(err).Str("op", op).Msg("entitlement store unavailable, denying")
	return fmt.Errorf("%w: %s: %v", apperrors.ErrStoreUnavailable, op, err)
}
