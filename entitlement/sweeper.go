package entitlement

import (
	"context"
	"time"
)

// SweepResult summarises one sweep.
type SweepResult struct {
	Checked         int
	ToGracePeriod   int
	Expired         int
	ModulesDisabled int
	Failed          int
}

// Sweeper persists license state transitions. Expiry is a bulk, audited
// state change: every non-core module of the tenant is disabled.
type Sweeper struct {
	repo Repo
	opts options
}

func NewSweeper(repo Repo, opts ...Option) *Sweeper {
	return &Sweeper{repo: repo, opts: newOptions(opts)}
}

// Sweep moves every license whose persisted status lags its derived status
// forward. An EXPIRED license that still has enabled non-core modules is
// expired again. Running it twice at the same instant changes nothing the
// second time. A failure on one tenant does not stop the others.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	licenses, err := s.repo.ListLicenses(ctx)
	if err != nil {
		return result, err
	}
	core, err := s.coreModules(ctx)
	if err != nil {
		return result, err
	}

	now := s.opts.nowFunc()
	for _, l := range licenses {
		result.Checked++
		next := l.StatusAt(now)
		if next == l.Status {
			if next != StatusExpired {
				continue
			}
			lingering, err := s.hasEnabledNonCore(ctx, l.TenantID, core)
			if err != nil {
				result.Failed++
				s.opts.logger.Error().Err(err).Str("tenant_id", l.TenantID).Msg("module lookup failed")
				continue
			}
			if !lingering {
				continue
			}
		}

		logger := s.opts.logger.With().
			Str("tenant_id", l.TenantID).
			Str("from", string(l.Status)).
			Str("to", string(next)).
			Logger()

		switch next {
		case StatusExpired:
			disabled, err := s.repo.ExpireLicense(ctx, l.TenantID, now)
			if err != nil {
				result.Failed++
				logger.Error().Err(err).Msg("license expiry failed")
				continue
			}
			result.Expired++
			result.ModulesDisabled += disabled
			logger.Warn().
				Str("audit", "license_expired").
				Int("modules_disabled", disabled).
				Msg("license expired, non-core modules disabled")
		case StatusGracePeriod:
			if err := s.repo.UpdateLicenseStatus(ctx, l.TenantID, next, now); err != nil {
				result.Failed++
				logger.Error().Err(err).Msg("license status update failed")
				continue
			}
			result.ToGracePeriod++
			logger.Info().Int("grace_period_days", l.GracePeriodDays).Msg("license entered grace period")
		default:
			// Returning to ACTIVE only happens through an explicit renewal.
		}
	}
	return result, nil
}

func (s *Sweeper) coreModules(ctx context.Context) (map[string]bool, error) {
	modules, err := s.repo.ListModules(ctx)
	if err != nil {
		return nil, err
	}
	core := make(map[string]bool, len(modules))
	for _, m := range modules {
		if m.Core {
			core[m.Code] = true
		}
	}
	return core, nil
}

func (s *Sweeper) hasEnabledNonCore(ctx context.Context, tenantID string, core map[string]bool) (bool, error) {
	records, err := s.repo.ListTenantModules(ctx, tenantID)
	if err != nil {
		return false, err
	}
	for _, tm := range records {
		if tm.Enabled && !core[tm.ModuleCode] {
			return true, nil
		}
	}
	return false, nil
}

// Run sweeps immediately and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	s.sweepAndLog(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepAndLog(ctx)
		}
	}
}

func (s *Sweeper) sweepAndLog(ctx context.Context) {
	result, err := s.Sweep(ctx)
	if err != nil {
		s.opts.logger.Error().Err(err).Msg("license sweep failed")
		return
	}
	s.opts.logger.Debug().
		Int("checked", result.Checked).
		Int("to_grace_period", result.ToGracePeriod).
		Int("expired", result.Expired).
		Int("modules_disabled", result.ModulesDisabled).
		Int("failed", result.Failed).
		Msg("license sweep complete")
}
