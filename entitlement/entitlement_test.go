package entitlement_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-tenant-guard/entitlement"
	entitlementrepofakes "github.com/jrsteele09/go-tenant-guard/entitlement/repofakes"
	apperrors "github.com/jrsteele09/go-tenant-guard/internal/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	day          = 24 * time.Hour
	testTenantID = "T1"
	moduleCRM    = "crm"
	moduleLeads  = "leads"
	moduleReport = "reports"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testFixture struct {
	clock   *testClock
	repo    *entitlementrepofakes.FakeEntitlementRepo
	gate    *entitlement.Gate
	sweeper *entitlement.Sweeper
	admin   *entitlement.Admin
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	ctx := context.Background()
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	repo := entitlementrepofakes.NewFakeEntitlementRepo()
	require.NoError(t, repo.UpsertModule(ctx, &entitlement.Module{Code: moduleCRM, Name: "CRM", Core: true}))
	require.NoError(t, repo.UpsertModule(ctx, &entitlement.Module{Code: moduleLeads, Name: "Leads"}))
	require.NoError(t, repo.UpsertModule(ctx, &entitlement.Module{Code: moduleReport, Name: "Reports"}))

	opts := []entitlement.Option{
		entitlement.WithNowFunc(clock.Now),
		entitlement.WithLogger(zerolog.Nop()),
	}
	return &testFixture{
		clock:   clock,
		repo:    repo,
		gate:    entitlement.NewGate(repo, opts...),
		sweeper: entitlement.NewSweeper(repo, opts...),
		admin:   entitlement.NewAdmin(repo, opts...),
	}
}

func (f *testFixture) setLicense(t *testing.T, expiry time.Time, graceDays int) {
	t.Helper()
	_, err := f.admin.SetLicense(context.Background(), entitlement.License{
		TenantID:        testTenantID,
		Plan:            "pro",
		ExpiryDate:      expiry,
		UserLimit:       5,
		GracePeriodDays: graceDays,
	})
	require.NoError(t, err)
}

func (f *testFixture) enabled(t *testing.T, code string) bool {
	t.Helper()
	ok, err := f.gate.IsModuleEnabled(context.Background(), testTenantID, code)
	require.NoError(t, err)
	return ok
}

func TestLicense_StatusAt(t *testing.T) {
	expiry := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	l := entitlement.License{ExpiryDate: expiry, GracePeriodDays: 15}

	require.Equal(t, entitlement.StatusActive, l.StatusAt(expiry.Add(-time.Nanosecond)))
	require.Equal(t, entitlement.StatusGracePeriod, l.StatusAt(expiry))
	require.Equal(t, entitlement.StatusGracePeriod, l.StatusAt(expiry.Add(15*day-time.Nanosecond)))
	require.Equal(t, entitlement.StatusExpired, l.StatusAt(expiry.Add(15*day)))

	noGrace := entitlement.License{ExpiryDate: expiry}
	require.Equal(t, entitlement.StatusExpired, noGrace.StatusAt(expiry))
}

func TestLicense_DerivedValues(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	active := entitlement.License{ExpiryDate: now.Add(36 * time.Hour), GracePeriodDays: 15}
	require.Equal(t, 2, active.DaysUntilExpiry(now))
	require.False(t, active.GracePeriodActive(now))
	require.Equal(t, 0, active.GracePeriodDaysRemaining(now))

	grace := entitlement.License{ExpiryDate: now.Add(-5 * day), GracePeriodDays: 15}
	require.Equal(t, 0, grace.DaysUntilExpiry(now))
	require.True(t, grace.GracePeriodActive(now))
	require.Equal(t, 10, grace.GracePeriodDaysRemaining(now))

	expired := entitlement.License{ExpiryDate: now.Add(-16 * day), GracePeriodDays: 15}
	require.False(t, expired.GracePeriodActive(now))
	require.Equal(t, 0, expired.GracePeriodDaysRemaining(now))
}

func TestGate_CoreModuleAlwaysEnabled(t *testing.T) {
	f := setupTestFixture(t)
	// No license and no tenant record at all.
	require.True(t, f.enabled(t, moduleCRM))
}

func TestGate_NonCoreModule(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	// Unknown module and missing license are both "not enabled".
	require.False(t, f.enabled(t, "unknown"))
	require.False(t, f.enabled(t, moduleLeads))

	f.setLicense(t, f.clock.Now().Add(30*day), 15)
	require.False(t, f.enabled(t, moduleLeads), "license alone does not enable a module")

	require.NoError(t, f.admin.EnableModule(ctx, testTenantID, moduleLeads))
	require.True(t, f.enabled(t, moduleLeads))
	require.False(t, f.enabled(t, moduleReport))

	require.NoError(t, f.gate.Require(ctx, testTenantID, moduleLeads))
	err := f.gate.Require(ctx, testTenantID, moduleReport)
	require.ErrorIs(t, err, apperrors.ErrModuleNotEntitled)

	// Another tenant shares nothing.
	ok, err := f.gate.IsModuleEnabled(ctx, "T2", moduleLeads)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, f.admin.DisableModule(ctx, testTenantID, moduleLeads))
	require.False(t, f.enabled(t, moduleLeads))
}

func TestGate_GracePeriodScenario(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	f.setLicense(t, f.clock.Now().Add(day), 15)
	require.NoError(t, f.admin.EnableModule(ctx, testTenantID, moduleLeads))

	// 5 days past expiry.
	f.clock.Advance(6 * day)
	require.True(t, f.enabled(t, moduleLeads))

	// 16 days past expiry, before any sweep has run.
	f.clock.Advance(11 * day)
	require.False(t, f.enabled(t, moduleLeads))
}

type failingRepo struct {
	*entitlementrepofakes.FakeEntitlementRepo
	block bool
}

func (r failingRepo) GetModule(ctx context.Context, _ string) (*entitlement.Module, error) {
	if r.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return nil, errors.New("connection reset")
}

func TestGate_FailsClosed(t *testing.T) {
	repo := failingRepo{FakeEntitlementRepo: entitlementrepofakes.NewFakeEntitlementRepo()}
	gate := entitlement.NewGate(repo, entitlement.WithLogger(zerolog.Nop()))

	ok, err := gate.IsModuleEnabled(context.Background(), testTenantID, moduleCRM)
	require.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	require.False(t, ok)

	err = gate.Require(context.Background(), testTenantID, moduleCRM)
	require.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
}

func TestGate_LookupTimeout(t *testing.T) {
	repo := failingRepo{FakeEntitlementRepo: entitlementrepofakes.NewFakeEntitlementRepo(), block: true}
	gate := entitlement.NewGate(repo,
		entitlement.WithTimeout(20*time.Millisecond),
		entitlement.WithLogger(zerolog.Nop()),
	)

	start := time.Now()
	ok, err := gate.IsModuleEnabled(context.Background(), testTenantID, moduleLeads)
	require.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	require.False(t, ok)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestSweeper_Lifecycle(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	f.setLicense(t, f.clock.Now().Add(day), 15)
	require.NoError(t, f.admin.EnableModule(ctx, testTenantID, moduleCRM))
	require.NoError(t, f.admin.EnableModule(ctx, testTenantID, moduleLeads))
	require.NoError(t, f.admin.EnableModule(ctx, testTenantID, moduleReport))

	result, err := f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, entitlement.SweepResult{Checked: 1}, result)

	f.clock.Advance(2 * day)
	result, err = f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.ToGracePeriod)
	license, err := f.repo.GetLicense(ctx, testTenantID)
	require.NoError(t, err)
	require.Equal(t, entitlement.StatusGracePeriod, license.Status)
	require.True(t, f.enabled(t, moduleLeads))

	f.clock.Advance(15 * day)
	result, err = f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.Expired)
	require.Equal(t, 2, result.ModulesDisabled)

	license, err = f.repo.GetLicense(ctx, testTenantID)
	require.NoError(t, err)
	require.Equal(t, entitlement.StatusExpired, license.Status)

	records, err := f.repo.ListTenantModules(ctx, testTenantID)
	require.NoError(t, err)
	for _, tm := range records {
		require.Equal(t, tm.ModuleCode == moduleCRM, tm.Enabled, tm.ModuleCode)
	}
	require.True(t, f.enabled(t, moduleCRM))
	require.False(t, f.enabled(t, moduleLeads))

	// Idempotent.
	result, err = f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, entitlement.SweepResult{Checked: 1}, result)

	// Enabling a non-core module on an expired license is refused.
	err = f.admin.EnableModule(ctx, testTenantID, moduleLeads)
	require.ErrorIs(t, err, apperrors.ErrLicenseExpired)

	// Renewal does not restore modules.
	renewed, err := f.admin.RenewLicense(ctx, testTenantID, f.clock.Now().Add(365*day))
	require.NoError(t, err)
	require.Equal(t, entitlement.StatusActive, renewed.Status)
	require.False(t, f.enabled(t, moduleLeads))
	require.False(t, f.enabled(t, moduleReport))

	require.NoError(t, f.admin.EnableModule(ctx, testTenantID, moduleLeads))
	require.True(t, f.enabled(t, moduleLeads))
	require.False(t, f.enabled(t, moduleReport))
}

func TestSweeper_Run(t *testing.T) {
	f := setupTestFixture(t)
	f.setLicense(t, f.clock.Now().Add(-20*day), 15)
	require.NoError(t, f.repo.SetTenantModule(context.Background(), testTenantID, moduleLeads, true, f.clock.Now()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.sweeper.Run(ctx, time.Hour)
		close(done)
	}()

	require.Eventually(t, func() bool {
		tm, found, err := f.repo.GetTenantModule(context.Background(), testTenantID, moduleLeads)
		return err == nil && found && !tm.Enabled
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestAdmin_Validation(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, err := f.admin.SetLicense(ctx, entitlement.License{TenantID: testTenantID})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = f.admin.RenewLicense(ctx, testTenantID, f.clock.Now().Add(day))
	require.ErrorIs(t, err, apperrors.ErrLicenseNotFound)

	f.setLicense(t, f.clock.Now().Add(day), 15)
	_, err = f.admin.RenewLicense(ctx, testTenantID, f.clock.Now().Add(-day))
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)

	require.ErrorIs(t, f.admin.DisableModule(ctx, testTenantID, moduleCRM), apperrors.ErrInvalidInput)
	require.ErrorIs(t, f.admin.EnableModule(ctx, testTenantID, "unknown"), apperrors.ErrModuleNotFound)
	require.ErrorIs(t, f.admin.EnableModule(ctx, "T2", moduleLeads), apperrors.ErrLicenseNotFound)
}

func TestAdmin_CheckUserLimit(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.setLicense(t, f.clock.Now().Add(day), 15)

	require.NoError(t, f.admin.CheckUserLimit(ctx, testTenantID, 4))
	require.ErrorIs(t, f.admin.CheckUserLimit(ctx, testTenantID, 5), apperrors.ErrUserLimitReached)
}

func TestAdmin_Describe(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.setLicense(t, f.clock.Now().Add(-5*day), 15)
	require.NoError(t, f.admin.EnableModule(ctx, testTenantID, moduleLeads))

	view, err := f.admin.Describe(ctx, testTenantID)
	require.NoError(t, err)
	require.Equal(t, entitlement.StatusGracePeriod, view.EffectiveStatus)
	require.Equal(t, entitlement.StatusGracePeriod, view.Status)
	require.True(t, view.GracePeriodActive)
	require.Equal(t, 10, view.GracePeriodDaysRemaining)
	require.Equal(t, 0, view.DaysUntilExpiry)
	require.Len(t, view.Modules, 1)
	require.Equal(t, moduleLeads, view.Modules[0].ModuleCode)
}

func (f *testFixture) moduleRecord(t *testing.T, code string) bool {
	t.Helper()
	tm, found, err := f.repo.GetTenantModule(context.Background(), testTenantID, code)
	require.NoError(t, err)
	require.True(t, found)
	return tm.Enabled
}

func TestAdmin_RenewBeforeSweepDoesNotRestoreModules(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.setLicense(t, f.clock.Now().Add(day), 15)
	require.NoError(t, f.admin.EnableModule(ctx, testTenantID, moduleLeads))

	// Lapsed by date, no sweep has run.
	f.clock.Advance(20 * day)
	require.False(t, f.enabled(t, moduleLeads))
	require.True(t, f.moduleRecord(t, moduleLeads))

	renewed, err := f.admin.RenewLicense(ctx, testTenantID, f.clock.Now().Add(365*day))
	require.NoError(t, err)
	require.Equal(t, entitlement.StatusActive, renewed.Status)
	require.False(t, f.moduleRecord(t, moduleLeads))
	require.False(t, f.enabled(t, moduleLeads))

	result, err := f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, entitlement.SweepResult{Checked: 1}, result)
	require.False(t, f.enabled(t, moduleLeads))
}

func TestAdmin_SetLicenseInThePastExpires(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.setLicense(t, f.clock.Now().Add(30*day), 15)
	require.NoError(t, f.admin.EnableModule(ctx, testTenantID, moduleCRM))
	require.NoError(t, f.admin.EnableModule(ctx, testTenantID, moduleLeads))

	f.setLicense(t, f.clock.Now().Add(-20*day), 15)
	license, err := f.repo.GetLicense(ctx, testTenantID)
	require.NoError(t, err)
	require.Equal(t, entitlement.StatusExpired, license.Status)
	require.False(t, f.moduleRecord(t, moduleLeads))
	require.True(t, f.moduleRecord(t, moduleCRM))

	// Replacing with a future date does not bring the module back.
	f.setLicense(t, f.clock.Now().Add(30*day), 15)
	require.False(t, f.enabled(t, moduleLeads))
	require.True(t, f.enabled(t, moduleCRM))
}

func TestAdmin_ReplacingLapsedLicenseBeforeSweep(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.setLicense(t, f.clock.Now().Add(day), 0)
	require.NoError(t, f.admin.EnableModule(ctx, testTenantID, moduleReport))

	f.clock.Advance(2 * day)
	f.setLicense(t, f.clock.Now().Add(90*day), 15)
	require.False(t, f.enabled(t, moduleReport))
}

func TestSweeper_DisablesModulesLeftOnExpiredLicense(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.setLicense(t, f.clock.Now().Add(-20*day), 15)
	require.NoError(t, f.repo.SetTenantModule(ctx, testTenantID, moduleCRM, true, f.clock.Now()))
	require.NoError(t, f.repo.SetTenantModule(ctx, testTenantID, moduleLeads, true, f.clock.Now()))

	result, err := f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.Expired)
	require.Equal(t, 1, result.ModulesDisabled)
	require.False(t, f.moduleRecord(t, moduleLeads))
	require.True(t, f.moduleRecord(t, moduleCRM))

	result, err = f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, entitlement.SweepResult{Checked: 1}, result)
}
