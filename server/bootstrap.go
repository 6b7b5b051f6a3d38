package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/jrsteele09/go-tenant-guard/entitlement"
	"github.com/jrsteele09/go-tenant-guard/internal/config"
	apperrors "github.com/jrsteele09/go-tenant-guard/internal/errors"
	"github.com/jrsteele09/go-tenant-guard/tenants"
	"github.com/jrsteele09/go-tenant-guard/users"
	"github.com/rs/zerolog"
)

const (
	systemLicensePlan  = "system"
	systemLicenseYears = 10
	demoPassword       = "Passw0rd!"
	demoTenantActive   = "T1"
	demoTenantLapsed   = "T2"
)

// DefaultModules is the module catalogue seeded on an empty store.
var DefaultModules = []entitlement.Module{
	{Code: "dashboard", Name: "Dashboard", Core: true},
	{Code: "users", Name: "User Management", Core: true},
	{Code: ModuleLeads, Name: "Leads", Core: false},
	{Code: "reports", Name: "Reports", Core: false},
}

// BootstrapRepos are the stores seeded by InitialiseSystem.
type BootstrapRepos struct {
	Tenants      tenants.Repo
	Users        users.UserRepo
	Entitlements entitlement.Repo
}

// InitialiseSystem makes sure the module catalogue, the system tenant with an
// unlimited license and its administrator exist. It returns the generated
// administrator password on first creation, otherwise an empty string.
func InitialiseSystem(ctx context.Context, repos BootstrapRepos, cfg config.BootstrapConfig, nowFunc func() time.Time, logger zerolog.Logger) (generatedPassword string, err error) {
	if nowFunc == nil {
		nowFunc = time.Now
	}
	admin := entitlement.NewAdmin(repos.Entitlements, entitlement.WithNowFunc(nowFunc), entitlement.WithLogger(logger))

	// Step 1: module catalogue
	for _, m := range DefaultModules {
		if _, err := repos.Entitlements.GetModule(ctx, m.Code); err == nil {
			continue
		} else if !apperrors.Is(err, apperrors.ErrModuleNotFound) {
			return "", fmt.Errorf("[InitialiseSystem] GetModule %s: %w", m.Code, err)
		}
		module := m
		if err := repos.Entitlements.UpsertModule(ctx, &module); err != nil {
			return "", fmt.Errorf("[InitialiseSystem] UpsertModule %s: %w", m.Code, err)
		}
	}

	// Step 2: system tenant and its license
	systemTenantID := cfg.GetSystemTenantID()
	if err := ensureTenant(ctx, repos.Tenants, systemTenantID, "System", nowFunc()); err != nil {
		return "", err
	}
	if _, err := repos.Entitlements.GetLicense(ctx, systemTenantID); apperrors.Is(err, apperrors.ErrLicenseNotFound) {
		if _, err := admin.SetLicense(ctx, entitlement.License{
			TenantID:   systemTenantID,
			Plan:       systemLicensePlan,
			ExpiryDate: nowFunc().AddDate(systemLicenseYears, 0, 0),
		}); err != nil {
			return "", fmt.Errorf("[InitialiseSystem] system license: %w", err)
		}
	} else if err != nil {
		return "", fmt.Errorf("[InitialiseSystem] GetLicense: %w", err)
	}

	// Step 3: system administrator
	generatedPassword, err = createSystemAdmin(ctx, repos.Users, systemTenantID, cfg, nowFunc())
	if err != nil {
		return "", err
	}
	if generatedPassword != "" {
		logger.Warn().
			Str("tenant_id", systemTenantID).
			Str("email", cfg.GetSystemAdminEmail()).
			Str("password", generatedPassword).
			Msg("system administrator created, save this password, it will not be displayed again")
	}

	if cfg.GetSeedDemoData() {
		if err := seedDemoData(ctx, repos, admin, nowFunc()); err != nil {
			return "", err
		}
		logger.Info().Str("active", demoTenantActive).Str("lapsed", demoTenantLapsed).Msg("demo tenants seeded")
	}
	return generatedPassword, nil
}

func ensureTenant(ctx context.Context, repo tenants.Repo, id, name string, now time.Time) error {
	if _, err := repo.Get(ctx, id); err == nil {
		return nil
	} else if !apperrors.Is(err, apperrors.ErrTenantNotFound) {
		return fmt.Errorf("[InitialiseSystem] get tenant %s: %w", id, err)
	}
	if err := repo.Upsert(ctx, &tenants.Tenant{ID: id, Name: name, Active: true, CreatedAt: now}); err != nil {
		return fmt.Errorf("[InitialiseSystem] create tenant %s: %w", id, err)
	}
	return nil
}

func createSystemAdmin(ctx context.Context, repo users.UserRepo, tenantID string, cfg config.BootstrapConfig, now time.Time) (string, error) {
	email := cfg.GetSystemAdminEmail()
	if user, err := repo.GetByEmail(ctx, email); err == nil {
		if !user.HasTenantRole(tenantID, users.RoleAdmin) {
			return "", fmt.Errorf("[InitialiseSystem] %s exists without the %s role in %s", email, users.RoleAdmin, tenantID)
		}
		return "", nil
	} else if !apperrors.Is(err, apperrors.ErrUserNotFound) {
		return "", fmt.Errorf("[InitialiseSystem] GetByEmail: %w", err)
	}

	password := cfg.GetSystemAdminPassword()
	generated := ""
	if password == "" {
		passwordBytes := make([]byte, 18)
		if _, err := rand.Read(passwordBytes); err != nil {
			return "", fmt.Errorf("[InitialiseSystem] generate password: %w", err)
		}
		// Prefix keeps the strength rules satisfied whatever the random part holds
		password = "Aa1" + base64.RawURLEncoding.EncodeToString(passwordBytes)
		generated = password
	}
	if err := users.ValidatePasswordStrength(password); err != nil {
		return "", fmt.Errorf("[InitialiseSystem] SYSTEM_ADMIN_PASSWORD: %w", err)
	}
	hash, err := users.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("[InitialiseSystem] hash password: %w", err)
	}

	admin := &users.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "System",
		LastName:     "Administrator",
		DateJoined:   now,
		Verified:     true,
		Tenants: []users.TenantMembership{
			{TenantID: tenantID, Roles: []string{users.RoleAdmin}, JoinedAt: now},
		},
	}
	if err := repo.Upsert(ctx, admin); err != nil {
		return "", fmt.Errorf("[InitialiseSystem] create admin: %w", err)
	}
	return generated, nil
}

// seedDemoData creates T1 with an active license and the leads module, and T2
// whose license lapsed past its grace period. Both get an ADMIN and an AGENT.
func seedDemoData(ctx context.Context, repos BootstrapRepos, admin *entitlement.Admin, now time.Time) error {
	hash, err := users.HashPassword(demoPassword)
	if err != nil {
		return fmt.Errorf("[seedDemoData] hash password: %w", err)
	}

	demo := []struct {
		tenantID string
		name     string
		expiry   time.Time
	}{
		{demoTenantActive, "Tenant One", now.AddDate(0, 0, 30)},
		{demoTenantLapsed, "Tenant Two", now.AddDate(0, 0, -30)},
	}
	for _, d := range demo {
		if err := ensureTenant(ctx, repos.Tenants, d.tenantID, d.name, now); err != nil {
			return err
		}
		if _, err := admin.SetLicense(ctx, entitlement.License{
			TenantID:        d.tenantID,
			Plan:            "standard",
			ExpiryDate:      d.expiry,
			UserLimit:       10,
			GracePeriodDays: 7,
		}); err != nil {
			return fmt.Errorf("[seedDemoData] license %s: %w", d.tenantID, err)
		}
		if d.expiry.After(now) {
			if err := admin.EnableModule(ctx, d.tenantID, ModuleLeads); err != nil {
				return fmt.Errorf("[seedDemoData] enable leads %s: %w", d.tenantID, err)
			}
		}

		lower := map[string]string{demoTenantActive: "t1", demoTenantLapsed: "t2"}[d.tenantID]
		members := []struct {
			email       string
			role        string
			permissions []string
		}{
			{"admin@" + lower + ".example.com", users.RoleAdmin, []string{PermLeadsRead, PermLeadsWrite}},
			{"agent@" + lower + ".example.com", users.RoleAgent, []string{PermLeadsRead}},
		}
		for _, m := range members {
			if _, err := repos.Users.GetByEmail(ctx, m.email); err == nil {
				continue
			}
			if err := repos.Users.Upsert(ctx, &users.User{
				Email:        m.email,
				PasswordHash: hash,
				DateJoined:   now,
				Verified:     true,
				Tenants: []users.TenantMembership{
					{TenantID: d.tenantID, Roles: []string{m.role}, Permissions: m.permissions, JoinedAt: now},
				},
			}); err != nil {
				return fmt.Errorf("[seedDemoData] user %s: %w", m.email, err)
			}
		}
	}
	return nil
}
