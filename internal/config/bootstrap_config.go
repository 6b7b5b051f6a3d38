package config

// BootstrapConfig names the system tenant and administrator seeded on an
// empty store.
type BootstrapConfig interface {
	GetSystemTenantID() string
	GetSystemAdminEmail() string
	GetSystemAdminPassword() string
	GetSeedDemoData() bool
}

type Bootstrap struct{}

var _ BootstrapConfig = Bootstrap{}

func (Bootstrap) GetSystemTenantID() string {
	return GetEnv("SYSTEM_TENANT_ID", "system")
}

func (Bootstrap) GetSystemAdminEmail() string {
	return GetEnv("SYSTEM_ADMIN_EMAIL", "admin@tenant-guard.local")
}

// GetSystemAdminPassword returns an empty string when unset; a random
// password is generated and logged once in that case.
func (Bootstrap) GetSystemAdminPassword() string {
	return GetEnv("SYSTEM_ADMIN_PASSWORD", "")
}

// GetSeedDemoData seeds the two demo tenants used by the walkthrough.
func (Bootstrap) GetSeedDemoData() bool {
	return GetBool("SEED_DEMO_DATA", false)
}
