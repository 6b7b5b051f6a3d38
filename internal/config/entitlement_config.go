package config

import "time"

type EntitlementConfig interface {
	GetPostgresDSN() string
	GetEntitlementTimeout() time.Duration
	GetLicenseSweepInterval() time.Duration
	GetWebhookTenantHeaderFallback() bool
}

type Entitlement struct{}

var _ EntitlementConfig = Entitlement{}

func (Entitlement) GetPostgresDSN() string {
	return GetEnv("POSTGRES_DSN", "")
}

func (Entitlement) GetEntitlementTimeout() time.Duration {
	return GetDuration("ENTITLEMENT_TIMEOUT", 500*time.Millisecond)
}

func (Entitlement) GetLicenseSweepInterval() time.Duration {
	return GetDuration("LICENSE_SWEEP_INTERVAL", time.Hour)
}

// GetWebhookTenantHeaderFallback enables the unsigned X-Tenant-Id identity on
// webhook routes. Off unless explicitly switched on.
func (Entitlement) GetWebhookTenantHeaderFallback() bool {
	return GetBool("WEBHOOK_TENANT_HEADER_FALLBACK", false)
}
