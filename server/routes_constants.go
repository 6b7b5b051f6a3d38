package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Health
	RouteHealth = "/health"
	RouteReady  = "/ready"

	// Key discovery (asymmetric signing only)
	RouteWellKnownJWKS = "/.well-known/jwks.json"

	// Session Routes
	RouteAuthLogin    = "/auth/login"
	RouteAuthRegister = "/auth/register"
	RouteAuthRefresh  = "/auth/refresh"
	RouteAuthLogout   = "/auth/logout"
	RouteAuthMe       = "/auth/me"

	// Sample gated resource
	RouteLeads        = "/leads"
	RouteWebhookLeads = "/webhooks/leads"

	// Tenant admin, scoped to the caller's tenant
	RouteAdminLicense = "/admin/license"

	// Operator admin, system tenant only
	RouteAdminTenantLicense      = "/admin/tenants/{tenantID}/license"
	RouteAdminTenantLicenseRenew = "/admin/tenants/{tenantID}/license/renew"
	RouteAdminTenantModule       = "/admin/tenants/{tenantID}/modules/{code}"
)

// Module and permission names used by the bundled routes.
const (
	ModuleLeads    = "leads"
	PermLeadsRead  = "leads:read"
	PermLeadsWrite = "leads:write"
)
