package server

import (
	"net/http"

	"github.com/jrsteele09/go-tenant-guard/auth"
	"github.com/jrsteele09/go-tenant-guard/users"
)

func (s *Server) initGatewayRoutes(proxy http.Handler, public auth.PublicRoutes) {
	s.RegisterRouteFunc("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))

	// Everything else goes upstream
	s.RegisterRouteFunc("/", ChainMiddleware(proxy.ServeHTTP, s.edgeMiddleware(public)...))
}

func (s *Server) initServiceRoutes() {
	authenticated := auth.ServiceMiddleware(s.verifier, s.logger)
	webhook := auth.WebhookTenantMiddleware(s.verifier, s.config.GetWebhookTenantHeaderFallback(), s.logger)
	leadsEntitled := auth.RequireModule(s.gate, ModuleLeads, s.logger)
	tenantAdmin := auth.RequireRole(users.RoleAdmin)

	// HEALTH
	s.RegisterRouteFunc("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteReady, ChainMiddleware(s.ReadyHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteWellKnownJWKS, ChainMiddleware(s.JWKSHandler(), s.APIMiddleware()...))

	// SESSIONS
	s.RegisterRouteFunc("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware(s.RateLimitMiddleware)...))
	s.RegisterRouteFunc("POST "+RouteAuthRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware(s.RateLimitMiddleware)...))
	s.RegisterRouteFunc("POST "+RouteAuthRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware(s.RateLimitMiddleware)...))
	s.RegisterRouteFunc("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware(authenticated)...))
	s.RegisterRouteFunc("GET "+RouteAuthMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(authenticated)...))

	// LEADS
	s.RegisterRouteFunc("GET "+RouteLeads, ChainMiddleware(s.ListLeadsHandler(), s.APIMiddleware(authenticated, auth.RequirePermission(PermLeadsRead), leadsEntitled)...))
	s.RegisterRouteFunc("POST "+RouteLeads, ChainMiddleware(s.CreateLeadHandler("api", http.StatusCreated), s.APIMiddleware(authenticated, auth.RequirePermission(PermLeadsWrite), leadsEntitled)...))
	s.RegisterRouteFunc("POST "+RouteWebhookLeads, ChainMiddleware(s.CreateLeadHandler("webhook", http.StatusAccepted), s.APIMiddleware(webhook, leadsEntitled)...))

	// TENANT ADMIN
	s.RegisterRouteFunc("GET "+RouteAdminLicense, ChainMiddleware(s.OwnLicenseHandler(), s.APIMiddleware(authenticated, tenantAdmin)...))

	// OPERATOR ADMIN
	operator := s.APIMiddleware(authenticated, tenantAdmin, s.RequireSystemTenant)
	s.RegisterRouteFunc("GET "+RouteAdminTenantLicense, ChainMiddleware(s.DescribeLicenseHandler(), operator...))
	s.RegisterRouteFunc("PUT "+RouteAdminTenantLicense, ChainMiddleware(s.SetLicenseHandler(), operator...))
	s.RegisterRouteFunc("POST "+RouteAdminTenantLicenseRenew, ChainMiddleware(s.RenewLicenseHandler(), operator...))
	s.RegisterRouteFunc("PUT "+RouteAdminTenantModule, ChainMiddleware(s.SetModuleHandler(true), operator...))
	s.RegisterRouteFunc("DELETE "+RouteAdminTenantModule, ChainMiddleware(s.SetModuleHandler(false), operator...))
}
