package server

import (
	"github.com/jrsteele09/go-tenant-guard/auth"
	"github.com/jrsteele09/go-tenant-guard/entitlement"
	"github.com/jrsteele09/go-tenant-guard/internal/config"
	"github.com/jrsteele09/go-tenant-guard/leads"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ServiceDeps are the collaborators of a downstream service process.
type ServiceDeps struct {
	Verifier  *auth.Verifier
	Sessions  *auth.SessionService
	Gate      *entitlement.Gate
	Licenses  *entitlement.Admin
	Leads     *leads.Store
	JWKS      JWKSProvider // nil when tokens are HMAC signed
	Readiness map[string]ReadinessCheck
}

// NewService builds the service surface: session endpoints, the sample leads
// resource behind the authority and entitlement gates, and license admin.
func NewService(cfg config.Config, deps ServiceDeps, logger zerolog.Logger) (*Server, error) {
	if deps.Verifier == nil {
		return nil, errors.New("[NewService] verifier is required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("[NewService] session service is required")
	}
	if deps.Gate == nil || deps.Licenses == nil {
		return nil, errors.New("[NewService] entitlement gate and admin are required")
	}
	if deps.Leads == nil {
		return nil, errors.New("[NewService] leads store is required")
	}

	s := newServer(cfg, logger)
	s.verifier = deps.Verifier
	s.sessions = deps.Sessions
	s.gate = deps.Gate
	s.licenses = deps.Licenses
	s.leads = deps.Leads
	s.jwks = deps.JWKS
	s.readiness = deps.Readiness

	s.initServiceRoutes()
	s.logRoutes()
	return s, nil
}
