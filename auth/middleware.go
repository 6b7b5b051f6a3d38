package auth

import (
	"context"
	"net/http"
	"path"
	"strings"

	apperrors "github.com/jrsteele09/go-tenant-guard/internal/errors"
	"github.com/jrsteele09/go-tenant-guard/tenantctx"
	"github.com/rs/zerolog"
)

// HeaderTenantID is the webhook fallback identity header.
const HeaderTenantID = "X-Tenant-Id"

// PublicRoutes is the allow-list the edge lets through unauthenticated.
// Entries ending in "/" match by prefix, others match exactly.
type PublicRoutes struct {
	exact    map[string]struct{}
	prefixes []string
}

func NewPublicRoutes(routes []string) PublicRoutes {
	p := PublicRoutes{exact: make(map[string]struct{})}
	for _, route := range routes {
		route = strings.TrimSpace(route)
		if route == "" {
			continue
		}
		if strings.HasSuffix(route, "/") {
			p.prefixes = append(p.prefixes, route)
			continue
		}
		p.exact[route] = struct{}{}
	}
	return p
}

// Match reports whether urlPath is allow-listed. Paths that are not in
// canonical form (dot segments, repeated slashes) never match.
func (p PublicRoutes) Match(urlPath string) bool {
	if !canonicalPath(urlPath) {
		return false
	}
	if _, ok := p.exact[urlPath]; ok {
		return true
	}
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(urlPath, prefix) {
			return true
		}
	}
	return false
}

// MatchRequest is Match on the request path, refusing paths that carry
// encoded dots, slashes or backslashes. Such a path can be read differently
// by the upstream than by the allow-list.
func (p PublicRoutes) MatchRequest(r *http.Request) bool {
	escaped := strings.ToLower(r.URL.EscapedPath())
	for _, encoded := range []string{"%2e", "%2f", "%5c"} {
		if strings.Contains(escaped, encoded) {
			return false
		}
	}
	return p.Match(r.URL.Path)
}

// isPreflight reports a CORS preflight. Other OPTIONS requests need a token.
func isPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions &&
		r.Header.Get("Origin") != "" &&
		r.Header.Get("Access-Control-Request-Method") != ""
}

func canonicalPath(urlPath string) bool {
	if !strings.HasPrefix(urlPath, "/") || strings.Contains(urlPath, "\\") {
		return false
	}
	clean := path.Clean(urlPath)
	if strings.HasSuffix(urlPath, "/") && clean != "/" {
		clean += "/"
	}
	return clean == urlPath
}

// EdgeMiddleware rejects requests without a valid access token before they
// are routed anywhere. Only canonical paths can use the public allow-list.
// It checks no revocation state and leaves the request untouched.
func EdgeMiddleware(v *Verifier, public PublicRoutes, logger zerolog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if isPreflight(r) || public.MatchRequest(r) {
				next(w, r)
				return
			}

			raw, err := BearerToken(r)
			if err == nil {
				_, err = v.VerifyStateless(raw)
			}
			if err != nil {
				logAuthFailure(logger, r, "edge", err)
				WriteUnauthorized(w)
				return
			}
			next(w, r)
		}
	}
}

// ServiceMiddleware is the authoritative per-service gate. On success the
// request context carries the Principal and a fresh tenant context; on any
// failure the request stops here with a generic 401.
func ServiceMiddleware(v *Verifier, logger zerolog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ctx, err := authenticate(r.Context(), v, r)
			if err != nil {
				logAuthFailure(logger, r, "service", err)
				WriteUnauthorized(w)
				return
			}
			next(w, r.WithContext(ctx))
		}
	}
}

// WebhookTenantMiddleware authenticates third party callbacks. A bearer token,
// when present, is verified exactly as ServiceMiddleware does. Without one,
// the X-Tenant-Id header is accepted only when allowHeaderFallback is set;
// the resulting context has no user and no authorities.
func WebhookTenantMiddleware(v *Verifier, allowHeaderFallback bool, logger zerolog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	validator := NewValidator()
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "" {
				ctx, err := authenticate(r.Context(), v, r)
				if err != nil {
					logAuthFailure(logger, r, "webhook", err)
					WriteUnauthorized(w)
					return
				}
				next(w, r.WithContext(ctx))
				return
			}

			tenantID := strings.TrimSpace(r.Header.Get(HeaderTenantID))
			if !allowHeaderFallback || tenantID == "" {
				logAuthFailure(logger, r, "webhook", apperrors.Wrapf(apperrors.ErrMalformedRequest, "no bearer token and header fallback unavailable"))
				WriteUnauthorized(w)
				return
			}
			if err := validator.ValidateTenantID(tenantID); err != nil {
				logAuthFailure(logger, r, "webhook", apperrors.Wrapf(apperrors.ErrMalformedRequest, "%v", err))
				WriteUnauthorized(w)
				return
			}

			logger.Warn().
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Str("tenant_id", tenantID).
				Msg("webhook tenant identity taken from unsigned header")
			ctx := tenantctx.WithTenant(r.Context(), tenantctx.FromHeader(tenantID))
			next(w, r.WithContext(ctx))
		}
	}
}

func authenticate(ctx context.Context, v *Verifier, r *http.Request) (context.Context, error) {
	raw, err := BearerToken(r)
	if err != nil {
		return nil, err
	}
	p, err := v.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	ctx = WithPrincipal(ctx, p)
	return tenantctx.WithTenant(ctx, p.TenantContext()), nil
}

// RequireAuthority allows the request only when the principal holds every
// listed authority. It must run after ServiceMiddleware.
func RequireAuthority(authorities ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				WriteUnauthorized(w)
				return
			}
			for _, a := range authorities {
				if !p.HasAuthority(a) {
					WriteForbidden(w)
					return
				}
			}
			next(w, r)
		}
	}
}

func RequireRole(role string) func(http.HandlerFunc) http.HandlerFunc {
	return RequireAuthority(RolePrefix + role)
}

func RequirePermission(permission string) func(http.HandlerFunc) http.HandlerFunc {
	return RequireAuthority(permission)
}

// ModuleChecker decides module entitlement. *entitlement.Gate satisfies it.
type ModuleChecker interface {
	Require(ctx context.Context, tenantID, code string) error
}

// RequireModule allows the request only when the tenant in the request
// context is entitled to the module. Entitlement failures get their own error
// code so clients can offer an upgrade instead of retrying.
func RequireModule(gate ModuleChecker, code string, logger zerolog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			tc, err := tenantctx.Require(r.Context())
			if err != nil {
				logger.Error().Err(err).Str("path", r.URL.Path).Msg("module gate reached without tenant context")
				WriteError(w, http.StatusInternalServerError, CodeInternal, "internal error")
				return
			}

			if err := gate.Require(r.Context(), tc.TenantID(), code); err != nil {
				if apperrors.Is(err, apperrors.ErrModuleNotEntitled) {
					logger.Info().Str("tenant_id", tc.TenantID()).Str("module", code).Msg("module not entitled")
					WriteError(w, http.StatusForbidden, CodeModuleNotEntitled, "module not enabled for tenant: "+code)
					return
				}
				logger.Error().Err(err).Str("tenant_id", tc.TenantID()).Str("module", code).Msg("entitlement check failed")
				WriteForbidden(w)
				return
			}
			next(w, r)
		}
	}
}

func logAuthFailure(logger zerolog.Logger, r *http.Request, stage string, err error) {
	event := logger.Warn()
	if apperrors.Is(err, apperrors.ErrStoreUnavailable) {
		event = logger.Error()
	}
	event.
		Err(err).
		Str("stage", stage).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("remote_addr", r.RemoteAddr).
		Msg("authentication rejected")
}
