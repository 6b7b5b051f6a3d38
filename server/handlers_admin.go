package server

import (
	"net/http"
	"time"

	"github.com/jrsteele09/go-tenant-guard/auth"
	"github.com/jrsteele09/go-tenant-guard/entitlement"
	apperrors "github.com/jrsteele09/go-tenant-guard/internal/errors"
	"github.com/jrsteele09/go-tenant-guard/tenantctx"
)

type licenseRequest struct {
	Plan            string    `json:"plan"`
	ExpiryDate      time.Time `json:"expiry_date"`
	UserLimit       int       `json:"user_limit"`
	GracePeriodDays int       `json:"grace_period_days"`
}

type renewRequest struct {
	ExpiryDate time.Time `json:"expiry_date"`
}

// RequireSystemTenant limits a route to callers signed in to the operator
// tenant. It must run after the service verifier.
func (s *Server) RequireSystemTenant(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tc, err := tenantctx.Require(r.Context())
		if err != nil {
			auth.WriteUnauthorized(w)
			return
		}
		if tc.TenantID() != s.config.GetSystemTenantID() {
			s.logger.Warn().Str("tenant_id", tc.TenantID()).Str("user_id", tc.UserID()).Str("path", r.URL.Path).Msg("operator route refused")
			auth.WriteForbidden(w)
			return
		}
		next(w, r)
	}
}

func (s *Server) writeAdminError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case apperrors.Is(err, apperrors.ErrInvalidInput):
		writeBadRequest(w, err)
	case apperrors.Is(err, apperrors.ErrLicenseNotFound), apperrors.Is(err, apperrors.ErrModuleNotFound), apperrors.Is(err, apperrors.ErrNotFound):
		auth.WriteError(w, http.StatusNotFound, auth.CodeNotFound, err.Error())
	case apperrors.Is(err, apperrors.ErrLicenseExpired):
		auth.WriteError(w, http.StatusConflict, auth.CodeConflict, err.Error())
	case apperrors.Is(err, apperrors.ErrStoreUnavailable):
		s.logger.Error().Err(err).Str("op", op).Msg("entitlement store unavailable")
		auth.WriteError(w, http.StatusServiceUnavailable, auth.CodeUnavailable, "entitlement store unavailable")
	default:
		s.writeInternal(w, r, op, err)
	}
}

// OwnLicenseHandler describes the license of the caller's tenant.
func (s *Server) OwnLicenseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tc, err := tenantctx.Require(r.Context())
		if err != nil {
			auth.WriteUnauthorized(w)
			return
		}
		s.describeLicense(w, r, tc.TenantID())
	}
}

func (s *Server) DescribeLicenseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.describeLicense(w, r, r.PathValue("tenantID"))
	}
}

func (s *Server) describeLicense(w http.ResponseWriter, r *http.Request, tenantID string) {
	view, err := s.licenses.Describe(r.Context(), tenantID)
	if err != nil {
		s.writeAdminError(w, r, "describe license", err)
		return
	}
	auth.WriteJSON(w, http.StatusOK, view)
}

func (s *Server) SetLicenseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req licenseRequest
		if err := decodeJSON(w, r, &req, false); err != nil {
			writeBadRequest(w, err)
			return
		}
		license, err := s.licenses.SetLicense(r.Context(), entitlement.License{
			TenantID:        r.PathValue("tenantID"),
			Plan:            req.Plan,
			ExpiryDate:      req.ExpiryDate,
			UserLimit:       req.UserLimit,
			GracePeriodDays: req.GracePeriodDays,
		})
		if err != nil {
			s.writeAdminError(w, r, "set license", err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, license)
	}
}

// RenewLicenseHandler extends a license. Modules disabled by an expiry stay
// disabled.
func (s *Server) RenewLicenseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req renewRequest
		if err := decodeJSON(w, r, &req, false); err != nil {
			writeBadRequest(w, err)
			return
		}
		license, err := s.licenses.RenewLicense(r.Context(), r.PathValue("tenantID"), req.ExpiryDate)
		if err != nil {
			s.writeAdminError(w, r, "renew license", err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, license)
	}
}

func (s *Server) SetModuleHandler(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, code := r.PathValue("tenantID"), r.PathValue("code")
		var err error
		if enabled {
			err = s.licenses.EnableModule(r.Context(), tenantID, code)
		} else {
			err = s.licenses.DisableModule(r.Context(), tenantID, code)
		}
		if err != nil {
			s.writeAdminError(w, r, "set module", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
