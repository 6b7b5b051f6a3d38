package server

import (
	"net/http"

	"github.com/jrsteele09/go-tenant-guard/auth"
	apperrors "github.com/jrsteele09/go-tenant-guard/internal/errors"
)

type loginRequest struct {
	TenantID string `json:"tenant_id"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	TenantID     string `json:"tenant_id"`
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type registerResponse struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	TenantID string `json:"tenant_id"`
}

type meResponse struct {
	UserID      string   `json:"user_id"`
	TenantID    string   `json:"tenant_id"`
	Email       string   `json:"email"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	Authorities []string `json:"authorities"`
}

// credentialFailures are reported to the caller as one generic outcome so
// that account and tenant existence cannot be discovered.
var credentialFailures = []error{
	apperrors.ErrInvalidCredentials,
	apperrors.ErrUserBlocked,
	apperrors.ErrUserNotVerified,
	apperrors.ErrUserNotFound,
	apperrors.ErrTenantNotFound,
	apperrors.ErrTenantInactive,
	apperrors.ErrUnauthorizedTenant,
}

func isCredentialFailure(err error) bool {
	for _, target := range credentialFailures {
		if apperrors.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(w, r, &req, false); err != nil {
			writeBadRequest(w, err)
			return
		}

		pair, err := s.sessions.Login(r.Context(), req.TenantID, req.Email, req.Password)
		switch {
		case err == nil:
			auth.WriteJSON(w, http.StatusOK, pair)
		case apperrors.Is(err, apperrors.ErrInvalidInput):
			writeBadRequest(w, err)
		case isCredentialFailure(err):
			s.logger.Warn().Err(err).Str("tenant_id", req.TenantID).Str("remote_addr", r.RemoteAddr).Msg("login rejected")
			auth.WriteError(w, http.StatusUnauthorized, auth.CodeUnauthorized, "invalid credentials")
		default:
			s.writeInternal(w, r, "login", err)
		}
	}
}

func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.Registration
		if err := decodeJSON(w, r, &req, false); err != nil {
			writeBadRequest(w, err)
			return
		}

		user, err := s.sessions.Register(r.Context(), req)
		switch {
		case err == nil:
			auth.WriteJSON(w, http.StatusCreated, registerResponse{UserID: user.ID, Email: user.Email, TenantID: req.TenantID})
		case apperrors.Is(err, apperrors.ErrInvalidInput):
			writeBadRequest(w, err)
		case apperrors.Is(err, apperrors.ErrAlreadyExists):
			auth.WriteError(w, http.StatusConflict, auth.CodeConflict, "already a member of tenant")
		case apperrors.Is(err, apperrors.ErrUserLimitReached), apperrors.Is(err, apperrors.ErrLicenseNotFound):
			s.logger.Info().Err(err).Str("tenant_id", req.TenantID).Msg("registration refused by license")
			auth.WriteError(w, http.StatusForbidden, auth.CodeForbidden, "license user limit reached")
		case apperrors.Is(err, apperrors.ErrTenantNotFound), apperrors.Is(err, apperrors.ErrTenantInactive):
			auth.WriteError(w, http.StatusBadRequest, auth.CodeBadRequest, "unknown tenant")
		case apperrors.Is(err, apperrors.ErrInvalidCredentials):
			auth.WriteError(w, http.StatusUnauthorized, auth.CodeUnauthorized, "invalid credentials")
		default:
			s.writeInternal(w, r, "register", err)
		}
	}
}

// RefreshHandler exchanges a refresh token. Every token or membership failure,
// including an unavailable revocation store, is a generic 401.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := decodeJSON(w, r, &req, false); err != nil {
			writeBadRequest(w, err)
			return
		}

		pair, err := s.sessions.Refresh(r.Context(), req.TenantID, req.RefreshToken)
		switch {
		case err == nil:
			auth.WriteJSON(w, http.StatusOK, pair)
		case apperrors.Is(err, apperrors.ErrInvalidInput):
			writeBadRequest(w, err)
		case apperrors.IsAuthentication(err), isCredentialFailure(err):
			s.logger.Warn().Err(err).Str("tenant_id", req.TenantID).Msg("refresh rejected")
			auth.WriteUnauthorized(w)
		case apperrors.Is(err, apperrors.ErrStoreUnavailable):
			s.logger.Error().Err(err).Str("tenant_id", req.TenantID).Msg("refresh rejected, revocation store unavailable")
			auth.WriteUnauthorized(w)
		default:
			s.writeInternal(w, r, "refresh", err)
		}
	}
}

// LogoutHandler revokes the presented access token and, when the body names
// one, the refresh token.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req logoutRequest
		if err := decodeJSON(w, r, &req, true); err != nil {
			writeBadRequest(w, err)
			return
		}
		access, err := auth.BearerToken(r)
		if err != nil {
			auth.WriteUnauthorized(w)
			return
		}

		err = s.sessions.Logout(r.Context(), access, req.RefreshToken)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusNoContent)
		case apperrors.Is(err, apperrors.ErrForbidden):
			auth.WriteForbidden(w)
		case apperrors.Is(err, apperrors.ErrStoreUnavailable):
			s.logger.Error().Err(err).Msg("logout failed, revocation store unavailable")
			auth.WriteError(w, http.StatusServiceUnavailable, auth.CodeUnavailable, "logout could not be recorded")
		case apperrors.IsAuthentication(err):
			auth.WriteUnauthorized(w)
		default:
			s.writeInternal(w, r, "logout", err)
		}
	}
}

func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.PrincipalFromContext(r.Context())
		if !ok {
			auth.WriteUnauthorized(w)
			return
		}
		tc := p.TenantContext()
		auth.WriteJSON(w, http.StatusOK, meResponse{
			UserID:      p.UserID,
			TenantID:    p.TenantID,
			Email:       p.Email,
			Roles:       tc.Roles(),
			Permissions: tc.Permissions(),
			Authorities: p.Authorities(),
		})
	}
}
