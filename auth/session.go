package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-tenant-guard/internal/errors"
	"github.com/jrsteele09/go-tenant-guard/tenants"
	"github.com/jrsteele09/go-tenant-guard/token"
	"github.com/jrsteele09/go-tenant-guard/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TokenRevoker writes and reads revocation entries.
// *revocation.Revoker satisfies it.
type TokenRevoker interface {
	RevocationChecker
	Revoke(ctx context.Context, rawToken string) error
}

// TokenPair is returned by Login and Refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	TenantID     string `json:"tenant_id"`
}

// Repos holds all repository dependencies for the SessionService
type Repos struct {
	Users   users.UserRepo
	Tenants tenants.Repo
}

// SessionService issues, refreshes and ends sessions. Access tokens carry a
// snapshot of the user's roles and permissions in one tenant; refresh tokens
// carry only the subject, so every refresh looks the authorities up again.
type SessionService struct {
	repos      Repos
	codec      *token.Codec
	revoker    TokenRevoker
	validator  *Validator
	userLimits UserLimitChecker
	logger     zerolog.Logger
}

// UserLimitChecker enforces the licensed seat count on registration.
// *entitlement.Admin satisfies it.
type UserLimitChecker interface {
	CheckUserLimit(ctx context.Context, tenantID string, currentUsers int) error
}

// SessionServiceOption defines a function type to modify the SessionService instance.
type SessionServiceOption func(*SessionService)

func WithSessionLogger(logger zerolog.Logger) SessionServiceOption {
	return func(s *SessionService) {
		s.logger = logger
	}
}

func WithUserLimits(checker UserLimitChecker) SessionServiceOption {
	return func(s *SessionService) {
		s.userLimits = checker
	}
}

func NewSessionService(repos Repos, codec *token.Codec, revoker TokenRevoker, options ...SessionServiceOption) (*SessionService, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewSessionService] Users repo is required")
	}
	if repos.Tenants == nil {
		return nil, errors.New("[NewSessionService] Tenants repo is required")
	}
	if codec == nil {
		return nil, errors.New("[NewSessionService] token codec is required")
	}
	if revoker == nil {
		return nil, errors.New("[NewSessionService] revoker is required")
	}

	s := &SessionService{
		repos:     repos,
		codec:     codec,
		revoker:   revoker,
		validator: NewValidator(),
		logger:    log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Login checks the credentials of a user for one tenant and issues a token
// pair. Unknown users and wrong passwords are both ErrInvalidCredentials.
func (s *SessionService) Login(ctx context.Context, tenantID, email, password string) (*TokenPair, error) {
	if err := s.validator.ValidateUserCredentials(email, password); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}

	tenant, err := s.repos.Tenants.Get(ctx, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "[SessionService.Login] Tenants.Get")
	}

	user, err := s.repos.Users.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "[SessionService.Login] Users.GetByEmail")
	}
	if !user.CheckPassword(password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err := s.validator.ValidateUserState(user); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateTenantAccess(tenant, user); err != nil {
		return nil, err
	}

	pair, err := s.issuePair(user, tenantID)
	if err != nil {
		return nil, err
	}

	if err := s.repos.Users.SetLastLogin(ctx, user.ID, s.codec.Now()); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record last login")
	}
	s.logger.Info().Str("user_id", user.ID).Str("tenant_id", tenantID).Msg("login")
	return pair, nil
}

// Registration is the input of Register.
type Registration struct {
	TenantID  string `json:"tenant_id"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Register adds a VIEWER membership in the tenant. A new email creates the
// user; a known email must present the existing password to join another
// tenant. The license seat count is checked when a UserLimitChecker is set.
func (s *SessionService) Register(ctx context.Context, reg Registration) (*users.User, error) {
	if err := s.validator.ValidateUserCredentials(reg.Email, reg.Password); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateTenantID(reg.TenantID); err != nil {
		return nil, err
	}
	tenant, err := s.repos.Tenants.Get(ctx, reg.TenantID)
	if err != nil {
		return nil, errors.Wrap(err, "[SessionService.Register] Tenants.Get")
	}
	if !tenant.Active {
		return nil, apperrors.ErrTenantInactive
	}

	user, err := s.repos.Users.GetByEmail(ctx, reg.Email)
	switch {
	case apperrors.Is(err, apperrors.ErrUserNotFound):
		if err := users.ValidatePasswordStrength(reg.Password); err != nil {
			return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "%v", err)
		}
		hash, err := users.HashPassword(reg.Password)
		if err != nil {
			return nil, errors.Wrap(err, "[SessionService.Register] hash password")
		}
		user = &users.User{
			ID:           uuid.NewString(),
			Email:        strings.ToLower(strings.TrimSpace(reg.Email)),
			PasswordHash: hash,
			FirstName:    reg.FirstName,
			LastName:     reg.LastName,
			DateJoined:   s.codec.Now(),
			Verified:     true,
		}
	case err != nil:
		return nil, errors.Wrap(err, "[SessionService.Register] Users.GetByEmail")
	default:
		if !user.CheckPassword(reg.Password) {
			return nil, apperrors.ErrInvalidCredentials
		}
		if user.HasTenant(reg.TenantID) {
			return nil, apperrors.Wrapf(apperrors.ErrAlreadyExists, "user is already a member of tenant")
		}
	}

	if s.userLimits != nil {
		count, err := s.repos.Users.CountByTenant(ctx, reg.TenantID)
		if err != nil {
			return nil, errors.Wrap(err, "[SessionService.Register] Users.CountByTenant")
		}
		if err := s.userLimits.CheckUserLimit(ctx, reg.TenantID, count); err != nil {
			return nil, err
		}
	}

	user.Tenants = append(user.Tenants, users.TenantMembership{
		TenantID: reg.TenantID,
		Roles:    []string{users.RoleViewer},
		JoinedAt: s.codec.Now(),
	})
	if err := s.repos.Users.Upsert(ctx, user); err != nil {
		return nil, errors.Wrap(err, "[SessionService.Register] Users.Upsert")
	}
	s.logger.Info().Str("user_id", user.ID).Str("tenant_id", reg.TenantID).Msg("user registered")
	return user, nil
}

// Refresh exchanges a refresh token for a new pair in tenantID. The user's
// state, tenant membership and authorities are looked up fresh, and the old
// refresh token is revoked.
func (s *SessionService) Refresh(ctx context.Context, tenantID, refreshToken string) (*TokenPair, error) {
	claims, err := s.codec.Verify(refreshToken, token.TypeRefresh)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revoker.IsRevoked(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, apperrors.ErrRevokedToken
	}

	if err := s.validator.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	user, err := s.repos.Users.GetByID(ctx, claims.UserID())
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "refresh subject no longer exists")
		}
		return nil, errors.Wrap(err, "[SessionService.Refresh] Users.GetByID")
	}
	if err := s.validator.ValidateUserState(user); err != nil {
		return nil, err
	}
	tenant, err := s.repos.Tenants.Get(ctx, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "[SessionService.Refresh] Tenants.Get")
	}
	if err := s.validator.ValidateTenantAccess(tenant, user); err != nil {
		return nil, err
	}

	if err := s.revoker.Revoke(ctx, refreshToken); err != nil {
		return nil, errors.Wrap(err, "[SessionService.Refresh] revoke previous refresh token")
	}
	pair, err := s.issuePair(user, tenantID)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", user.ID).Str("tenant_id", tenantID).Msg("session refreshed")
	return pair, nil
}

// Logout revokes the access token of the current session and, when given,
// the refresh token. The refresh token must belong to the same subject.
func (s *SessionService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	access, err := s.codec.Verify(accessToken, token.TypeAccess)
	if err != nil {
		return err
	}

	if refreshToken != "" {
		refresh, err := s.codec.Verify(refreshToken, token.TypeRefresh)
		switch {
		case apperrors.Is(err, apperrors.ErrExpiredToken):
			refreshToken = ""
		case err != nil:
			return err
		case refresh.UserID() != access.UserID():
			return apperrors.Wrapf(apperrors.ErrForbidden, "refresh token belongs to another subject")
		}
	}

	if err := s.revoker.Revoke(ctx, accessToken); err != nil {
		return err
	}
	if refreshToken != "" {
		if err := s.revoker.Revoke(ctx, refreshToken); err != nil {
			return err
		}
	}
	s.logger.Info().Str("user_id", access.UserID()).Str("tenant_id", access.TenantID).Msg("logout")
	return nil
}

func (s *SessionService) issuePair(user *users.User, tenantID string) (*TokenPair, error) {
	access, err := s.codec.IssueAccess(
		user.ID,
		user.Email,
		tenantID,
		user.GetRolesForTenant(tenantID),
		user.GetPermissionsForTenant(tenantID),
	)
	if err != nil {
		return nil, errors.Wrap(err, "issue access token")
	}
	refresh, err := s.codec.IssueRefresh(user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "issue refresh token")
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.codec.AccessTokenExpiry() / time.Second),
		TenantID:     tenantID,
	}, nil
}
