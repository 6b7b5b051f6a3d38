package auth

import (
	"strings"

	apperrors "github.com/jrsteele09/go-tenant-guard/internal/errors"
	"github.com/jrsteele09/go-tenant-guard/tenants"
	"github.com/jrsteele09/go-tenant-guard/users"
)

const maxTenantIDLength = 64

// Validator holds the input and account state rules used by the session
// service and the webhook fallback.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidateUserCredentials validates login credentials
func (v *Validator) ValidateUserCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidInput, "email is required")
	}

	// Basic email format validation
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return apperrors.Wrapf(apperrors.ErrInvalidInput, "invalid email format")
	}

	if password == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidInput, "password is required")
	}
	return nil
}

// ValidateUserState validates user account state (blocked, verified)
func (v *Validator) ValidateUserState(user *users.User) error {
	if user == nil {
		return apperrors.ErrUserNotFound
	}
	if user.Blocked {
		return apperrors.ErrUserBlocked
	}
	if !user.Verified {
		return apperrors.ErrUserNotVerified
	}
	return nil
}

// ValidateTenantAccess checks the tenant is active and the user belongs to it.
func (v *Validator) ValidateTenantAccess(tenant *tenants.Tenant, user *users.User) error {
	if tenant == nil {
		return apperrors.ErrTenantNotFound
	}
	if !tenant.Active {
		return apperrors.ErrTenantInactive
	}
	if user != nil && !user.HasTenant(tenant.ID) {
		return apperrors.ErrUnauthorizedTenant
	}
	return nil
}

// ValidateTenantID checks the shape of a client supplied tenant id.
func (v *Validator) ValidateTenantID(tenantID string) error {
	if tenantID == "" || len(tenantID) > maxTenantIDLength {
		return apperrors.Wrapf(apperrors.ErrInvalidInput, "tenant id must be 1 to %d characters", maxTenantIDLength)
	}
	if strings.ContainsAny(tenantID, " \t\r\n,;") {
		return apperrors.Wrapf(apperrors.ErrInvalidInput, "tenant id contains invalid characters")
	}
	return nil
}
