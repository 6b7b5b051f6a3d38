package errors

import (
	"errors"
	"fmt"
)

// Authentication errors. MalformedRequest, InvalidToken, ExpiredToken and
// RevokedToken never reach a network caller individually; the HTTP layer
// collapses them into one unauthenticated response.
var (
	ErrMalformedRequest = errors.New("malformed authorization header")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token expired")
	ErrRevokedToken     = errors.New("token revoked")
)

// Store errors
var (
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Authorization and entitlement errors
var (
	ErrForbidden             = errors.New("forbidden")
	ErrModuleNotEntitled     = errors.New("module not entitled")
	ErrTenantIdentityMissing = errors.New("tenant identity missing from request context")
	ErrLicenseNotFound       = errors.New("license not found")
	ErrModuleNotFound        = errors.New("module not found")
	ErrLicenseExpired        = errors.New("license expired")
	ErrUserLimitReached      = errors.New("license user limit reached")
)

// Credential errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserBlocked        = errors.New("user is blocked")
	ErrUserNotVerified    = errors.New("user is not verified")
	ErrUserNotFound       = errors.New("user not found")
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrTenantInactive     = errors.New("tenant is inactive")
	ErrUnauthorizedTenant = errors.New("user is not a member of tenant")
)

// General errors
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrAlreadyExists = errors.New("already exists")
)

// IsAuthentication reports whether err is one of the token related failures
// that must be reported to callers as a generic unauthenticated outcome.
func IsAuthentication(err error) bool {
	return errors.Is(err, ErrMalformedRequest) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrExpiredToken) ||
		errors.Is(err, ErrRevokedToken)
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}
