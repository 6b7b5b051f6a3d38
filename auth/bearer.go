package auth

import (
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/go-tenant-guard/internal/errors"
)

const bearerScheme = "bearer"

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. Both verifiers use it so the two call sites cannot drift.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", apperrors.Wrapf(apperrors.ErrMalformedRequest, "missing Authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != bearerScheme {
		return "", apperrors.Wrapf(apperrors.ErrMalformedRequest, "not a bearer credential")
	}

	raw := strings.TrimSpace(parts[1])
	if raw == "" || strings.ContainsAny(raw, " \t") {
		return "", apperrors.Wrapf(apperrors.ErrMalformedRequest, "empty or malformed bearer token")
	}
	return raw, nil
}
