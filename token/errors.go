package token

import (
	"fmt"

	apperrors "github.com/jrsteele09/go-tenant-guard/internal/errors"
)

// Specific verification failures. All of them match apperrors.ErrInvalidToken
// except ErrExpired, which matches apperrors.ErrExpiredToken; callers outside
// this package should only ever report the generic condition.
var (
	ErrMalformed         = fmt.Errorf("%w: malformed", apperrors.ErrInvalidToken)
	ErrInvalidSignature  = fmt.Errorf("%w: signature verification failed", apperrors.ErrInvalidToken)
	ErrUnsupportedIssuer = fmt.Errorf("%w: unsupported issuer", apperrors.ErrInvalidToken)
	ErrWrongType         = fmt.Errorf("%w: unexpected token type", apperrors.ErrInvalidToken)
	ErrExpired           = fmt.Errorf("%w", apperrors.ErrExpiredToken)
)
