// Package auth is the verification library shared by the edge gateway and
// every service. The edge calls VerifyStateless; services call Verify, which
// adds the revocation lookup.
package auth

import (
	"context"

	apperrors "github.com/jrsteele09/go-tenant-guard/internal/errors"
	"github.com/jrsteele09/go-tenant-guard/token"
)

// TokenVerifier checks a token of the expected type. *token.Codec satisfies it.
type TokenVerifier interface {
	Verify(raw string, expected token.Type) (*token.Claims, error)
}

// RevocationChecker reports whether a token has been revoked.
// *revocation.Revoker satisfies it.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, rawToken string) (bool, error)
}

// Verifier is the one token check shared by the edge and the services.
type Verifier struct {
	tokens  TokenVerifier
	revoked RevocationChecker
}

// NewVerifier builds a verifier. revoked may be nil for edge only use, in
// which case Verify refuses every token.
func NewVerifier(tokens TokenVerifier, revoked RevocationChecker) *Verifier {
	return &Verifier{tokens: tokens, revoked: revoked}
}

// VerifyStateless checks structure, signature, issuer, expiry and that the
// token is an access token. No I/O.
func (v *Verifier) VerifyStateless(raw string) (*token.Claims, error) {
	return v.tokens.Verify(raw, token.TypeAccess)
}

// Verify runs VerifyStateless and then the revocation lookup. A revoked token
// yields ErrRevokedToken; an unreachable store yields ErrStoreUnavailable
// unless the revoker is configured to fail open.
func (v *Verifier) Verify(ctx context.Context, raw string) (*Principal, error) {
	claims, err := v.VerifyStateless(raw)
	if err != nil {
		return nil, err
	}
	if v.revoked == nil {
		return nil, apperrors.Wrapf(apperrors.ErrStoreUnavailable, "no revocation store configured")
	}
	revoked, err := v.revoked.IsRevoked(ctx, raw)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, apperrors.ErrRevokedToken
	}
	return NewPrincipal(claims), nil
}
