package revocation

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/go-tenant-guard/internal/errors"
	"github.com/jrsteele09/go-tenant-guard/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultTimeout = 250 * time.Millisecond

// TokenParser verifies a token of either type. *token.Codec satisfies it.
type TokenParser interface {
	VerifyAnyType(raw string) (*token.Claims, error)
	Now() time.Time
}

// Revoker writes and reads revocation entries, applying the store
// availability policy and a bounded timeout to every store call.
type Revoker struct {
	store    Store
	parser   TokenParser
	failOpen bool
	timeout  time.Duration
	logger   zerolog.Logger
}

type RevokerOption func(*Revoker)

// WithFailOpen treats an unreachable store as "not revoked". Every such
// decision is logged at error level as degraded security mode.
func WithFailOpen(failOpen bool) RevokerOption {
	return func(r *Revoker) {
		r.failOpen = failOpen
	}
}

func WithTimeout(timeout time.Duration) RevokerOption {
	return func(r *Revoker) {
		r.timeout = timeout
	}
}

func WithLogger(logger zerolog.Logger) RevokerOption {
	return func(r *Revoker) {
		r.logger = logger
	}
}

func NewRevoker(store Store, parser TokenParser, options ...RevokerOption) *Revoker {
	r := &Revoker{
		store:   store,
		parser:  parser,
		timeout: defaultTimeout,
		logger:  log.Logger,
	}
	for _, opt := range options {
		opt(r)
	}
	if r.timeout <= 0 {
		r.timeout = defaultTimeout
	}
	return r
}

// Revoke records the token until its natural expiry. Tokens that are already
// expired are a no-op; tokens that fail verification are refused.
func (r *Revoker) Revoke(ctx context.Context, rawToken string) error {
	claims, err := r.parser.VerifyAnyType(rawToken)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrExpiredToken) {
			return nil
		}
		return fmt.Errorf("revoke: %w", err)
	}

	ttl := claims.ExpiresAtTime().Sub(r.parser.Now())
	if ttl <= 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.store.Add(ctx, Key(rawToken), ttl); err != nil {
		r.logger.Error().Err(err).Str("jti", claims.ID).Msg("revocation write failed")
		return fmt.Errorf("%w: revocation write: %v", apperrors.ErrStoreUnavailable, err)
	}

	r.logger.Info().
		Str("jti", claims.ID).
		Str("tenant_id", claims.TenantID).
		Str("token_type", string(claims.Type)).
		Dur("ttl", ttl).
		Msg("token revoked")
	return nil
}

// IsRevoked reports whether the token has been revoked. With the default
// fail-closed policy a store failure is returned as ErrStoreUnavailable.
func (r *Revoker) IsRevoked(ctx context.Context, rawToken string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	revoked, err := r.store.Exists(ctx, Key(rawToken))
	if err == nil {
		return revoked, nil
	}

	if r.failOpen {
		r.logger.Error().Err(err).Msg("revocation store unavailable, degraded security mode: treating token as not revoked")
		return false, nil
	}
	return false, fmt.Errorf("%w: revocation lookup: %v", apperrors.ErrStoreUnavailable, err)
}
