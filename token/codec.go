package token

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	defaultAccessTokenExpiry  = 15 * time.Minute
	defaultRefreshTokenExpiry = 7 * 24 * time.Hour
	defaultIssuer             = "tenant-guard"
)

// Codec issues and verifies session tokens. It holds no mutable state and is
// safe for concurrent use; the same Codec type backs the edge gateway and
// every downstream service.
type Codec struct {
	signer             Signer
	issuer             string
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	nowFunc            func() time.Time
}

type CodecOption func(*Codec)

func WithIssuer(issuer string) CodecOption {
	return func(c *Codec) {
		c.issuer = issuer
	}
}

func WithTokenExpiry(accessTokenExpiry, refreshTokenExpiry time.Duration) CodecOption {
	return func(c *Codec) {
		c.accessTokenExpiry = accessTokenExpiry
		c.refreshTokenExpiry = refreshTokenExpiry
	}
}

// WithNowFunc sets the single clock used both for issuing and for verifying.
func WithNowFunc(now func() time.Time) CodecOption {
	return func(c *Codec) {
		c.nowFunc = now
	}
}

func NewCodec(signer Signer, options ...CodecOption) *Codec {
	c := &Codec{
		signer: signer,
	}
	for _, opt := range options {
		opt(c)
	}

	if c.issuer == "" {
		c.issuer = defaultIssuer
	}
	if c.accessTokenExpiry <= 0 {
		c.accessTokenExpiry = defaultAccessTokenExpiry
	}
	if c.refreshTokenExpiry <= 0 {
		c.refreshTokenExpiry = defaultRefreshTokenExpiry
	}
	if c.nowFunc == nil {
		c.nowFunc = time.Now
	}
	return c
}

func (c *Codec) Issuer() string                    { return c.issuer }
func (c *Codec) AccessTokenExpiry() time.Duration  { return c.accessTokenExpiry }
func (c *Codec) RefreshTokenExpiry() time.Duration { return c.refreshTokenExpiry }
func (c *Codec) Now() time.Time                    { return c.nowFunc() }

// IssueAccess signs a short lived access token carrying the identity and
// authorization claims.
func (c *Codec) IssueAccess(userID, email, tenantID string, roles, permissions []string) (string, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(tenantID) == "" {
		return "", errors.New("access token requires user and tenant")
	}
	claims := &Claims{
		TenantID:         tenantID,
		Email:            email,
		Roles:            slices.Clone(roles),
		Permissions:      slices.Clone(permissions),
		Type:             TypeAccess,
		RegisteredClaims: c.registeredClaims(userID, c.accessTokenExpiry),
	}
	return c.sign(claims)
}

// IssueRefresh signs a long lived refresh token. It carries the subject only;
// exchanging it requires a fresh authorization lookup.
func (c *Codec) IssueRefresh(userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("refresh token requires user")
	}
	claims := &Claims{
		Type:             TypeRefresh,
		RegisteredClaims: c.registeredClaims(userID, c.refreshTokenExpiry),
	}
	return c.sign(claims)
}

func (c *Codec) registeredClaims(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := c.nowFunc()
	return jwt.RegisteredClaims{
		Issuer:    c.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.New().String(),
	}
}

func (c *Codec) sign(claims *Claims) (string, error) {
	signed, err := c.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "Codec.sign")
	}
	return signed, nil
}

// Verify checks, in order, structure, signature, issuer, expiry and type.
// The returned error names the specific failure for internal logging; it
// must not be shown to network callers.
func (c *Codec) Verify(raw string, expected Type) (*Claims, error) {
	claims, err := c.verify(raw)
	if err != nil {
		return nil, err
	}
	if claims.Type != expected {
		return nil, fmt.Errorf("%w: got %q want %q", ErrWrongType, claims.Type, expected)
	}
	return claims, nil
}

// VerifyAnyType performs every check of Verify except the type check. It is
// used where either token type is acceptable, such as revocation.
func (c *Codec) VerifyAnyType(raw string) (*Claims, error) {
	return c.verify(raw)
}

func (c *Codec) verify(raw string) (*Claims, error) {
	if strings.TrimSpace(raw) == "" || strings.Count(raw, ".") != 2 {
		return nil, ErrMalformed
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.signer.SigningMethod().Alg()}),
		jwt.WithoutClaimsValidation(),
		jwt.WithTimeFunc(c.nowFunc),
	)

	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(raw, claims, c.signer.VerificationKey)
	switch {
	case err == nil && parsed.Valid:
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	default:
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if claims.Issuer != c.issuer {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedIssuer, claims.Issuer)
	}
	if claims.ExpiresAt == nil || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing exp or sub", ErrMalformed)
	}
	if !c.nowFunc().Before(claims.ExpiresAt.Time) {
		return nil, fmt.Errorf("%w: at %s", ErrExpired, claims.ExpiresAt.Time.UTC().Format(time.RFC3339))
	}
	return claims, nil
}
