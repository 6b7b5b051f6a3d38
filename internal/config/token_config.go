package config

import "time"

// TokenConfig mirrors the jwt.* deployment settings: secret, issuer and the
// access / refresh lifetimes. All of it is operator tunable.
type TokenConfig interface {
	GetJWTSecret() string
	GetIssuer() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetSigningAlgorithm() string
	GetPrivateKeyFile() string
	GetPublicKeyFile() string
	GetKeyID() string
}

const defaultJWTSecret = "change-me"

type Token struct{}

var _ TokenConfig = Token{}

func (Token) GetJWTSecret() string {
	return GetEnv("JWT_SECRET", defaultJWTSecret)
}

func (Token) GetIssuer() string {
	return GetEnv("JWT_ISSUER", "tenant-guard")
}

func (Token) GetAccessTokenExpiry() time.Duration {
	return GetDuration("JWT_ACCESS_TOKEN_EXPIRATION", 15*time.Minute)
}

func (Token) GetRefreshTokenExpiry() time.Duration {
	return GetDuration("JWT_REFRESH_TOKEN_EXPIRATION", 7*24*time.Hour)
}

// GetSigningAlgorithm returns HS256 unless an asymmetric algorithm is configured.
func (Token) GetSigningAlgorithm() string {
	return GetEnv("JWT_SIGNING_ALG", "HS256")
}

func (Token) GetPrivateKeyFile() string {
	return GetEnv("JWT_PRIVATE_KEY_FILE", "")
}

func (Token) GetPublicKeyFile() string {
	return GetEnv("JWT_PUBLIC_KEY_FILE", "")
}

// GetKeyID is the "kid" header of asymmetric tokens and their JWKS entry.
func (Token) GetKeyID() string {
	return GetEnv("JWT_KEY_ID", "primary")
}
