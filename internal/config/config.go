package config

import (
	"errors"
	"strings"
)

type Config interface {
	EnvConfig
	CorsConfig
	TokenConfig
	RevocationConfig
	EntitlementConfig
	GatewayConfig
	BootstrapConfig
	Validate() error
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	IsProduction() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Token
	Revocation
	Entitlement
	Gateway
	Bootstrap
}

func New() Config {
	return mainConfig{}
}

const minSecretLength = 32

// Validate refuses settings that are only acceptable for local development.
func (c mainConfig) Validate() error {
	if !c.IsProduction() {
		return nil
	}
	if strings.HasPrefix(c.GetSigningAlgorithm(), "HS") {
		secret := c.GetJWTSecret()
		if secret == "" || secret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be set in production")
		}
		if len(secret) < minSecretLength {
			return errors.New("JWT_SECRET must be at least 32 bytes in production")
		}
	}
	if c.GetSeedDemoData() {
		return errors.New("SEED_DEMO_DATA is not permitted in production")
	}
	if c.GetRevocationFailOpen() {
		return errors.New("REVOCATION_FAIL_OPEN is not permitted in production")
	}
	return nil
}
