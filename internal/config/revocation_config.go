package config

import "time"

type RevocationConfig interface {
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRevocationFailOpen() bool
	GetRevocationTimeout() time.Duration
}

type Revocation struct{}

var _ RevocationConfig = Revocation{}

// GetRedisAddr returns an empty string when no Redis is configured, in which
// case the process falls back to the in-memory store.
func (Revocation) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "")
}

func (Revocation) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Revocation) GetRedisDB() int {
	return GetInt("REDIS_DB", 0)
}

func (Revocation) GetRevocationFailOpen() bool {
	return GetBool("REVOCATION_FAIL_OPEN", false)
}

func (Revocation) GetRevocationTimeout() time.Duration {
	return GetDuration("REVOCATION_TIMEOUT", 250*time.Millisecond)
}
