// Package revocation records tokens that must be rejected before their
// natural expiry. Issuance stays stateless; a revocation is a compensating
// write with a TTL equal to the token's remaining lifetime, so entries never
// outlive the tokens they revoke.
package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Store is a TTL capable key set. Entries are independent of one another;
// implementations need no coordination beyond their own atomicity.
type Store interface {
	// Add records key for ttl. ttl is always positive.
	Add(ctx context.Context, key string, ttl time.Duration) error
	// Exists reports whether key is currently recorded.
	Exists(ctx context.Context, key string) (bool, error)
}

const keyPrefix = "revoked:"

// Key derives the store key for a raw token: a stable hash, so raw
// credentials never sit in the store.
func Key(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return keyPrefix + hex.EncodeToString(sum[:])
}
