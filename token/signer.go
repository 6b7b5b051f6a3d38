package token

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Signer signs claims and supplies the key used to verify them.
type Signer interface {
	// Sign creates a compact signed token from claims
	Sign(claims jwt.Claims) (string, error)

	// VerificationKey is a jwt.Keyfunc returning the key for a parsed token
	VerificationKey(token *jwt.Token) (any, error)

	// SigningMethod returns the JWT signing method used
	SigningMethod() jwt.SigningMethod
}

// HMACSigner implements Signer using a symmetric secret (HS256).
type HMACSigner struct {
	secret []byte
}

var _ Signer = (*HMACSigner)(nil)

// NewHMACSigner derives the signing key from the configured secret.
func NewHMACSigner(secret string) *HMACSigner {
	return &HMACSigner{
		secret: []byte(secret),
	}
}

func (h *HMACSigner) Sign(claims jwt.Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token with HMAC")
	}
	return signed, nil
}

func (h *HMACSigner) VerificationKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return h.secret, nil
}

func (h *HMACSigner) SigningMethod() jwt.SigningMethod {
	return jwt.SigningMethodHS256
}

// KeyPairSigner implements Signer using RSA or ECDSA. A KeyPairSigner built
// from a public key alone can verify but not sign, which is all a downstream
// service needs.
type KeyPairSigner struct {
	keyPair *KeyPair
}

var _ Signer = (*KeyPairSigner)(nil)

func NewKeyPairSigner(keyPair *KeyPair) *KeyPairSigner {
	return &KeyPairSigner{
		keyPair: keyPair,
	}
}

func (a *KeyPairSigner) Sign(claims jwt.Claims) (string, error) {
	if a.keyPair.PrivateKey == nil {
		return "", errors.New("key pair signer has no private key")
	}
	t := jwt.NewWithClaims(a.keyPair.SigningMethod(), claims)
	t.Header["kid"] = a.keyPair.KeyID

	signed, err := t.SignedString(a.keyPair.PrivateKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token with asymmetric key")
	}
	return signed, nil
}

func (a *KeyPairSigner) VerificationKey(token *jwt.Token) (any, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
		return a.keyPair.PublicKey, nil
	default:
		return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
}

func (a *KeyPairSigner) SigningMethod() jwt.SigningMethod {
	return a.keyPair.SigningMethod()
}

// JWKS returns the public half of the key pair as a key set.
func (a *KeyPairSigner) JWKS() (*JWKS, error) {
	jwk, err := a.keyPair.ToJWK()
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert key to JWK")
	}
	return &JWKS{Keys: []JWK{*jwk}}, nil
}
