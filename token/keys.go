package token

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// KeyPair holds an asymmetric signing key. PrivateKey is nil on services that
// only verify.
type KeyPair struct {
	KeyID      string
	PrivateKey crypto.PrivateKey
	PublicKey  crypto.PublicKey
	Algorithm  string // RS256, RS384, RS512, ES256
}

// JWKS represents a JSON Web Key Set
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK represents a JSON Web Key
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Kid string `json:"kid,omitempty"`
	Alg string `json:"alg,omitempty"`

	// RSA
	N string `json:"n,omitempty"`
	E string `json:"e,omitempty"`

	// EC
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
}

// GenerateRSAKeyPair generates an RSA key pair; bits below 2048 are raised to 2048.
func GenerateRSAKeyPair(keyID string, bits int) (*KeyPair, error) {
	if bits < 2048 {
		bits = 2048
	}
	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate RSA key")
	}
	return &KeyPair{
		KeyID:      keyID,
		PrivateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
		Algorithm:  "RS256",
	}, nil
}

// GenerateECDSAKeyPair generates a P-256 key pair for ES256.
func GenerateECDSAKeyPair(keyID string) (*KeyPair, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate ECDSA key")
	}
	return &KeyPair{
		KeyID:      keyID,
		PrivateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
		Algorithm:  "ES256",
	}, nil
}

// LoadKeyPairFromPEM builds a key pair from PEM text. privatePEM may be empty.
func LoadKeyPairFromPEM(keyID, algorithm, privatePEM, publicPEM string) (*KeyPair, error) {
	kp := &KeyPair{KeyID: keyID, Algorithm: strings.ToUpper(algorithm)}

	if publicPEM != "" {
		pub, err := parsePublicKey(publicPEM)
		if err != nil {
			return nil, err
		}
		kp.PublicKey = pub
	}

	if privatePEM != "" {
		priv, err := parsePrivateKey(privatePEM)
		if err != nil {
			return nil, err
		}
		kp.PrivateKey = priv
		if kp.PublicKey == nil {
			if signer, ok := priv.(crypto.Signer); ok {
				kp.PublicKey = signer.Public()
			}
		}
	}

	if kp.PublicKey == nil {
		return nil, errors.New("key pair requires a public or private key")
	}
	return kp, nil
}

func parsePublicKey(pemData string) (crypto.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("failed to decode public key PEM block")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse public key")
	}
	return pub, nil
}

func parsePrivateKey(pemData string) (crypto.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("failed to decode private key PEM block")
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		return key, errors.Wrap(err, "failed to parse RSA private key")
	case "EC PRIVATE KEY":
		key, err := x509.ParseECPrivateKey(block.Bytes)
		return key, errors.Wrap(err, "failed to parse ECDSA private key")
	default:
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		return key, errors.Wrap(err, "failed to parse PKCS8 private key")
	}
}

// SigningMethod returns the JWT signing method for this key pair
func (kp *KeyPair) SigningMethod() jwt.SigningMethod {
	switch kp.Algorithm {
	case "RS384":
		return jwt.SigningMethodRS384
	case "RS512":
		return jwt.SigningMethodRS512
	case "ES256":
		return jwt.SigningMethodES256
	default:
		return jwt.SigningMethodRS256
	}
}

// ExportPublicKeyPEM exports the public key as PEM
func (kp *KeyPair) ExportPublicKeyPEM() (string, error) {
	der, err := x509.MarshalPKIXPublicKey(kp.PublicKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal public key")
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

// ExportPrivateKeyPEM exports the private key as PEM
func (kp *KeyPair) ExportPrivateKeyPEM() (string, error) {
	switch key := kp.PrivateKey.(type) {
	case *rsa.PrivateKey:
		der := x509.MarshalPKCS1PrivateKey(key)
		return string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: der})), nil
	case *ecdsa.PrivateKey:
		der, err := x509.MarshalECPrivateKey(key)
		if err != nil {
			return "", errors.Wrap(err, "failed to marshal ECDSA private key")
		}
		return string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})), nil
	default:
		return "", errors.New("unsupported private key type")
	}
}

// ToJWK converts the public key to JWK format
func (kp *KeyPair) ToJWK() (*JWK, error) {
	jwk := &JWK{
		Kid: kp.KeyID,
		Use: "sig",
		Alg: kp.Algorithm,
	}

	switch pubKey := kp.PublicKey.(type) {
	case *rsa.PublicKey:
		jwk.Kty = "RSA"
		jwk.N = base64.RawURLEncoding.EncodeToString(pubKey.N.Bytes())
		jwk.E = base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pubKey.E)).Bytes())
	case *ecdsa.PublicKey:
		jwk.Kty = "EC"
		jwk.Crv = "P-256"
		jwk.X = base64.RawURLEncoding.EncodeToString(pubKey.X.Bytes())
		jwk.Y = base64.RawURLEncoding.EncodeToString(pubKey.Y.Bytes())
	default:
		return nil, errors.New("unsupported public key type")
	}
	return jwk, nil
}
