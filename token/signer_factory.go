package token

import (
	"fmt"
	"os"
	"strings"
)

// SignerSettings is the subset of deployment configuration needed to build a
// Signer. Key files are only read for asymmetric algorithms.
type SignerSettings struct {
	Algorithm      string
	Secret         string
	PrivateKeyFile string
	PublicKeyFile  string
	KeyID          string
}

// NewSigner builds the signer selected by settings.Algorithm.
func NewSigner(settings SignerSettings) (Signer, error) {
	alg := strings.ToUpper(strings.TrimSpace(settings.Algorithm))
	switch alg {
	case "", "HS256":
		if settings.Secret == "" {
			return nil, fmt.Errorf("HS256 requires a secret")
		}
		return NewHMACSigner(settings.Secret), nil

	case "RS256", "RS384", "RS512", "ES256":
		privatePEM, err := readOptionalFile(settings.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key: %w", err)
		}
		publicPEM, err := readOptionalFile(settings.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read public key: %w", err)
		}
		kp, err := LoadKeyPairFromPEM(settings.KeyID, alg, privatePEM, publicPEM)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s key pair: %w", alg, err)
		}
		return NewKeyPairSigner(kp), nil

	default:
		return nil, fmt.Errorf("unsupported signing algorithm: %s", settings.Algorithm)
	}
}

func readOptionalFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
