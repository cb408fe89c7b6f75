package l402

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// SecretSize is the size in bytes of a macaroon signing secret.
const SecretSize = 32

// Secret is the process-wide symmetric key used to mint and verify every
// macaroon. It is loaded once at startup and never changes for the lifetime
// of the process; concurrent reads need no synchronization.
type Secret []byte

// GenerateSecret returns a fresh 256-bit signing secret from crypto/rand.
func GenerateSecret() (Secret, error) {
	key := make([]byte, SecretSize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate secret: %w", err)
	}
	return Secret(key), nil
}

// ParseSecret decodes a secret from its URL-safe base64 encoding, the format
// emitted by the l402-keygen command. It rejects anything that does not
// decode to exactly SecretSize bytes.
func ParseSecret(encoded string) (Secret, error) {
	key, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("secret is not valid base64: %w", err)
	}
	if len(key) != SecretSize {
		return nil, fmt.Errorf("secret must be %d bytes, got %d", SecretSize, len(key))
	}
	return Secret(key), nil
}

// String returns the URL-safe base64 encoding of the secret.
func (s Secret) String() string {
	return base64.URLEncoding.EncodeToString(s)
}
