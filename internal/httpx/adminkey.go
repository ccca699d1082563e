// internal/httpx/adminkey.go
package httpx

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// HeaderAdminKey carries the back-office key on admin routes.
const HeaderAdminKey = "X-Admin-Key"

// AdminKey verifies presented admin keys against a salted Argon2id hash.
type AdminKey struct {
	hash []byte
	salt []byte
}

// HashAdminKey generates a salted Argon2id hash of key, both base64 encoded.
func HashAdminKey(key string) (hash string, salt string, err error) {
	rawSalt := make([]byte, 16)
	if _, err := rand.Read(rawSalt); err != nil {
		return "", "", err
	}

	rawHash := deriveKey(key, rawSalt)

	return base64.StdEncoding.EncodeToString(rawHash), base64.StdEncoding.EncodeToString(rawSalt), nil
}

// NewAdminKey decodes a hash/salt pair produced by HashAdminKey.
func NewAdminKey(hash, salt string) (*AdminKey, error) {
	decodedSalt, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}

	decodedHash, err := base64.StdEncoding.DecodeString(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to decode hash: %w", err)
	}

	return &AdminKey{hash: decodedHash, salt: decodedSalt}, nil
}

// Verify reports whether key matches the stored hash.
func (k *AdminKey) Verify(key string) bool {
	if k == nil || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare(deriveKey(key, k.salt), k.hash) == 1
}

func deriveKey(key string, salt []byte) []byte {
	return argon2.IDKey([]byte(key), salt, 1, 64*1024, 4, 32)
}
