package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for store-key derivation
const (
	// Argon2Time is the iteration count (time cost)
	Argon2Time = 1
	// Argon2Memory is the memory cost in KB (64MB)
	Argon2Memory = 64 * 1024
	// Argon2Threads is the parallelism degree
	Argon2Threads = 4
	// SaltSize is the salt length in bytes
	SaltSize = 32
)

// KeySource supplies the symmetric key used to encrypt data at rest.
// Key management is pluggable: a static key keeps the reference behavior
// (key from the environment), a derived key ties the store to user
// credentials. Callers must not cache the key across source changes.
type KeySource interface {
	Key() ([]byte, error)
}

// StaticKey is a fixed 32-byte key, typically loaded from the
// environment or a key file. Known weakness of the reference design:
// no rotation, no per-user derivation.
type StaticKey []byte

func (k StaticKey) Key() ([]byte, error) {
	if len(k) != KeySize {
		return nil, fmt.Errorf("static key must be %d bytes, got %d", KeySize, len(k))
	}
	return []byte(k), nil
}

// StaticKeyFromBase64 decodes a base64-encoded 32-byte key.
func StaticKeyFromBase64(s string) (StaticKey, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode key: %w", err)
	}
	if len(raw) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(raw))
	}
	return StaticKey(raw), nil
}

// DerivedKey derives the store key from user credentials with Argon2id.
type DerivedKey struct {
	Email  string
	Secret string
	Salt   []byte
}

func (d DerivedKey) Key() ([]byte, error) {
	return DeriveStoreKey(d.Email, d.Secret, d.Salt)
}

// DeriveStoreKey derives a 32-byte key from credentials and a salt
// using Argon2id with the parameters above.
func DeriveStoreKey(email, secret string, salt []byte) ([]byte, error) {
	if email == "" {
		return nil, fmt.Errorf("email cannot be empty")
	}
	if secret == "" {
		return nil, fmt.Errorf("secret cannot be empty")
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("salt must be %d bytes, got %d", SaltSize, len(salt))
	}

	input := []byte(secret + email)
	key := argon2.IDKey(input, salt, Argon2Time, Argon2Memory, Argon2Threads, KeySize)
	return key, nil
}

// GenerateSalt returns a cryptographically random salt.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// GenerateSaltBase64 returns a random salt, base64-encoded.
func GenerateSaltBase64() (string, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(salt), nil
}

// LoadOrCreateSaltFile reads a base64 salt from path, generating and
// persisting a fresh random salt on first use. File mode 0600. The
// salt is not secret but must stay stable for the derived key to
// decrypt existing data.
func LoadOrCreateSaltFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		salt, err := base64.StdEncoding.DecodeString(string(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode salt file: %w", err)
		}
		if len(salt) != SaltSize {
			return nil, fmt.Errorf("salt must be %d bytes, got %d", SaltSize, len(salt))
		}
		return salt, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read salt file: %w", err)
	}

	salt, err := GenerateSalt()
	if err != nil {
		return nil, err
	}
	encoded := base64.StdEncoding.EncodeToString(salt)
	if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write salt file: %w", err)
	}
	return salt, nil
}

// LoadOrCreateKeyFile reads a base64 key from path, generating and
// persisting a fresh random key on first use. File mode 0600.
func LoadOrCreateKeyFile(path string) (StaticKey, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return StaticKeyFromBase64(string(data))
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	raw := make([]byte, KeySize)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(raw)
	if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}
	return StaticKey(raw), nil
}
