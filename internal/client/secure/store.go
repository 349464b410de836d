// Package secure is the encrypted local store every other component
// reads and writes identity data through. Values are JSON-serialized
// and AES-256-GCM encrypted before they reach the underlying key/value
// storage; nothing below this layer ever sees plaintext.
package secure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nstepa/quizdeck/internal/client/storage"
	"github.com/nstepa/quizdeck/internal/crypto"
)

// Store wraps a raw KV with encryption at rest.
type Store struct {
	kv     storage.KV
	logger *slog.Logger
	key    []byte
}

// New creates a Store. The key source is resolved once here; swapping
// keys requires constructing a new Store.
func New(kv storage.KV, keys crypto.KeySource, logger *slog.Logger) (*Store, error) {
	key, err := keys.Key()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store key: %w", err)
	}
	return &Store{kv: kv, key: key, logger: logger}, nil
}

// Store serializes value, encrypts it, and persists it under key,
// overwriting prior content. There is no versioning.
func (s *Store) Store(ctx context.Context, key string, value any) error {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for %q: %w", key, err)
	}

	encrypted, err := crypto.Encrypt(plaintext, s.key)
	if err != nil {
		return fmt.Errorf("failed to encrypt value for %q: %w", key, err)
	}

	if err := s.kv.Put(ctx, key, encrypted); err != nil {
		return fmt.Errorf("failed to persist %q: %w", key, err)
	}

	return nil
}

// Retrieve decrypts and deserializes the value under key into out.
// Returns false for a missing key and, by contract, also for any
// decryption or parse failure: callers see "not there", never an
// error they would have to branch on. Corrupt entries are logged.
func (s *Store) Retrieve(ctx context.Context, key string, out any) bool {
	encrypted, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("failed to read stored value", slog.String("key", key), slog.Any("error", err))
		}
		return false
	}

	plaintext, err := crypto.Decrypt(encrypted, s.key)
	if err != nil {
		s.logger.Warn("discarding undecryptable stored value", slog.String("key", key), slog.Any("error", err))
		return false
	}

	if err := json.Unmarshal(plaintext, out); err != nil {
		s.logger.Warn("discarding unparsable stored value", slog.String("key", key), slog.Any("error", err))
		return false
	}

	return true
}

// Delete removes the value under key. Deleting a missing key is not
// an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.kv.Delete(ctx, key); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}
