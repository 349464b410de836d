// Package storage defines the client's persisted identity types and
// the low-level key/value contract they are stored through. Values at
// this layer are opaque bytes: encryption happens above, in the secure
// store, never here.
package storage

import "context"

// KV is the raw persistence contract. Implementations store values
// as-is and must return ErrNotFound for missing keys.
type KV interface {
	// Put stores value under key, overwriting any previous content.
	Put(ctx context.Context, key string, value []byte) error

	// Get retrieves the value stored under key.
	// Returns ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the value stored under key.
	// Returns ErrNotFound if the key does not exist.
	Delete(ctx context.Context, key string) error
}

// Logical keys for the client's persisted blobs. Every value under
// these keys passes through the encrypted store.
const (
	KeySession         = "session"
	KeyRefreshToken    = "refresh_token"
	KeyGuestIdentity   = "guest_identity"
	KeyGuestProgress   = "guest_progress"
	KeyMigrationBackup = "migration_backup"
	KeyDeviceID        = "device_id"
)
