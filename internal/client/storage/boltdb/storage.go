// Package boltdb implements the client key/value store on BoltDB.
// The file lock bbolt takes makes a second client process fail fast
// instead of racing the first; there is no cross-process coordination.
package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/nstepa/quizdeck/internal/client/storage"
)

var bucketVault = []byte("vault")

// Storage is the BoltDB-backed KV implementation.
type Storage struct {
	db *bbolt.DB
}

// Compile-time check that Storage implements storage.KV
var _ storage.KV = (*Storage)(nil)

// New opens (or creates) the database file at dbPath.
func New(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := bbolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &Storage{db: db}

	if err := s.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketVault); err != nil {
			return fmt.Errorf("failed to create vault bucket: %w", err)
		}
		return nil
	})
}

// Put stores value under key, overwriting any previous content.
func (s *Storage) Put(ctx context.Context, key string, value []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketVault)
		if bucket == nil {
			return fmt.Errorf("vault bucket not found")
		}
		if err := bucket.Put([]byte(key), value); err != nil {
			return fmt.Errorf("failed to put %q: %w", key, err)
		}
		return nil
	})
}

// Get retrieves the value stored under key.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketVault)
		if bucket == nil {
			return fmt.Errorf("vault bucket not found")
		}
		data := bucket.Get([]byte(key))
		if data == nil {
			return storage.ErrNotFound
		}
		// the slice is only valid inside the transaction
		value = append([]byte(nil), data...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return value, nil
}

// Delete removes the value stored under key.
func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketVault)
		if bucket == nil {
			return fmt.Errorf("vault bucket not found")
		}
		if bucket.Get([]byte(key)) == nil {
			return storage.ErrNotFound
		}
		if err := bucket.Delete([]byte(key)); err != nil {
			return fmt.Errorf("failed to delete %q: %w", key, err)
		}
		return nil
	})
}
