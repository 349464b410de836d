package secure

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nstepa/quizdeck/internal/client/storage"
	"github.com/nstepa/quizdeck/internal/crypto"
)

// memKV implements storage.KV in memory for testing
type memKV struct {
	data map[string][]byte
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte)}
}

func (m *memKV) Put(ctx context.Context, key string, value []byte) error {
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memKV) Get(ctx context.Context, key string) ([]byte, error) {
	value, ok := m.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (m *memKV) Delete(ctx context.Context, key string) error {
	if _, ok := m.data[key]; !ok {
		return storage.ErrNotFound
	}
	delete(m.data, key)
	return nil
}

func testKey() crypto.StaticKey {
	key := make([]byte, crypto.KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	return crypto.StaticKey(key)
}

func newTestStore(t *testing.T) (*Store, *memKV) {
	t.Helper()
	kv := newMemKV()
	store, err := New(kv, testKey(), slog.Default())
	require.NoError(t, err)
	return store, kv
}

func TestStore_RoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	original := storage.GuestProgress{Quizzes: 3, TotalScore: 15}
	require.NoError(t, store.Store(ctx, storage.KeyGuestProgress, original))

	var restored storage.GuestProgress
	ok := store.Retrieve(ctx, storage.KeyGuestProgress, &restored)
	assert.True(t, ok)
	assert.Equal(t, original, restored)
}

func TestStore_NoPlaintextAtRest(t *testing.T) {
	store, kv := newTestStore(t)
	ctx := context.Background()

	sess := storage.SessionData{Token: "very-secret-token", UserID: "user-1"}
	require.NoError(t, store.Store(ctx, storage.KeySession, sess))

	raw := kv.data[storage.KeySession]
	assert.NotContains(t, string(raw), "very-secret-token")
	assert.NotContains(t, string(raw), "user-1")
}

func TestStore_RetrieveMissing(t *testing.T) {
	store, _ := newTestStore(t)

	var out storage.SessionData
	ok := store.Retrieve(context.Background(), "absent", &out)
	assert.False(t, ok)
}

func TestStore_RetrieveCorrupted(t *testing.T) {
	store, kv := newTestStore(t)
	ctx := context.Background()

	// garbage that never went through Store: treated as missing,
	// never an error
	kv.data[storage.KeySession] = []byte("not encrypted at all")

	var out storage.SessionData
	ok := store.Retrieve(ctx, storage.KeySession, &out)
	assert.False(t, ok)
}

func TestStore_RetrieveWrongKey(t *testing.T) {
	kv := newMemKV()
	ctx := context.Background()

	first, err := New(kv, testKey(), slog.Default())
	require.NoError(t, err)
	require.NoError(t, first.Store(ctx, storage.KeySession, storage.SessionData{Token: "t"}))

	otherKey := crypto.StaticKey(make([]byte, crypto.KeySize))
	second, err := New(kv, otherKey, slog.Default())
	require.NoError(t, err)

	var out storage.SessionData
	ok := second.Retrieve(ctx, storage.KeySession, &out)
	assert.False(t, ok)
}

func TestStore_StoreOverwrites(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, "key", storage.GuestProgress{Quizzes: 1}))
	require.NoError(t, store.Store(ctx, "key", storage.GuestProgress{Quizzes: 2}))

	var out storage.GuestProgress
	ok := store.Retrieve(ctx, "key", &out)
	assert.True(t, ok)
	assert.Equal(t, 2, out.Quizzes)
}

func TestStore_DeleteMissingIsNoError(t *testing.T) {
	store, _ := newTestStore(t)

	assert.NoError(t, store.Delete(context.Background(), "absent"))
}

func TestNew_InvalidKey(t *testing.T) {
	_, err := New(newMemKV(), crypto.StaticKey([]byte("short")), slog.Default())
	assert.Error(t, err)
}
