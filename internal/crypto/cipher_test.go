package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		plaintext string
	}{
		{name: "simple string", plaintext: "hello world"},
		{name: "json payload", plaintext: `{"token":"abc","expires_at":"2026-01-01T00:00:00Z"}`},
		{name: "single byte", plaintext: "x"},
		{name: "unicode", plaintext: "вопрос №42 🎯"},
	}

	key := testKey()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encrypted, err := Encrypt([]byte(tt.plaintext), key)
			require.NoError(t, err)
			assert.NotEqual(t, tt.plaintext, string(encrypted))

			decrypted, err := Decrypt(encrypted, key)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, string(decrypted))
		})
	}
}

func TestEncrypt_Validation(t *testing.T) {
	key := testKey()

	_, err := Encrypt(nil, key)
	assert.Error(t, err)

	_, err = Encrypt([]byte("data"), []byte("short-key"))
	assert.Error(t, err)
}

func TestEncrypt_UniqueNonce(t *testing.T) {
	key := testKey()

	first, err := Encrypt([]byte("same input"), key)
	require.NoError(t, err)
	second, err := Encrypt([]byte("same input"), key)
	require.NoError(t, err)

	// random nonce means identical plaintexts never encrypt equal
	assert.NotEqual(t, first, second)
}

func TestDecrypt_WrongKey(t *testing.T) {
	encrypted, err := Encrypt([]byte("secret"), testKey())
	require.NoError(t, err)

	otherKey := make([]byte, KeySize)
	_, err = Decrypt(encrypted, otherKey)
	assert.Error(t, err)
}

func TestDecrypt_Corrupted(t *testing.T) {
	key := testKey()

	encrypted, err := Encrypt([]byte("secret"), key)
	require.NoError(t, err)

	encrypted[len(encrypted)-1] ^= 0xFF
	_, err = Decrypt(encrypted, key)
	assert.Error(t, err)

	_, err = Decrypt([]byte("too-short"), key)
	assert.Error(t, err)
}

func TestEncryptToBase64_RoundTrip(t *testing.T) {
	key := testKey()

	encoded, err := EncryptToBase64([]byte("payload"), key)
	require.NoError(t, err)

	decrypted, err := DecryptFromBase64(encoded, key)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(decrypted))

	_, err = DecryptFromBase64("not base64 at all!!!", key)
	assert.Error(t, err)
}
