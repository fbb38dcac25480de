package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	t.Parallel()

	key := DeriveEncryptionKey("master-key-material")
	iv, err := NewIV()
	require.NoError(t, err)

	ciphertext, err := EncryptWithIV("ya29.a0AfH6SMB-access-token", key, iv)
	require.NoError(t, err)
	require.NotEmpty(t, ciphertext)
	require.NotContains(t, ciphertext, "ya29")

	plaintext, err := DecryptWithIV(ciphertext, key, iv)
	require.NoError(t, err)
	assert.Equal(t, "ya29.a0AfH6SMB-access-token", plaintext)
}

func TestDecryptWithIV_MismatchedIV(t *testing.T) {
	t.Parallel()

	key := DeriveEncryptionKey("master-key-material")
	iv, err := NewIV()
	require.NoError(t, err)
	otherIV, err := NewIV()
	require.NoError(t, err)

	ciphertext, err := EncryptWithIV("secret-token", key, iv)
	require.NoError(t, err)

	// With the wrong IV the first block decrypts to garbage; whatever comes
	// back must never equal the original plaintext and must not panic.
	got, decErr := DecryptWithIV(ciphertext, key, otherIV)
	if decErr == nil {
		assert.NotEqual(t, "secret-token", got)
	}
}

func TestDecryptWithIV_WrongKey(t *testing.T) {
	t.Parallel()

	iv, err := NewIV()
	require.NoError(t, err)

	ciphertext, err := EncryptWithIV("secret-token", DeriveEncryptionKey("old-key"), iv)
	require.NoError(t, err)

	got, decErr := DecryptWithIV(ciphertext, DeriveEncryptionKey("rotated-key"), iv)
	if decErr == nil {
		assert.NotEqual(t, "secret-token", got)
	} else {
		assert.ErrorIs(t, decErr, ErrDecryptFailed)
	}
}

func TestDecryptWithIV_GarbageCiphertext(t *testing.T) {
	t.Parallel()

	key := DeriveEncryptionKey("master-key-material")
	iv, err := NewIV()
	require.NoError(t, err)

	for _, ct := range []string{"", "not hex!", "abcdef"} {
		_, err := DecryptWithIV(ct, key, iv)
		assert.ErrorIs(t, err, ErrDecryptFailed)
	}
}

func TestDeriveEncryptionKey(t *testing.T) {
	t.Parallel()

	k1 := DeriveEncryptionKey("secret-a")
	k2 := DeriveEncryptionKey("secret-a")
	k3 := DeriveEncryptionKey("secret-b")

	assert.Len(t, k1, 32)
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}
