package cipher

import (
	"crypto/aes"
	stdcipher "crypto/cipher"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/errors"
)

// decrypt reverses Encrypt using the same derived key. It exists only to
// validate the round-trip contract; the harness itself never decrypts.
func decrypt(t *testing.T, c *PayloadCipher, encoded string) string {
	t.Helper()

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(raw), 2*aes.BlockSize)

	block, err := aes.NewCipher(c.key)
	require.NoError(t, err)

	iv, ciphertext := raw[:aes.BlockSize], raw[aes.BlockSize:]
	require.Zero(t, len(ciphertext)%aes.BlockSize)

	plaintext := make([]byte, len(ciphertext))
	stdcipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	padLen := int(plaintext[len(plaintext)-1])
	require.LessOrEqual(t, padLen, aes.BlockSize)
	return string(plaintext[:len(plaintext)-padLen])
}

func TestNew(t *testing.T) {
	t.Run("valid secret and salt", func(t *testing.T) {
		c, err := New("secret", "salt")
		require.NoError(t, err)
		assert.Len(t, c.key, keyLength)
	})

	t.Run("missing secret", func(t *testing.T) {
		_, err := New("", "salt")
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("missing salt", func(t *testing.T) {
		_, err := New("secret", "")
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("key derivation is deterministic", func(t *testing.T) {
		a, err := New("secret", "salt")
		require.NoError(t, err)
		b, err := New("secret", "salt")
		require.NoError(t, err)
		assert.Equal(t, a.key, b.key)
	})
}

func TestEncrypt(t *testing.T) {
	c, err := New("integration-test-secret", "integration-test-salt")
	require.NoError(t, err)

	tests := []struct {
		name      string
		plaintext string
	}{
		{name: "json payload", plaintext: `[{"id":"P1","eventStatus":"DONE"}]`},
		{name: "plain message", plaintext: "error message"},
		{name: "empty string", plaintext: ""},
		{name: "block aligned input", plaintext: "0123456789abcdef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encrypted, err := c.Encrypt(tt.plaintext)
			require.NoError(t, err)
			require.NotEmpty(t, encrypted)

			assert.Equal(t, tt.plaintext, decrypt(t, c, encrypted))
		})
	}

	t.Run("fresh IV per call", func(t *testing.T) {
		first, err := c.Encrypt("same payload")
		require.NoError(t, err)
		second, err := c.Encrypt("same payload")
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
		assert.Equal(t, decrypt(t, c, first), decrypt(t, c, second))
	})
}
