// Package cipher encrypts sensitive fixture payloads the same way the system
// under test stores them: a PBKDF2-derived AES-256 key and CBC mode with a
// fresh random IV per call. The harness only ever encrypts; decryption is the
// system under test's side of the contract, validated by the shared secret.
package cipher

import (
	"crypto/aes"
	stdcipher "crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/pbkdf2"

	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/errors"
)

// Key derivation and cipher parameters shared with the system under test.
// Changing any of these breaks the cross-component decryption contract.
const (
	iterationCount = 65536
	keyLength      = 32 // 256-bit AES key
)

// PayloadCipher encrypts JSON payloads into opaque strings for error records.
//
// The instance is stateless and safe for concurrent use from multiple
// goroutines. Each encryption generates a unique IV independently.
type PayloadCipher struct {
	key []byte
}

// New derives the symmetric key from the shared secret and salt.
// Returns an error when either input is empty: an empty key would produce
// payloads the system under test cannot decrypt, which would make later
// assertions pass vacuously.
func New(secretKey, salt string) (*PayloadCipher, error) {
	if secretKey == "" || salt == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "cipher secret key and salt are required")
	}

	key := pbkdf2.Key([]byte(secretKey), []byte(salt), iterationCount, keyLength, sha256.New)
	return &PayloadCipher{key: key}, nil
}

// Encrypt encrypts plaintext with AES-256-CBC and returns
// base64(iv || ciphertext). The IV is 16 random bytes, fresh per call, and the
// plaintext is PKCS#7 padded to the AES block size.
func (c *PayloadCipher) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", errors.Wrap(err, "failed to create AES cipher")
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", errors.Wrap(err, "failed to generate IV")
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	stdcipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return base64.StdEncoding.EncodeToString(append(iv, ciphertext...)), nil
}

// pkcs7Pad pads data to a multiple of blockSize. A full block of padding is
// appended when the data is already aligned.
func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}
