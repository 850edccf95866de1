// Package fieldcipher encrypts, decrypts, and masks individual field values.
// Encryption is AES-256-GCM over the column's data-encryption key; masking is
// pure string transformation and never touches key material.
package fieldcipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"datashield/internal/domain"
)

// Encrypt seals a plaintext value under the given data-encryption key and
// returns a base64 blob of nonce || ciphertext || tag.
func Encrypt(plaintext string, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a blob produced by Encrypt. Any failure, malformed input or
// authentication mismatch, comes back as a DecryptionError so callers can
// substitute a placeholder and keep going.
func Decrypt(blob string, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", &domain.DecryptionError{Err: fmt.Errorf("decode blob: %w", err)}
	}
	if len(raw) < gcm.NonceSize() {
		return "", &domain.DecryptionError{Err: fmt.Errorf("blob truncated: %d bytes", len(raw))}
	}

	nonce, sealed := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", &domain.DecryptionError{Err: err}
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init field cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init field cipher: %w", err)
	}
	return gcm, nil
}
