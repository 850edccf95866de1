// Package keyvault manages per-column data-encryption keys using envelope
// encryption: each column gets a random 256-bit DEK, wrapped under a key
// derived from the master passphrase and a per-column random salt.
//
// The master passphrase is supplied once at process start and never
// persisted. Losing it makes every wrapped key permanently unrecoverable.
package keyvault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"datashield/internal/domain"
)

const (
	// kdfIterations keeps the KDF slow on purpose. It runs once per
	// wrap/unwrap, never per cell.
	kdfIterations = 100_000

	saltSize = 16
	keySize  = 32
)

// Vault derives, wraps, and unwraps per-column data-encryption keys.
// Wrap records live in the datastore; the vault holds no key material
// between calls.
type Vault struct {
	keys       domain.ColumnKeyRepository
	passphrase []byte
}

// New creates a Vault. The passphrase must be non-empty.
func New(keys domain.ColumnKeyRepository, passphrase string) (*Vault, error) {
	if passphrase == "" {
		return nil, domain.ErrValidation("master key passphrase must not be empty")
	}
	return &Vault{keys: keys, passphrase: []byte(passphrase)}, nil
}

// SecureColumn generates a fresh random DEK for the column, wraps it under a
// key derived from the passphrase and a fresh random salt, and persists the
// wrap record, replacing any prior record for the pair. Old ciphertexts under
// a replaced key become undecryptable; that is the documented trade-off of
// re-securing, not an accident.
func (v *Vault) SecureColumn(ctx context.Context, table, column string) ([]byte, error) {
	dek := make([]byte, keySize)
	if _, err := rand.Read(dek); err != nil {
		return nil, fmt.Errorf("generate data key: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := v.wrapCipher(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	wrapped := gcm.Seal(nonce, nonce, dek, nil)

	if err := v.keys.Upsert(ctx, &domain.ColumnKey{
		TableName:  table,
		ColumnName: column,
		Salt:       salt,
		WrappedKey: wrapped,
	}); err != nil {
		return nil, err
	}
	return dek, nil
}

// UnwrapKey re-derives the wrap key from the stored salt and unwraps the DEK.
// Returns KeyNotFoundError when no record exists and WrapIntegrityError when
// authentication fails.
func (v *Vault) UnwrapKey(ctx context.Context, table, column string) ([]byte, error) {
	rec, err := v.keys.Get(ctx, table, column)
	if err != nil {
		return nil, err
	}

	gcm, err := v.wrapCipher(rec.Salt)
	if err != nil {
		return nil, err
	}

	if len(rec.WrappedKey) < gcm.NonceSize() {
		return nil, &domain.WrapIntegrityError{
			Table: table, Column: column,
			Err: fmt.Errorf("wrap record truncated: %d bytes", len(rec.WrappedKey)),
		}
	}
	nonce, sealed := rec.WrappedKey[:gcm.NonceSize()], rec.WrappedKey[gcm.NonceSize():]

	dek, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, &domain.WrapIntegrityError{Table: table, Column: column, Err: err}
	}
	return dek, nil
}

// IsSecured reports whether a wrap record exists for the pair. No side effects.
func (v *Vault) IsSecured(ctx context.Context, table, column string) (bool, error) {
	return v.keys.Exists(ctx, table, column)
}

func (v *Vault) wrapCipher(salt []byte) (cipher.AEAD, error) {
	kek := pbkdf2.Key(v.passphrase, salt, kdfIterations, keySize, sha256.New)

	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("init wrap cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init wrap cipher: %w", err)
	}
	return gcm, nil
}
