package domain

import "time"

// ColumnKey is the persisted wrap record for a secured column: the
// data-encryption key wrapped under a key derived from the master passphrase
// and Salt. Key material is never stored unwrapped. At most one active record
// exists per (table, column); re-securing overwrites it and makes old
// ciphertexts undecryptable.
type ColumnKey struct {
	ID         int64
	TableName  string
	ColumnName string
	Salt       []byte
	WrappedKey []byte
	CreatedAt  time.Time
}
