package repository

import (
	"context"
	"database/sql"
	"errors"

	"datashield/internal/domain"
)

var _ domain.ColumnKeyRepository = (*ColumnKeyRepo)(nil)

// ColumnKeyRepo implements domain.ColumnKeyRepository using SQLite.
type ColumnKeyRepo struct {
	db *sql.DB
}

// NewColumnKeyRepo creates a new ColumnKeyRepo.
func NewColumnKeyRepo(db *sql.DB) *ColumnKeyRepo {
	return &ColumnKeyRepo{db: db}
}

// Upsert stores a wrap record, replacing any prior record for the same
// (table, column) pair. Old ciphertexts under a replaced key are permanently
// undecryptable.
func (r *ColumnKeyRepo) Upsert(ctx context.Context, k *domain.ColumnKey) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO column_keys (table_name, column_name, salt, wrapped_key)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (table_name, column_name)
		 DO UPDATE SET salt = excluded.salt, wrapped_key = excluded.wrapped_key,
		               created_at = CURRENT_TIMESTAMP`,
		k.TableName, k.ColumnName, k.Salt, k.WrappedKey)
	return mapDBError(err)
}

// Get returns the wrap record for a (table, column) pair, or KeyNotFoundError.
func (r *ColumnKeyRepo) Get(ctx context.Context, table, column string) (*domain.ColumnKey, error) {
	var k domain.ColumnKey
	err := r.db.QueryRowContext(ctx,
		`SELECT id, table_name, column_name, salt, wrapped_key, created_at
		 FROM column_keys WHERE table_name = ? AND column_name = ?`,
		table, column).
		Scan(&k.ID, &k.TableName, &k.ColumnName, &k.Salt, &k.WrappedKey, &k.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.KeyNotFoundError{Table: table, Column: column}
		}
		return nil, err
	}
	return &k, nil
}

// Exists reports whether a wrap record exists. No side effects.
func (r *ColumnKeyRepo) Exists(ctx context.Context, table, column string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM column_keys WHERE table_name = ? AND column_name = ?`,
		table, column).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
