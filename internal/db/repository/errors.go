// Package repository implements the domain repository interfaces over SQLite.
package repository

import (
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"

	"datashield/internal/domain"
)

// mapDBError converts driver-level errors into typed domain errors. Unique
// constraint violations become ConflictError via the driver's typed error
// codes, never by matching message text.
func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound("record not found")
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return domain.ErrConflict("record already exists")
		}
	}
	return err
}
