package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"datashield/internal/domain"
)

// Dialect selects the catalog queries used by SQLDatastore.
const (
	DialectSQLite = "sqlite3"
	DialectDuckDB = "duckdb"
)

// SQLDatastore implements domain.Datastore over a *sql.DB. The gateway passes
// SQL through unmodified; only the catalog lookups (table existence, schema)
// differ per dialect.
type SQLDatastore struct {
	db      *sql.DB
	dialect string
}

var _ domain.Datastore = (*SQLDatastore)(nil)

// NewSQLDatastore creates a SQLDatastore for the given connection and dialect
// (DialectSQLite or DialectDuckDB).
func NewSQLDatastore(db *sql.DB, dialect string) (*SQLDatastore, error) {
	if dialect != DialectSQLite && dialect != DialectDuckDB {
		return nil, fmt.Errorf("unsupported datastore dialect %q", dialect)
	}
	return &SQLDatastore{db: db, dialect: dialect}, nil
}

// Execute runs the statement as-is. SELECT-shaped statements return a
// ResultSet with row and column order preserved exactly; everything else is
// executed for side effects and returns an empty ResultSet.
func (s *SQLDatastore) Execute(ctx context.Context, query string) (*domain.ResultSet, error) {
	if !returnsRows(query) {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return nil, &domain.DatastoreError{Err: err}
		}
		return &domain.ResultSet{}, nil
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &domain.DatastoreError{Err: err}
	}
	defer rows.Close() //nolint:errcheck

	cols, err := rows.Columns()
	if err != nil {
		return nil, &domain.DatastoreError{Err: err}
	}

	result := &domain.ResultSet{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		scanArgs := make([]any, len(cols))
		for i := range values {
			scanArgs[i] = &values[i]
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, &domain.DatastoreError{Err: err}
		}
		// Normalize driver []byte to string so result transformation and
		// display see text, not raw bytes.
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.DatastoreError{Err: err}
	}
	return result, nil
}

// TableExists checks the catalog for a table with the given name.
func (s *SQLDatastore) TableExists(ctx context.Context, name string) (bool, error) {
	var query string
	switch s.dialect {
	case DialectDuckDB:
		query = `SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?`
	default:
		query = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, name).Scan(&count); err != nil {
		return false, &domain.DatastoreError{Err: err}
	}
	return count > 0, nil
}

// GetSchema returns the ordered column list of a table.
func (s *SQLDatastore) GetSchema(ctx context.Context, table string) ([]domain.ColumnInfo, error) {
	exists, err := s.TableExists(ctx, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrNotFound("table %q does not exist", table)
	}

	switch s.dialect {
	case DialectDuckDB:
		return s.duckdbSchema(ctx, table)
	default:
		return s.sqliteSchema(ctx, table)
	}
}

func (s *SQLDatastore) sqliteSchema(ctx context.Context, table string) ([]domain.ColumnInfo, error) {
	// PRAGMA table_info does not support bind parameters; the table name was
	// verified against sqlite_master above. SQLite escapes an embedded double
	// quote by doubling it, not with a backslash.
	quoted := `"` + strings.ReplaceAll(table, `"`, `""`) + `"`
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info("+quoted+")")
	if err != nil {
		return nil, &domain.DatastoreError{Err: err}
	}
	defer rows.Close() //nolint:errcheck

	var cols []domain.ColumnInfo
	for rows.Next() {
		var (
			cid       int
			name, typ string
			notNull   int
			dflt      sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, &domain.DatastoreError{Err: err}
		}
		cols = append(cols, domain.ColumnInfo{Name: name, Type: typ})
	}
	return cols, rows.Err()
}

func (s *SQLDatastore) duckdbSchema(ctx context.Context, table string) ([]domain.ColumnInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT column_name, data_type FROM information_schema.columns
		 WHERE table_name = ? ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, &domain.DatastoreError{Err: err}
	}
	defer rows.Close() //nolint:errcheck

	var cols []domain.ColumnInfo
	for rows.Next() {
		var c domain.ColumnInfo
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			return nil, &domain.DatastoreError{Err: err}
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// ListTables returns the names of all user tables, sorted.
func (s *SQLDatastore) ListTables(ctx context.Context) ([]string, error) {
	var query string
	switch s.dialect {
	case DialectDuckDB:
		query = `SELECT table_name FROM information_schema.tables ORDER BY table_name`
	default:
		query = `SELECT name FROM sqlite_master
		         WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &domain.DatastoreError{Err: err}
	}
	defer rows.Close() //nolint:errcheck

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &domain.DatastoreError{Err: err}
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// returnsRows reports whether the statement's leading keyword produces a
// result set.
func returnsRows(query string) bool {
	trimmed := strings.TrimSpace(query)
	for _, kw := range []string{"SELECT", "WITH", "PRAGMA", "SHOW", "DESCRIBE"} {
		if len(trimmed) >= len(kw) && strings.EqualFold(trimmed[:len(kw)], kw) {
			return true
		}
	}
	return false
}
