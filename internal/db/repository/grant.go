package repository

import (
	"context"
	"database/sql"

	"datashield/internal/domain"
)

var _ domain.GrantRepository = (*GrantRepo)(nil)

// GrantRepo implements domain.GrantRepository using SQLite.
//
// A table-wide grant is stored with column_name = '' so that the unique
// (principal_id, table_name, column_name) index can act as the upsert target.
type GrantRepo struct {
	db *sql.DB
}

// NewGrantRepo creates a new GrantRepo.
func NewGrantRepo(db *sql.DB) *GrantRepo {
	return &GrantRepo{db: db}
}

// Upsert inserts a grant or, when one exists for the same
// (principal, table, column) tuple, overwrites its access level and
// refreshes the grant timestamp. Never duplicates rows.
func (r *GrantRepo) Upsert(ctx context.Context, g *domain.Grant) (*domain.Grant, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO access_grants (principal_id, table_name, column_name, access_level)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (principal_id, table_name, column_name)
		 DO UPDATE SET access_level = excluded.access_level, granted_at = CURRENT_TIMESTAMP
		 RETURNING id, principal_id, table_name, column_name, access_level, granted_at`,
		g.PrincipalID, g.TableName, columnToDB(g.ColumnName), g.AccessLevel)

	stored, err := scanGrant(row)
	if err != nil {
		return nil, mapDBError(err)
	}
	return stored, nil
}

// Delete removes the grant for the exact (principal, table, column) tuple.
// Deleting a grant that does not exist is a no-op (idempotent revoke).
func (r *GrantRepo) Delete(ctx context.Context, principalID int64, table string, column *string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM access_grants
		 WHERE principal_id = ? AND table_name = ? AND column_name = ?`,
		principalID, table, columnToDB(column))
	return err
}

// HasTableGrant checks for a table-wide grant.
func (r *GrantRepo) HasTableGrant(ctx context.Context, principalID int64, table string) (bool, error) {
	return r.exists(ctx,
		`SELECT COUNT(*) FROM access_grants
		 WHERE principal_id = ? AND table_name = ? AND column_name = ''`,
		principalID, table)
}

// HasColumnGrant checks for a grant on the specific column.
func (r *GrantRepo) HasColumnGrant(ctx context.Context, principalID int64, table, column string) (bool, error) {
	return r.exists(ctx,
		`SELECT COUNT(*) FROM access_grants
		 WHERE principal_id = ? AND table_name = ? AND column_name = ?`,
		principalID, table, column)
}

// HasAnyGrant checks for any grant on the table, table-wide or column-level.
func (r *GrantRepo) HasAnyGrant(ctx context.Context, principalID int64, table string) (bool, error) {
	return r.exists(ctx,
		`SELECT COUNT(*) FROM access_grants
		 WHERE principal_id = ? AND table_name = ?`,
		principalID, table)
}

// ListForPrincipal returns all grants held by a principal, ordered by table
// then column.
func (r *GrantRepo) ListForPrincipal(ctx context.Context, principalID int64) ([]domain.Grant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, principal_id, table_name, column_name, access_level, granted_at
		 FROM access_grants WHERE principal_id = ?
		 ORDER BY table_name, column_name`, principalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func (r *GrantRepo) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func columnToDB(column *string) string {
	if column == nil {
		return ""
	}
	return *column
}

func scanGrant(row rowScanner) (*domain.Grant, error) {
	var (
		g   domain.Grant
		col string
	)
	if err := row.Scan(&g.ID, &g.PrincipalID, &g.TableName, &col, &g.AccessLevel, &g.GrantedAt); err != nil {
		return nil, err
	}
	if col != "" {
		g.ColumnName = &col
	}
	return &g, nil
}
