package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"datashield/internal/domain"
)

var _ domain.AuditRepository = (*AuditRepo)(nil)

// AuditRepo implements domain.AuditRepository using SQLite.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Insert writes one audit entry. An empty ID is assigned a fresh UUID.
func (r *AuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log
		 (id, principal_name, action, query_text, tables_accessed, columns_accessed, status, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.PrincipalName, e.Action, e.QueryText,
		strings.Join(e.Tables, ","), strings.Join(e.Columns, ","),
		e.Status, e.Reason)
	return mapDBError(err)
}

// List returns audit entries matching the filter, newest first.
func (r *AuditRepo) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, error) {
	query := `SELECT id, principal_name, action, query_text, tables_accessed,
	                 columns_accessed, status, reason, created_at
	          FROM audit_log WHERE 1=1`
	var args []any

	if filter.PrincipalName != nil {
		query += " AND principal_name = ?"
		args = append(args, *filter.PrincipalName)
	}
	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, *filter.Status)
	}
	if filter.Since != nil {
		// created_at is stored as a UTC CURRENT_TIMESTAMP string; normalize
		// the bound time through datetime() so the comparison is sound.
		query += " AND datetime(created_at) >= datetime(?)"
		args = append(args, filter.Since.UTC())
	}

	query += " ORDER BY created_at DESC, id DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.AuditEntry
	for rows.Next() {
		var (
			e             domain.AuditEntry
			tables, ucols string
		)
		if err := rows.Scan(&e.ID, &e.PrincipalName, &e.Action, &e.QueryText,
			&tables, &ucols, &e.Status, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Tables = splitList(tables)
		e.Columns = splitList(ucols)
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteOlderThan removes audit entries older than the given number of days
// and returns how many were deleted.
func (r *AuditRepo) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM audit_log WHERE created_at < datetime('now', '-%d days')`, days))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
