package repository

import (
	"context"
	"database/sql"
	"errors"

	"datashield/internal/domain"
)

var _ domain.PrincipalRepository = (*PrincipalRepo)(nil)
var _ domain.IdentityProvider = (*PrincipalRepo)(nil)

// PrincipalRepo implements domain.PrincipalRepository using SQLite.
// It also serves as the gateway's IdentityProvider.
type PrincipalRepo struct {
	db *sql.DB
}

// NewPrincipalRepo creates a new PrincipalRepo.
func NewPrincipalRepo(db *sql.DB) *PrincipalRepo {
	return &PrincipalRepo{db: db}
}

// Create inserts a new principal. A duplicate name yields ConflictError.
func (r *PrincipalRepo) Create(ctx context.Context, p *domain.Principal) (*domain.Principal, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO principals (name, role, password_hash)
		 VALUES (?, ?, ?)
		 RETURNING id, name, role, password_hash, created_at`,
		p.Name, p.Role, p.PasswordHash)

	created, err := scanPrincipal(row)
	if err != nil {
		return nil, mapDBError(err)
	}
	return created, nil
}

// GetByName returns the principal with the given name.
func (r *PrincipalRepo) GetByName(ctx context.Context, name string) (*domain.Principal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, role, password_hash, created_at
		 FROM principals WHERE name = ?`, name)

	p, err := scanPrincipal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound("principal %q not found", name)
		}
		return nil, err
	}
	return p, nil
}

// Lookup implements domain.IdentityProvider.
func (r *PrincipalRepo) Lookup(ctx context.Context, name string) (*domain.Principal, error) {
	return r.GetByName(ctx, name)
}

// List returns all principals ordered by creation time, newest first.
func (r *PrincipalRepo) List(ctx context.Context) ([]domain.Principal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, role, password_hash, created_at
		 FROM principals ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.Principal
	for rows.Next() {
		var p domain.Principal
		if err := rows.Scan(&p.ID, &p.Name, &p.Role, &p.PasswordHash, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete removes a principal by name. Grants cascade.
func (r *PrincipalRepo) Delete(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM principals WHERE name = ?`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("principal %q not found", name)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrincipal(row rowScanner) (*domain.Principal, error) {
	var p domain.Principal
	if err := row.Scan(&p.ID, &p.Name, &p.Role, &p.PasswordHash, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
