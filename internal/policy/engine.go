// Package policy evaluates whether a principal may touch a set of tables and
// columns, and owns all grant mutation.
//
// Evaluation is fail-closed and exhaustive: an unknown principal is denied
// outright, admins pass unconditionally, and every other decision collects
// the complete list of denial reasons rather than stopping at the first.
// Grants are read fresh from the datastore on every call; a stale security
// decision is worse than a slow one.
package policy

import (
	"context"
	"errors"
	"fmt"

	"datashield/internal/domain"
)

// Engine is the single authority for ALLOW/DENY decisions and for grant
// mutation. It holds no state beyond its collaborators.
type Engine struct {
	principals domain.PrincipalRepository
	grants     domain.GrantRepository
	store      domain.Datastore
}

// NewEngine creates a policy engine.
func NewEngine(principals domain.PrincipalRepository, grants domain.GrantRepository, store domain.Datastore) *Engine {
	return &Engine{principals: principals, grants: grants, store: store}
}

// Authorize decides whether the named principal may access the given tables
// and columns. Denials are normal outcomes carried in the Decision; the error
// return is reserved for infrastructure failures.
func (e *Engine) Authorize(ctx context.Context, principalName string, tables, columns []string) (*domain.Decision, error) {
	principal, err := e.principals.GetByName(ctx, principalName)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return &domain.Decision{
				Allowed: false,
				Reason:  fmt.Sprintf("principal '%s' does not exist", principalName),
			}, nil
		}
		return nil, err
	}

	if principal.IsAdmin() {
		return &domain.Decision{Allowed: true, Reason: "admin has full access"}, nil
	}

	var denied []string

	for _, table := range tables {
		exists, err := e.store.TableExists(ctx, table)
		if err != nil {
			return nil, &domain.DatastoreError{Err: err}
		}
		if !exists {
			denied = append(denied, fmt.Sprintf("table '%s' does not exist", table))
			continue
		}

		ok, err := e.grants.HasAnyGrant(ctx, principal.ID, table)
		if err != nil {
			return nil, err
		}
		if !ok {
			denied = append(denied, fmt.Sprintf("no access to table '%s'", table))
		}
	}

	for _, table := range tables {
		for _, column := range columns {
			ok, err := e.hasColumnAccess(ctx, principal.ID, table, column)
			if err != nil {
				return nil, err
			}
			if !ok {
				denied = append(denied, fmt.Sprintf("no access to column '%s.%s'", table, column))
			}
		}
	}

	if len(denied) > 0 {
		return &domain.Decision{
			Allowed:     false,
			Reason:      "insufficient permissions",
			DeniedItems: denied,
		}, nil
	}
	return &domain.Decision{Allowed: true, Reason: "access granted"}, nil
}

// HasColumnAccess reports whether the principal may see a single column:
// admins always, otherwise a column-specific grant or an inherited table-wide
// grant. Used by the gateway for per-cell decrypt-or-mask decisions.
func (e *Engine) HasColumnAccess(ctx context.Context, principalName, table, column string) (bool, error) {
	principal, err := e.principals.GetByName(ctx, principalName)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	if principal.IsAdmin() {
		return true, nil
	}
	return e.hasColumnAccess(ctx, principal.ID, table, column)
}

func (e *Engine) hasColumnAccess(ctx context.Context, principalID int64, table, column string) (bool, error) {
	ok, err := e.grants.HasColumnGrant(ctx, principalID, table, column)
	if err != nil || ok {
		return ok, err
	}
	return e.grants.HasTableGrant(ctx, principalID, table)
}

// Grant upserts a grant for the named principal. Column nil means table-wide.
// Granting to an unknown principal fails with UnknownPrincipalError and
// mutates nothing.
func (e *Engine) Grant(ctx context.Context, principalName, table string, column *string, level string) (*domain.Grant, error) {
	if !domain.ValidAccessLevel(level) {
		return nil, domain.ErrValidation("invalid access level %q", level)
	}
	principal, err := e.resolvePrincipal(ctx, principalName)
	if err != nil {
		return nil, err
	}
	return e.grants.Upsert(ctx, &domain.Grant{
		PrincipalID: principal.ID,
		TableName:   table,
		ColumnName:  column,
		AccessLevel: level,
	})
}

// Revoke removes the grant on the exact (principal, table, column) tuple.
// Revoking an absent grant is a no-op; revoking for an unknown principal
// fails with UnknownPrincipalError.
func (e *Engine) Revoke(ctx context.Context, principalName, table string, column *string) error {
	principal, err := e.resolvePrincipal(ctx, principalName)
	if err != nil {
		return err
	}
	return e.grants.Delete(ctx, principal.ID, table, column)
}

// ListGrants returns all grants held by the named principal.
func (e *Engine) ListGrants(ctx context.Context, principalName string) ([]domain.Grant, error) {
	principal, err := e.resolvePrincipal(ctx, principalName)
	if err != nil {
		return nil, err
	}
	return e.grants.ListForPrincipal(ctx, principal.ID)
}

func (e *Engine) resolvePrincipal(ctx context.Context, name string) (*domain.Principal, error) {
	principal, err := e.principals.GetByName(ctx, name)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return nil, &domain.UnknownPrincipalError{Name: name}
		}
		return nil, err
	}
	return principal, nil
}
