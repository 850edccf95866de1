package domain

import "context"

// Datastore is the gateway's view of the underlying relational store. SQL
// text is passed through unmodified; the gateway decides whether to run a
// statement and how to post-process its results, never rewrites it.
type Datastore interface {
	Execute(ctx context.Context, sql string) (*ResultSet, error)
	TableExists(ctx context.Context, name string) (bool, error)
	GetSchema(ctx context.Context, table string) ([]ColumnInfo, error)
	ListTables(ctx context.Context) ([]string, error)
}

// IdentityProvider resolves principal names to principals.
type IdentityProvider interface {
	Lookup(ctx context.Context, name string) (*Principal, error)
}

// PrincipalRepository provides CRUD operations for principals.
type PrincipalRepository interface {
	Create(ctx context.Context, p *Principal) (*Principal, error)
	GetByName(ctx context.Context, name string) (*Principal, error)
	List(ctx context.Context) ([]Principal, error)
	Delete(ctx context.Context, name string) error
}

// GrantRepository provides operations for access grants. Upsert replaces any
// existing grant on the same (principal, table, column) tuple.
type GrantRepository interface {
	Upsert(ctx context.Context, g *Grant) (*Grant, error)
	Delete(ctx context.Context, principalID int64, table string, column *string) error
	HasTableGrant(ctx context.Context, principalID int64, table string) (bool, error)
	HasColumnGrant(ctx context.Context, principalID int64, table, column string) (bool, error)
	HasAnyGrant(ctx context.Context, principalID int64, table string) (bool, error)
	ListForPrincipal(ctx context.Context, principalID int64) ([]Grant, error)
}

// ColumnKeyRepository provides operations for column key wrap records.
type ColumnKeyRepository interface {
	Upsert(ctx context.Context, k *ColumnKey) error
	Get(ctx context.Context, table, column string) (*ColumnKey, error)
	Exists(ctx context.Context, table, column string) (bool, error)
}

// AuditRepository provides operations for the compliance trail.
type AuditRepository interface {
	Insert(ctx context.Context, e *AuditEntry) error
	List(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
	DeleteOlderThan(ctx context.Context, days int) (int64, error)
}
