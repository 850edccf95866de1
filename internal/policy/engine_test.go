package policy

import (
	"context"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "datashield/internal/db"
	"datashield/internal/db/repository"
	"datashield/internal/domain"
)

func setupEngine(t *testing.T) (*Engine, *repository.PrincipalRepo) {
	t.Helper()
	db, _ := internaldb.OpenTestSQLite(t)

	_, err := db.Exec(`CREATE TABLE employees (id INTEGER, name TEXT, salary TEXT, ssn TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE departments (id INTEGER, name TEXT)`)
	require.NoError(t, err)

	store, err := internaldb.NewSQLDatastore(db, internaldb.DialectSQLite)
	require.NoError(t, err)

	principals := repository.NewPrincipalRepo(db)
	return NewEngine(principals, repository.NewGrantRepo(db), store), principals
}

func addPrincipal(t *testing.T, repo *repository.PrincipalRepo, name, role string) *domain.Principal {
	t.Helper()
	p, err := repo.Create(context.Background(), &domain.Principal{Name: name, Role: role})
	require.NoError(t, err)
	return p
}

func strptr(s string) *string { return &s }

func TestAuthorize_UnknownPrincipalDenied(t *testing.T) {
	engine, _ := setupEngine(t)

	decision, err := engine.Authorize(context.Background(), "ghost", []string{"employees"}, nil)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, "principal 'ghost' does not exist", decision.Reason)
	assert.Empty(t, decision.DeniedItems)
}

func TestAuthorize_AdminOverride(t *testing.T) {
	engine, principals := setupEngine(t)
	addPrincipal(t, principals, "root", domain.RoleAdmin)

	decision, err := engine.Authorize(context.Background(), "root",
		[]string{"employees", "departments"}, []string{"ssn", "salary"})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Empty(t, decision.DeniedItems)
}

func TestAuthorize_NoGrantsDenied(t *testing.T) {
	engine, principals := setupEngine(t)
	addPrincipal(t, principals, "alice", domain.RoleAnalyst)

	decision, err := engine.Authorize(context.Background(), "alice", []string{"employees"}, nil)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, "insufficient permissions", decision.Reason)
	assert.Equal(t, []string{"no access to table 'employees'"}, decision.DeniedItems)
}

func TestAuthorize_MissingTableReported(t *testing.T) {
	engine, principals := setupEngine(t)
	addPrincipal(t, principals, "alice", domain.RoleAnalyst)

	decision, err := engine.Authorize(context.Background(), "alice", []string{"nonexistent"}, nil)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.DeniedItems, "table 'nonexistent' does not exist")
}

func TestAuthorize_CollectsAllDenials(t *testing.T) {
	engine, principals := setupEngine(t)
	addPrincipal(t, principals, "alice", domain.RoleAnalyst)

	decision, err := engine.Authorize(context.Background(), "alice",
		[]string{"nonexistent", "employees"}, nil)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, []string{
		"table 'nonexistent' does not exist",
		"no access to table 'employees'",
	}, decision.DeniedItems)
}

func TestAuthorize_TableGrantCoversColumns(t *testing.T) {
	engine, principals := setupEngine(t)
	addPrincipal(t, principals, "alice", domain.RoleAnalyst)
	ctx := context.Background()

	_, err := engine.Grant(ctx, "alice", "employees", nil, domain.AccessRead)
	require.NoError(t, err)

	decision, err := engine.Authorize(ctx, "alice", []string{"employees"}, []string{"name", "salary"})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, "access granted", decision.Reason)
}

func TestAuthorize_ColumnGrantIsExact(t *testing.T) {
	engine, principals := setupEngine(t)
	addPrincipal(t, principals, "alice", domain.RoleAnalyst)
	ctx := context.Background()

	_, err := engine.Grant(ctx, "alice", "employees", strptr("salary"), domain.AccessRead)
	require.NoError(t, err)

	// The column grant gives table visibility but not other columns.
	decision, err := engine.Authorize(ctx, "alice", []string{"employees"}, []string{"name", "ssn"})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, []string{
		"no access to column 'employees.name'",
		"no access to column 'employees.ssn'",
	}, decision.DeniedItems)

	decision, err = engine.Authorize(ctx, "alice", []string{"employees"}, []string{"salary"})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestAuthorize_NoPartialNameMatch(t *testing.T) {
	engine, principals := setupEngine(t)
	addPrincipal(t, principals, "alice", domain.RoleAnalyst)
	ctx := context.Background()

	_, err := engine.Grant(ctx, "alice", "employees", strptr("salary"), domain.AccessRead)
	require.NoError(t, err)

	decision, err := engine.Authorize(ctx, "alice", []string{"employees"}, []string{"salary_band"})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

// The server evaluates authorization over the read pool while all mutation
// goes through the write pool. Decisions must see grants the instant they
// land, with no pool-level lag or caching.
func TestAuthorize_ReadPoolSeesWritePoolMutations(t *testing.T) {
	writeDB, readDB := internaldb.OpenTestSQLite(t)
	ctx := context.Background()

	_, err := writeDB.Exec(`CREATE TABLE employees (id INTEGER, name TEXT)`)
	require.NoError(t, err)

	store, err := internaldb.NewSQLDatastore(readDB, internaldb.DialectSQLite)
	require.NoError(t, err)

	authEngine := NewEngine(repository.NewPrincipalRepo(readDB), repository.NewGrantRepo(readDB), store)
	adminEngine := NewEngine(repository.NewPrincipalRepo(writeDB), repository.NewGrantRepo(writeDB), store)

	_, err = repository.NewPrincipalRepo(writeDB).Create(ctx,
		&domain.Principal{Name: "alice", Role: domain.RoleAnalyst})
	require.NoError(t, err)

	decision, err := authEngine.Authorize(ctx, "alice", []string{"employees"}, nil)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)

	_, err = adminEngine.Grant(ctx, "alice", "employees", nil, domain.AccessRead)
	require.NoError(t, err)

	decision, err = authEngine.Authorize(ctx, "alice", []string{"employees"}, nil)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	require.NoError(t, adminEngine.Revoke(ctx, "alice", "employees", nil))

	decision, err = authEngine.Authorize(ctx, "alice", []string{"employees"}, nil)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestGrant_UnknownPrincipal(t *testing.T) {
	engine, _ := setupEngine(t)

	_, err := engine.Grant(context.Background(), "ghost", "employees", nil, domain.AccessRead)
	require.Error(t, err)
	var unknown *domain.UnknownPrincipalError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "ghost", unknown.Name)
}

func TestGrant_InvalidLevel(t *testing.T) {
	engine, principals := setupEngine(t)
	addPrincipal(t, principals, "alice", domain.RoleAnalyst)

	_, err := engine.Grant(context.Background(), "alice", "employees", nil, "superuser")
	require.Error(t, err)
	var validation *domain.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestGrantRevoke_Idempotent(t *testing.T) {
	engine, principals := setupEngine(t)
	addPrincipal(t, principals, "alice", domain.RoleAnalyst)
	ctx := context.Background()

	first, err := engine.Grant(ctx, "alice", "employees", nil, domain.AccessRead)
	require.NoError(t, err)
	second, err := engine.Grant(ctx, "alice", "employees", nil, domain.AccessWrite)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, domain.AccessWrite, second.AccessLevel)

	require.NoError(t, engine.Revoke(ctx, "alice", "employees", nil))
	require.NoError(t, engine.Revoke(ctx, "alice", "employees", nil))

	grants, err := engine.ListGrants(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, grants)
}

func TestRevoke_UnknownPrincipal(t *testing.T) {
	engine, _ := setupEngine(t)

	err := engine.Revoke(context.Background(), "ghost", "employees", nil)
	var unknown *domain.UnknownPrincipalError
	require.ErrorAs(t, err, &unknown)
}

func TestHasColumnAccess(t *testing.T) {
	engine, principals := setupEngine(t)
	addPrincipal(t, principals, "alice", domain.RoleAnalyst)
	addPrincipal(t, principals, "root", domain.RoleAdmin)
	ctx := context.Background()

	_, err := engine.Grant(ctx, "alice", "employees", strptr("salary"), domain.AccessRead)
	require.NoError(t, err)

	ok, err := engine.HasColumnAccess(ctx, "alice", "employees", "salary")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = engine.HasColumnAccess(ctx, "alice", "employees", "ssn")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = engine.HasColumnAccess(ctx, "root", "employees", "ssn")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = engine.HasColumnAccess(ctx, "ghost", "employees", "ssn")
	require.NoError(t, err)
	assert.False(t, ok)
}
