package sqlscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datashield/internal/domain"
)

func TestExtract_SimpleSelect(t *testing.T) {
	refs, err := Extract("SELECT a, b FROM t")
	require.NoError(t, err)
	assert.Equal(t, domain.StatementSelect, refs.Kind)
	assert.Equal(t, []string{"t"}, refs.Tables)
	assert.Equal(t, []string{"a", "b"}, refs.Columns)
	assert.False(t, refs.Wildcard)
}

func TestExtract_Wildcard(t *testing.T) {
	refs, err := Extract("SELECT * FROM employees")
	require.NoError(t, err)
	assert.True(t, refs.Wildcard)
	assert.Empty(t, refs.Columns)
	assert.Equal(t, []string{"employees"}, refs.Tables)
}

func TestExtract_QualifiedStarSetsWildcard(t *testing.T) {
	refs, err := Extract("SELECT e.* FROM employees e")
	require.NoError(t, err)
	assert.True(t, refs.Wildcard)
	assert.Empty(t, refs.Columns)
}

func TestExtract_QualifiedColumnsUseBaseName(t *testing.T) {
	refs, err := Extract("SELECT e.name, e.salary FROM employees e")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "salary"}, refs.Columns)
	assert.Equal(t, []string{"employees"}, refs.Tables)
}

func TestExtract_AliasesIgnored(t *testing.T) {
	refs, err := Extract("SELECT name AS n, salary total FROM employees AS e")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "salary"}, refs.Columns)
	assert.Equal(t, []string{"employees"}, refs.Tables)
}

func TestExtract_CommaSeparatedTables(t *testing.T) {
	refs, err := Extract("SELECT name FROM employees, departments")
	require.NoError(t, err)
	assert.Equal(t, []string{"employees", "departments"}, refs.Tables)
}

func TestExtract_Joins(t *testing.T) {
	refs, err := Extract(
		"SELECT name FROM employees e LEFT OUTER JOIN departments d ON e.dept_id = d.id WHERE d.active = 1")
	require.NoError(t, err)
	assert.Equal(t, []string{"employees", "departments"}, refs.Tables)
	assert.Equal(t, []string{"name"}, refs.Columns)
}

func TestExtract_Deduplicates(t *testing.T) {
	refs, err := Extract("SELECT a, a, b FROM t, t")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, refs.Columns)
	assert.Equal(t, []string{"t"}, refs.Tables)
}

func TestExtract_FunctionCallsContributeNoColumn(t *testing.T) {
	refs, err := Extract("SELECT COUNT(*), name FROM employees")
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, refs.Columns)
}

func TestExtract_SelectWithoutFrom(t *testing.T) {
	refs, err := Extract("SELECT 1")
	require.NoError(t, err)
	assert.Empty(t, refs.Tables)
	assert.Empty(t, refs.Columns)
}

func TestExtract_CommentsAndCaseInsensitivity(t *testing.T) {
	refs, err := Extract("select name -- trailing\nfrom /* block */ Employees")
	require.NoError(t, err)
	assert.Equal(t, []string{"Employees"}, refs.Tables)
	assert.Equal(t, []string{"name"}, refs.Columns)
}

func TestExtract_TrailingSemicolonAllowed(t *testing.T) {
	refs, err := Extract("SELECT a FROM t;")
	require.NoError(t, err)
	assert.Equal(t, []string{"t"}, refs.Tables)
}

func TestExtract_Insert(t *testing.T) {
	refs, err := Extract("INSERT INTO employees (name, ssn) VALUES ('x', 'y')")
	require.NoError(t, err)
	assert.Equal(t, domain.StatementInsert, refs.Kind)
	assert.Equal(t, []string{"employees"}, refs.Tables)
	assert.Equal(t, []string{"name", "ssn"}, refs.Columns)
}

func TestExtract_Update(t *testing.T) {
	refs, err := Extract("UPDATE employees SET salary = 100, title = 'x' WHERE id = 1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatementUpdate, refs.Kind)
	assert.Equal(t, []string{"employees"}, refs.Tables)
	assert.Equal(t, []string{"salary", "title"}, refs.Columns)
}

func TestExtract_Delete(t *testing.T) {
	refs, err := Extract("DELETE FROM employees WHERE id = 1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatementDelete, refs.Kind)
	assert.Equal(t, []string{"employees"}, refs.Tables)
}

func TestExtract_FailClosed(t *testing.T) {
	cases := map[string]string{
		"empty":            "",
		"comment only":     "-- nothing here",
		"unsupported":      "DROP TABLE employees",
		"multi-statement":  "SELECT a FROM t; SELECT b FROM u",
		"subquery in FROM": "SELECT a FROM (SELECT b FROM t)",
		"stray character":  "SELECT a FROM t @ x",
		"malformed insert": "INSERT employees VALUES (1)",
		"malformed delete": "DELETE employees",
		"garbled select":   "SELECT a 1 FROM t",
	}
	for name, sql := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Extract(sql)
			require.Error(t, err)
			var extErr *domain.ExtractionError
			assert.ErrorAs(t, err, &extErr)
		})
	}
}

func TestExtract_InsertMultiRowValues(t *testing.T) {
	refs, err := Extract("INSERT INTO notes (id, body) VALUES (1, 'x'), (2, 'y')")
	require.NoError(t, err)
	assert.Equal(t, []string{"notes"}, refs.Tables)
	assert.Equal(t, []string{"id", "body"}, refs.Columns)
}

func TestExtract_SelectWithTrailingClauses(t *testing.T) {
	refs, err := Extract(
		"SELECT a FROM t WHERE a > 1 GROUP BY a HAVING COUNT(a) > 1 ORDER BY a DESC LIMIT 10 OFFSET 5")
	require.NoError(t, err)
	assert.Equal(t, []string{"t"}, refs.Tables)
	assert.Equal(t, []string{"a"}, refs.Columns)
}

// A statement whose tail the scanner cannot account for must fail extraction
// rather than execute with only its leading clause authorized.
func TestExtract_CompoundAndNestedQueriesRejected(t *testing.T) {
	cases := map[string]string{
		"union":                 "SELECT a FROM notes UNION SELECT name FROM employees",
		"union all":             "SELECT a FROM notes UNION ALL SELECT name FROM employees",
		"insert from select":    "INSERT INTO notes (a) SELECT name FROM employees",
		"insert without values": "INSERT INTO notes (a)",
		"subquery in where":     "SELECT a FROM notes WHERE a IN (SELECT name FROM employees)",
		"subquery in set":       "UPDATE notes SET a = (SELECT name FROM employees)",
		"subquery in values":    "INSERT INTO notes (a) VALUES ((SELECT name FROM employees))",
		"subquery in join":      "SELECT a FROM notes n JOIN tags g ON g.id = (SELECT id FROM employees)",
		"trailing compound":     "DELETE FROM notes WHERE id = 1 UNION SELECT name FROM employees",
		"update without set":    "UPDATE notes",
	}
	for name, sql := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Extract(sql)
			require.Error(t, err)
			var extErr *domain.ExtractionError
			assert.ErrorAs(t, err, &extErr)
		})
	}
}

func TestExtract_QuotedIdentifiers(t *testing.T) {
	refs, err := Extract(`SELECT "first name" FROM "my table"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"first name"}, refs.Columns)
	assert.Equal(t, []string{"my table"}, refs.Tables)
}

func TestExtract_StringLiteralsDoNotLeakReferences(t *testing.T) {
	refs, err := Extract("SELECT name FROM t WHERE note = 'FROM secret_table'")
	require.NoError(t, err)
	assert.Equal(t, []string{"t"}, refs.Tables)
}
