package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCmd executes one shieldctl invocation against the databases in dir.
func runCmd(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	full := append([]string{
		"--meta-db", filepath.Join(dir, "meta.sqlite"),
		"--data-db", filepath.Join(dir, "data.sqlite"),
	}, args...)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(full)
	err := cmd.Execute()
	return out.String(), err
}

func TestUserLifecycle(t *testing.T) {
	dir := t.TempDir()

	out, err := runCmd(t, dir, "user", "create", "alice", "--role", "analyst",
		"--password", "s3cret-pass")
	require.NoError(t, err)
	assert.Contains(t, out, `created user "alice" with role analyst`)

	_, err = runCmd(t, dir, "user", "create", "alice", "--role", "viewer",
		"--password", "other-pass-123")
	require.Error(t, err)

	out, err = runCmd(t, dir, "user", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "analyst")

	out, err = runCmd(t, dir, "user", "delete", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, `deleted user "alice"`)
}

func TestGrantLifecycle(t *testing.T) {
	dir := t.TempDir()

	_, err := runCmd(t, dir, "user", "create", "bob", "--role", "analyst",
		"--password", "s3cret-pass")
	require.NoError(t, err)

	out, err := runCmd(t, dir, "grant", "bob", "employees")
	require.NoError(t, err)
	assert.Contains(t, out, `granted read access on table "employees" to "bob"`)

	out, err = runCmd(t, dir, "grant", "bob", "employees", "salary", "--level", "write")
	require.NoError(t, err)
	assert.Contains(t, out, `column "employees"."salary"`)

	out, err = runCmd(t, dir, "grants", "bob")
	require.NoError(t, err)
	assert.Contains(t, out, "(table-wide)")
	assert.Contains(t, out, "salary")

	out, err = runCmd(t, dir, "revoke", "bob", "employees")
	require.NoError(t, err)
	assert.Contains(t, out, `revoked access on table "employees" from "bob"`)

	_, err = runCmd(t, dir, "grant", "ghost", "employees")
	require.Error(t, err)
}

func TestIngestAndQuery(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MASTER_KEY_PASSPHRASE", "test passphrase")

	csvPath := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(csvPath,
		[]byte("id,name,ssn\n1,Ada,111-22-3333\n2,Grace,444-55-6666\n"), 0o600))

	_, err := runCmd(t, dir, "user", "create", "root", "--role", "admin",
		"--password", "admin-pass-123")
	require.NoError(t, err)
	_, err = runCmd(t, dir, "user", "create", "bob", "--role", "viewer",
		"--password", "viewer-pass-123")
	require.NoError(t, err)

	out, err := runCmd(t, dir, "ingest", csvPath, "--table", "people", "--encrypt", "ssn")
	require.NoError(t, err)
	assert.Contains(t, out, `loaded 2 rows into "people"`)

	// Admin sees decrypted values.
	out, err = runCmd(t, dir, "query", "--as", "root", "SELECT name, ssn FROM people")
	require.NoError(t, err)
	assert.Contains(t, out, "111-22-3333")
	assert.Contains(t, out, "query executed successfully, 2 rows returned")

	// Viewer without grants is denied; the decision is printed, not an error.
	out, err = runCmd(t, dir, "query", "--as", "bob", "SELECT ssn FROM people")
	require.NoError(t, err)
	assert.Contains(t, out, "insufficient permissions")

	_, err = runCmd(t, dir, "query", "SELECT 1")
	require.Error(t, err, "--as is required")
}

func TestIngestPreview(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(csvPath,
		[]byte("id,Full Name\n1,Ada\n2,Grace\n3,Alan\n"), 0o600))

	out, err := runCmd(t, dir, "ingest", csvPath, "--preview", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "full_name")
	assert.Contains(t, out, "Ada")
	assert.NotContains(t, out, "Alan")
}

func TestAuditCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MASTER_KEY_PASSPHRASE", "test passphrase")

	_, err := runCmd(t, dir, "user", "create", "root", "--role", "admin",
		"--password", "admin-pass-123")
	require.NoError(t, err)

	out, err := runCmd(t, dir, "audit")
	require.NoError(t, err)
	assert.Contains(t, out, "create_user")

	exportPath := filepath.Join(dir, "audit.csv")
	_, err = runCmd(t, dir, "audit", "--export", exportPath)
	require.NoError(t, err)
	raw, err := os.ReadFile(exportPath) //nolint:gosec
	require.NoError(t, err)
	assert.Contains(t, string(raw), "create_user")

	out, err = runCmd(t, dir, "audit", "--prune", "30")
	require.NoError(t, err)
	assert.Contains(t, out, "pruned 0 audit entries")

	_, err = runCmd(t, dir, "audit", "--status", "bogus")
	require.Error(t, err)
}

func TestSecureColumnCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MASTER_KEY_PASSPHRASE", "test passphrase")

	out, err := runCmd(t, dir, "secure-column", "people", "ssn")
	require.NoError(t, err)
	assert.Contains(t, out, "secured column people.ssn")
}

func TestRootValidation(t *testing.T) {
	dir := t.TempDir()

	_, err := runCmd(t, dir, "--engine", "postgres", "user", "list")
	require.Error(t, err)

	_, err = runCmd(t, dir, "-o", "yaml", "user", "list")
	require.Error(t, err)
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	renderTable(&buf, []string{"name", "role"}, [][]any{
		{"alice", "analyst"},
		{nil, int64(7)},
	})

	out := buf.String()
	assert.Contains(t, out, "name")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "7")
}
