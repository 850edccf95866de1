package cli

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/term"

	internaldb "datashield/internal/db"
	"datashield/internal/db/repository"
	"datashield/internal/domain"
	"datashield/internal/gateway"
	"datashield/internal/ingest"
	"datashield/internal/keyvault"
	"datashield/internal/policy"
	"datashield/internal/service/governance"
	"datashield/internal/service/security"
)

// stack wires the full service graph over local database files for one
// command invocation.
type stack struct {
	metaDB *sql.DB
	dataDB *sql.DB

	store    domain.Datastore
	identity *security.IdentityService
	engine   *policy.Engine
	audit    *governance.AuditService

	keys   domain.ColumnKeyRepository
	audits domain.AuditRepository
}

// openStack opens the control plane and data engine and builds the services
// that do not need the master passphrase.
func openStack(opts *rootOptions) (*stack, error) {
	metaDB, err := internaldb.OpenSQLite(opts.metaDB, "write", 0)
	if err != nil {
		return nil, err
	}
	if err := internaldb.RunMigrations(metaDB); err != nil {
		_ = metaDB.Close()
		return nil, err
	}

	var (
		dataDB  *sql.DB
		dialect string
	)
	if opts.engine == "duckdb" {
		dataDB, err = sql.Open("duckdb", opts.dataDB)
		dialect = internaldb.DialectDuckDB
	} else {
		dataDB, err = internaldb.OpenSQLite(opts.dataDB, "write", 0)
		dialect = internaldb.DialectSQLite
	}
	if err != nil {
		_ = metaDB.Close()
		return nil, err
	}

	store, err := internaldb.NewSQLDatastore(dataDB, dialect)
	if err != nil {
		_ = dataDB.Close()
		_ = metaDB.Close()
		return nil, err
	}

	principals := repository.NewPrincipalRepo(metaDB)
	grants := repository.NewGrantRepo(metaDB)
	audits := repository.NewAuditRepo(metaDB)
	keys := repository.NewColumnKeyRepo(metaDB)

	return &stack{
		metaDB:   metaDB,
		dataDB:   dataDB,
		store:    store,
		identity: security.NewIdentityService(principals, audits),
		engine:   policy.NewEngine(principals, grants, store),
		audit:    governance.NewAuditService(audits),
		keys:     keys,
		audits:   audits,
	}, nil
}

func (s *stack) close() {
	_ = s.dataDB.Close()
	_ = s.metaDB.Close()
}

// vault builds the key vault, resolving the master passphrase from the
// environment or an interactive prompt.
func (s *stack) vault() (*keyvault.Vault, error) {
	passphrase := os.Getenv("MASTER_KEY_PASSPHRASE")
	if passphrase == "" {
		var err error
		passphrase, err = promptSecret("Master key passphrase: ")
		if err != nil {
			return nil, err
		}
	}
	return keyvault.New(s.keys, passphrase)
}

func (s *stack) gateway() (*gateway.Gateway, error) {
	vault, err := s.vault()
	if err != nil {
		return nil, err
	}
	return gateway.New(s.engine, vault, s.store, s.audits), nil
}

func (s *stack) loader() (*ingest.Loader, error) {
	vault, err := s.vault()
	if err != nil {
		return nil, err
	}
	return ingest.NewLoader(s.dataDB, vault), nil
}

// promptSecret reads a line from the terminal without echo.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return string(raw), nil
}

// renderTable prints columns and rows as an aligned text table.
func renderTable(w io.Writer, columns []string, rows [][]any) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))

	separators := make([]string, len(columns))
	for i, c := range columns {
		separators[i] = strings.Repeat("-", len(c))
	}
	fmt.Fprintln(tw, strings.Join(separators, "\t"))

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatCell(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()
}

func formatCell(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
