// Package ingest loads CSV files into the data engine, inferring a schema
// from the values and optionally encrypting sensitive columns on the way in.
package ingest

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"datashield/internal/domain"
	"datashield/internal/fieldcipher"
	"datashield/internal/keyvault"
)

var identifierRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Loader ingests CSV data. Encrypted columns are secured in the vault and
// their values sealed before they ever reach the data engine.
type Loader struct {
	db    *sql.DB
	vault *keyvault.Vault
}

// NewLoader creates a Loader over the data engine connection.
func NewLoader(db *sql.DB, vault *keyvault.Vault) *Loader {
	return &Loader{db: db, vault: vault}
}

// Options controls one load.
type Options struct {
	TableName      string
	DropExisting   bool
	EncryptColumns []string // cleaned column names to secure and encrypt
}

// Result reports what a load did.
type Result struct {
	TableName    string
	Columns      []domain.ColumnInfo
	RowsInserted int
	RowsSkipped  int
}

// LoadFile ingests the CSV at path. See Load.
func (l *Loader) LoadFile(ctx context.Context, path string, opts Options) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.ErrValidation("file not found: %s", path)
	}
	defer f.Close() //nolint:errcheck
	return l.Load(ctx, f, opts)
}

// Load reads CSV from r, creates the target table from the inferred schema,
// and inserts every row. Rows that fail to insert are skipped and counted,
// not fatal. Encrypted columns are stored as TEXT ciphertext blobs.
func (l *Loader) Load(ctx context.Context, r io.Reader, opts Options) (*Result, error) {
	if !identifierRE.MatchString(opts.TableName) {
		return nil, domain.ErrValidation("invalid table name %q", opts.TableName)
	}

	header, records, err := readCSV(r)
	if err != nil {
		return nil, err
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = cleanColumnName(h)
		if !identifierRE.MatchString(columns[i]) {
			return nil, domain.ErrValidation("invalid column name %q", h)
		}
	}

	encrypt := make(map[string]bool, len(opts.EncryptColumns))
	for _, c := range opts.EncryptColumns {
		encrypt[c] = true
	}
	for c := range encrypt {
		if !contains(columns, c) {
			return nil, domain.ErrValidation("encrypt column %q not present in csv", c)
		}
	}

	specs := make([]domain.ColumnInfo, len(columns))
	for i, name := range columns {
		typ := inferType(records, i)
		if encrypt[name] {
			typ = "TEXT"
		}
		specs[i] = domain.ColumnInfo{Name: name, Type: typ}
	}

	keys, err := l.secureColumns(ctx, opts.TableName, encrypt)
	if err != nil {
		return nil, err
	}

	if opts.DropExisting {
		if _, err := l.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", opts.TableName)); err != nil {
			return nil, &domain.DatastoreError{Err: err}
		}
	}
	if err := l.createTable(ctx, opts.TableName, specs); err != nil {
		return nil, err
	}

	inserted, skipped, err := l.insertRows(ctx, opts.TableName, columns, records, encrypt, keys)
	if err != nil {
		return nil, err
	}

	return &Result{
		TableName:    opts.TableName,
		Columns:      specs,
		RowsInserted: inserted,
		RowsSkipped:  skipped,
	}, nil
}

// Preview returns the header and up to n data rows without touching the
// database.
func Preview(r io.Reader, n int) ([]string, [][]string, error) {
	header, records, err := readCSV(r)
	if err != nil {
		return nil, nil, err
	}
	cleaned := make([]string, len(header))
	for i, h := range header {
		cleaned[i] = cleanColumnName(h)
	}
	if n < len(records) {
		records = records[:n]
	}
	return cleaned, records, nil
}

func readCSV(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	all, err := cr.ReadAll()
	if err != nil {
		return nil, nil, domain.ErrValidation("failed to read csv: %v", err)
	}
	if len(all) == 0 {
		return nil, nil, domain.ErrValidation("csv file is empty")
	}
	if len(all) == 1 {
		return nil, nil, domain.ErrValidation("csv has a header but no data rows")
	}
	return all[0], all[1:], nil
}

// secureColumns ensures every to-be-encrypted column has a key, reusing an
// existing wrap record rather than silently rotating it.
func (l *Loader) secureColumns(ctx context.Context, table string, encrypt map[string]bool) (map[string][]byte, error) {
	keys := make(map[string][]byte, len(encrypt))
	for column := range encrypt {
		secured, err := l.vault.IsSecured(ctx, table, column)
		if err != nil {
			return nil, err
		}
		var key []byte
		if secured {
			key, err = l.vault.UnwrapKey(ctx, table, column)
		} else {
			key, err = l.vault.SecureColumn(ctx, table, column)
		}
		if err != nil {
			return nil, err
		}
		keys[column] = key
	}
	return keys, nil
}

func (l *Loader) createTable(ctx context.Context, table string, specs []domain.ColumnInfo) error {
	defs := make([]string, len(specs))
	for i, s := range specs {
		defs[i] = fmt.Sprintf("%s %s", s.Name, s.Type)
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(defs, ", "))
	if _, err := l.db.ExecContext(ctx, stmt); err != nil {
		return &domain.DatastoreError{Err: err}
	}
	return nil
}

func (l *Loader) insertRows(ctx context.Context, table string, columns []string, records [][]string, encrypt map[string]bool, keys map[string][]byte) (int, int, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	stmt, err := l.db.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), placeholders))
	if err != nil {
		return 0, 0, &domain.DatastoreError{Err: err}
	}
	defer stmt.Close() //nolint:errcheck

	inserted, skipped := 0, 0
	for _, record := range records {
		if len(record) != len(columns) {
			skipped++
			continue
		}
		values := make([]any, len(columns))
		for i, raw := range record {
			if raw == "" {
				values[i] = nil
				continue
			}
			if encrypt[columns[i]] {
				blob, err := fieldcipher.Encrypt(raw, keys[columns[i]])
				if err != nil {
					return inserted, skipped, err
				}
				values[i] = blob
				continue
			}
			values[i] = raw
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			skipped++
			continue
		}
		inserted++
	}
	return inserted, skipped, nil
}

// inferType picks the narrowest SQL type that fits every non-empty value in
// the column: INTEGER, then REAL, then BOOLEAN, falling back to TEXT.
func inferType(records [][]string, col int) string {
	allInt, allFloat, allBool := true, true, true
	seen := false

	for _, record := range records {
		if col >= len(record) || record[col] == "" {
			continue
		}
		seen = true
		v := record[col]

		if allInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				allInt = false
			}
		}
		if allFloat {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				allFloat = false
			}
		}
		if allBool {
			switch strings.ToLower(v) {
			case "true", "false":
			default:
				allBool = false
			}
		}
	}

	switch {
	case !seen:
		return "TEXT"
	case allInt:
		return "INTEGER"
	case allFloat:
		return "REAL"
	case allBool:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// cleanColumnName normalizes a CSV header into a sql-safe snake_case name.
func cleanColumnName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
