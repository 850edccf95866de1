// Package cli implements the shieldctl command tree: local administration of
// principals, grants, secured columns, ingestion, queries, and the audit
// trail.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// rootOptions are the connection settings shared by every subcommand.
type rootOptions struct {
	metaDB string
	dataDB string
	engine string
	output string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "shieldctl",
		Short:         "Administer the policy-enforcing query gateway",
		Long:          "shieldctl manages users, grants, secured columns, data ingestion, and the audit trail of the query gateway.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Precedence: flag > env > default.
			if !cmd.Flags().Changed("meta-db") {
				if v := os.Getenv("META_DB_PATH"); v != "" {
					opts.metaDB = v
				}
			}
			if !cmd.Flags().Changed("data-db") {
				if v := os.Getenv("DATA_DB_PATH"); v != "" {
					opts.dataDB = v
				}
			}
			if !cmd.Flags().Changed("engine") {
				if v := os.Getenv("DATA_ENGINE"); v != "" {
					opts.engine = v
				}
			}
			if opts.engine != "sqlite3" && opts.engine != "duckdb" {
				return fmt.Errorf("unsupported engine %q: use sqlite3 or duckdb", opts.engine)
			}
			return validateOutputFormat(opts.output)
		},
	}

	pf := rootCmd.PersistentFlags()
	// Accept snake_case spellings of flags (e.g. --meta_db).
	pf.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	pf.StringVar(&opts.metaDB, "meta-db", "datashield_meta.sqlite", "Control-plane SQLite database path")
	pf.StringVar(&opts.dataDB, "data-db", "datashield_data.sqlite", "Data engine database path")
	pf.StringVar(&opts.engine, "engine", "sqlite3", "Data engine (sqlite3, duckdb)")
	pf.StringVarP(&opts.output, "output", "o", "table", "Output format (table, json)")

	rootCmd.AddCommand(
		newUserCmd(opts),
		newGrantCmd(opts),
		newRevokeCmd(opts),
		newGrantsCmd(opts),
		newSecureColumnCmd(opts),
		newQueryCmd(opts),
		newIngestCmd(opts),
		newAuditCmd(opts),
	)

	return rootCmd
}

func validateOutputFormat(output string) error {
	if output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}
