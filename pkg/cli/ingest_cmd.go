package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"datashield/internal/ingest"
)

func newIngestCmd(opts *rootOptions) *cobra.Command {
	var (
		table        string
		encryptCols  []string
		dropExisting bool
		preview      int
	)

	cmd := &cobra.Command{
		Use:   "ingest <file.csv>",
		Short: "Load a CSV file into the data engine",
		Example: `  shieldctl ingest people.csv --table people
  shieldctl ingest people.csv --table people --encrypt ssn,salary --drop-existing
  shieldctl ingest people.csv --preview 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if preview > 0 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close() //nolint:errcheck

				header, rows, err := ingest.Preview(f, preview)
				if err != nil {
					return err
				}
				cells := make([][]any, len(rows))
				for i, row := range rows {
					cells[i] = make([]any, len(row))
					for j, v := range row {
						cells[i][j] = v
					}
				}
				renderTable(cmd.OutOrStdout(), header, cells)
				return nil
			}

			if table == "" {
				return fmt.Errorf("--table is required")
			}

			s, err := openStack(opts)
			if err != nil {
				return err
			}
			defer s.close()

			loader, err := s.loader()
			if err != nil {
				return err
			}

			var encrypt []string
			for _, chunk := range encryptCols {
				for _, c := range strings.Split(chunk, ",") {
					if c = strings.TrimSpace(c); c != "" {
						encrypt = append(encrypt, c)
					}
				}
			}

			result, err := loader.LoadFile(cmd.Context(), args[0], ingest.Options{
				TableName:      table,
				DropExisting:   dropExisting,
				EncryptColumns: encrypt,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d rows into %q (%d skipped)\n",
				result.RowsInserted, result.TableName, result.RowsSkipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&table, "table", "", "Target table name")
	cmd.Flags().StringSliceVar(&encryptCols, "encrypt", nil, "Columns to encrypt on load (comma-separated)")
	cmd.Flags().BoolVar(&dropExisting, "drop-existing", false, "Drop the table before loading")
	cmd.Flags().IntVar(&preview, "preview", 0, "Show the first N rows instead of loading")
	return cmd
}
