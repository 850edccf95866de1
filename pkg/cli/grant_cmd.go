package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"datashield/internal/domain"
)

// columnArg turns an optional positional column into the nil-means-table-wide
// representation the policy engine uses.
func columnArg(args []string) *string {
	if len(args) < 3 {
		return nil
	}
	return &args[2]
}

func describeScope(table string, column *string) string {
	if column == nil {
		return fmt.Sprintf("table %q", table)
	}
	return fmt.Sprintf("column %q.%q", table, *column)
}

func newGrantCmd(opts *rootOptions) *cobra.Command {
	var level string

	cmd := &cobra.Command{
		Use:   "grant <principal> <table> [column]",
		Short: "Grant table or column access to a principal",
		Example: `  shieldctl grant bob employees
  shieldctl grant bob employees salary --level write`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStack(opts)
			if err != nil {
				return err
			}
			defer s.close()

			column := columnArg(args)
			if _, err := s.engine.Grant(cmd.Context(), args[0], args[1], column, level); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "granted %s access on %s to %q\n",
				level, describeScope(args[1], column), args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&level, "level", domain.AccessRead, "Access level (read, write)")
	return cmd
}

func newRevokeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <principal> <table> [column]",
		Short: "Revoke a grant from a principal",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStack(opts)
			if err != nil {
				return err
			}
			defer s.close()

			column := columnArg(args)
			if err := s.engine.Revoke(cmd.Context(), args[0], args[1], column); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked access on %s from %q\n",
				describeScope(args[1], column), args[0])
			return nil
		},
	}
}

func newGrantsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "grants <principal>",
		Short: "List a principal's grants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStack(opts)
			if err != nil {
				return err
			}
			defer s.close()

			grants, err := s.engine.ListGrants(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if opts.output == "json" {
				type grant struct {
					Table  string  `json:"table"`
					Column *string `json:"column,omitempty"`
					Level  string  `json:"access_level"`
				}
				out := make([]grant, len(grants))
				for i, g := range grants {
					out[i] = grant{g.TableName, g.ColumnName, g.AccessLevel}
				}
				return printJSON(cmd.OutOrStdout(), out)
			}

			rows := make([][]any, len(grants))
			for i, g := range grants {
				scope := "(table-wide)"
				if g.ColumnName != nil {
					scope = *g.ColumnName
				}
				rows[i] = []any{g.TableName, scope, g.AccessLevel,
					g.GrantedAt.Format("2006-01-02 15:04:05")}
			}
			renderTable(cmd.OutOrStdout(), []string{"table", "column", "level", "granted_at"}, rows)
			return nil
		},
	}
}
