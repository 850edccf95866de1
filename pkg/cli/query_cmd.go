package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newQueryCmd(opts *rootOptions) *cobra.Command {
	var principal string

	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a SQL statement through the policy gateway",
		Example: `  shieldctl query --as bob "SELECT name FROM employees"
  shieldctl query --as root "SELECT * FROM employees" -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if principal == "" {
				return fmt.Errorf("--as is required")
			}

			s, err := openStack(opts)
			if err != nil {
				return err
			}
			defer s.close()

			gw, err := s.gateway()
			if err != nil {
				return err
			}

			result, err := gw.Run(cmd.Context(), principal, args[0])
			if err != nil {
				return err
			}

			if opts.output == "json" {
				return printJSON(cmd.OutOrStdout(), result)
			}

			out := cmd.OutOrStdout()
			if !result.Success {
				fmt.Fprintln(out, result.Message)
				for _, item := range result.DeniedItems {
					fmt.Fprintf(out, "  - %s\n", item)
				}
				return nil
			}

			if len(result.Columns) > 0 {
				renderTable(out, result.Columns, result.Rows)
			}
			fmt.Fprintln(out, result.Message)
			return nil
		},
	}

	cmd.Flags().StringVar(&principal, "as", "", "Principal to run the query as (required)")
	return cmd
}
