package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"datashield/internal/domain"
)

func newAuditCmd(opts *rootOptions) *cobra.Command {
	var (
		principal  string
		status     string
		limit      int
		offset     int
		deniedOnly bool
		exportPath string
		pruneDays  int
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect, export, or prune the audit trail",
		Example: `  shieldctl audit --limit 50
  shieldctl audit --principal bob --status denied
  shieldctl audit --export audit.csv
  shieldctl audit --prune 90`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openStack(opts)
			if err != nil {
				return err
			}
			defer s.close()
			ctx := cmd.Context()

			if pruneDays > 0 {
				deleted, err := s.audit.Prune(ctx, pruneDays)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "pruned %d audit entries older than %d days\n",
					deleted, pruneDays)
				return nil
			}

			filter := domain.AuditFilter{Limit: limit, Offset: offset}
			if principal != "" {
				filter.PrincipalName = &principal
			}
			if deniedOnly {
				status = domain.AuditStatusDenied
			}
			if status != "" {
				switch status {
				case domain.AuditStatusSuccess, domain.AuditStatusDenied, domain.AuditStatusFailed:
					filter.Status = &status
				default:
					return fmt.Errorf("invalid status %q: use success, denied, or failed", status)
				}
			}

			if exportPath != "" {
				f, err := os.Create(exportPath) //nolint:gosec // path is caller-controlled
				if err != nil {
					return err
				}
				defer f.Close() //nolint:errcheck

				if err := s.audit.ExportCSV(ctx, f, filter); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported audit trail to %s\n", exportPath)
				return nil
			}

			entries, err := s.audit.List(ctx, filter)
			if err != nil {
				return err
			}
			if opts.output == "json" {
				return printJSON(cmd.OutOrStdout(), entries)
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.audit.Format(entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&principal, "principal", "", "Filter by principal name")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (success, denied, failed)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "Entries to skip")
	cmd.Flags().BoolVar(&deniedOnly, "denied", false, "Shortcut for --status denied")
	cmd.Flags().StringVar(&exportPath, "export", "", "Write matching entries to a CSV file")
	cmd.Flags().IntVar(&pruneDays, "prune", 0, "Delete entries older than N days")
	return cmd
}
