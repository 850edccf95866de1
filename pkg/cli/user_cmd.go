package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"datashield/internal/domain"
)

func newUserCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage principals",
	}
	cmd.AddCommand(
		newUserCreateCmd(opts),
		newUserListCmd(opts),
		newUserDeleteCmd(opts),
	)
	return cmd
}

func newUserCreateCmd(opts *rootOptions) *cobra.Command {
	var (
		role     string
		password string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a principal",
		Example: `  shieldctl user create alice --role analyst
  shieldctl user create svc-report --role viewer --password "..."`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				first, err := promptSecret("Password: ")
				if err != nil {
					return err
				}
				second, err := promptSecret("Confirm password: ")
				if err != nil {
					return err
				}
				if first != second {
					return fmt.Errorf("passwords do not match")
				}
				password = first
			}

			s, err := openStack(opts)
			if err != nil {
				return err
			}
			defer s.close()

			principal, err := s.identity.CreateUser(cmd.Context(), args[0], password, role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %q with role %s\n", principal.Name, principal.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", domain.RoleViewer, "Role (admin, analyst, viewer)")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted interactively when omitted)")
	return cmd
}

func newUserListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List principals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openStack(opts)
			if err != nil {
				return err
			}
			defer s.close()

			principals, err := s.identity.ListUsers(cmd.Context())
			if err != nil {
				return err
			}

			if opts.output == "json" {
				type user struct {
					Name      string `json:"name"`
					Role      string `json:"role"`
					CreatedAt string `json:"created_at"`
				}
				users := make([]user, len(principals))
				for i, p := range principals {
					users[i] = user{p.Name, p.Role, p.CreatedAt.Format("2006-01-02 15:04:05")}
				}
				return printJSON(cmd.OutOrStdout(), users)
			}

			rows := make([][]any, len(principals))
			for i, p := range principals {
				rows[i] = []any{p.Name, p.Role, p.CreatedAt.Format("2006-01-02 15:04:05")}
			}
			renderTable(cmd.OutOrStdout(), []string{"name", "role", "created_at"}, rows)
			return nil
		},
	}
}

func newUserDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a principal and its grants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStack(opts)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.identity.DeleteUser(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted user %q\n", args[0])
			return nil
		},
	}
}
