package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSecureColumnCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "secure-column <table> <column>",
		Short: "Register a column for envelope encryption",
		Long: `Generates a fresh data key for the column and stores it wrapped under the
master passphrase. Values written to the column afterwards are encrypted;
already-stored plaintext is not rewritten.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStack(opts)
			if err != nil {
				return err
			}
			defer s.close()

			vault, err := s.vault()
			if err != nil {
				return err
			}
			if _, err := vault.SecureColumn(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "secured column %s.%s\n", args[0], args[1])
			return nil
		},
	}
}
