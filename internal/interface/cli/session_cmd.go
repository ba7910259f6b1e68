package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/align/internal/domain/model"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage workflow sessions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "new",
		Short: "Print a fresh session ID",
		Long: `Print a random session ID. Surfaces that use the same ID share one
workflow; export it as ALIGN_SESSION or pass it with --session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := model.NewSessionID()
			fmt.Fprintln(cmd.OutOrStdout(), id.String())
			return nil
		},
	})

	return cmd
}
