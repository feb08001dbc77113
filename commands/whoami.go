package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func addWhoami(topLevel *cobra.Command, o *options) {
	reset := false

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Print the client id sent to the grants service.",
		Long: `Print the client id sent to the grants service. Favorites and alerts
belong to this id; --reset forgets it so the next command starts a new one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if reset {
				if err := o.ident.Reset(); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Client id forgotten.")
				return nil
			}
			id, err := o.ident.ID()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Forget the stored client id.")

	topLevel.AddCommand(cmd)
}
