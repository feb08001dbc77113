package commands

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X grant-dashboard/commands.version=...".
var version = "dev"

func addVersion(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the grantdash version.",
		Run: func(cmd *cobra.Command, _ []string) {
			v := version
			if info, ok := debug.ReadBuildInfo(); ok && v == "dev" && info.Main.Version != "" {
				v = info.Main.Version
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "grantdash %s\n", v)
		},
	}

	topLevel.AddCommand(cmd)
}
