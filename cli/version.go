package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loupesearch/loupe-go/version"
)

func init() {
	RootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("build-info", false, "print full build information")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the client version",
	RunE: func(cmd *cobra.Command, args []string) error {
		full, _ := cmd.Flags().GetBool("build-info")
		if !full {
			fmt.Fprintln(cmd.OutOrStdout(), version.UserAgent())
			return nil
		}

		info := version.GetBuildInfo()
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", info.MainModule, info.MainVersion, info.GoVersion)
		for _, dep := range info.Dependencies {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", dep.Path, dep.Version)
		}
		return nil
	},
}
