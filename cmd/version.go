package cmd

import (
	"fmt"

	build "github.com/nemakiware/cmis-fixture/pkg/config"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Print the current version number of the binary`,
	// The version needs no configuration.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), build.Summary())
		return nil
	},
}

func init() {
	RootCmd.AddCommand(versionCmd)
}
