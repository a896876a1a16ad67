package cmd

import (
	"fmt"

	"github.com/nemakiware/cmis-fixture/model/fixture"
	"github.com/nemakiware/cmis-fixture/pkg/cmis"
	"github.com/nemakiware/cmis-fixture/pkg/config/config"
	"github.com/spf13/cobra"
)

var flagCleanupTypes []string
var flagCleanupTypeIDs []string
var flagCleanupUsers []string
var flagCleanupGroups []string
var flagCleanupLimit int
var flagCleanupStrict bool
var flagCleanupTree bool

var cleanupCmd = &cobra.Command{
	Use:   "cleanup [pattern]...",
	Short: "Delete the test data left on the repository",
	Long: `
cmis-fixture cleanup deletes the objects whose name matches one of the LIKE
patterns, then the given types, then the groups and users whose id starts with
one of the given prefixes.

A deletion that fails does not stop the cleanup: the failures are printed at
the end, and the command exits with success unless --strict is given. Running
it twice is harmless.
`,
	Example: `$ cmis-fixture cleanup 'e2e-%' 'test-acl-%'
$ cmis-fixture cleanup --type cmis:folder --tree=false 'restricted-folder-%'
$ cmis-fixture cleanup --type-id test:e2ecustomtype --users e2euser --groups e2egroup`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && len(flagCleanupTypeIDs) == 0 &&
			len(flagCleanupUsers) == 0 && len(flagCleanupGroups) == 0 {
			return cmd.Usage()
		}
		cfg := config.GetConfig()
		if cfg.Cleanup.Skip {
			fmt.Fprintln(cmd.OutOrStdout(), "Cleanup skipped (cleanup.skip is set)")
			return nil
		}
		c, err := newClient()
		if err != nil {
			return err
		}

		plan := fixture.Plan{
			Tree:          cfg.Cleanup.Tree,
			TypeIDs:       flagCleanupTypeIDs,
			GroupPrefixes: flagCleanupGroups,
			UserPrefixes:  flagCleanupUsers,
		}
		if cmd.Flags().Changed("tree") {
			plan.Tree = flagCleanupTree
		}
		for _, pattern := range args {
			for _, base := range flagCleanupTypes {
				plan.Targets = append(plan.Targets, fixture.Target{
					BaseType: base,
					Pattern:  pattern,
					Limit:    flagCleanupLimit,
				})
			}
		}

		report := fixture.NewCleaner(c).Run(cmd.Context(), plan)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Cleanup: %s\n", report)
		if err := report.Err(); err != nil {
			errPrintfln("%s", err)
			if flagCleanupStrict {
				return fmt.Errorf("%d deletions failed", report.Failures())
			}
		}
		return nil
	},
}

func init() {
	flags := cleanupCmd.Flags()
	// Documents first: without --tree, a folder is only deleted once it is
	// empty.
	flags.StringSliceVar(&flagCleanupTypes, "type", []string{cmis.BaseDocument, cmis.BaseFolder}, "base types of the objects to delete")
	flags.BoolVar(&flagCleanupTree, "tree", true, "delete the folders with their content (default cleanup.tree)")
	flags.StringSliceVar(&flagCleanupTypeIDs, "type-id", nil, "ids of the types to delete")
	flags.StringSliceVar(&flagCleanupUsers, "users", nil, "delete the users whose id starts with one of these prefixes")
	flags.StringSliceVar(&flagCleanupGroups, "groups", nil, "delete the groups whose id starts with one of these prefixes")
	flags.IntVar(&flagCleanupLimit, "limit", 0, "maximum number of objects deleted per pattern and type")
	flags.BoolVar(&flagCleanupStrict, "strict", false, "exit with an error when a deletion failed")
	RootCmd.AddCommand(cleanupCmd)
}
