package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/nemakiware/cmis-fixture/model/fixture"
	"github.com/nemakiware/cmis-fixture/pkg/cmis"
	"github.com/spf13/cobra"
)

var flagParentType string

var typesCmdGroup = &cobra.Command{
	Use:   "types <command>",
	Short: "Manage the object types of the repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Usage()
	},
}

var showTypeCmd = &cobra.Command{
	Use:     "show <type-id>",
	Short:   "Show the definition of a type",
	Example: "$ cmis-fixture types show cmis:document",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return cmd.Usage()
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		def, err := c.GetTypeDefinition(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		json, err := json.MarshalIndent(def, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(json))
		return nil
	},
}

var createTypeCmd = &cobra.Command{
	Use:   "create <prefix>",
	Short: "Create a document type with a unique id",
	Long: `
cmis-fixture types create registers a document type whose id is test: followed
by the prefix and a random part, and prints the id.
`,
	Example: "$ cmis-fixture types create e2ecustomtype",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return cmd.Usage()
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		id := "test:" + fixture.UniquePrincipalID(args[0])
		def, err := c.CreateType(cmd.Context(), cmis.NewDocumentType(id, flagParentType))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), def.ID)
		return nil
	},
}

var deleteTypeCmd = &cobra.Command{
	Use:   "rm <type-id>...",
	Short: "Delete types",
	Long: `
cmis-fixture types rm deletes types. The server refuses to delete a type while
objects of this type exist: use cleanup first.
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Usage()
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		for _, id := range args {
			if err := c.DeleteType(cmd.Context(), id); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	createTypeCmd.Flags().StringVar(&flagParentType, "parent", "", "id of the parent type (default cmis:document)")

	typesCmdGroup.AddCommand(showTypeCmd)
	typesCmdGroup.AddCommand(createTypeCmd)
	typesCmdGroup.AddCommand(deleteTypeCmd)
	RootCmd.AddCommand(typesCmdGroup)
}
