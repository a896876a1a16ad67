package cmd

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/nemakiware/cmis-fixture/pkg/cmis"
	"github.com/nemakiware/cmis-fixture/pkg/form"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var flagBaseType string
var flagParent string
var flagName string
var flagHuman bool
var flagTree bool

// appFS is the filesystem read by the upload command.
var appFS = afero.NewOsFs()

var findCmd = &cobra.Command{
	Use:   "find <pattern>",
	Short: "Find the objects whose name matches a pattern",
	Long: `
cmis-fixture find prints the ids of the objects whose cmis:name matches the
LIKE pattern, where % matches any sequence of characters and _ a single
character.
`,
	Example: "$ cmis-fixture find --type cmis:folder 'e2e-restricted-%'",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return cmd.Usage()
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		ids, err := c.FindObjectIDs(cmd.Context(), flagBaseType, args[0])
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return err
	},
}

// listedObject is the part of the properties shown by ls.
type listedObject struct {
	ID       string `property:"cmis:objectId"`
	Name     string `property:"cmis:name"`
	BaseType string `property:"cmis:baseTypeId"`
	TypeID   string `property:"cmis:objectTypeId"`
	Size     int64  `property:"cmis:contentStreamLength"`
	Created  int64  `property:"cmis:creationDate"`
}

var lsCmd = &cobra.Command{
	Use:     "ls [folder-id]",
	Short:   "List the children of a folder",
	Long:    `List the children of a folder, the root folder by default.`,
	Example: "$ cmis-fixture ls -H",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 1 {
			return cmd.Usage()
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		folderID := ""
		if len(args) == 1 {
			folderID = args[0]
		} else if folderID, err = c.RootFolderID(ctx); err != nil {
			return err
		}
		children, err := c.Children(ctx, folderID)
		if err != nil {
			return err
		}

		now := time.Now()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for i := range children {
			var obj listedObject
			if err := children[i].Properties.Decode(&obj); err != nil {
				return err
			}
			typ, size := "-", ""
			if obj.BaseType == cmis.BaseFolder {
				typ = "d"
			} else if flagHuman {
				size = humanize.Bytes(uint64(obj.Size))
			} else {
				size = humanize.Comma(obj.Size)
			}
			created := time.UnixMilli(obj.Created)
			var date string
			if now.Year() == created.Year() {
				date = created.Format("Jan 02 15:04")
			} else {
				date = created.Format("Jan 02 2006")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", typ, size, date, obj.TypeID, obj.ID, obj.Name)
		}
		return w.Flush()
	},
}

var mkdirCmd = &cobra.Command{
	Use:     "mkdir <name>",
	Short:   "Create a folder",
	Example: "$ cmis-fixture mkdir --parent 4a2f... e2e-folder",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return cmd.Usage()
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		parentID := flagParent
		if parentID == "" {
			if parentID, err = c.RootFolderID(ctx); err != nil {
				return err
			}
		}
		obj, err := c.CreateFolder(ctx, parentID, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), obj.ID())
		return nil
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Create a document from a local file",
	Long: `
cmis-fixture upload creates a document with the content of a local file. The
mime type is guessed from the content and the extension of the file.
`,
	Example: "$ cmis-fixture upload --name e2e-report.pdf ./testdata/report.pdf",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return cmd.Usage()
		}
		f, err := appFS.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		c, err := newClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		parentID := flagParent
		if parentID == "" {
			if parentID, err = c.RootFolderID(ctx); err != nil {
				return err
			}
		}
		name := flagName
		if name == "" {
			name = filepath.Base(args[0])
		}
		obj, err := c.CreateDocument(ctx, parentID, name, &form.Content{
			Filename: filepath.Base(args[0]),
			Body:     f,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), obj.ID())
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <object-id>...",
	Short: "Delete objects",
	Long: `
cmis-fixture rm deletes objects with all their versions. A non-empty folder is
refused, unless --tree is given.
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Usage()
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		for _, id := range args {
			if !flagTree {
				if err := c.Delete(ctx, id, true); err != nil {
					return err
				}
				continue
			}
			failed, err := c.DeleteTree(ctx, id)
			if err != nil {
				return err
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d objects of %s could not be deleted: %v", len(failed), id, failed)
			}
		}
		return nil
	},
}

func init() {
	findCmd.Flags().StringVar(&flagBaseType, "type", cmis.BaseDocument, "base type of the objects")
	lsCmd.Flags().BoolVarP(&flagHuman, "human", "H", false, "print the sizes in human readable form")
	mkdirCmd.Flags().StringVar(&flagParent, "parent", "", "id of the parent folder (default root folder)")
	uploadCmd.Flags().StringVar(&flagParent, "parent", "", "id of the parent folder (default root folder)")
	uploadCmd.Flags().StringVar(&flagName, "name", "", "name of the document (default name of the file)")
	rmCmd.Flags().BoolVar(&flagTree, "tree", false, "delete the folders with their content")

	RootCmd.AddCommand(findCmd)
	RootCmd.AddCommand(lsCmd)
	RootCmd.AddCommand(mkdirCmd)
	RootCmd.AddCommand(uploadCmd)
	RootCmd.AddCommand(rmCmd)
}
