package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check if the CMIS repository is reachable",
	Long: `Check that the repository answers its repositoryInfo and that the
configured credentials are accepted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		info, err := c.RepositoryInfo(ctx)
		if err != nil {
			return fmt.Errorf("the repository %s is not reachable: %w", c.Repository, err)
		}
		if err := c.Authenticate(ctx); err != nil {
			return fmt.Errorf("the credentials are refused: %w", err)
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Repository:\t%s (%s)\n", info.ID, info.Name)
		fmt.Fprintf(w, "Product:\t%s %s\n", info.ProductName, info.ProductVersion)
		fmt.Fprintf(w, "CMIS:\t%s\n", info.CMISVersion)
		fmt.Fprintf(w, "Root folder:\t%s\n", info.RootFolderID)
		fmt.Fprintf(w, "Endpoint:\t%s%s/%s\n", c.BaseURL(), c.BrowserPath, c.Repository)
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "OK, the repository is ready.")
		return nil
	},
}

func init() {
	RootCmd.AddCommand(statusCmd)
}
