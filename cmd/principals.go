package cmd

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/nemakiware/cmis-fixture/model/fixture"
	"github.com/nemakiware/cmis-fixture/pkg/config/config"
	"github.com/spf13/cobra"
)

var flagWait bool
var flagMembers []string

var usersCmdGroup = &cobra.Command{
	Use:   "users <command>",
	Short: "Manage the users of the repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Usage()
	},
}

var lsUsersCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the users",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		users, err := c.ListUsers(cmd.Context())
		if err != nil {
			return err
		}
		sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, u := range users {
			admin := ""
			if u.IsAdmin {
				admin = "admin"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", u.ID, strings.TrimSpace(u.FirstName+" "+u.LastName), admin)
		}
		return w.Flush()
	},
}

var createUserCmd = &cobra.Command{
	Use:   "create <prefix>",
	Short: "Create a user with a unique id and a random password",
	Long: `
cmis-fixture users create creates a user whose id starts with the prefix, and
prints its id and password. With --wait, it returns once the new user can
authenticate.
`,
	Example: "$ cmis-fixture users create --wait e2euser",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return cmd.Usage()
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		p := fixture.NewProvisioner(c, config.GetConfig().Auth)
		pr, err := p.CreatePrincipal(ctx, args[0])
		if err != nil {
			return err
		}
		if flagWait {
			failures, err := p.WaitUntilUsable(ctx, pr)
			if err != nil {
				return fmt.Errorf("user %s created but unusable after %d attempts: %w", pr.ID, failures, err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", pr.ID, pr.Password)
		return nil
	},
}

var deleteUserCmd = &cobra.Command{
	Use:   "rm <user-id>...",
	Short: "Delete users",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Usage()
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		for _, id := range args {
			if err := c.DeleteUser(cmd.Context(), id); err != nil {
				return err
			}
		}
		return nil
	},
}

var groupsCmdGroup = &cobra.Command{
	Use:   "groups <command>",
	Short: "Manage the groups of the repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Usage()
	},
}

var lsGroupsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		groups, err := c.ListGroups(cmd.Context())
		if err != nil {
			return err
		}
		sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, g := range groups {
			fmt.Fprintf(w, "%s\t%s\t%s\n", g.ID, g.Name, strings.Join(g.Users, ","))
		}
		return w.Flush()
	},
}

var createGroupCmd = &cobra.Command{
	Use:     "create <prefix>",
	Short:   "Create a group with a unique id",
	Example: "$ cmis-fixture groups create --members e2euser1a2b... e2egroup",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return cmd.Usage()
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		p := fixture.NewProvisioner(c, config.GetConfig().Auth)
		id, err := p.CreateGroup(cmd.Context(), args[0], flagMembers...)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

var deleteGroupCmd = &cobra.Command{
	Use:   "rm <group-id>...",
	Short: "Delete groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Usage()
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		for _, id := range args {
			if err := c.DeleteGroup(cmd.Context(), id); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	createUserCmd.Flags().BoolVar(&flagWait, "wait", false, "wait for the user to be able to authenticate")
	createGroupCmd.Flags().StringSliceVar(&flagMembers, "members", nil, "ids of the users of the group")

	usersCmdGroup.AddCommand(lsUsersCmd)
	usersCmdGroup.AddCommand(createUserCmd)
	usersCmdGroup.AddCommand(deleteUserCmd)
	groupsCmdGroup.AddCommand(lsGroupsCmd)
	groupsCmdGroup.AddCommand(createGroupCmd)
	groupsCmdGroup.AddCommand(deleteGroupCmd)
	RootCmd.AddCommand(usersCmdGroup)
	RootCmd.AddCommand(groupsCmdGroup)
}
