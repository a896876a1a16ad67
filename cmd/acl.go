package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/nemakiware/cmis-fixture/model/fixture"
	"github.com/nemakiware/cmis-fixture/pkg/cmis"
	"github.com/nemakiware/cmis-fixture/pkg/config/config"
	"github.com/spf13/cobra"
)

var flagAtom bool
var flagPropagation string
var flagACLAdd []string
var flagACLRemove []string

var aclCmdGroup = &cobra.Command{
	Use:   "acl <command>",
	Short: "Show and change the permissions on an object",
	Long: `
cmis-fixture acl allows to read the access control list of an object, and to
grant or revoke permissions to a user or a group.

The permissions are cmis:read, cmis:write and cmis:all, or the short forms
read, write and all.
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Usage()
	},
}

var showACLCmd = &cobra.Command{
	Use:     "show <object-id>",
	Short:   "Show the ACL of an object",
	Example: "$ cmis-fixture acl show --atom 4a2f...",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return cmd.Usage()
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		var acl *cmis.ACL
		if flagAtom {
			acl, err = c.GetACLAtom(cmd.Context(), args[0])
		} else {
			acl, err = c.GetACL(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}
		return printACL(cmd.OutOrStdout(), acl)
	},
}

var grantACLCmd = &cobra.Command{
	Use:     "grant <object-id> <principal> <permission>...",
	Short:   "Add permissions to a principal",
	Example: "$ cmis-fixture acl grant 4a2f... e2euser1234 read write",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) < 3 {
			return cmd.Usage()
		}
		return applyACL(cmd, args[0], []cmis.ACE{{Principal: args[1], Permissions: permissions(args[2:])}}, nil)
	},
}

var revokeACLCmd = &cobra.Command{
	Use:     "revoke <object-id> <principal> <permission>...",
	Short:   "Remove permissions of a principal",
	Example: "$ cmis-fixture acl revoke 4a2f... e2euser1234 write",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) < 3 {
			return cmd.Usage()
		}
		return applyACL(cmd, args[0], nil, []cmis.ACE{{Principal: args[1], Permissions: permissions(args[2:])}})
	},
}

var modifyACLCmd = &cobra.Command{
	Use:   "modify <object-id> <principal>",
	Short: "Replace permissions of a principal",
	Long: `
cmis-fixture acl modify removes the --remove permissions of a principal and
adds the --add ones, in a single call.
`,
	Example: "$ cmis-fixture acl modify 4a2f... e2euser1234 --remove write --add read",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 2 || (len(flagACLAdd) == 0 && len(flagACLRemove) == 0) {
			return cmd.Usage()
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		p := fixture.NewProvisioner(c, config.GetConfig().Auth)
		err = p.Modify(cmd.Context(), args[0], fixture.ACLChange{
			Principal: args[1],
			Remove:    permissions(flagACLRemove),
			Add:       permissions(flagACLAdd),
		})
		if err != nil {
			return err
		}
		perms, err := p.Permissions(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[1], strings.Join(perms, ","))
		return nil
	},
}

func applyACL(cmd *cobra.Command, objectID string, add, remove []cmis.ACE) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	acl, err := c.ApplyACL(cmd.Context(), objectID, add, remove, flagPropagation)
	if err != nil {
		return err
	}
	if acl == nil {
		if acl, err = c.GetACL(cmd.Context(), objectID); err != nil {
			return err
		}
	}
	return printACL(cmd.OutOrStdout(), acl)
}

func printACL(out io.Writer, acl *cmis.ACL) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, ace := range acl.ACEs {
		origin := "inherited"
		if ace.Direct {
			origin = "direct"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", ace.Principal, strings.Join(ace.Permissions, ","), origin)
	}
	return w.Flush()
}

// permissions accepts read, write and all for the cmis: permissions.
func permissions(args []string) []string {
	perms := make([]string, 0, len(args))
	for _, arg := range args {
		for _, p := range strings.Split(arg, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if !strings.Contains(p, ":") {
				p = "cmis:" + strings.ToLower(p)
			}
			perms = append(perms, p)
		}
	}
	return perms
}

func init() {
	showACLCmd.Flags().BoolVar(&flagAtom, "atom", false, "read the ACL through the AtomPub binding")
	for _, c := range []*cobra.Command{grantACLCmd, revokeACLCmd} {
		c.Flags().StringVar(&flagPropagation, "propagation", "", "objectonly, propagate or repositorydetermined (default server choice)")
	}
	modifyACLCmd.Flags().StringSliceVar(&flagACLAdd, "add", nil, "permissions to add")
	modifyACLCmd.Flags().StringSliceVar(&flagACLRemove, "remove", nil, "permissions to remove")

	aclCmdGroup.AddCommand(showACLCmd)
	aclCmdGroup.AddCommand(grantACLCmd)
	aclCmdGroup.AddCommand(revokeACLCmd)
	aclCmdGroup.AddCommand(modifyACLCmd)
	RootCmd.AddCommand(aclCmdGroup)
}
