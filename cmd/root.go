package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nemakiware/cmis-fixture/client"
	"github.com/nemakiware/cmis-fixture/client/request"
	"github.com/nemakiware/cmis-fixture/pkg/config/config"
	"github.com/nemakiware/cmis-fixture/pkg/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var cfgFile string
var flagAskPassword bool
var flagMetrics bool

// ErrUsage is returned by the cmd.Usage() method
var ErrUsage = errors.New("Bad usage of command")

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "cmis-fixture",
	Short: "cmis-fixture manages the test data of a CMIS repository",
	Long: `cmis-fixture creates and removes the objects, types, users and groups used
by the end-to-end tests of a CMIS server, through its Browser Binding and its
management REST API.

The connection is configured with a cmis-fixture.yaml file, the NEMAKI_*
environment variables (a .env file in the current directory is read too), or
the flags below.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.Setup(cfgFile)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if !flagMetrics {
			return nil
		}
		return metrics.Dump(cmd.ErrOrStderr())
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Display the usage/help by default
		return cmd.Usage()
	},
	// Do not display usage on error
	SilenceUsage: true,
	// We have our own way to display error messages
	SilenceErrors: true,
}

// newClient returns a client with the admin credentials of the
// configuration. With --ask-password, the password is read from the
// terminal instead.
func newClient() (*client.Client, error) {
	c, err := config.NewClient()
	if err != nil {
		return nil, err
	}
	if flagAskPassword {
		pass, err := readPassword(os.Stdin, os.Stderr)
		if err != nil {
			return nil, err
		}
		c.Authorizer = &request.BasicAuthorizer{
			Username: config.GetConfig().CMIS.Username,
			Password: pass,
		}
	}
	return c, nil
}

func readPassword(in *os.File, prompt io.Writer) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("--ask-password needs a terminal")
	}
	fmt.Fprint(prompt, "Password:")
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", err
	}
	return string(pass), nil
}

func init() {
	usageFunc := RootCmd.UsageFunc()

	RootCmd.SetUsageFunc(func(cmd *cobra.Command) error {
		usageFunc(cmd)
		return ErrUsage
	})

	flags := RootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "configuration file (default \"./cmis-fixture.yaml\")")

	flags.String("url", "", "URL of the Browser Binding, optionally followed by the repository id")
	checkNoErr(viper.BindPFlag("cmis.url", flags.Lookup("url")))

	flags.StringP("repository", "r", "", "repository id")
	checkNoErr(viper.BindPFlag("cmis.repository", flags.Lookup("repository")))

	flags.StringP("username", "u", "", "username of the administrator")
	checkNoErr(viper.BindPFlag("cmis.username", flags.Lookup("username")))

	flags.Int("page-size", 0, "maximum number of items asked per page")
	checkNoErr(viper.BindPFlag("cmis.page_size", flags.Lookup("page-size")))

	flags.Duration("timeout", 0, "timeout of an HTTP request")
	checkNoErr(viper.BindPFlag("http.timeout", flags.Lookup("timeout")))

	flags.String("log-level", "", "define the log level")
	checkNoErr(viper.BindPFlag("log.level", flags.Lookup("log-level")))

	flags.BoolVar(&flagAskPassword, "ask-password", false, "read the password of the administrator from the terminal")
	flags.BoolVar(&flagMetrics, "metrics", false, "print the metrics of the run on stderr")
}

func checkNoErr(err error) {
	if err != nil {
		panic(err)
	}
}

func errPrintfln(format string, vals ...interface{}) {
	_, err := fmt.Fprintf(os.Stderr, format+"\n", vals...)
	if err != nil {
		panic(err)
	}
}
