// cmis-fixture manages the test data of a CMIS repository served through the
// Browser Binding: it creates the folders, documents, types, users and groups
// an end-to-end suite needs, sets the permissions of the test users, and
// removes everything the suites left behind.
//
// The same operations are available to Go test suites with the
// model/fixture package.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nemakiware/cmis-fixture/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.RootCmd.ExecuteContext(ctx); err != nil {
		if err != cmd.ErrUsage {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error()) // #nosec
			stop()
			os.Exit(1)
		}
	}
}
