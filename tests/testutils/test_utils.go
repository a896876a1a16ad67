package testutils

import (
	"flag"
	"testing"

	"github.com/gavv/httpexpect/v2"
	"github.com/nemakiware/cmis-fixture/client"
	"github.com/nemakiware/cmis-fixture/client/request"
	"github.com/nemakiware/cmis-fixture/pkg/utils"
	"github.com/nemakiware/cmis-fixture/tests/fakecmis"
	"github.com/stretchr/testify/require"
)

var useDebug bool

func init() {
	flag.BoolVar(&useDebug, "debug", false, "display the requests content")
}

// CreateTestClient setup an httpexpect.Expect client used to make http tests.
//
// This init take allow to use the `--debug` flag in your tests in order to
// print the requests/responses content.
//
// example: `go test ./tests/fakecmis --debug`.
func CreateTestClient(t testing.TB, url string) *httpexpect.Expect {
	var printer httpexpect.Printer

	t.Helper()

	if useDebug {
		printer = httpexpect.NewDebugPrinter(t, true)
	} else {
		printer = httpexpect.NewCompactPrinter(t)
	}

	return httpexpect.WithConfig(httpexpect.Config{
		TestName: t.Name(),
		BaseURL:  url,
		Reporter: httpexpect.NewAssertReporter(t),
		Printers: []httpexpect.Printer{printer},
	})
}

// TestSetup is a wrapper around a fake CMIS server and an admin client on
// it, cleaning up after itself.
type TestSetup struct {
	t      testing.TB
	name   string
	server *fakecmis.Server
	client *client.Client
}

// NewSetup returns a new TestSetup, with a started fake server for a
// repository named after the test.
// name is used to prevent bug when tests are run in parallel
func NewSetup(t testing.TB, name string) *TestSetup {
	t.Helper()
	server := fakecmis.New(fakecmis.DefaultRepository)
	server.Start()
	t.Cleanup(server.Close)

	c, err := client.New(server.BrowserURL(), server.Repository, &request.BasicAuthorizer{
		Username: fakecmis.AdminUser,
		Password: fakecmis.AdminPassword,
	})
	require.NoError(t, err)
	c.UserAgent = name + "-" + utils.RandomString(6)

	return &TestSetup{t: t, name: name, server: server, client: c}
}

// Server returns the fake CMIS server.
func (c *TestSetup) Server() *fakecmis.Server { return c.server }

// Client returns a client authenticated as the administrator.
func (c *TestSetup) Client() *client.Client { return c.client }

// ClientAs returns a client authenticated as the given user.
func (c *TestSetup) ClientAs(username, password string) *client.Client {
	return c.client.WithAuthorizer(&request.BasicAuthorizer{Username: username, Password: password})
}

// Expect returns an httpexpect client on the fake server.
func (c *TestSetup) Expect() *httpexpect.Expect {
	return CreateTestClient(c.t, c.server.URL())
}

// SkipOnFixtureError skips the test when a fixture could not be set up:
// the flakiness of a fixture is not the behavior under test.
func SkipOnFixtureError(t testing.TB, err error, what string) {
	t.Helper()
	if err == nil {
		return
	}
	kind := "error"
	switch {
	case request.IsTransport(err):
		kind = "transport error"
	case request.IsParse(err):
		kind = "invalid response"
	case request.StatusCode(err) != 0:
		kind = "HTTP error"
	}
	t.Skipf("fixture %s failed (%s): %s", what, kind, err)
}
