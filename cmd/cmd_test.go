package cmd

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/nemakiware/cmis-fixture/client/request"
	"github.com/nemakiware/cmis-fixture/pkg/cmis"
	"github.com/nemakiware/cmis-fixture/tests/fakecmis"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *fakecmis.Server {
	t.Helper()
	chdir(t, t.TempDir())
	s := fakecmis.New(fakecmis.DefaultRepository)
	s.Start()
	t.Cleanup(s.Close)
	return s
}

// execCommand runs the command line on the fake server, with the flags of
// the previous runs reset, and returns what was printed on stdout.
func execCommand(t *testing.T, s *fakecmis.Server, args ...string) (string, error) {
	t.Helper()
	resetFlags(RootCmd)
	buf := new(bytes.Buffer)
	RootCmd.SetOut(buf)
	RootCmd.SetErr(io.Discard)
	RootCmd.SetArgs(append(args, "--url", s.BrowserURL()+"/"+s.Repository))
	err := RootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			var def []string
			if v := strings.Trim(f.DefValue, "[]"); v != "" {
				def = strings.Split(v, ",")
			}
			_ = sv.Replace(def)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func TestStatus(t *testing.T) {
	s := newServer(t)

	out, err := execCommand(t, s, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "bedroom")
	assert.Contains(t, out, s.RootID())
	assert.Contains(t, out, "OK, the repository is ready.")

	_, err = execCommand(t, s, "status", "--username", "nobody")
	require.Error(t, err)
	assert.True(t, request.IsPermissionDenied(err))
}

func TestObjectCommands(t *testing.T) {
	s := newServer(t)

	out, err := execCommand(t, s, "mkdir", "e2e-folder")
	require.NoError(t, err)
	folderID := strings.TrimSpace(out)
	require.True(t, s.Exists(folderID))

	require.NoError(t, os.WriteFile("report.txt", []byte("hello fixtures"), 0o600))
	out, err = execCommand(t, s, "upload", "--parent", folderID, "--name", "e2e-report.txt", "report.txt")
	require.NoError(t, err)
	docID := strings.TrimSpace(out)
	require.True(t, s.Exists(docID))

	out, err = execCommand(t, s, "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "e2e-folder")
	assert.True(t, strings.HasPrefix(out, "d "))

	out, err = execCommand(t, s, "ls", folderID)
	require.NoError(t, err)
	assert.Contains(t, out, "e2e-report.txt")
	assert.Contains(t, out, "14")

	out, err = execCommand(t, s, "find", "e2e-%")
	require.NoError(t, err)
	assert.Equal(t, docID+"\n", out)

	out, err = execCommand(t, s, "find", "--type", cmis.BaseFolder, "e2e-%")
	require.NoError(t, err)
	assert.Equal(t, folderID+"\n", out)

	_, err = execCommand(t, s, "upload", "missing.txt")
	assert.Error(t, err)

	_, err = execCommand(t, s, "rm", folderID)
	require.Error(t, err)
	assert.True(t, request.IsStatus(err, http.StatusConflict))
	assert.True(t, s.Exists(folderID))

	_, err = execCommand(t, s, "rm", "--tree", folderID)
	require.NoError(t, err)
	assert.False(t, s.Exists(folderID))
	assert.False(t, s.Exists(docID))
}

func TestCleanupCommand(t *testing.T) {
	s := newServer(t)
	root := s.RootID()
	folder := s.AddObject(root, "e2e-folder", cmis.BaseFolder, cmis.BaseFolder)
	inner := s.AddObject(folder, "inner", cmis.BaseDocument, cmis.BaseDocument)
	doc := s.AddObject(root, "e2e-doc", cmis.BaseDocument, cmis.BaseDocument)
	kept := s.AddObject(root, "keep-me", cmis.BaseDocument, cmis.BaseDocument)

	_, err := execCommand(t, s, "cleanup")
	assert.Equal(t, ErrUsage, err)

	out, err := execCommand(t, s, "cleanup", "e2e-%")
	require.NoError(t, err)
	assert.Contains(t, out, "found 2, deleted 2, failed 0")
	assert.False(t, s.Exists(folder))
	assert.False(t, s.Exists(inner))
	assert.False(t, s.Exists(doc))
	assert.True(t, s.Exists(kept))

	out, err = execCommand(t, s, "cleanup", "e2e-%")
	require.NoError(t, err)
	assert.Contains(t, out, "found 0, deleted 0, failed 0")

	stuck := s.AddObject(root, "e2e-stuck", cmis.BaseDocument, cmis.BaseDocument)
	other := s.AddObject(root, "e2e-other", cmis.BaseDocument, cmis.BaseDocument)
	s.FailDelete(stuck, http.StatusInternalServerError, `{"exception":"runtime","message":"boom"}`)

	out, err = execCommand(t, s, "cleanup", "e2e-%")
	require.NoError(t, err)
	assert.Contains(t, out, "found 2, deleted 1, failed 1")
	assert.True(t, s.Exists(stuck))
	assert.False(t, s.Exists(other))

	_, err = execCommand(t, s, "cleanup", "--strict", "e2e-%")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 deletions failed")
}

func TestCleanupWithoutTree(t *testing.T) {
	s := newServer(t)
	root := s.RootID()
	full := s.AddObject(root, "e2e-full", cmis.BaseFolder, cmis.BaseFolder)
	s.AddObject(full, "foreign", cmis.BaseDocument, cmis.BaseDocument)
	empty := s.AddObject(root, "e2e-empty", cmis.BaseFolder, cmis.BaseFolder)

	out, err := execCommand(t, s, "cleanup", "--tree=false", "--type", cmis.BaseFolder, "e2e-%")
	require.NoError(t, err)
	assert.Contains(t, out, "found 2, deleted 1, failed 1")
	assert.True(t, s.Exists(full))
	assert.False(t, s.Exists(empty))
}

func TestCleanupSkipped(t *testing.T) {
	s := newServer(t)
	doc := s.AddObject(s.RootID(), "e2e-doc", cmis.BaseDocument, cmis.BaseDocument)
	t.Setenv("SKIP_CLEANUP", "true")

	out, err := execCommand(t, s, "cleanup", "e2e-%")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleanup skipped")
	assert.True(t, s.Exists(doc))
}

func TestACLCommands(t *testing.T) {
	s := newServer(t)

	out, err := execCommand(t, s, "mkdir", "e2e-restricted")
	require.NoError(t, err)
	folderID := strings.TrimSpace(out)

	out, err = execCommand(t, s, "users", "create", "--wait", "e2euser")
	require.NoError(t, err)
	fields := strings.Fields(out)
	require.Len(t, fields, 2)
	userID := fields[0]
	assert.True(t, strings.HasPrefix(userID, "e2euser"))
	assert.True(t, s.HasUser(userID))

	out, err = execCommand(t, s, "acl", "grant", folderID, userID, "read,write")
	require.NoError(t, err)
	assert.Contains(t, out, userID)
	assert.Contains(t, out, "cmis:read,cmis:write")

	out, err = execCommand(t, s, "acl", "modify", folderID, userID, "--remove", "write", "--add", "all")
	require.NoError(t, err)
	assert.Equal(t, userID+": cmis:all,cmis:read\n", out)

	_, err = execCommand(t, s, "acl", "modify", folderID, userID)
	assert.Equal(t, ErrUsage, err)

	_, err = execCommand(t, s, "acl", "revoke", folderID, userID, "read", "all")
	require.NoError(t, err)
	assert.False(t, s.ACL(folderID).Has(userID))

	out, err = execCommand(t, s, "acl", "show", "--atom", folderID)
	require.NoError(t, err)
	assert.Contains(t, out, fakecmis.AdminUser)
	assert.NotContains(t, out, userID)
}

func TestPrincipalCommands(t *testing.T) {
	s := newServer(t)

	out, err := execCommand(t, s, "users", "create", "e2euser")
	require.NoError(t, err)
	userID := strings.Fields(out)[0]

	out, err = execCommand(t, s, "groups", "create", "--members", userID, "e2egroup")
	require.NoError(t, err)
	groupID := strings.TrimSpace(out)
	assert.True(t, s.HasGroup(groupID))

	out, err = execCommand(t, s, "groups", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, groupID)
	assert.Contains(t, out, userID)

	out, err = execCommand(t, s, "users", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, userID)
	assert.Contains(t, out, fakecmis.AdminUser)

	out, err = execCommand(t, s, "cleanup", "--users", "e2euser", "--groups", "e2egroup")
	require.NoError(t, err)
	assert.Contains(t, out, "failed 0")
	assert.False(t, s.HasGroup(groupID))
	assert.False(t, s.HasUser(userID))
	assert.True(t, s.HasUser(fakecmis.AdminUser))
}

func TestTypeCommands(t *testing.T) {
	s := newServer(t)

	out, err := execCommand(t, s, "types", "create", "e2ecustomtype")
	require.NoError(t, err)
	typeID := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(typeID, "test:e2ecustomtype"))
	assert.True(t, s.HasType(typeID))

	out, err = execCommand(t, s, "types", "show", typeID)
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "`+typeID+`"`)
	assert.Contains(t, out, `"baseId": "cmis:document"`)

	_, err = execCommand(t, s, "types", "rm", typeID)
	require.NoError(t, err)
	assert.False(t, s.HasType(typeID))

	_, err = execCommand(t, s, "types", "show", typeID)
	require.Error(t, err)
	assert.True(t, request.IsNotFound(err))
}

func TestVersion(t *testing.T) {
	s := newServer(t)
	out, err := execCommand(t, s, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev (development)\n", out)
}

func TestPermissions(t *testing.T) {
	assert.Equal(t,
		[]string{cmis.PermissionRead, cmis.PermissionWrite, cmis.PermissionAll},
		permissions([]string{"read, Write", "cmis:all"}))
	assert.Empty(t, permissions([]string{","}))
}

// chdir changes the working directory to dir for the duration of the test
// (testing.T.Chdir needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
