package fixture_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/nemakiware/cmis-fixture/client"
	"github.com/nemakiware/cmis-fixture/client/request"
	"github.com/nemakiware/cmis-fixture/model/fixture"
	"github.com/nemakiware/cmis-fixture/pkg/cmis"
	"github.com/nemakiware/cmis-fixture/pkg/utils"
	"github.com/nemakiware/cmis-fixture/tests/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastPolicy = utils.RetryPolicy{Attempts: 5, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

func newSession(t *testing.T, tree bool) (*testutils.TestSetup, *fixture.Session) {
	setup := testutils.NewSetup(t, t.Name())
	s := fixture.NewSession(setup.Client(), "it", fixture.Options{Tree: tree, Auth: fastPolicy})
	return setup, s
}

func TestNames(t *testing.T) {
	name := fixture.UniqueName("restricted-folder")
	assert.Regexp(t, `^restricted-folder-[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`, name)
	assert.NotEqual(t, name, fixture.UniqueName("restricted-folder"))

	id := fixture.UniquePrincipalID("test_user-")
	assert.Regexp(t, `^testuser[0-9a-f]{32}$`, id)

	pattern := fixture.Pattern("restricted-folder")
	assert.Equal(t, "restricted-folder-%", pattern)
	assert.True(t, strings.HasPrefix(name, strings.TrimSuffix(pattern, "%")))
}

func TestCleanupIsIdempotent(t *testing.T) {
	setup, s := newSession(t, true)
	ctx := context.Background()
	srv := setup.Server()

	folder, err := s.CreateFolder(ctx, "", "folder")
	require.NoError(t, err)
	sub, err := setup.Client().CreateFolder(ctx, folder.ID(), "not-matching-sub")
	require.NoError(t, err)
	_, err = setup.Client().CreateDocument(ctx, sub.ID(), "deep.txt", nil)
	require.NoError(t, err)
	_, err = s.CreateDocument(ctx, folder.ID(), "doc", nil)
	require.NoError(t, err)
	_, err = s.CreateDocument(ctx, "", "doc", nil)
	require.NoError(t, err)
	keep, err := setup.Client().CreateFolder(ctx, srv.RootID(), "someone-else")
	require.NoError(t, err)

	first := s.Cleanup(ctx)
	assert.NoError(t, first.Err())
	assert.Equal(t, 0, first.Failures())
	assert.Equal(t, 3, first.Found)
	assert.Equal(t, 3, first.Deleted)
	assert.Equal(t, 1, srv.Count())
	assert.True(t, srv.Exists(keep.ID()))

	second := s.Cleanup(ctx)
	assert.NoError(t, second.Err())
	assert.Equal(t, 0, second.Found)
	assert.Equal(t, 0, second.Deleted)
}

func TestCleanupWithoutTree(t *testing.T) {
	setup, s := newSession(t, false)
	ctx := context.Background()

	empty, err := s.CreateFolder(ctx, "", "empty")
	require.NoError(t, err)
	emptied, err := s.CreateFolder(ctx, "", "emptied")
	require.NoError(t, err)
	_, err = s.CreateDocument(ctx, emptied.ID(), "doc", nil)
	require.NoError(t, err)
	full, err := s.CreateFolder(ctx, "", "full")
	require.NoError(t, err)
	_, err = setup.Client().CreateDocument(ctx, full.ID(), "foreign.txt", nil)
	require.NoError(t, err)

	r := s.Cleanup(ctx)
	assert.Equal(t, 4, r.Found)
	assert.Equal(t, 3, r.Deleted)
	assert.Equal(t, []string{full.ID()}, r.Failed)
	require.Error(t, r.Err())
	var herr *request.Error
	require.True(t, errors.As(r.Err(), &herr))
	assert.Equal(t, http.StatusConflict, herr.StatusCode)
	assert.False(t, setup.Server().Exists(empty.ID()))
	assert.True(t, setup.Server().Exists(full.ID()))
}

func TestCleanupFailureIsolation(t *testing.T) {
	setup, s := newSession(t, true)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		doc, err := s.CreateDocument(ctx, "", "doc", nil)
		require.NoError(t, err)
		ids = append(ids, doc.ID())
	}
	setup.Server().FailDelete(ids[1], http.StatusInternalServerError, `{"exception":"runtime","message":"boom"}`)

	r := s.Cleanup(ctx)
	assert.Equal(t, 3, r.Found)
	assert.Equal(t, 2, r.Deleted)
	assert.Equal(t, []string{ids[1]}, r.Failed)
	assert.Contains(t, r.Err().Error(), "boom")
	assert.True(t, setup.Server().Exists(ids[1]))
	assert.False(t, setup.Server().Exists(ids[2]))

	setup.Server().ClearFaults()
	r = s.Cleanup(ctx)
	assert.Equal(t, 1, r.Deleted)
	assert.NoError(t, r.Err())
}

func TestCleanupPartialTree(t *testing.T) {
	setup, s := newSession(t, true)
	ctx := context.Background()

	folder, err := s.CreateFolder(ctx, "", "tree")
	require.NoError(t, err)
	stuck, err := setup.Client().CreateDocument(ctx, folder.ID(), "stuck.txt", nil)
	require.NoError(t, err)
	setup.Server().FailDelete(stuck.ID(), http.StatusInternalServerError, `{"exception":"storage","message":"locked"}`)

	r := s.Cleanup(ctx)
	assert.ElementsMatch(t, []string{stuck.ID(), folder.ID()}, r.Failed)
	assert.Equal(t, 0, r.Deleted)
}

func TestCleanupCanceled(t *testing.T) {
	setup, s := newSession(t, true)
	def, err := s.CreateType(context.Background(), "canceled")
	require.NoError(t, err)
	before := len(setup.Server().Requests())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := s.Cleaner.Run(ctx, fixture.Plan{
		TypeIDs:       []string{def.ID},
		GroupPrefixes: []string{"itgroup"},
		UserPrefixes:  []string{"ituser"},
	})
	assert.Equal(t, []string{"cleanup"}, r.Failed)
	assert.True(t, errors.Is(r.Err(), context.Canceled))
	assert.Len(t, setup.Server().Requests(), before)
	assert.True(t, setup.Server().HasType(def.ID))
}

func TestCleanupServerErrorMentioningNotFound(t *testing.T) {
	setup, s := newSession(t, true)
	ctx := context.Background()

	doc, err := s.CreateDocument(ctx, "", "doc", nil)
	require.NoError(t, err)
	setup.Server().FailDelete(doc.ID(), http.StatusInternalServerError,
		`{"exception":"runtime","message":"TypeNotFound: test:orphan could not be resolved"}`)

	r := s.Cleanup(ctx)
	assert.Equal(t, 1, r.Found)
	assert.Equal(t, 0, r.Deleted)
	assert.Equal(t, []string{doc.ID()}, r.Failed)
	assert.Error(t, r.Err())
	assert.True(t, setup.Server().Exists(doc.ID()))
}

func TestCleanupTransportFailure(t *testing.T) {
	setup, s := newSession(t, true)
	ctx := context.Background()

	folder, err := s.CreateFolder(ctx, "", "folder")
	require.NoError(t, err)

	// The query of the documents is dropped, the one of the folders works.
	setup.Server().DropNext(1)
	r := s.Cleanup(ctx)
	require.Len(t, r.Failed, 1)
	assert.Contains(t, r.Failed[0], "cmis:document")
	assert.True(t, request.IsTransport(r.Err()))
	assert.Equal(t, 1, r.Deleted)
	assert.False(t, setup.Server().Exists(folder.ID()))
}

func TestCleanupFollowsPages(t *testing.T) {
	setup, s := newSession(t, true)
	ctx := context.Background()
	setup.Server().SetPageSize(2)

	for i := 0; i < 7; i++ {
		_, err := s.CreateDocument(ctx, "", fmt.Sprintf("doc%d", i), nil)
		require.NoError(t, err)
	}

	limited := s.Cleaner.Run(ctx, fixture.Plan{Targets: []fixture.Target{
		{BaseType: cmis.BaseDocument, Pattern: s.Pattern(), Limit: 3},
	}})
	assert.Equal(t, 3, limited.Deleted)
	assert.Equal(t, 4, setup.Server().Count())

	r := s.Cleanup(ctx)
	assert.Equal(t, 4, r.Deleted)
	assert.Equal(t, 0, setup.Server().Count())
}

func TestCleanupOrphanedObjects(t *testing.T) {
	setup, s := newSession(t, true)
	ctx := context.Background()
	srv := setup.Server()

	def, err := s.CreateType(ctx, "invoice")
	require.NoError(t, err)
	orphan := srv.AddObject("", s.Name("orphan"), def.ID, cmis.BaseDocument)
	srv.OrphanType(def.ID)

	_, err = setup.Client().GetObject(ctx, orphan)
	require.Error(t, err)

	kept, err := s.CreateType(ctx, "kept")
	require.NoError(t, err)
	typed := srv.AddObject("", s.Name("typed"), kept.ID, cmis.BaseDocument)

	r := s.Cleanup(ctx)
	assert.NoError(t, r.Err())
	assert.Equal(t, 3, r.Deleted)
	assert.False(t, srv.Exists(orphan))
	assert.False(t, srv.Exists(typed))
	assert.False(t, srv.HasType(kept.ID))
}

func TestCleanupPrincipals(t *testing.T) {
	setup, s := newSession(t, true)
	ctx := context.Background()
	c := setup.Client()

	for _, id := range []string{"ituser1", "ituser2", "otheruser"} {
		require.NoError(t, c.CreateUser(ctx, &client.User{ID: id}, "pw"))
	}
	require.NoError(t, c.CreateGroup(ctx, &client.Group{ID: "itgroup", Users: []string{"ituser1"}}))

	r := s.Cleaner.Run(ctx, fixture.Plan{
		GroupPrefixes: []string{"itgroup"},
		UserPrefixes:  []string{"ituser", ""},
	})
	assert.NoError(t, r.Err())
	assert.Equal(t, 3, r.Deleted)
	assert.False(t, setup.Server().HasUser("ituser1"))
	assert.True(t, setup.Server().HasUser("otheruser"))
	assert.True(t, setup.Server().HasUser("admin"))
	assert.False(t, setup.Server().HasGroup("itgroup"))

	r = s.Cleaner.Run(ctx, fixture.Plan{UserPrefixes: []string{""}})
	assert.Equal(t, 0, r.Found)
}

func TestCleanupSkipped(t *testing.T) {
	setup := testutils.NewSetup(t, t.Name())
	s := fixture.NewSession(setup.Client(), "it", fixture.Options{Skip: true})
	ctx := context.Background()
	folder, err := s.CreateFolder(ctx, "", "kept")
	require.NoError(t, err)

	r := s.Cleanup(ctx)
	assert.Equal(t, 0, r.Deleted)
	assert.True(t, setup.Server().Exists(folder.ID()))
}

func TestSessionAuthPolicy(t *testing.T) {
	setup := testutils.NewSetup(t, t.Name())
	s := fixture.NewSession(setup.Client(), "it", fixture.Options{})
	assert.Equal(t, utils.DefaultAuthPolicy, s.Provisioner.Policy)

	s = fixture.NewSession(setup.Client(), "it", fixture.Options{Auth: utils.NoRetry})
	assert.Equal(t, utils.NoRetry, s.Provisioner.Policy)
}

func TestRetryAfterServerError(t *testing.T) {
	setup, s := newSession(t, true)
	ctx := context.Background()
	rootID := setup.Server().RootID()

	setup.Server().FailNext(1, http.StatusInternalServerError, `{"exception":"runtime","message":"try again"}`)
	var folder *cmis.Object
	failures, err := fixture.Retry(ctx, fastPolicy, func(ctx context.Context) error {
		var err error
		folder, err = s.Client.CreateFolder(ctx, rootID, s.Name("retried"))
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, failures)
	require.NotNil(t, folder)
	assert.True(t, setup.Server().Exists(folder.ID()))

	failures, err = fixture.Retry(ctx, fastPolicy, func(ctx context.Context) error {
		_, err := s.Client.CreateFolder(ctx, rootID, folder.Name())
		return err
	})
	assert.Equal(t, 1, failures)
	assert.True(t, request.IsAlreadyExists(err))

	setup.Server().FailNext(10, http.StatusBadGateway, `<html><body><h1>Bad Gateway</h1></body></html>`)
	failures, err = fixture.Retry(ctx, utils.RetryPolicy{Attempts: 3, InitialDelay: time.Millisecond}, func(ctx context.Context) error {
		return s.Client.Authenticate(ctx)
	})
	assert.Equal(t, 3, failures)
	assert.True(t, request.IsServerError(err))
	setup.Server().ClearFaults()
}

func TestMalformedResponse(t *testing.T) {
	setup, s := newSession(t, true)
	ctx := context.Background()
	folder, err := s.CreateFolder(ctx, "", "folder")
	require.NoError(t, err)

	setup.Server().MalformNext(1)
	_, err = s.Client.GetObject(ctx, folder.ID())
	require.Error(t, err)
	assert.True(t, request.IsParse(err))
	var herr *request.Error
	assert.False(t, errors.As(err, &herr))
	assert.True(t, fixture.Transient(err))

	obj, err := s.Client.GetObject(ctx, folder.ID())
	require.NoError(t, err)
	assert.Equal(t, folder.Name(), obj.Name())
}

func TestACLFinalState(t *testing.T) {
	_, s := newSession(t, true)
	ctx := context.Background()
	p := s.Provisioner

	folder, err := s.CreateFolder(ctx, "", "acl")
	require.NoError(t, err)
	alice, err := p.CreatePrincipal(ctx, "testuser")
	require.NoError(t, err)
	bob, err := p.CreatePrincipal(ctx, "testuser")
	require.NoError(t, err)

	require.NoError(t, p.Grant(ctx, folder.ID(), bob.ID, cmis.PermissionRead))
	require.NoError(t, p.Grant(ctx, folder.ID(), alice.ID, cmis.PermissionRead))
	require.NoError(t, p.Grant(ctx, folder.ID(), alice.ID, cmis.PermissionRead))

	perms, err := p.Permissions(ctx, folder.ID(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{cmis.PermissionRead}, perms)

	require.NoError(t, p.Modify(ctx, folder.ID(), fixture.ACLChange{
		Principal: alice.ID,
		Remove:    []string{cmis.PermissionRead},
		Add:       []string{cmis.PermissionWrite},
	}))
	perms, err = p.Permissions(ctx, folder.ID(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{cmis.PermissionWrite}, perms)

	require.NoError(t, p.Revoke(ctx, folder.ID(), alice.ID, cmis.PermissionWrite))
	perms, err = p.Permissions(ctx, folder.ID(), alice.ID)
	require.NoError(t, err)
	assert.Empty(t, perms)

	perms, err = p.Permissions(ctx, folder.ID(), bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{cmis.PermissionRead}, perms)

	require.NoError(t, p.Modify(ctx, folder.ID(), fixture.ACLChange{Principal: alice.ID}))
}

func TestModifyIsOneCall(t *testing.T) {
	setup, s := newSession(t, true)
	ctx := context.Background()
	folder, err := s.CreateFolder(ctx, "", "acl")
	require.NoError(t, err)

	require.NoError(t, s.Provisioner.Modify(ctx, folder.ID(), fixture.ACLChange{
		Principal: "carol",
		Remove:    []string{cmis.PermissionRead},
		Add:       []string{cmis.PermissionAll},
	}))
	reqs := setup.Server().RequestsLabelled(cmis.ActionApplyACL)
	require.Len(t, reqs, 1)
	assert.Len(t, reqs[0].Form.RemoveACEs, 1)
	assert.Len(t, reqs[0].Form.AddACEs, 1)
}

func TestWaitUntilUsable(t *testing.T) {
	setup, s := newSession(t, true)
	ctx := context.Background()
	setup.Server().AuthDelay(2)

	pr, err := s.Provisioner.CreatePrincipal(ctx, "slowuser")
	require.NoError(t, err)
	err = s.Provisioner.ClientFor(pr).Authenticate(ctx)
	require.True(t, request.IsPermissionDenied(err))

	failures, err := s.Provisioner.WaitUntilUsable(ctx, pr)
	require.NoError(t, err)
	assert.Equal(t, 1, failures)

	setup.Server().AuthDelay(10)
	late, err := s.Provisioner.CreatePrincipal(ctx, "lateuser")
	require.NoError(t, err)
	failures, err = s.Provisioner.WaitUntilUsable(ctx, late)
	assert.Equal(t, fastPolicy.Attempts, failures)
	require.Error(t, err)
	assert.True(t, request.IsPermissionDenied(err))

	s.Provisioner.Policy = utils.RetryPolicy{Attempts: 1000, InitialDelay: time.Millisecond}
	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	setup.Server().AuthDelay(100000)
	never, err := s.Provisioner.CreatePrincipal(ctx, "neveruser")
	require.NoError(t, err)
	_, err = s.Provisioner.WaitUntilUsable(cctx, never)
	assert.Error(t, err)
}

func TestTeardown(t *testing.T) {
	setup, s := newSession(t, true)
	ctx := context.Background()
	p := s.Provisioner

	alice, err := p.CreatePrincipal(ctx, "testuser")
	require.NoError(t, err)
	bob, err := p.CreatePrincipal(ctx, "testuser")
	require.NoError(t, err)
	group, err := p.CreateGroup(ctx, "testgroup", alice.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, setup.Client().DeleteUser(ctx, bob.ID))

	r := s.Cleanup(ctx)
	assert.NoError(t, r.Err())
	assert.Equal(t, 2, r.Deleted)
	assert.False(t, setup.Server().HasUser(alice.ID))
	assert.False(t, setup.Server().HasGroup(group))

	r = p.Teardown(ctx)
	assert.Equal(t, 0, r.Found)
}

// TestRestrictedFolderScenario creates a restricted folder, grants, revokes
// and grants again a read access to a test user, then removes the folder.
func TestRestrictedFolderScenario(t *testing.T) {
	setup, s := newSession(t, true)
	ctx := context.Background()
	c := setup.Client()
	p := s.Provisioner

	name := fixture.UniqueName("restricted-folder")
	folder, err := c.CreateFolder(ctx, setup.Server().RootID(), name)
	testutils.SkipOnFixtureError(t, err, "restricted folder")

	user, err := p.CreatePrincipal(ctx, "testuser")
	testutils.SkipOnFixtureError(t, err, "test user")
	assert.Regexp(t, regexp.MustCompile(`^testuser[0-9a-f]{32}$`), user.ID)
	_, err = p.WaitUntilUsable(ctx, user)
	testutils.SkipOnFixtureError(t, err, "test user authentication")

	require.NoError(t, p.Grant(ctx, folder.ID(), user.ID, cmis.PermissionRead))
	acl, err := c.GetACL(ctx, folder.ID())
	require.NoError(t, err)
	require.True(t, acl.Has(user.ID))
	assert.Equal(t, []string{cmis.PermissionRead}, acl.DirectPermissions(user.ID))

	require.NoError(t, p.Revoke(ctx, folder.ID(), user.ID, cmis.PermissionRead))
	acl, err = c.GetACL(ctx, folder.ID())
	require.NoError(t, err)
	assert.False(t, acl.Has(user.ID))

	require.NoError(t, p.Grant(ctx, folder.ID(), user.ID, cmis.PermissionRead))
	acl, err = c.GetACL(ctx, folder.ID())
	require.NoError(t, err)
	assert.Equal(t, []string{cmis.PermissionRead}, acl.DirectPermissions(user.ID))

	obj, err := p.ClientFor(user).GetObject(ctx, folder.ID())
	require.NoError(t, err)
	assert.Equal(t, name, obj.Name())

	failed, err := c.DeleteTree(ctx, folder.ID())
	require.NoError(t, err)
	assert.Empty(t, failed)

	ids, err := c.FindObjectIDs(ctx, cmis.BaseFolder, name)
	require.NoError(t, err)
	assert.Empty(t, ids)
	ids, err = c.FindObjectIDs(ctx, cmis.BaseFolder, fixture.Pattern("restricted-folder"))
	require.NoError(t, err)
	assert.Empty(t, ids)

	assert.NoError(t, s.Cleanup(ctx).Err())
	assert.False(t, setup.Server().HasUser(user.ID))
}
