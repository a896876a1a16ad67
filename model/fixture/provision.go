package fixture

import (
	"context"
	"sync"

	"github.com/nemakiware/cmis-fixture/client"
	"github.com/nemakiware/cmis-fixture/client/request"
	"github.com/nemakiware/cmis-fixture/pkg/cmis"
	"github.com/nemakiware/cmis-fixture/pkg/logger"
	"github.com/nemakiware/cmis-fixture/pkg/metrics"
	"github.com/nemakiware/cmis-fixture/pkg/utils"
)

var provisionLog = logger.WithNamespace("provision")

// Principal is a throwaway user created for a test suite.
type Principal struct {
	ID       string
	Password string
}

// Authorizer returns the credentials of the principal.
func (p *Principal) Authorizer() request.Authorizer {
	return &request.BasicAuthorizer{Username: p.ID, Password: p.Password}
}

// ACLChange replaces some permissions of a principal by others. The server
// has no replace primitive: the change is sent as the removal of Remove and
// the addition of Add, the removal being applied first.
type ACLChange struct {
	Principal string
	Remove    []string
	Add       []string
}

// Provisioner creates the principals of a suite and sets their permissions.
// It remembers what it created, for Teardown.
type Provisioner struct {
	Client *client.Client
	// Policy is used by WaitUntilUsable.
	Policy utils.RetryPolicy

	mu     sync.Mutex
	users  []string
	groups []string
}

// NewProvisioner returns a provisioner acting with the client, which must
// have the admin credentials. A zero policy is replaced by
// utils.DefaultAuthPolicy: use utils.NoRetry for a single attempt.
func NewProvisioner(c *client.Client, policy utils.RetryPolicy) *Provisioner {
	if policy == (utils.RetryPolicy{}) {
		policy = utils.DefaultAuthPolicy
	}
	return &Provisioner{Client: c, Policy: policy}
}

// CreatePrincipal creates a user with a unique id built on the prefix and a
// random password.
func (p *Provisioner) CreatePrincipal(ctx context.Context, prefix string) (*Principal, error) {
	pr := &Principal{
		ID:       UniquePrincipalID(prefix),
		Password: utils.RandomString(24),
	}
	u := &client.User{ID: pr.ID, FirstName: prefix, LastName: "fixture"}
	if err := p.Client.CreateUser(ctx, u, pr.Password); err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.users = append(p.users, pr.ID)
	p.mu.Unlock()
	provisionLog.Debugf("created principal %s", pr.ID)
	return pr, nil
}

// CreateGroup creates a group with a unique id built on the prefix, with
// the given users as members.
func (p *Provisioner) CreateGroup(ctx context.Context, prefix string, members ...string) (string, error) {
	id := UniquePrincipalID(prefix)
	if err := p.Client.CreateGroup(ctx, &client.Group{ID: id, Users: members}); err != nil {
		return "", err
	}
	p.mu.Lock()
	p.groups = append(p.groups, id)
	p.mu.Unlock()
	return id, nil
}

// ClientFor returns a client acting as the principal.
func (p *Provisioner) ClientFor(pr *Principal) *client.Client {
	return p.Client.WithAuthorizer(pr.Authorizer())
}

// WaitUntilUsable waits for the principal to be able to authenticate. A new
// principal can be refused for some time by a server that propagates it
// asynchronously. It returns the number of refused attempts.
func (p *Provisioner) WaitUntilUsable(ctx context.Context, pr *Principal) (int, error) {
	c := p.ClientFor(pr)
	failures, err := utils.Retry(ctx, p.Policy, func(ctx context.Context) error {
		err := c.Authenticate(ctx)
		if err != nil && !request.IsPermissionDenied(err) && !Transient(err) {
			return utils.Permanent(err)
		}
		return err
	}, func(attempt int, err error) {
		provisionLog.Debugf("principal %s refused (attempt %d): %s", pr.ID, attempt, err)
	})
	metrics.AuthWaitRetries.Observe(float64(failures))
	if err != nil {
		provisionLog.Warnf("principal %s still unusable after %d attempts: %s", pr.ID, failures, err)
	}
	return failures, err
}

// Grant adds permissions to the principal on the object. The entries of the
// other principals are kept.
func (p *Provisioner) Grant(ctx context.Context, objectID, principal string, permissions ...string) error {
	_, err := p.Client.ApplyACL(ctx, objectID,
		[]cmis.ACE{{Principal: principal, Permissions: permissions}}, nil, "")
	return err
}

// Revoke removes permissions of the principal on the object.
func (p *Provisioner) Revoke(ctx context.Context, objectID, principal string, permissions ...string) error {
	_, err := p.Client.ApplyACL(ctx, objectID,
		nil, []cmis.ACE{{Principal: principal, Permissions: permissions}}, "")
	return err
}

// Modify applies the change in a single applyACL call.
func (p *Provisioner) Modify(ctx context.Context, objectID string, change ACLChange) error {
	var add, remove []cmis.ACE
	if len(change.Remove) > 0 {
		remove = []cmis.ACE{{Principal: change.Principal, Permissions: change.Remove}}
	}
	if len(change.Add) > 0 {
		add = []cmis.ACE{{Principal: change.Principal, Permissions: change.Add}}
	}
	if add == nil && remove == nil {
		return nil
	}
	_, err := p.Client.ApplyACL(ctx, objectID, add, remove, "")
	return err
}

// Permissions returns the direct permissions of the principal on the
// object, as read from the server. It is empty when the principal has no
// entry.
func (p *Provisioner) Permissions(ctx context.Context, objectID, principal string) ([]string, error) {
	acl, err := p.Client.GetACL(ctx, objectID)
	if err != nil {
		return nil, err
	}
	return acl.DirectPermissions(principal), nil
}

// Teardown deletes the groups, then the users, created by the provisioner.
// The failures are logged and counted, not returned.
func (p *Provisioner) Teardown(ctx context.Context) *Report {
	p.mu.Lock()
	groups, users := p.groups, p.users
	p.groups, p.users = nil, nil
	p.mu.Unlock()

	r := &Report{Found: len(groups) + len(users)}
	for _, id := range groups {
		r.settle("group "+id, p.Client.DeleteGroup(ctx, id))
	}
	for _, id := range users {
		r.settle("user "+id, p.Client.DeleteUser(ctx, id))
	}
	if r.Failures() > 0 {
		provisionLog.Warnf("teardown: %s: %s", r, r.Err())
	}
	return r
}
