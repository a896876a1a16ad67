package fixture

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/nemakiware/cmis-fixture/client"
	"github.com/nemakiware/cmis-fixture/client/request"
	"github.com/nemakiware/cmis-fixture/pkg/cmis"
	"github.com/nemakiware/cmis-fixture/pkg/logger"
	"github.com/nemakiware/cmis-fixture/pkg/metrics"
)

// Target designates the objects of a base type whose name matches a LIKE
// pattern.
type Target struct {
	BaseType string
	Pattern  string
	// Limit caps the number of objects deleted for this target. Zero means
	// no limit.
	Limit int
}

// Plan is what a cleanup removes. The objects are removed first, then the
// types, then the groups and users.
type Plan struct {
	Targets []Target
	// Tree deletes the matching folders with their content. Without it, a
	// non-empty folder is a failure.
	Tree    bool
	TypeIDs []string
	// GroupPrefixes and UserPrefixes select the principals to delete by id
	// prefix. An empty prefix is ignored.
	GroupPrefixes []string
	UserPrefixes  []string
}

// Report tells what a cleanup did. The failures are recorded, never
// returned as the error of a cleanup.
type Report struct {
	Found    int
	Deleted  int
	Failed   []string
	Duration time.Duration

	errs *multierror.Error
}

// Err returns the failures of the cleanup, or nil.
func (r *Report) Err() error {
	return r.errs.ErrorOrNil()
}

// Failures returns the number of failed deletions.
func (r *Report) Failures() int {
	return len(r.Failed)
}

func (r *Report) fail(what string, err error) {
	r.Failed = append(r.Failed, what)
	r.errs = multierror.Append(r.errs, fmt.Errorf("%s: %w", what, err))
	metrics.CleanupCounter.WithLabelValues(metrics.CleanupResultFailed).Inc()
}

// settle records the outcome of a deletion. A target already gone is
// neither deleted nor failed.
func (r *Report) settle(what string, err error) {
	switch {
	case err == nil:
		r.deleted(1)
	case request.IsNotFound(err):
		cleanupLog.Debugf("%s is already gone", what)
	default:
		r.fail(what, err)
	}
}

func (r *Report) deleted(n int) {
	r.Deleted += n
	metrics.CleanupCounter.WithLabelValues(metrics.CleanupResultDeleted).Add(float64(n))
}

// Merge adds the counters and failures of another report.
func (r *Report) Merge(other *Report) {
	r.Found += other.Found
	r.Deleted += other.Deleted
	r.Failed = append(r.Failed, other.Failed...)
	if other.errs != nil {
		r.errs = multierror.Append(r.errs, other.errs.Errors...)
	}
	r.Duration += other.Duration
}

func (r *Report) String() string {
	return fmt.Sprintf("found %d, deleted %d, failed %d in %s",
		r.Found, r.Deleted, len(r.Failed), r.Duration.Round(time.Millisecond))
}

var cleanupLog = logger.WithNamespace("cleanup")

// Cleaner removes the test data of a repository.
type Cleaner struct {
	Client *client.Client
}

// NewCleaner returns a cleaner using the client.
func NewCleaner(c *client.Client) *Cleaner {
	return &Cleaner{Client: c}
}

// Run executes the plan. A failure on an object is logged and recorded in
// the report, and the cleanup goes on with the next one. An object that is
// already gone is not a failure, so running the same plan twice deletes
// nothing the second time.
func (cl *Cleaner) Run(ctx context.Context, plan Plan) *Report {
	start := time.Now()
	r := &Report{}
	defer func() {
		r.Duration = time.Since(start)
		if r.Failures() > 0 {
			cleanupLog.Warnf("cleanup: %s: %s", r, r.Err())
		} else {
			cleanupLog.Debugf("cleanup: %s", r)
		}
	}()

	for _, target := range plan.Targets {
		if r.stopped(ctx) {
			return r
		}
		cl.cleanTarget(ctx, r, target, plan.Tree)
	}
	for _, typeID := range plan.TypeIDs {
		if r.stopped(ctx) {
			return r
		}
		cl.deleteType(ctx, r, typeID)
	}
	if r.stopped(ctx) {
		return r
	}
	cl.cleanGroups(ctx, r, plan.GroupPrefixes)
	if r.stopped(ctx) {
		return r
	}
	cl.cleanUsers(ctx, r, plan.UserPrefixes)
	return r
}

// stopped records the cancellation of the context as a failure.
func (r *Report) stopped(ctx context.Context) bool {
	if err := ctx.Err(); err != nil {
		r.fail("cleanup", err)
		return true
	}
	return false
}

func (cl *Cleaner) cleanTarget(ctx context.Context, r *Report, target Target, tree bool) {
	ids, err := cl.Client.FindObjectIDs(ctx, target.BaseType, target.Pattern)
	if err != nil {
		// The ids of the pages read before the failure are still deleted.
		r.fail(fmt.Sprintf("query %s %q", target.BaseType, target.Pattern), err)
	}
	if target.Limit > 0 && len(ids) > target.Limit {
		cleanupLog.Infof("%d objects match %q, only %d are deleted", len(ids), target.Pattern, target.Limit)
		ids = ids[:target.Limit]
	}
	r.Found += len(ids)
	for _, id := range ids {
		if ctx.Err() != nil {
			r.fail(id, ctx.Err())
			return
		}
		cl.deleteObject(ctx, r, target.BaseType, id, tree)
	}
}

func (cl *Cleaner) deleteObject(ctx context.Context, r *Report, baseType, id string, tree bool) {
	var err error
	switch {
	case !tree || baseType == cmis.BaseDocument:
		err = cl.Client.Delete(ctx, id, true)
	default:
		var failed []string
		failed, err = cl.Client.DeleteTree(ctx, id)
		// A deleteTree on something else than a folder is refused, a simple
		// delete does the job.
		if baseType != cmis.BaseFolder && request.IsStatus(err, http.StatusBadRequest) {
			err = cl.Client.Delete(ctx, id, true)
		}
		if err == nil && len(failed) > 0 {
			for _, f := range failed {
				r.fail(f, fmt.Errorf("not deleted by the deleteTree of %s", id))
			}
			return
		}
	}
	r.settle(id, err)
}

func (cl *Cleaner) deleteType(ctx context.Context, r *Report, typeID string) {
	err := cl.Client.DeleteType(ctx, typeID)
	if !request.IsNotFound(err) {
		r.Found++
	}
	r.settle("type "+typeID, err)
}

func (cl *Cleaner) cleanGroups(ctx context.Context, r *Report, prefixes []string) {
	if !hasPrefix(prefixes) {
		return
	}
	groups, err := cl.Client.ListGroups(ctx)
	if err != nil {
		r.fail("list groups", err)
		return
	}
	var ids []string
	for _, g := range groups {
		if matchesPrefix(g.ID, prefixes) {
			ids = append(ids, g.ID)
		}
	}
	sort.Strings(ids)
	r.Found += len(ids)
	for _, id := range ids {
		if ctx.Err() != nil {
			r.fail("group "+id, ctx.Err())
			return
		}
		r.settle("group "+id, cl.Client.DeleteGroup(ctx, id))
	}
}

func (cl *Cleaner) cleanUsers(ctx context.Context, r *Report, prefixes []string) {
	if !hasPrefix(prefixes) {
		return
	}
	users, err := cl.Client.ListUsers(ctx)
	if err != nil {
		r.fail("list users", err)
		return
	}
	var ids []string
	for _, u := range users {
		if !u.IsAdmin && matchesPrefix(u.ID, prefixes) {
			ids = append(ids, u.ID)
		}
	}
	sort.Strings(ids)
	r.Found += len(ids)
	for _, id := range ids {
		if ctx.Err() != nil {
			r.fail("user "+id, ctx.Err())
			return
		}
		r.settle("user "+id, cl.Client.DeleteUser(ctx, id))
	}
}

func hasPrefix(prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" {
			return true
		}
	}
	return false
}

func matchesPrefix(id string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(id, p) {
			return true
		}
	}
	return false
}
