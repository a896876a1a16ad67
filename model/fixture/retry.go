package fixture

import (
	"context"

	"github.com/nemakiware/cmis-fixture/client/request"
	"github.com/nemakiware/cmis-fixture/pkg/logger"
	"github.com/nemakiware/cmis-fixture/pkg/utils"
)

// Transient returns true for the failures that may not happen again: the
// transport ones, the 5xx statuses, and the unparsable bodies of a proxy in
// a bad state.
func Transient(err error) bool {
	return request.IsTransport(err) || request.IsServerError(err) || request.IsParse(err)
}

// Retry calls fn until it succeeds, following the policy, as long as the
// failures are transient. It returns the number of failed calls and the last
// error.
func Retry(ctx context.Context, policy utils.RetryPolicy, fn func(ctx context.Context) error) (int, error) {
	log := logger.WithNamespace("fixture")
	return utils.Retry(ctx, policy, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && !Transient(err) {
			return utils.Permanent(err)
		}
		return err
	}, func(attempt int, err error) {
		log.Infof("attempt %d failed: %s", attempt, err)
	})
}
