package utils

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy describes how many times and how fast an operation should be
// retried. It is passed explicitly by the callers, so that CI and local runs
// can use different values.
type RetryPolicy struct {
	// Attempts is the total number of calls, including the first one. A value
	// lower than 1 is treated as 1.
	Attempts int
	// InitialDelay is the wait before the second call.
	InitialDelay time.Duration
	// MaxDelay caps the wait between two calls. Zero means no cap.
	MaxDelay time.Duration
	// Multiplier is applied to the delay after each failure. Zero means 2.
	Multiplier float64
}

// NoRetry is the policy of a single attempt.
var NoRetry = RetryPolicy{Attempts: 1}

// DefaultAuthPolicy is used to wait for a freshly created principal to be
// able to authenticate.
var DefaultAuthPolicy = RetryPolicy{
	Attempts:     5,
	InitialDelay: 2 * time.Second,
	MaxDelay:     30 * time.Second,
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	if b.InitialInterval <= 0 {
		b.InitialInterval = time.Millisecond
	}
	b.RandomizationFactor = 0
	b.Multiplier = p.Multiplier
	if b.Multiplier <= 0 {
		b.Multiplier = 2
	}
	b.MaxInterval = p.MaxDelay
	if b.MaxInterval <= 0 {
		b.MaxInterval = time.Duration(1<<63 - 1)
	}
	b.MaxElapsedTime = 0
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Permanent wraps an error to stop Retry immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Retry calls fn until it returns no error, the attempts of the policy are
// exhausted, fn returns a Permanent error, or the context is done. The
// optional onFailure callback is called for each failed attempt, with the
// attempt number starting at 1. Retry returns the number of failed attempts
// and the last error.
func Retry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error, onFailure func(attempt int, err error)) (int, error) {
	failures := 0
	op := func() error {
		err := fn(ctx)
		if err != nil {
			failures++
			if onFailure != nil {
				onFailure(failures, err)
			}
		}
		return err
	}
	err := backoff.Retry(op, policy.backOff(ctx))
	return failures, err
}
