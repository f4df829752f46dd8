// Package retry wraps adapter calls in bounded exponential backoff: initial
// delay, multiplicative growth, a cap, and a maximum attempt count per step
// invocation.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy is one handler-specific retry budget.
type Policy struct {
	Initial     time.Duration
	Factor      float64
	Cap         time.Duration
	MaxAttempts uint
}

// Permanent marks err as non-retryable: Do returns it immediately instead
// of continuing to back off.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op, retrying on any error it returns that Permanent has not
// marked, until it succeeds, the policy's attempt budget is exhausted, or
// ctx is cancelled. op must not mutate any persisted state before it
// succeeds, so a retried attempt can never leave partial state behind.
func Do(ctx context.Context, policy Policy, op func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = policy.Initial
	eb.Multiplier = policy.Factor
	eb.MaxInterval = policy.Cap

	wrapped := func() (struct{}, error) {
		return struct{}{}, op()
	}

	_, err := backoff.Retry(ctx, wrapped,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(policy.MaxAttempts),
	)
	return err
}
