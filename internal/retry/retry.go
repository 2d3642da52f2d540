// Package retry wraps upstream calls with exponential backoff, retrying
// only errors the domain classifies as transient.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/wildpath/naturescout/internal/domain"
)

// Policy holds retry settings for one upstream dependency.
type Policy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultPolicy returns a policy with the given attempt cap and standard intervals.
func DefaultPolicy(maxTries int) Policy {
	if maxTries <= 0 {
		maxTries = 3
	}
	return Policy{
		MaxTries:        uint(maxTries),
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// Do runs op with exponential backoff. Errors for which domain.Retryable
// returns false abort immediately; context cancellation always aborts.
func Do[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval

	wrapped := func() (T, error) {
		v, err := op()
		if err != nil && !domain.Retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	return backoff.Retry(ctx, wrapped,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(p.MaxTries),
	)
}
