// Package retry wraps cenkalti/backoff/v4 with the bounded exponential
// policy described for transient GraphStore and provider errors: at most
// three retries, starting at a 200ms base interval.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy configures Do's retry loop.
type Policy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Default is the standard transient-error policy for provider and store
// calls: base 200ms, capped growth, at most 3 retries (4 attempts total).
var Default = Policy{
	MaxRetries:      3,
	InitialInterval: 200 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

// Do runs fn, retrying on error according to p until it succeeds, the
// retry budget is exhausted, or ctx is canceled. The last error is
// returned if every attempt fails.
func Do(ctx context.Context, p Policy, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = 0 // bounded by MaxRetries, not wall clock

	bounded := backoff.WithMaxRetries(b, uint64(p.MaxRetries))
	withCtx := backoff.WithContext(bounded, ctx)

	return backoff.Retry(fn, withCtx)
}

// Permanent marks err as non-retryable so Do returns immediately instead
// of burning the retry budget on an error that will never succeed (e.g.
// a 4xx from a provider).
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}
