package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// Policy formalizes retries around external calls: a bounded number of
// attempts on an exponential curve, applied only to error classes the
// classifier reports as retryable. Validation errors are never retried.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	Retryable       func(err error) bool
}

// NewPolicy builds a policy with the given attempt bound and initial backoff
// interval. A nil classifier treats every error as retryable.
func NewPolicy(maxAttempts int, initialInterval time.Duration, retryable func(err error) bool) Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return Policy{
		MaxAttempts:     maxAttempts,
		InitialInterval: initialInterval,
		Retryable:       retryable,
	}
}

// Do runs operation under the policy, honoring ctx cancellation between
// attempts. The last error is returned once attempts are exhausted.
func (p Policy) Do(ctx context.Context, name string, operation func() error) error {
	attempt := 0

	wrapped := func() error {
		attempt++

		err := operation()
		if err == nil {
			return nil
		}

		if p.Retryable != nil && !p.Retryable(err) {
			return backoff.Permanent(err)
		}

		log.Warn().
			Err(err).
			Str("operation", name).
			Int("attempt", attempt).
			Int("maxAttempts", p.MaxAttempts).
			Msg("retryable operation failed")

		return err
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = p.InitialInterval
	expo.MaxElapsedTime = 0

	policy := backoff.WithMaxRetries(backoff.WithContext(expo, ctx), uint64(p.MaxAttempts-1))

	return backoff.Retry(wrapped, policy) //nolint:wrapcheck
}
