package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"news-bureau/config"
	"news-bureau/models"
)

// RetryPolicy is the single bounded-retry-with-backoff policy shared by the
// orchestrators, so failure semantics stay identical across translation and
// publishing. There is no unbounded retry loop anywhere in the pipeline.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy bounds external calls to three attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond}
}

// PolicyFromConfig builds the shared retry policy from configuration.
func PolicyFromConfig(cfg *config.Config) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   time.Duration(cfg.RetryBaseDelayMS) * time.Millisecond,
	}
}

// Do runs op with exponential backoff until it succeeds, the attempt budget
// is exhausted, or ctx is cancelled. Non-retryable transport failures stop
// immediately.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	bo := backoff.NewExponentialBackOff()
	if p.BaseDelay > 0 {
		bo.InitialInterval = p.BaseDelay
	}

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		var te *models.TransportError
		if errors.As(err, &te) && !te.Retryable {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.Retry(wrapped,
		backoff.WithContext(backoff.WithMaxRetries(bo, uint64(maxAttempts-1)), ctx))
}
