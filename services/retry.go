package services

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"docqa/models"
)

// RetryPolicy bounds how the pipelines re-attempt failed remote calls.
type RetryPolicy struct {
	MaxRetries uint64
	BaseDelay  time.Duration
}

// Do runs task with exponential backoff. Only transient and rate-limit
// failures are re-attempted; authentication, configuration and dimension
// errors surface immediately. The final error is returned unchanged once
// retries are exhausted.
func (p RetryPolicy) Do(ctx context.Context, task func(ctx context.Context) error) error {
	if p.MaxRetries == 0 {
		return task(ctx)
	}
	b := retry.NewExponential(p.BaseDelay)
	return retry.Do(ctx, retry.WithMaxRetries(p.MaxRetries, b), func(ctx context.Context) error {
		err := task(ctx)
		if models.Retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
