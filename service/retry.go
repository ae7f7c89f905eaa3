package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/layer-3/herald/core"
	"go.uber.org/zap"
)

// RetryPolicy bounds caller-side retries
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryPolicy retries for up to half a minute
var DefaultRetryPolicy = RetryPolicy{
	InitialInterval: 500 * time.Millisecond,
	MaxElapsedTime:  30 * time.Second,
}

// Retry runs op until it succeeds, fails with a non-retryable error, the
// policy gives up or ctx is done. Only network failures are retried; user
// rejections and service or contract rejections return immediately.
func Retry[T any](ctx context.Context, policy RetryPolicy, logger *zap.Logger, op func(ctx context.Context) (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialInterval
	b.MaxElapsedTime = policy.MaxElapsedTime

	attempt := 0
	return backoff.RetryNotifyWithData[T](func() (T, error) {
		attempt++
		v, err := op(ctx)
		if err != nil && !core.IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		logger.Warn("Retrying after network failure",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
}
