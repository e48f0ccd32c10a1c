package gemini

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/phambaophuc/alt-text-relay/internal/metrics"
	"go.uber.org/zap"
)

// RetryingClient retries transient failures a fixed number of times with a
// constant delay. No exponential growth and no jitter: one retry bounds the
// latency of a single image.
type RetryingClient struct {
	next       Client
	delay      time.Duration
	maxRetries int
	logger     *zap.Logger
}

var _ Client = (*RetryingClient)(nil)

func NewRetryingClient(next Client, delay time.Duration, maxRetries int, logger *zap.Logger) *RetryingClient {
	return &RetryingClient{
		next:       next,
		delay:      delay,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

func (c *RetryingClient) Generate(ctx context.Context, payload Payload) (string, error) {
	var (
		text     string
		attempts int
	)

	op := func() error {
		attempts++
		out, err := c.next.Generate(ctx, payload)
		if err != nil {
			if !IsTransient(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		text = out
		return nil
	}

	notify := func(err error, wait time.Duration) {
		metrics.IncRetry()
		c.logger.Warn("Gemini request failed, retrying",
			zap.Int("attempt", attempts),
			zap.Duration("delay", wait),
			zap.Error(err))
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.delay), uint64(c.maxRetries)),
		ctx,
	)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		var pe *ProviderError
		if !errors.As(err, &pe) {
			pe = newProviderError(err)
		}
		final := *pe
		final.Attempts = attempts
		return "", &final
	}

	return text, nil
}
