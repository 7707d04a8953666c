// Package retry is the shared policy for outbound calls: transient
// transport failures are retried with bounded increasing delay, terminal
// protocol errors and cancellation surface immediately.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/openvc/confclient/internal/protocol"
)

const maxAttempts = 5

// Do runs fn under the retry policy. Terminal protocol errors (invalid
// token, missing conference, pin/SSO challenges) are never retried since
// repeating them cannot succeed without external intervention, and a
// cancelled context always propagates, even mid-backoff.
func Do[T any](ctx context.Context, logger zerolog.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.Multiplier = 1.5
	policy.MaxElapsedTime = 0

	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}

	attempt := 0
	operation := func() (T, error) {
		attempt++
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return v, backoff.Permanent(err)
		}
		if protocol.Terminal(err) {
			return v, backoff.Permanent(err)
		}
		logger.Warn().Str("module", "retry").Str("op", op).Int("attempt", attempt).Err(err).Msg("transient failure")
		return v, err
	}

	return backoff.RetryWithData(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, maxAttempts-1), ctx),
	)
}

// DoVoid is Do for calls without a result.
func DoVoid(ctx context.Context, logger zerolog.Logger, op string, fn func(context.Context) error) error {
	_, err := Do(ctx, logger, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
