package util

import (
	"context"
	"errors"
	"time"
)

// RetryBaseDelay is the pause after the first failed attempt. It doubles
// after every further failure up to RetryMaxDelay.
var (
	RetryBaseDelay = 100 * time.Millisecond
	RetryMaxDelay  = 5 * time.Second
)

func backoff(attempt int) time.Duration {
	d := RetryBaseDelay << attempt
	if d <= 0 || d > RetryMaxDelay {
		return RetryMaxDelay
	}
	return d
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// RetryWithContext calls fn up to maxTries times until it returns a nil
// error, pausing with exponential backoff between attempts. If maxTries <= 0
// it defaults to 1. Context errors end the loop at once; otherwise the last
// error is returned.
func RetryWithContext[T any](ctx context.Context, maxTries int, fn func(context.Context) (T, error)) (T, error) {
	if maxTries <= 0 {
		maxTries = 1
	}
	var zero T
	var lastErr error
	for i := 0; i < maxTries; i++ {
		if i > 0 {
			t := time.NewTimer(backoff(i - 1))
			select {
			case <-ctx.Done():
				t.Stop()
				return zero, ctx.Err()
			case <-t.C:
			}
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if isContextErr(err) {
			return zero, err
		}
		lastErr = err
	}
	return zero, lastErr
}

// RetryErrWithContext is RetryWithContext for functions without a result.
func RetryErrWithContext(ctx context.Context, maxTries int, fn func(context.Context) error) error {
	_, err := RetryWithContext(ctx, maxTries, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
