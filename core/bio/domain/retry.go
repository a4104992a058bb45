package domain

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const readAttempts = 2

// retryRead runs a read and retries it once with backoff on ErrTransient.
// Mutations never go through here.
func retryRead[T any](ctx context.Context, read func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond

	return backoff.Retry(ctx, func() (T, error) {
		v, err := read()
		if err != nil && !errors.Is(err, ErrTransient) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(readAttempts))
}
