package notify

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	connectTries       = 5
	connectMaxInterval = 5 * time.Second
)

// connect retries op with exponential backoff. It is only used while wiring sinks at startup.
func connect[T any](ctx context.Context, what string, logf Logf, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = connectMaxInterval

	attempt := 0
	return backoff.Retry[T](ctx, func() (T, error) {
		attempt++
		return op()
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(connectTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			if logf != nil {
				logf("Failed to connect to %s (attempt %d): %v; retrying in %s", what, attempt, err, next.Round(time.Millisecond))
			}
		}),
	)
}
