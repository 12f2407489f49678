// Package retry runs an operation a fixed number of times with a constant
// delay between attempts.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"llouest/internal/logger"
)

// Config holds retry configuration.
type Config struct {
	Attempts int
	Delay    time.Duration
}

// DefaultConfig is three attempts, two seconds apart.
func DefaultConfig() Config {
	return Config{Attempts: 3, Delay: 2 * time.Second}
}

// Permanent marks err as not worth retrying; Do returns it unwrapped right away.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do calls fn until it succeeds, returns a permanent error, runs out of
// attempts or ctx is done. The last error is returned as is.
func Do(ctx context.Context, cfg Config, op string, fn func() error) error {
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}
	log := logger.FromContext(ctx)

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, fn()
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(cfg.Delay)),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Err(err).
				Str("operation", op).
				Dur("retry_in", next).
				Msg("attempt failed, retrying")
		}),
	)
	return err
}
