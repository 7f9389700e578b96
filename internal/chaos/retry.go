package chaos

import (
	"context"
	"time"
)

// retryConfig configures store cleanup's bounded retry, a cut-down
// reparametrization of the teacher's infrastructure/resilience.Retry
// (exponential backoff, jitter, context-aware) to spec §4.8 step 5's "retry
// deletion up to three times to accommodate OS-level file locks": three
// attempts, a short fixed delay, no jitter needed at this scale.
type retryConfig struct {
	MaxAttempts int
	Delay       time.Duration
}

func defaultCleanupRetry() retryConfig {
	return retryConfig{MaxAttempts: 3, Delay: 20 * time.Millisecond}
}

// retry runs fn up to cfg.MaxAttempts times, waiting cfg.Delay between
// attempts, returning the last error if every attempt fails.
func retry(ctx context.Context, cfg retryConfig, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if attempt < cfg.MaxAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.Delay):
			}
		}
	}
	return lastErr
}
