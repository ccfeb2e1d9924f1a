package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/smukkama/water-monitor/internal/logger"
)

// Policy bounds a retry loop
type Policy struct {
	MaxRetries     uint64
	InitialBackoff time.Duration
	MaxElapsed     time.Duration
}

// DefaultPolicy is used for startup connections and batch flushes
var DefaultPolicy = Policy{
	MaxRetries:     4,
	InitialBackoff: 500 * time.Millisecond,
	MaxElapsed:     30 * time.Second,
}

// Do runs op with exponential backoff until it succeeds, the policy is
// exhausted or ctx is done
func Do(ctx context.Context, name string, policy Policy, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = policy.InitialBackoff
	bo.MaxElapsedTime = policy.MaxElapsed

	log := logger.WithComponent("retry")
	notify := func(err error, wait time.Duration) {
		log.Warn().
			Err(err).
			Str("target", name).
			Dur("retry_in", wait).
			Msg("attempt failed")
	}

	b := backoff.WithContext(backoff.WithMaxRetries(bo, policy.MaxRetries), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return fmt.Errorf("%s failed after retries: %w", name, err)
	}
	return nil
}
