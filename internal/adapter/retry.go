package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"usbmap/internal/domain"
	"usbmap/internal/logger"
)

// RetryPolicy bounds how often a failing collector is retried
type RetryPolicy struct {
	MaxTries uint
	Backoff  time.Duration
}

// DefaultRetryPolicy matches what platform queries usually need to settle.
var DefaultRetryPolicy = RetryPolicy{MaxTries: 10, Backoff: 2 * time.Second}

// Retrying wraps a Collector with bounded retries
type Retrying struct {
	inner  Collector
	policy RetryPolicy
	log    zerolog.Logger
}

// WithRetry wraps c. Zero fields in policy take DefaultRetryPolicy values.
func WithRetry(c Collector, policy RetryPolicy) *Retrying {
	if policy.MaxTries == 0 {
		policy.MaxTries = DefaultRetryPolicy.MaxTries
	}
	if policy.Backoff <= 0 {
		policy.Backoff = DefaultRetryPolicy.Backoff
	}
	return &Retrying{
		inner:  c,
		policy: policy,
		log:    logger.WithComponent("collector.retry").With().Str("collector", c.Name()).Logger(),
	}
}

// Name returns the wrapped collector's name
func (r *Retrying) Name() string {
	return r.inner.Name()
}

// Collect calls the wrapped collector until it succeeds, fails permanently
// or runs out of tries.
func (r *Retrying) Collect(ctx context.Context) (*domain.Topology, error) {
	attempts := 0
	operation := func() (*domain.Topology, error) {
		attempts++
		return r.inner.Collect(ctx)
	}

	notify := func(err error, wait time.Duration) {
		r.log.Warn().Err(err).Int("attempt", attempts).Dur("retry_in", wait).Msg("collection failed, retrying")
	}

	t, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(r.policy.Backoff)),
		backoff.WithMaxTries(r.policy.MaxTries),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &domain.CollectionError{Collector: r.inner.Name(), Attempts: attempts, Err: err}
	}
	if attempts > 1 {
		r.log.Info().Int("attempts", attempts).Msg("collection succeeded after retry")
	}
	return t, nil
}
