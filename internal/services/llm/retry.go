package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 2 * time.Second
	defaultRetryAttempts  = 3
)

// Policy controls Retry. Attempts counts the first call.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Sleeper replaces the real timer, mostly for tests.
	Sleeper func(time.Duration)
	// OnRetry is called before each sleep.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultPolicy retries twice, starting at two seconds and doubling.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:  defaultRetryAttempts,
		BaseDelay: defaultRetryBaseDelay,
		MaxDelay:  defaultRetryMaxDelay,
	}
}

// Retry calls fn until it succeeds, returns a non-retryable error, or the
// attempts run out. A Retry-After hint on a StatusError replaces the backoff.
func Retry[T any](ctx context.Context, policy Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := max(policy.Attempts, 1)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		value, err := fn(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err
		delay, retry := policy.delay(ctx, err, attempt, attempts)
		if !retry {
			if attempt == 1 {
				return zero, err
			}
			return zero, fmt.Errorf("%s: failed after %d attempts: %w", op, attempt, err)
		}
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, delay, err)
		}
		if err := policy.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return zero, fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

func (p Policy) delay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil || ctx.Err() != nil {
		return 0, false
	}
	if !IsRetryable(err) {
		return 0, false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
		return p.capDelay(statusErr.RetryAfter), true
	}
	return p.backoffDelay(attempt), true
}

func (p Policy) backoffDelay(attempt int) time.Duration {
	base := p.BaseDelay
	maxDelay := p.maxDelay()
	if base <= 0 {
		return 0
	}
	// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	return p.capDelay(delay)
}

func (p Policy) maxDelay() time.Duration {
	if p.MaxDelay > 0 {
		return p.MaxDelay
	}
	return defaultRetryMaxDelay
}

func (p Policy) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	return min(delay, p.maxDelay())
}

func (p Policy) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.Sleeper != nil {
		p.Sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
