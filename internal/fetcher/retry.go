package fetcher

import (
	"context"
	"time"
)

// RetryPolicy declares how often a call may be repeated. It exists so retry
// behaviour lives in configuration rather than inline sleep loops: batch
// snapshot calls carry a small bounded retry (losing the call loses the whole
// venue for the run), per-symbol calls use ZeroRetry and are recovered by the
// next scheduled run instead.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// ZeroRetry performs the call exactly once.
var ZeroRetry = RetryPolicy{Attempts: 1}

func (p RetryPolicy) attempts() int {
	if p.Attempts < 1 {
		return 1
	}
	return p.Attempts
}

// Do invokes fn until it succeeds, the attempt budget is exhausted, or the
// context is cancelled. The backoff between attempts is fixed.
func Do[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= policy.attempts(); attempt++ {
		if attempt > 1 && policy.Backoff > 0 {
			timer := time.NewTimer(policy.Backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}

		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}
