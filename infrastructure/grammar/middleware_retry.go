package grammar

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/ahrav/go-essay-judge/internal/ports"
)

// retryChecker retries transient backend failures with exponential backoff.
type retryChecker struct {
	next       ports.GrammarChecker
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// RetryMiddleware retries checks that fail with a retryable
// *ports.CheckerError (rate limited, unavailable, timed out). Other errors,
// an open circuit, and context cancellation end the loop immediately.
func RetryMiddleware(maxRetries int, baseDelay, maxDelay time.Duration) Middleware {
	return func(next ports.GrammarChecker) ports.GrammarChecker {
		return &retryChecker{
			next:       next,
			maxRetries: maxRetries,
			baseDelay:  baseDelay,
			maxDelay:   maxDelay,
		}
	}
}

func (r *retryChecker) Name() string { return r.next.Name() }

func (r *retryChecker) CheckErrors(ctx context.Context, text string) (int, error) {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		attempts++
		n, err := r.next.CheckErrors(ctx, text)
		if err == nil {
			return n, nil
		}
		lastErr = err

		if errors.Is(err, ErrCircuitOpen) || ctx.Err() != nil || !ports.IsRetryable(err) {
			break
		}
		if attempt == r.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(r.delay(attempt, err)):
		}
	}

	if attempts == 1 {
		return 0, lastErr
	}
	return 0, fmt.Errorf("grammar check failed after %d attempts: %w", attempts, lastErr)
}

// delay honours a backend Retry-After hint, otherwise backs off
// exponentially with ±25% jitter, capped at maxDelay.
func (r *retryChecker) delay(attempt int, err error) time.Duration {
	var cerr *ports.CheckerError
	if errors.As(err, &cerr) && cerr.RetryAfter != nil && *cerr.RetryAfter > 0 {
		return min(*cerr.RetryAfter, r.maxDelay)
	}

	attempt = max(0, min(attempt, 30))
	// #nosec G115 - attempt is bounded between 0 and 30
	d := time.Duration(float64(r.baseDelay) * float64(uint64(1)<<uint(attempt)))
	// #nosec G404 - jitter does not need a secure source
	jitter := time.Duration(rand.Float64() * float64(d) * 0.5)
	d = d + jitter - d/4
	return min(d, r.maxDelay)
}
