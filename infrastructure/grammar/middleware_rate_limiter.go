package grammar

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-essay-judge/internal/ports"
)

type rateLimitedChecker struct {
	next    ports.GrammarChecker
	limiter *rate.Limiter
}

// RateLimitMiddleware paces checks with a token bucket of limit requests per
// second and the given burst. Every checker built from the returned
// middleware shares one bucket.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)
	return func(next ports.GrammarChecker) ports.GrammarChecker {
		return &rateLimitedChecker{next: next, limiter: limiter}
	}
}

func (r *rateLimitedChecker) Name() string { return r.next.Name() }

func (r *rateLimitedChecker) CheckErrors(ctx context.Context, text string) (int, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.CheckErrors(ctx, text)
}
