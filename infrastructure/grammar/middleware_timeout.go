package grammar

import (
	"context"
	"time"

	"github.com/ahrav/go-essay-judge/internal/ports"
)

type timeoutChecker struct {
	next    ports.GrammarChecker
	timeout time.Duration
}

// TimeoutMiddleware bounds each check. A check that overruns fails with a
// retryable ports.ErrTimeout.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next ports.GrammarChecker) ports.GrammarChecker {
		return &timeoutChecker{next: next, timeout: timeout}
	}
}

func (t *timeoutChecker) Name() string { return t.next.Name() }

func (t *timeoutChecker) CheckErrors(ctx context.Context, text string) (int, error) {
	tctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	n, err := t.next.CheckErrors(tctx, text)
	if err != nil && ctx.Err() == nil && tctx.Err() == context.DeadlineExceeded {
		return 0, ports.NewCheckerError(t.next.Name(), ports.ErrTimeout, 0,
			"check exceeded "+t.timeout.String(), err)
	}
	return n, err
}
