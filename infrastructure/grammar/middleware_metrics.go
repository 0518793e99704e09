package grammar

import (
	"context"
	"errors"
	"time"

	"github.com/ahrav/go-essay-judge/internal/ports"
)

// Metric names recorded by MetricsMiddleware.
const (
	MetricGrammarChecks  = ports.MetricGrammarChecks
	MetricGrammarLatency = ports.MetricGrammarLatency
	MetricGrammarIssues  = ports.MetricGrammarIssues
)

type metricsChecker struct {
	next      ports.GrammarChecker
	collector ports.MetricsCollector
}

// MetricsMiddleware records check counts, latency, and reported issues,
// labelled by backend and status.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return func(next ports.GrammarChecker) ports.GrammarChecker {
		return &metricsChecker{next: next, collector: collector}
	}
}

func (m *metricsChecker) Name() string { return m.next.Name() }

func (m *metricsChecker) CheckErrors(ctx context.Context, text string) (int, error) {
	start := time.Now()
	n, err := m.next.CheckErrors(ctx, text)
	if m.collector == nil {
		return n, err
	}

	labels := map[string]string{
		"backend": m.next.Name(),
		"status":  checkStatus(ctx, err),
	}
	m.collector.RecordHistogram(MetricGrammarLatency, time.Since(start).Seconds(), labels)
	m.collector.RecordCounter(MetricGrammarChecks, 1, labels)
	if err == nil {
		m.collector.RecordCounter(MetricGrammarIssues, float64(n), map[string]string{"backend": m.next.Name()})
	}
	return n, err
}

func checkStatus(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ports.ErrTimeout), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ports.ErrRateLimited):
		return "rate_limited"
	default:
		return "error"
	}
}
