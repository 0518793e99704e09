package ports

import (
	"context"
	"time"

	"github.com/ahrav/go-essay-judge/internal/domain"
)

// GrammarChecker counts grammar issues in a text. Implementations wrap an
// external service and must be safe for concurrent use.
type GrammarChecker interface {
	// Name identifies the backend in logs, metrics, and cache keys.
	Name() string

	// CheckErrors returns the number of issues flagged in text.
	CheckErrors(ctx context.Context, text string) (int, error)
}

// CacheStore defines the interface for caching evaluation results.
// Values are opaque byte slices; callers own their encoding.
type CacheStore interface {
	// Get retrieves a value. The boolean is false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given time-to-live. A zero ttl means the
	// entry does not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations must be safe for concurrent use and should never block
// the caller.
type MetricsCollector interface {
	// RecordLatency records how long an operation took.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric by value.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets a gauge metric to value.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram observes value in a histogram metric.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// EssayRepository persists competitions and essays. SaveEvaluation is the
// only path that writes scores and touches nothing else on the record.
type EssayRepository interface {
	CreateCompetition(ctx context.Context, c domain.Competition) error
	GetCompetition(ctx context.Context, id string) (domain.Competition, error)

	CreateEssay(ctx context.Context, e domain.Essay) error
	GetEssay(ctx context.Context, id string) (domain.Essay, error)

	// FindSubmission returns the author's submitted or accepted essay in a
	// competition, or domain.ErrEssayNotFound when there is none.
	FindSubmission(ctx context.Context, competitionID, authorID string) (domain.Essay, error)

	// UpdateReview persists the status, submission, and review fields of e.
	UpdateReview(ctx context.Context, e domain.Essay) error

	// SaveEvaluation writes the score fields and evaluation time of one essay.
	SaveEvaluation(ctx context.Context, essayID string, scores domain.ScoreBreakdown, evaluatedAt time.Time) error

	// ListEvaluated returns accepted, evaluated essays of a competition.
	ListEvaluated(ctx context.Context, competitionID string) ([]domain.Essay, error)
}
