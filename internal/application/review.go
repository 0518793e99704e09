package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-essay-judge/internal/domain"
	"github.com/ahrav/go-essay-judge/internal/ports"
)

// EvaluationJob asks the worker to score one accepted essay.
type EvaluationJob struct {
	EssayID string
}

// ReviewService moves essays through submission and review. Accepting an
// essay queues it for background evaluation.
type ReviewService struct {
	repo      ports.EssayRepository
	evaluator Evaluator
	jobs      chan<- EvaluationJob
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// NewReviewService builds the service. jobs receives one job per accepted
// essay and may be nil, in which case evaluation only happens through
// Reevaluate.
func NewReviewService(repo ports.EssayRepository, evaluator Evaluator, jobs chan<- EvaluationJob, logger *zap.Logger) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{
		repo:      repo,
		evaluator: evaluator,
		jobs:      jobs,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// CreateDraft stores a new draft essay for a competition.
func (s *ReviewService) CreateDraft(ctx context.Context, competitionID, authorID, title, content string) (domain.Essay, error) {
	if _, err := s.repo.GetCompetition(ctx, competitionID); err != nil {
		return domain.Essay{}, err
	}
	e := domain.Essay{
		ID:            s.newID(),
		CompetitionID: competitionID,
		AuthorID:      authorID,
		Title:         strings.TrimSpace(title),
		Content:       content,
		Status:        domain.StatusDraft,
	}
	if err := s.repo.CreateEssay(ctx, e); err != nil {
		return domain.Essay{}, err
	}
	return e, nil
}

// Submit moves a draft to submitted. The competition must be open, the
// content must fall inside its word band, and the author may not already
// have a submitted or accepted essay in the competition. A rejected essay
// does not block a new submission.
func (s *ReviewService) Submit(ctx context.Context, essayID string) (domain.Essay, error) {
	e, c, err := s.load(ctx, essayID)
	if err != nil {
		return domain.Essay{}, err
	}
	now := s.now()
	if !c.Active(now) {
		return domain.Essay{}, fmt.Errorf("%w: %s", domain.ErrCompetitionClosed, c.ID)
	}
	minWords, maxWords := c.WordBand()
	if err := domain.CheckWordBounds(e.Content, minWords, maxWords); err != nil {
		return domain.Essay{}, err
	}
	prior, err := s.repo.FindSubmission(ctx, c.ID, e.AuthorID)
	switch {
	case err == nil:
		return domain.Essay{}, fmt.Errorf("%w: essay %s is %s", domain.ErrAlreadySubmitted, prior.ID, prior.Status)
	case !errors.Is(err, domain.ErrEssayNotFound):
		return domain.Essay{}, err
	}
	if err := e.Transition(domain.StatusSubmitted, e.AuthorID, now); err != nil {
		return domain.Essay{}, err
	}
	if err := s.repo.UpdateReview(ctx, e); err != nil {
		return domain.Essay{}, err
	}
	return e, nil
}

// Accept marks a submitted essay accepted and queues its evaluation. The
// status change is kept even if queueing is interrupted by ctx.
func (s *ReviewService) Accept(ctx context.Context, essayID, reviewer string) (domain.Essay, error) {
	e, err := s.review(ctx, essayID, reviewer, domain.StatusAccepted)
	if err != nil {
		return domain.Essay{}, err
	}
	if s.jobs == nil {
		return e, nil
	}
	select {
	case s.jobs <- EvaluationJob{EssayID: e.ID}:
		s.logger.Debug("Queued essay for evaluation", zap.String("essay_id", e.ID))
	case <-ctx.Done():
		return e, fmt.Errorf("queue evaluation of essay %s: %w", e.ID, ctx.Err())
	}
	return e, nil
}

// Reject marks a submitted essay rejected.
func (s *ReviewService) Reject(ctx context.Context, essayID, reviewer string) (domain.Essay, error) {
	return s.review(ctx, essayID, reviewer, domain.StatusRejected)
}

// Reevaluate scores an accepted essay synchronously and saves the result.
func (s *ReviewService) Reevaluate(ctx context.Context, essayID string) (domain.ScoreBreakdown, error) {
	return evaluateEssay(ctx, s.repo, s.evaluator, essayID, s.now)
}

func (s *ReviewService) review(ctx context.Context, essayID, reviewer string, next domain.Status) (domain.Essay, error) {
	e, err := s.repo.GetEssay(ctx, essayID)
	if err != nil {
		return domain.Essay{}, err
	}
	if err := e.Transition(next, reviewer, s.now()); err != nil {
		return domain.Essay{}, err
	}
	if err := s.repo.UpdateReview(ctx, e); err != nil {
		return domain.Essay{}, err
	}
	s.logger.Info("Essay reviewed",
		zap.String("essay_id", e.ID),
		zap.String("status", string(e.Status)),
		zap.String("reviewer", reviewer),
	)
	return e, nil
}

func (s *ReviewService) load(ctx context.Context, essayID string) (domain.Essay, domain.Competition, error) {
	e, err := s.repo.GetEssay(ctx, essayID)
	if err != nil {
		return domain.Essay{}, domain.Competition{}, err
	}
	c, err := s.repo.GetCompetition(ctx, e.CompetitionID)
	if err != nil {
		return domain.Essay{}, domain.Competition{}, err
	}
	return e, c, nil
}

// evaluateEssay scores one accepted essay and writes only its evaluation fields.
func evaluateEssay(ctx context.Context, repo ports.EssayRepository, evaluator Evaluator, essayID string, now func() time.Time) (domain.ScoreBreakdown, error) {
	e, err := repo.GetEssay(ctx, essayID)
	if err != nil {
		return domain.ScoreBreakdown{}, err
	}
	if e.Status != domain.StatusAccepted {
		return domain.ScoreBreakdown{}, fmt.Errorf("%w: %s is %s", domain.ErrNotAccepted, e.ID, e.Status)
	}
	c, err := repo.GetCompetition(ctx, e.CompetitionID)
	if err != nil {
		return domain.ScoreBreakdown{}, err
	}
	scores, err := evaluator.Evaluate(ctx, c.EvaluationInput(e))
	if err != nil {
		return domain.ScoreBreakdown{}, fmt.Errorf("evaluate essay %s: %w", e.ID, err)
	}
	if err := repo.SaveEvaluation(ctx, e.ID, scores, now()); err != nil {
		return domain.ScoreBreakdown{}, err
	}
	return scores, nil
}

// EvaluationWorker drains evaluation jobs with bounded concurrency.
type EvaluationWorker struct {
	repo        ports.EssayRepository
	evaluator   Evaluator
	jobs        <-chan EvaluationJob
	concurrency int
	logger      *zap.Logger
	now         func() time.Time
}

// NewEvaluationWorker builds a worker reading from jobs.
func NewEvaluationWorker(repo ports.EssayRepository, evaluator Evaluator, jobs <-chan EvaluationJob, concurrency int, logger *zap.Logger) *EvaluationWorker {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvaluationWorker{
		repo:        repo,
		evaluator:   evaluator,
		jobs:        jobs,
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// Run processes jobs until the channel is closed or ctx ends. A failed job
// is logged and skipped; the essay stays accepted and can be re-evaluated.
// Run returns ctx.Err() when stopped by ctx and nil when the channel closes.
func (w *EvaluationWorker) Run(ctx context.Context) error {
	g := new(errgroup.Group)
	g.SetLimit(w.concurrency)

	for {
		select {
		case <-ctx.Done():
			_ = g.Wait()
			return ctx.Err()
		case job, ok := <-w.jobs:
			if !ok {
				return g.Wait()
			}
			g.Go(func() error {
				w.process(ctx, job)
				return nil
			})
		}
	}
}

func (w *EvaluationWorker) process(ctx context.Context, job EvaluationJob) {
	start := time.Now()
	scores, err := evaluateEssay(ctx, w.repo, w.evaluator, job.EssayID, w.now)
	if err != nil {
		w.logger.Error("Essay evaluation failed",
			zap.String("essay_id", job.EssayID),
			zap.Error(err),
		)
		return
	}
	w.logger.Info("Essay evaluated",
		zap.String("essay_id", job.EssayID),
		zap.Float64("total", scores.Total),
		zap.Duration("duration", time.Since(start)),
	)
}
