// Package sqlite persists competitions and essays in SQLite through the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/ahrav/go-essay-judge/internal/domain"
	"github.com/ahrav/go-essay-judge/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS competitions (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	topic TEXT NOT NULL DEFAULT '',
	min_words INTEGER NOT NULL,
	max_words INTEGER NOT NULL,
	start_date INTEGER NOT NULL,
	end_date INTEGER NOT NULL,
	results_publish_delay INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS essays (
	id TEXT PRIMARY KEY,
	competition_id TEXT NOT NULL,
	author_id TEXT NOT NULL,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	status TEXT NOT NULL,
	submitted_at INTEGER,
	reviewed_at INTEGER,
	reviewed_by TEXT NOT NULL DEFAULT '',
	relevance REAL,
	cohesion REAL,
	grammar REAL,
	structure REAL,
	total REAL,
	evaluated_at INTEGER,
	FOREIGN KEY (competition_id) REFERENCES competitions(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_essays_competition ON essays(competition_id);
CREATE INDEX IF NOT EXISTS idx_essays_author ON essays(competition_id, author_id);
CREATE INDEX IF NOT EXISTS idx_essays_leaderboard ON essays(competition_id, status, total DESC);
`

// Repository implements ports.EssayRepository.
type Repository struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ ports.EssayRepository = (*Repository)(nil)

// Open opens or creates the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := path
	memory := path == ":memory:"
	if !memory {
		dsn = "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if memory {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite repository initialized", zap.String("path", path))
	return &Repository{db: db, logger: logger}, nil
}

// Close closes the database.
func (r *Repository) Close() error { return r.db.Close() }

// NewID returns a fresh identifier for a competition or essay.
func NewID() string { return uuid.NewString() }

// CreateCompetition inserts c, assigning an ID when it has none.
func (r *Repository) CreateCompetition(ctx context.Context, c domain.Competition) error {
	if c.ID == "" {
		c.ID = NewID()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO competitions (id, title, description, topic, min_words, max_words,
			start_date, end_date, results_publish_delay)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Title, c.Description, c.Topic, c.MinWords, c.MaxWords,
		c.StartDate.UnixNano(), c.EndDate.UnixNano(), int64(c.ResultsPublishDelay),
	)
	if err != nil {
		return fmt.Errorf("failed to insert competition %s: %w", c.ID, err)
	}
	return nil
}

// GetCompetition returns domain.ErrCompetitionNotFound for unknown IDs.
func (r *Repository) GetCompetition(ctx context.Context, id string) (domain.Competition, error) {
	var (
		c            domain.Competition
		start, end   int64
		publishDelay int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, description, topic, min_words, max_words, start_date, end_date,
			results_publish_delay
		FROM competitions WHERE id = ?`, id,
	).Scan(&c.ID, &c.Title, &c.Description, &c.Topic, &c.MinWords, &c.MaxWords,
		&start, &end, &publishDelay)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Competition{}, fmt.Errorf("%w: %s", domain.ErrCompetitionNotFound, id)
	}
	if err != nil {
		return domain.Competition{}, fmt.Errorf("failed to get competition %s: %w", id, err)
	}
	c.StartDate = time.Unix(0, start).UTC()
	c.EndDate = time.Unix(0, end).UTC()
	c.ResultsPublishDelay = time.Duration(publishDelay)
	return c, nil
}

// CreateEssay inserts e with its review and score fields.
func (r *Repository) CreateEssay(ctx context.Context, e domain.Essay) error {
	if e.ID == "" {
		e.ID = NewID()
	}
	if e.Status == "" {
		e.Status = domain.StatusDraft
	}
	var relevance, cohesion, grammar, structure, total sql.NullFloat64
	if e.Scores != nil {
		relevance = sql.NullFloat64{Float64: e.Scores.Relevance, Valid: true}
		cohesion = sql.NullFloat64{Float64: e.Scores.Cohesion, Valid: true}
		grammar = sql.NullFloat64{Float64: e.Scores.Grammar, Valid: true}
		structure = sql.NullFloat64{Float64: e.Scores.Structure, Valid: true}
		total = sql.NullFloat64{Float64: e.Scores.Total, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO essays (id, competition_id, author_id, title, content, status,
			submitted_at, reviewed_at, reviewed_by,
			relevance, cohesion, grammar, structure, total, evaluated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CompetitionID, e.AuthorID, e.Title, e.Content, string(e.Status),
		nullTime(e.SubmittedAt), nullTime(e.ReviewedAt), e.ReviewedBy,
		relevance, cohesion, grammar, structure, total, nullTime(e.EvaluatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert essay %s: %w", e.ID, err)
	}
	return nil
}

const essayColumns = `id, competition_id, author_id, title, content, status,
	submitted_at, reviewed_at, reviewed_by,
	relevance, cohesion, grammar, structure, total, evaluated_at`

// GetEssay returns domain.ErrEssayNotFound for unknown IDs.
func (r *Repository) GetEssay(ctx context.Context, id string) (domain.Essay, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+essayColumns+" FROM essays WHERE id = ?", id)
	e, err := scanEssay(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Essay{}, fmt.Errorf("%w: %s", domain.ErrEssayNotFound, id)
	}
	if err != nil {
		return domain.Essay{}, fmt.Errorf("failed to get essay %s: %w", id, err)
	}
	return e, nil
}

// FindSubmission returns the earliest submitted or accepted essay of
// authorID in a competition. Drafts and rejected essays are ignored.
func (r *Repository) FindSubmission(ctx context.Context, competitionID, authorID string) (domain.Essay, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+essayColumns+` FROM essays
		WHERE competition_id = ? AND author_id = ? AND status IN (?, ?)
		ORDER BY submitted_at ASC, id ASC LIMIT 1`,
		competitionID, authorID, string(domain.StatusSubmitted), string(domain.StatusAccepted),
	)
	e, err := scanEssay(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Essay{}, fmt.Errorf("%w: no submission by %s", domain.ErrEssayNotFound, authorID)
	}
	if err != nil {
		return domain.Essay{}, fmt.Errorf("failed to find submission by %s: %w", authorID, err)
	}
	return e, nil
}

// UpdateReview writes status, submission, and review fields only.
func (r *Repository) UpdateReview(ctx context.Context, e domain.Essay) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE essays SET status = ?, submitted_at = ?, reviewed_at = ?, reviewed_by = ?
		WHERE id = ?`,
		string(e.Status), nullTime(e.SubmittedAt), nullTime(e.ReviewedAt), e.ReviewedBy, e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update review of essay %s: %w", e.ID, err)
	}
	return requireRow(res, e.ID)
}

// SaveEvaluation writes the score columns and evaluation time only, so a
// concurrent review update is never overwritten.
func (r *Repository) SaveEvaluation(ctx context.Context, essayID string, scores domain.ScoreBreakdown, evaluatedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE essays SET relevance = ?, cohesion = ?, grammar = ?, structure = ?, total = ?,
			evaluated_at = ?
		WHERE id = ?`,
		scores.Relevance, scores.Cohesion, scores.Grammar, scores.Structure, scores.Total,
		evaluatedAt.UnixNano(), essayID,
	)
	if err != nil {
		return fmt.Errorf("failed to save evaluation of essay %s: %w", essayID, err)
	}
	return requireRow(res, essayID)
}

// ListEvaluated returns accepted, scored essays of a competition, highest
// total first and earlier evaluations first on ties.
func (r *Repository) ListEvaluated(ctx context.Context, competitionID string) ([]domain.Essay, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+essayColumns+` FROM essays
		WHERE competition_id = ? AND status = ? AND total IS NOT NULL AND evaluated_at IS NOT NULL
		ORDER BY total DESC, evaluated_at ASC, id ASC`,
		competitionID, string(domain.StatusAccepted),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluated essays: %w", err)
	}
	defer rows.Close()

	var essays []domain.Essay
	for rows.Next() {
		e, err := scanEssay(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan essay: %w", err)
		}
		essays = append(essays, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate essays: %w", err)
	}
	return essays, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEssay(s scanner) (domain.Essay, error) {
	var (
		e                              domain.Essay
		status                         string
		submitted, reviewed, evaluated sql.NullInt64
		relevance, cohesion, grammar   sql.NullFloat64
		structure, total               sql.NullFloat64
	)
	err := s.Scan(&e.ID, &e.CompetitionID, &e.AuthorID, &e.Title, &e.Content, &status,
		&submitted, &reviewed, &e.ReviewedBy,
		&relevance, &cohesion, &grammar, &structure, &total, &evaluated)
	if err != nil {
		return domain.Essay{}, err
	}
	e.Status = domain.Status(status)
	e.SubmittedAt = timePtr(submitted)
	e.ReviewedAt = timePtr(reviewed)
	e.EvaluatedAt = timePtr(evaluated)
	if total.Valid {
		e.Scores = &domain.ScoreBreakdown{
			Relevance: relevance.Float64,
			Cohesion:  cohesion.Float64,
			Grammar:   grammar.Float64,
			Structure: structure.Float64,
			Total:     total.Float64,
		}
	}
	return e, nil
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64).UTC()
	return &t
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrEssayNotFound, strings.TrimSpace(id))
	}
	return nil
}
