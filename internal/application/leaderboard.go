package application

import (
	"context"
	"fmt"
	"time"

	"github.com/ahrav/go-essay-judge/internal/domain"
	"github.com/ahrav/go-essay-judge/internal/ports"
)

// Viewer identifies who is asking for results.
type Viewer struct {
	ID    string
	Staff bool
}

// Standing is one author's position on a leaderboard.
type Standing struct {
	EssayID  string  `json:"essay_id"`
	Position int     `json:"position"`
	Total    float64 `json:"total"`
	Entrants int     `json:"entrants"`
}

// LeaderboardService ranks evaluated essays of a competition.
type LeaderboardService struct {
	repo ports.EssayRepository
}

// NewLeaderboardService builds the service over repo.
func NewLeaderboardService(repo ports.EssayRepository) *LeaderboardService {
	return &LeaderboardService{repo: repo}
}

// Leaderboard returns the ranked entries of a competition as seen by viewer
// at now. Non-staff viewers get domain.ErrResultsNotPublished until the
// publication time has passed.
func (s *LeaderboardService) Leaderboard(ctx context.Context, competitionID string, viewer Viewer, now time.Time) ([]domain.LeaderboardEntry, error) {
	c, err := s.repo.GetCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	if !c.ResultsVisible(now, viewer.Staff) {
		return nil, fmt.Errorf("%w: %s publishes at %s", domain.ErrResultsNotPublished,
			c.ID, c.ResultsPublishedAt().Format(time.RFC3339))
	}

	essays, err := s.repo.ListEvaluated(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.LeaderboardEntry, 0, len(essays))
	for _, e := range essays {
		if !e.Evaluated() {
			continue
		}
		entries = append(entries, domain.LeaderboardEntry{
			EssayID:     e.ID,
			AuthorID:    e.AuthorID,
			Title:       e.Title,
			Total:       e.Scores.Total,
			EvaluatedAt: *e.EvaluatedAt,
		})
	}
	return domain.Rank(entries), nil
}

// Standing returns the position of one evaluated essay among its
// competition's entries, under the same visibility rule as Leaderboard.
func (s *LeaderboardService) Standing(ctx context.Context, essayID string, viewer Viewer, now time.Time) (Standing, error) {
	e, err := s.repo.GetEssay(ctx, essayID)
	if err != nil {
		return Standing{}, err
	}
	if !e.Evaluated() {
		return Standing{}, fmt.Errorf("%w: %s", domain.ErrNotEvaluated, e.ID)
	}
	entries, err := s.Leaderboard(ctx, e.CompetitionID, viewer, now)
	if err != nil {
		return Standing{}, err
	}
	totals := make([]float64, len(entries))
	for i, en := range entries {
		totals[i] = en.Total
	}
	return Standing{
		EssayID:  e.ID,
		Position: domain.PositionOf(e.Scores.Total, totals),
		Total:    e.Scores.Total,
		Entrants: len(entries),
	}, nil
}
