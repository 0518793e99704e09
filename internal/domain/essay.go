package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status is the review state of an essay.
type Status string

// Essay review states.
const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
)

// allowedTransitions maps each status to the statuses it may move to.
var allowedTransitions = map[Status][]Status{
	StatusDraft:     {StatusSubmitted},
	StatusSubmitted: {StatusAccepted, StatusRejected},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// CanTransition reports whether an essay in status s may move to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Default word band of a competition.
const (
	DefaultMinWords = 250
	DefaultMaxWords = 500
)

// Competition is an essay contest with a word band and a schedule.
type Competition struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Topic       string    `json:"topic,omitempty"`
	MinWords    int       `json:"min_words"`
	MaxWords    int       `json:"max_words"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`

	// ResultsPublishDelay is how long after EndDate results stay hidden
	// from non-staff viewers.
	ResultsPublishDelay time.Duration `json:"results_publish_delay"`
}

// WordBand returns the configured band, substituting defaults for unset bounds.
func (c Competition) WordBand() (minWords, maxWords int) {
	minWords, maxWords = c.MinWords, c.MaxWords
	if minWords <= 0 {
		minWords = DefaultMinWords
	}
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	return minWords, maxWords
}

// Active reports whether submissions are open at t.
func (c Competition) Active(t time.Time) bool {
	return !t.Before(c.StartDate) && !t.After(c.EndDate)
}

// ResultsPublishedAt returns the moment results become public.
func (c Competition) ResultsPublishedAt() time.Time {
	return c.EndDate.Add(c.ResultsPublishDelay)
}

// ResultsVisible reports whether results can be shown at t. Staff always see them.
func (c Competition) ResultsVisible(t time.Time, staff bool) bool {
	if staff {
		return true
	}
	return !t.Before(c.ResultsPublishedAt())
}

// EvaluationInput builds the engine input for an essay submitted to c.
func (c Competition) EvaluationInput(e Essay) EvaluationInput {
	minWords, maxWords := c.WordBand()
	return EvaluationInput{
		Title:    e.Title,
		Content:  e.Content,
		Topic:    c.Topic,
		MinWords: minWords,
		MaxWords: maxWords,
	}
}

// Essay is a competition entry together with its review and evaluation state.
type Essay struct {
	ID            string          `json:"id"`
	CompetitionID string          `json:"competition_id"`
	AuthorID      string          `json:"author_id"`
	Title         string          `json:"title"`
	Content       string          `json:"content"`
	Status        Status          `json:"status"`
	SubmittedAt   *time.Time      `json:"submitted_at,omitempty"`
	ReviewedAt    *time.Time      `json:"reviewed_at,omitempty"`
	ReviewedBy    string          `json:"reviewed_by,omitempty"`
	Scores        *ScoreBreakdown `json:"scores,omitempty"`
	EvaluatedAt   *time.Time      `json:"evaluated_at,omitempty"`
}

// Transition moves the essay to next, stamping submission or review
// metadata. The essay is left unchanged on error.
func (e *Essay) Transition(next Status, actor string, at time.Time) error {
	if !next.Valid() || !e.Status.CanTransition(next) {
		return &TransitionError{EssayID: e.ID, From: e.Status, To: next}
	}
	switch next {
	case StatusSubmitted:
		e.SubmittedAt = &at
	case StatusAccepted, StatusRejected:
		e.ReviewedAt = &at
		e.ReviewedBy = actor
	}
	e.Status = next
	return nil
}

// Evaluated reports whether the essay carries a score.
func (e Essay) Evaluated() bool { return e.Scores != nil && e.EvaluatedAt != nil }

// WordCount counts whitespace-separated words.
func WordCount(content string) int { return len(strings.Fields(content)) }

// WordBoundsError reports content outside a competition's word band.
type WordBoundsError struct {
	Words    int
	MinWords int
	MaxWords int
}

// Error implements the error interface for WordBoundsError.
func (e *WordBoundsError) Error() string {
	if e.Words < e.MinWords {
		return fmt.Sprintf("essay too short: %d words, minimum is %d", e.Words, e.MinWords)
	}
	return fmt.Sprintf("essay too long: %d words, maximum is %d", e.Words, e.MaxWords)
}

// CheckWordBounds returns a *WordBoundsError when content falls outside
// [minWords, maxWords].
func CheckWordBounds(content string, minWords, maxWords int) error {
	n := WordCount(content)
	if n < minWords || n > maxWords {
		return &WordBoundsError{Words: n, MinWords: minWords, MaxWords: maxWords}
	}
	return nil
}
