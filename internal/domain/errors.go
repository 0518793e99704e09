package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur during evaluation and essay review.
var (
	// ErrInvalidInput indicates that an EvaluationInput violates its contract.
	ErrInvalidInput = errors.New("invalid evaluation input")

	// ErrInvalidTransition indicates that an essay status change is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrEssayNotFound indicates that a requested essay does not exist.
	ErrEssayNotFound = errors.New("essay not found")

	// ErrCompetitionNotFound indicates that a requested competition does not exist.
	ErrCompetitionNotFound = errors.New("competition not found")

	// ErrCompetitionClosed indicates a submission outside the competition's
	// submission window.
	ErrCompetitionClosed = errors.New("competition is not accepting submissions")

	// ErrAlreadySubmitted indicates an author who already has a submitted or
	// accepted essay in the competition.
	ErrAlreadySubmitted = errors.New("author already has an essay in this competition")

	// ErrNotAccepted indicates an operation that requires an accepted essay.
	ErrNotAccepted = errors.New("essay is not accepted")

	// ErrNotEvaluated indicates an essay that has no score yet.
	ErrNotEvaluated = errors.New("essay has not been evaluated")

	// ErrResultsNotPublished indicates results requested before publication.
	ErrResultsNotPublished = errors.New("results are not published yet")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap ties every ValidationError to ErrInvalidInput so callers can
// test for contract violations with errors.Is.
func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}

// TransitionError reports a rejected essay status change.
type TransitionError struct {
	// EssayID identifies the essay whose status change was rejected.
	EssayID string

	// From is the status the essay was in.
	From Status

	// To is the status that was requested.
	To Status
}

// Error implements the error interface for TransitionError.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("essay %s: cannot move from %s to %s", e.EssayID, e.From, e.To)
}

// Unwrap returns ErrInvalidTransition.
func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
