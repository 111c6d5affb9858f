package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/domain"
)

// ReviewAnswer represents a user's answer to a rem review.
type ReviewAnswer struct {
	Outcome domain.ReviewOutcome `json:"outcome"` // The outcome selected by the user
}

// ReviewService provides methods for reviewing rems using the FSRS spaced
// repetition algorithm.
type ReviewService interface {
	// GetNextRem retrieves the next rem due for review for a user, together
	// with its current schedule. The rem with the earliest due time wins;
	// ties break on rem ID so the order is stable.
	//
	// Returns ErrNoRemsDue when nothing is due at the current time. Other
	// errors come from the store and are wrapped.
	//
	// This method does not modify any data.
	GetNextRem(ctx context.Context, userID uuid.UUID) (*domain.Rem, *domain.RemSchedule, error)

	// SubmitAnswer processes a user's answer for a rem and updates the review
	// schedule based on the FSRS algorithm. Within a single transaction it:
	// 1. Verifies the rem exists and belongs to the user
	// 2. Locks and reloads the schedule (SELECT ... FOR UPDATE)
	// 3. Computes the new FSRS state for the answer outcome
	// 4. Persists the schedule and appends an immutable review log entry
	//
	// Returns ErrRemNotFound if the rem does not exist, ErrRemNotOwned if it
	// belongs to another user, ErrScheduleNotFound if the rem has no
	// schedule, and ErrInvalidAnswer for an unknown outcome.
	SubmitAnswer(
		ctx context.Context,
		userID uuid.UUID,
		remID uuid.UUID,
		answer ReviewAnswer,
	) (*domain.RemSchedule, error)

	// Postpone pushes a rem's next review time forward by the given number of
	// days without touching its FSRS memory state.
	//
	// Returns ErrRemNotFound, ErrRemNotOwned, or ErrScheduleNotFound under
	// the same conditions as SubmitAnswer, and ErrInvalidPostpone when days
	// is less than 1.
	Postpone(
		ctx context.Context,
		userID uuid.UUID,
		remID uuid.UUID,
		days int,
	) (*domain.RemSchedule, error)
}

// Common error types for ReviewService
var (
	// ErrNoRemsDue indicates that the user has no rems due for review.
	ErrNoRemsDue = errors.New("no rems due for review")

	// ErrRemNotFound indicates that the rem does not exist.
	ErrRemNotFound = errors.New("rem not found")

	// ErrScheduleNotFound indicates that the rem has no review schedule.
	ErrScheduleNotFound = errors.New("rem schedule not found")

	// ErrRemNotOwned indicates that the user does not own the rem.
	ErrRemNotOwned = errors.New("unauthorized access: rem not owned by user")

	// ErrInvalidAnswer indicates an invalid answer was provided.
	ErrInvalidAnswer = errors.New("invalid answer")

	// ErrInvalidPostpone indicates an invalid postpone duration was provided.
	ErrInvalidPostpone = errors.New("postpone days must be at least 1")
)

// ServiceError wraps errors from the review service with additional context.
// This allows consumers to differentiate between different types of service
// errors using errors.As instead of string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "get_next_rem", "submit_answer")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewGetNextRemError returns a new ServiceError for the get_next_rem operation.
func NewGetNextRemError(message string, err error) *ServiceError {
	return &ServiceError{
		Operation: "get_next_rem",
		Message:   message,
		Err:       err,
	}
}

// NewSubmitAnswerError returns a new ServiceError for the submit_answer operation.
func NewSubmitAnswerError(message string, err error) *ServiceError {
	return &ServiceError{
		Operation: "submit_answer",
		Message:   message,
		Err:       err,
	}
}

// NewPostponeError returns a new ServiceError for the postpone operation.
func NewPostponeError(message string, err error) *ServiceError {
	return &ServiceError{
		Operation: "postpone",
		Message:   message,
		Err:       err,
	}
}
