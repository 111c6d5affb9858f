package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ReviewLog validation errors
var (
	// ErrEmptyReviewLogUserID indicates a review log was created without a user.
	ErrEmptyReviewLogUserID = errors.New("review log user ID cannot be empty")

	// ErrEmptyReviewLogRemID indicates a review log was created without a rem.
	ErrEmptyReviewLogRemID = errors.New("review log rem ID cannot be empty")
)

// ReviewLog is one immutable entry in a rem's review history. It captures the
// outcome the user gave and the scheduler state that resulted, so the full
// memory trajectory can be replayed or audited.
type ReviewLog struct {
	ID           uuid.UUID     `json:"id"`
	UserID       uuid.UUID     `json:"user_id"`
	RemID        uuid.UUID     `json:"rem_id"`
	Outcome      ReviewOutcome `json:"outcome"`
	Stability    float64       `json:"stability"`
	Difficulty   float64       `json:"difficulty"`
	IntervalDays int           `json:"interval_days"`
	ReviewedAt   time.Time     `json:"reviewed_at"`
}

// NewReviewLog creates a review log entry from a just-updated schedule.
// Returns validation errors if the IDs or outcome are invalid.
func NewReviewLog(
	userID, remID uuid.UUID,
	outcome ReviewOutcome,
	schedule *RemSchedule,
	reviewedAt time.Time,
) (*ReviewLog, error) {
	log := &ReviewLog{
		ID:           uuid.New(),
		UserID:       userID,
		RemID:        remID,
		Outcome:      outcome,
		Stability:    schedule.Stability,
		Difficulty:   schedule.Difficulty,
		IntervalDays: schedule.Interval,
		ReviewedAt:   reviewedAt,
	}
	if err := log.Validate(); err != nil {
		return nil, err
	}
	return log, nil
}

// Validate checks that the review log satisfies domain invariants.
func (l *ReviewLog) Validate() error {
	if l.UserID == uuid.Nil {
		return ErrEmptyReviewLogUserID
	}
	if l.RemID == uuid.Nil {
		return ErrEmptyReviewLogRemID
	}
	if !l.Outcome.IsValid() {
		return ErrInvalidReviewOutcome
	}
	return nil
}
