package srs

import (
	"errors"
	"time"

	"github.com/remvault/remvault/internal/domain"
)

// Common errors
var (
	ErrNilSchedule      = errors.New("rem schedule cannot be nil")
	ErrInvalidOutcome   = errors.New("invalid review outcome")
	ErrInvalidDays      = errors.New("postpone days must be at least 1")
	ErrInvalidWeights   = errors.New("weight vector must have 17 elements")
	ErrInvalidRetention = errors.New("desired retention must be between 0 and 1 exclusive")
)

// Service defines the interface for FSRS scheduling operations
type Service interface {
	// CalculateNextReview computes a new schedule based on a review outcome
	CalculateNextReview(
		schedule *domain.RemSchedule,
		outcome domain.ReviewOutcome,
		now time.Time,
	) (*domain.RemSchedule, error)

	// PostponeReview pushes the next review time forward by a specified number of days
	PostponeReview(
		schedule *domain.RemSchedule,
		days int,
		now time.Time,
	) (*domain.RemSchedule, error)

	// Retrievability predicts the probability of recall for the schedule at
	// the given time. Returns 0 for schedules with no established state.
	Retrievability(schedule *domain.RemSchedule, now time.Time) float64
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new FSRS service with default parameters
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new FSRS service with custom parameters
func NewServiceWithParams(params *Params) Service {
	return &defaultService{
		params: params,
	}
}

// CalculateNextReview implements the Service interface for calculating an
// updated schedule after a review.
func (s *defaultService) CalculateNextReview(
	schedule *domain.RemSchedule,
	outcome domain.ReviewOutcome,
	now time.Time,
) (*domain.RemSchedule, error) {
	if schedule == nil {
		return nil, ErrNilSchedule
	}

	if !outcome.IsValid() {
		return nil, ErrInvalidOutcome
	}

	return calculateNextSchedule(schedule, outcome, now, s.params), nil
}

// PostponeReview implements the Service interface for postponing reviews.
// Postponing does not touch the FSRS memory state, only the due date.
func (s *defaultService) PostponeReview(
	schedule *domain.RemSchedule,
	days int,
	now time.Time,
) (*domain.RemSchedule, error) {
	if schedule == nil {
		return nil, ErrNilSchedule
	}

	if days < 1 {
		return nil, ErrInvalidDays
	}

	next := &domain.RemSchedule{
		UserID:         schedule.UserID,
		RemID:          schedule.RemID,
		Stability:      schedule.Stability,
		Difficulty:     schedule.Difficulty,
		Interval:       schedule.Interval,
		ReviewCount:    schedule.ReviewCount,
		LapseCount:     schedule.LapseCount,
		LastReviewedAt: schedule.LastReviewedAt,
		NextReviewAt:   schedule.NextReviewAt.AddDate(0, 0, days),
		CreatedAt:      schedule.CreatedAt,
		UpdatedAt:      now,
	}

	return next, nil
}

// Retrievability implements the Service interface.
func (s *defaultService) Retrievability(schedule *domain.RemSchedule, now time.Time) float64 {
	if schedule == nil || schedule.IsNew() {
		return 0
	}
	return retrievability(elapsedDays(schedule.LastReviewedAt, now), schedule.Stability)
}
