package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ReviewOutcome represents the result of a rem review. The four values map
// to FSRS grades 1 through 4.
type ReviewOutcome string

// Possible review outcome values
const (
	ReviewOutcomeAgain ReviewOutcome = "again"
	ReviewOutcomeHard  ReviewOutcome = "hard"
	ReviewOutcomeGood  ReviewOutcome = "good"
	ReviewOutcomeEasy  ReviewOutcome = "easy"
)

// Grade returns the numeric FSRS grade (1-4) for the outcome, or 0 if the
// outcome is not valid.
func (o ReviewOutcome) Grade() int {
	switch o {
	case ReviewOutcomeAgain:
		return 1
	case ReviewOutcomeHard:
		return 2
	case ReviewOutcomeGood:
		return 3
	case ReviewOutcomeEasy:
		return 4
	default:
		return 0
	}
}

// IsValid reports whether the outcome is one of the four FSRS grades.
func (o ReviewOutcome) IsValid() bool {
	return o.Grade() != 0
}

// Common validation errors for RemSchedule
var (
	ErrEmptyScheduleUserID  = errors.New("rem schedule user ID cannot be empty")
	ErrEmptyScheduleRemID   = errors.New("rem schedule rem ID cannot be empty")
	ErrInvalidInterval      = errors.New("interval must be greater than or equal to 0")
	ErrInvalidStability     = errors.New("stability must be greater than or equal to 0")
	ErrInvalidDifficulty    = errors.New("difficulty must be between 1 and 10")
	ErrInvalidReviewOutcome = errors.New("invalid review outcome")
)

// RemSchedule tracks a user's FSRS memory state for a specific rem.
// Stability is the memory half-life driver (days until retrievability drops
// to the requested retention); difficulty modulates how fast stability grows.
// Schedules follow an immutable-update style: the scheduler returns new
// instances rather than mutating existing ones.
type RemSchedule struct {
	UserID         uuid.UUID `json:"user_id"`
	RemID          uuid.UUID `json:"rem_id"`
	Stability      float64   `json:"stability"`
	Difficulty     float64   `json:"difficulty"`
	Interval       int       `json:"interval"` // Current interval in days
	ReviewCount    int       `json:"review_count"`
	LapseCount     int       `json:"lapse_count"`
	LastReviewedAt time.Time `json:"last_reviewed_at"` // Zero until the first review
	NextReviewAt   time.Time `json:"next_review_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewRemSchedule creates a new schedule for a user and rem with default
// values. New rems are available for review immediately; FSRS state is
// established on the first review.
func NewRemSchedule(userID, remID uuid.UUID) (*RemSchedule, error) {
	now := time.Now().UTC()
	schedule := &RemSchedule{
		UserID:         userID,
		RemID:          remID,
		Stability:      0,
		Difficulty:     0,
		Interval:       0,
		ReviewCount:    0,
		LapseCount:     0,
		LastReviewedAt: time.Time{},
		NextReviewAt:   now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := schedule.Validate(); err != nil {
		return nil, err
	}

	return schedule, nil
}

// Validate checks if the RemSchedule has valid data.
// Returns an error if any field fails validation.
func (s *RemSchedule) Validate() error {
	if s.UserID == uuid.Nil {
		return ErrEmptyScheduleUserID
	}

	if s.RemID == uuid.Nil {
		return ErrEmptyScheduleRemID
	}

	if s.Interval < 0 {
		return ErrInvalidInterval
	}

	if s.Stability < 0 {
		return ErrInvalidStability
	}

	// Difficulty is 0 before the first review, then clamped to [1, 10].
	if s.Difficulty != 0 && (s.Difficulty < 1 || s.Difficulty > 10) {
		return ErrInvalidDifficulty
	}

	return nil
}

// IsNew reports whether the rem has never been reviewed, meaning the FSRS
// state has not been established yet.
func (s *RemSchedule) IsNew() bool {
	return s.LastReviewedAt.IsZero()
}
