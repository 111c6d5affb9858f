package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestReviewOutcomeGrade(t *testing.T) {
	testCases := []struct {
		outcome ReviewOutcome
		grade   int
	}{
		{ReviewOutcomeAgain, 1},
		{ReviewOutcomeHard, 2},
		{ReviewOutcomeGood, 3},
		{ReviewOutcomeEasy, 4},
		{ReviewOutcome("perfect"), 0},
		{ReviewOutcome(""), 0},
	}

	for _, tc := range testCases {
		if got := tc.outcome.Grade(); got != tc.grade {
			t.Errorf("Grade(%q) = %d, want %d", tc.outcome, got, tc.grade)
		}
		if tc.outcome.IsValid() != (tc.grade != 0) {
			t.Errorf("IsValid(%q) = %v, want %v", tc.outcome, tc.outcome.IsValid(), tc.grade != 0)
		}
	}
}

func TestNewRemSchedule(t *testing.T) {
	userID := uuid.New()
	remID := uuid.New()

	schedule, err := NewRemSchedule(userID, remID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !schedule.IsNew() {
		t.Error("Fresh schedule must be new")
	}
	if schedule.NextReviewAt.IsZero() {
		t.Error("New rems must be available for review immediately")
	}
	if schedule.ReviewCount != 0 || schedule.LapseCount != 0 {
		t.Error("New schedule must have zero counts")
	}

	if _, err := NewRemSchedule(uuid.Nil, remID); !errors.Is(err, ErrEmptyScheduleUserID) {
		t.Errorf("Expected ErrEmptyScheduleUserID, got %v", err)
	}
	if _, err := NewRemSchedule(userID, uuid.Nil); !errors.Is(err, ErrEmptyScheduleRemID) {
		t.Errorf("Expected ErrEmptyScheduleRemID, got %v", err)
	}
}

func TestRemScheduleValidate(t *testing.T) {
	schedule, err := NewRemSchedule(uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	schedule.Interval = -1
	if err := schedule.Validate(); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("Expected ErrInvalidInterval, got %v", err)
	}
	schedule.Interval = 0

	schedule.Stability = -0.5
	if err := schedule.Validate(); !errors.Is(err, ErrInvalidStability) {
		t.Errorf("Expected ErrInvalidStability, got %v", err)
	}
	schedule.Stability = 0

	schedule.Difficulty = 11
	if err := schedule.Validate(); !errors.Is(err, ErrInvalidDifficulty) {
		t.Errorf("Expected ErrInvalidDifficulty, got %v", err)
	}
	schedule.Difficulty = 0.5
	if err := schedule.Validate(); !errors.Is(err, ErrInvalidDifficulty) {
		t.Errorf("Expected ErrInvalidDifficulty, got %v", err)
	}
}
