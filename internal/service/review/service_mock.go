package review

import (
	"context"

	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/domain"
)

// MockReviewService implements ReviewService for testing.
type MockReviewService struct {
	// Custom behavior functions
	GetNextRemFn   func(ctx context.Context, userID uuid.UUID) (*domain.Rem, *domain.RemSchedule, error)
	SubmitAnswerFn func(ctx context.Context, userID, remID uuid.UUID, answer ReviewAnswer) (*domain.RemSchedule, error)
	PostponeFn     func(ctx context.Context, userID, remID uuid.UUID, days int) (*domain.RemSchedule, error)

	// Default response values
	NextRem         *domain.Rem
	NextSchedule    *domain.RemSchedule
	UpdatedSchedule *domain.RemSchedule
	Err             error
}

// Verify interface compliance at compile time
var _ ReviewService = (*MockReviewService)(nil)

// GetNextRem implements the ReviewService interface
func (m *MockReviewService) GetNextRem(
	ctx context.Context,
	userID uuid.UUID,
) (*domain.Rem, *domain.RemSchedule, error) {
	if m.GetNextRemFn != nil {
		return m.GetNextRemFn(ctx, userID)
	}
	return m.NextRem, m.NextSchedule, m.Err
}

// SubmitAnswer implements the ReviewService interface
func (m *MockReviewService) SubmitAnswer(
	ctx context.Context,
	userID uuid.UUID,
	remID uuid.UUID,
	answer ReviewAnswer,
) (*domain.RemSchedule, error) {
	if m.SubmitAnswerFn != nil {
		return m.SubmitAnswerFn(ctx, userID, remID, answer)
	}
	return m.UpdatedSchedule, m.Err
}

// Postpone implements the ReviewService interface
func (m *MockReviewService) Postpone(
	ctx context.Context,
	userID uuid.UUID,
	remID uuid.UUID,
	days int,
) (*domain.RemSchedule, error) {
	if m.PostponeFn != nil {
		return m.PostponeFn(ctx, userID, remID, days)
	}
	return m.UpdatedSchedule, m.Err
}
