package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/domain"
	"github.com/remvault/remvault/internal/domain/srs"
	"github.com/remvault/remvault/internal/platform/logger"
	"github.com/remvault/remvault/internal/store"
)

// Verify interface compliance at compile time
var _ ReviewService = (*reviewServiceImpl)(nil)

// reviewServiceImpl implements the ReviewService interface.
type reviewServiceImpl struct {
	db            *sql.DB
	remStore      store.RemStore
	scheduleStore store.ScheduleStore
	logStore      store.ReviewLogStore
	srsService    srs.Service
	logger        *slog.Logger
}

// NewReviewService creates a new ReviewService implementation.
func NewReviewService(
	db *sql.DB,
	remStore store.RemStore,
	scheduleStore store.ScheduleStore,
	logStore store.ReviewLogStore,
	srsService srs.Service,
	logger *slog.Logger,
) ReviewService {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}
	if remStore == nil {
		panic("remStore cannot be nil")
	}
	if scheduleStore == nil {
		panic("scheduleStore cannot be nil")
	}
	if logStore == nil {
		panic("logStore cannot be nil")
	}
	if srsService == nil {
		panic("srsService cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &reviewServiceImpl{
		db:            db,
		remStore:      remStore,
		scheduleStore: scheduleStore,
		logStore:      logStore,
		srsService:    srsService,
		logger:        logger.With(slog.String("component", "review_service")),
	}
}

// GetNextRem implements ReviewService.GetNextRem.
func (s *reviewServiceImpl) GetNextRem(
	ctx context.Context,
	userID uuid.UUID,
) (*domain.Rem, *domain.RemSchedule, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving next due rem", slog.String("user_id", userID.String()))

	schedule, err := s.scheduleStore.GetNextDue(ctx, userID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrScheduleNotFound) {
			log.Debug("no rems due for review", slog.String("user_id", userID.String()))
			return nil, nil, ErrNoRemsDue
		}

		log.Error("failed to get next due schedule",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, nil, NewGetNextRemError("failed to get next due schedule", err)
	}

	rem, err := s.remStore.GetByID(ctx, schedule.RemID)
	if err != nil {
		log.Error("failed to load due rem",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("rem_id", schedule.RemID.String()))
		return nil, nil, NewGetNextRemError("failed to load due rem", err)
	}

	log.Debug("successfully retrieved next due rem",
		slog.String("user_id", userID.String()),
		slog.String("rem_id", rem.ID.String()),
		slog.String("slug", rem.Slug))
	return rem, schedule, nil
}

// SubmitAnswer implements ReviewService.SubmitAnswer.
func (s *reviewServiceImpl) SubmitAnswer(
	ctx context.Context,
	userID uuid.UUID,
	remID uuid.UUID,
	answer ReviewAnswer,
) (*domain.RemSchedule, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("processing review answer",
		slog.String("user_id", userID.String()),
		slog.String("rem_id", remID.String()),
		slog.String("outcome", string(answer.Outcome)))

	if !answer.Outcome.IsValid() {
		log.Warn("invalid review outcome",
			slog.String("user_id", userID.String()),
			slog.String("rem_id", remID.String()),
			slog.String("outcome", string(answer.Outcome)))
		return nil, ErrInvalidAnswer
	}

	var updatedSchedule *domain.RemSchedule
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		schedule, err := s.loadOwnedSchedule(ctx, tx, userID, remID, log)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		newSchedule, err := s.srsService.CalculateNextReview(schedule, answer.Outcome, now)
		if err != nil {
			log.Error("failed to calculate next review",
				slog.String("error", err.Error()),
				slog.String("user_id", userID.String()),
				slog.String("rem_id", remID.String()))
			return fmt.Errorf("failed to calculate next review: %w", err)
		}

		if err := s.scheduleStore.WithTx(tx).Update(ctx, newSchedule); err != nil {
			return fmt.Errorf("failed to update schedule: %w", err)
		}

		entry, err := domain.NewReviewLog(userID, remID, answer.Outcome, newSchedule, now)
		if err != nil {
			return fmt.Errorf("failed to build review log: %w", err)
		}
		if err := s.logStore.WithTx(tx).Append(ctx, entry); err != nil {
			return fmt.Errorf("failed to append review log: %w", err)
		}

		updatedSchedule = newSchedule
		return nil
	})

	if err != nil {
		// If the error is already one of our service errors, pass it through
		if errors.Is(err, ErrRemNotFound) ||
			errors.Is(err, ErrRemNotOwned) ||
			errors.Is(err, ErrScheduleNotFound) ||
			errors.Is(err, ErrInvalidAnswer) {
			return nil, err
		}

		log.Error("failed to submit answer",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("rem_id", remID.String()))
		return nil, NewSubmitAnswerError("transaction failed", err)
	}

	log.Debug("successfully processed review answer",
		slog.String("user_id", userID.String()),
		slog.String("rem_id", remID.String()),
		slog.String("outcome", string(answer.Outcome)),
		slog.Float64("stability", updatedSchedule.Stability),
		slog.Float64("difficulty", updatedSchedule.Difficulty),
		slog.Int("interval", updatedSchedule.Interval),
		slog.Time("next_review_at", updatedSchedule.NextReviewAt))

	return updatedSchedule, nil
}

// Postpone implements ReviewService.Postpone.
func (s *reviewServiceImpl) Postpone(
	ctx context.Context,
	userID uuid.UUID,
	remID uuid.UUID,
	days int,
) (*domain.RemSchedule, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("postponing review",
		slog.String("user_id", userID.String()),
		slog.String("rem_id", remID.String()),
		slog.Int("days", days))

	if days < 1 {
		return nil, ErrInvalidPostpone
	}

	var updatedSchedule *domain.RemSchedule
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		schedule, err := s.loadOwnedSchedule(ctx, tx, userID, remID, log)
		if err != nil {
			return err
		}

		newSchedule, err := s.srsService.PostponeReview(schedule, days, time.Now().UTC())
		if err != nil {
			if errors.Is(err, srs.ErrInvalidDays) {
				return ErrInvalidPostpone
			}
			return fmt.Errorf("failed to postpone review: %w", err)
		}

		if err := s.scheduleStore.WithTx(tx).Update(ctx, newSchedule); err != nil {
			return fmt.Errorf("failed to update schedule: %w", err)
		}

		updatedSchedule = newSchedule
		return nil
	})

	if err != nil {
		if errors.Is(err, ErrRemNotFound) ||
			errors.Is(err, ErrRemNotOwned) ||
			errors.Is(err, ErrScheduleNotFound) ||
			errors.Is(err, ErrInvalidPostpone) {
			return nil, err
		}

		log.Error("failed to postpone review",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("rem_id", remID.String()))
		return nil, NewPostponeError("transaction failed", err)
	}

	log.Debug("successfully postponed review",
		slog.String("user_id", userID.String()),
		slog.String("rem_id", remID.String()),
		slog.Time("next_review_at", updatedSchedule.NextReviewAt))

	return updatedSchedule, nil
}

// loadOwnedSchedule verifies the rem exists and belongs to the user, then
// locks and returns its schedule. Must run inside a transaction because of
// the FOR UPDATE lock.
func (s *reviewServiceImpl) loadOwnedSchedule(
	ctx context.Context,
	tx *sql.Tx,
	userID uuid.UUID,
	remID uuid.UUID,
	log *slog.Logger,
) (*domain.RemSchedule, error) {
	rem, err := s.remStore.WithTx(tx).GetByID(ctx, remID)
	if err != nil {
		if errors.Is(err, store.ErrRemNotFound) {
			log.Warn("rem not found for review",
				slog.String("user_id", userID.String()),
				slog.String("rem_id", remID.String()))
			return nil, ErrRemNotFound
		}
		return nil, fmt.Errorf("failed to get rem: %w", err)
	}

	if rem.UserID != userID {
		log.Warn("user does not own rem",
			slog.String("user_id", userID.String()),
			slog.String("rem_id", remID.String()),
			slog.String("owner_id", rem.UserID.String()))
		return nil, ErrRemNotOwned
	}

	schedule, err := s.scheduleStore.WithTx(tx).GetForUpdate(ctx, userID, remID)
	if err != nil {
		if errors.Is(err, store.ErrScheduleNotFound) {
			log.Warn("schedule not found for rem",
				slog.String("user_id", userID.String()),
				slog.String("rem_id", remID.String()))
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}

	return schedule, nil
}
