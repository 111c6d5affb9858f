package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/domain"
	"github.com/remvault/remvault/internal/platform/logger"
	"github.com/remvault/remvault/internal/store"
)

// PostgresScheduleStore implements the store.ScheduleStore interface
// using a PostgreSQL database as the storage backend.
type PostgresScheduleStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresScheduleStore creates a new PostgreSQL implementation of the ScheduleStore
// interface. It accepts a database connection or transaction that should be initialized
// and managed by the caller. If logger is nil, a default logger will be used.
func NewPostgresScheduleStore(db store.DBTX, logger *slog.Logger) *PostgresScheduleStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresScheduleStore{
		db:     db,
		logger: logger.With(slog.String("component", "schedule_store")),
	}
}

// Ensure PostgresScheduleStore implements store.ScheduleStore interface
var _ store.ScheduleStore = (*PostgresScheduleStore)(nil)

// WithTx implements store.ScheduleStore.WithTx
func (s *PostgresScheduleStore) WithTx(tx *sql.Tx) store.ScheduleStore {
	return &PostgresScheduleStore{
		db:     tx,
		logger: s.logger,
	}
}

const scheduleColumns = `user_id, rem_id, stability, difficulty, interval_days, review_count, lapse_count, last_reviewed_at, next_review_at, created_at, updated_at`

// Create implements store.ScheduleStore.Create
// Returns store.ErrInvalidEntity if the user or rem doesn't exist (foreign key violation).
func (s *PostgresScheduleStore) Create(ctx context.Context, schedule *domain.RemSchedule) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := schedule.Validate(); err != nil {
		log.Warn("schedule validation failed during create",
			slog.String("error", err.Error()),
			slog.String("rem_id", schedule.RemID.String()))
		return err
	}

	query := `
		INSERT INTO rem_schedules (` + scheduleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		schedule.UserID,
		schedule.RemID,
		schedule.Stability,
		schedule.Difficulty,
		schedule.Interval,
		schedule.ReviewCount,
		schedule.LapseCount,
		nullTime(timePtr(schedule.LastReviewedAt)),
		schedule.NextReviewAt,
		schedule.CreatedAt,
		schedule.UpdatedAt,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("duplicate schedule during create",
				slog.String("rem_id", schedule.RemID.String()),
				slog.String("user_id", schedule.UserID.String()))
			return store.ErrDuplicate
		}
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during schedule creation",
				slog.String("rem_id", schedule.RemID.String()),
				slog.String("user_id", schedule.UserID.String()))
			return fmt.Errorf("%w: user or rem not found", store.ErrInvalidEntity)
		}

		log.Error("failed to create schedule",
			slog.String("error", err.Error()),
			slog.String("rem_id", schedule.RemID.String()))
		return err
	}

	log.Info("schedule created successfully",
		slog.String("rem_id", schedule.RemID.String()),
		slog.String("user_id", schedule.UserID.String()))
	return nil
}

// Get implements store.ScheduleStore.Get
// Returns store.ErrScheduleNotFound if no schedule exists.
func (s *PostgresScheduleStore) Get(
	ctx context.Context,
	userID, remID uuid.UUID,
) (*domain.RemSchedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM rem_schedules
		WHERE user_id = $1 AND rem_id = $2
	`
	return s.querySchedule(ctx, query, userID, remID)
}

// GetForUpdate implements store.ScheduleStore.GetForUpdate
// It locks the row until the surrounding transaction ends.
// Returns store.ErrScheduleNotFound if no schedule exists.
func (s *PostgresScheduleStore) GetForUpdate(
	ctx context.Context,
	userID, remID uuid.UUID,
) (*domain.RemSchedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM rem_schedules
		WHERE user_id = $1 AND rem_id = $2
		FOR UPDATE
	`
	return s.querySchedule(ctx, query, userID, remID)
}

// Update implements store.ScheduleStore.Update
// Returns store.ErrScheduleNotFound if no schedule exists.
func (s *PostgresScheduleStore) Update(ctx context.Context, schedule *domain.RemSchedule) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := schedule.Validate(); err != nil {
		log.Warn("schedule validation failed during update",
			slog.String("error", err.Error()),
			slog.String("rem_id", schedule.RemID.String()))
		return err
	}

	schedule.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE rem_schedules
		SET stability = $1, difficulty = $2, interval_days = $3,
		    review_count = $4, lapse_count = $5, last_reviewed_at = $6,
		    next_review_at = $7, updated_at = $8
		WHERE user_id = $9 AND rem_id = $10
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		schedule.Stability,
		schedule.Difficulty,
		schedule.Interval,
		schedule.ReviewCount,
		schedule.LapseCount,
		nullTime(timePtr(schedule.LastReviewedAt)),
		schedule.NextReviewAt,
		schedule.UpdatedAt,
		schedule.UserID,
		schedule.RemID,
	)

	if err != nil {
		log.Error("failed to update schedule",
			slog.String("error", err.Error()),
			slog.String("rem_id", schedule.RemID.String()))
		return err
	}

	if err := CheckRowsAffected(result, "schedule"); err != nil {
		log.Debug("schedule not found for update",
			slog.String("rem_id", schedule.RemID.String()))
		return store.ErrScheduleNotFound
	}

	log.Debug("schedule updated successfully",
		slog.String("rem_id", schedule.RemID.String()),
		slog.Time("next_review_at", schedule.NextReviewAt))
	return nil
}

// GetNextDue implements store.ScheduleStore.GetNextDue
// Tombstoned rems are excluded via the join. Ordering is next_review_at then
// rem_id so repeated calls walk the queue deterministically.
// Returns store.ErrScheduleNotFound if nothing is due.
func (s *PostgresScheduleStore) GetNextDue(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
) (*domain.RemSchedule, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT s.user_id, s.rem_id, s.stability, s.difficulty, s.interval_days,
		       s.review_count, s.lapse_count, s.last_reviewed_at, s.next_review_at,
		       s.created_at, s.updated_at
		FROM rem_schedules s
		JOIN rems r ON r.id = s.rem_id
		WHERE s.user_id = $1 AND s.next_review_at <= $2 AND r.deleted_at IS NULL
		ORDER BY s.next_review_at ASC, s.rem_id ASC
		LIMIT 1
	`

	schedule, err := s.scanSchedule(s.db.QueryRowContext(ctx, query, userID, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("no rems due for review",
				slog.String("user_id", userID.String()))
			return nil, store.ErrScheduleNotFound
		}
		log.Error("failed to get next due schedule",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}

	return schedule, nil
}

// CountDue implements store.ScheduleStore.CountDue
func (s *PostgresScheduleStore) CountDue(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT COUNT(*)
		FROM rem_schedules s
		JOIN rems r ON r.id = s.rem_id
		WHERE s.user_id = $1 AND s.next_review_at <= $2 AND r.deleted_at IS NULL
	`

	var count int
	if err := s.db.QueryRowContext(ctx, query, userID, now).Scan(&count); err != nil {
		log.Error("failed to count due schedules",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return 0, err
	}

	return count, nil
}

// ListByUser implements store.ScheduleStore.ListByUser
func (s *PostgresScheduleStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.RemSchedule, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + scheduleColumns + `
		FROM rem_schedules
		WHERE user_id = $1
		ORDER BY next_review_at ASC, rem_id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Error("failed to list schedules",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	schedules := []*domain.RemSchedule{}
	for rows.Next() {
		schedule, err := s.scanSchedule(rows)
		if err != nil {
			log.Error("failed to scan schedule row",
				slog.String("error", err.Error()))
			return nil, err
		}
		schedules = append(schedules, schedule)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	return schedules, nil
}

// Delete implements store.ScheduleStore.Delete
// Returns store.ErrScheduleNotFound if no schedule exists.
func (s *PostgresScheduleStore) Delete(ctx context.Context, userID, remID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM rem_schedules WHERE user_id = $1 AND rem_id = $2`

	result, err := s.db.ExecContext(ctx, query, userID, remID)
	if err != nil {
		log.Error("failed to delete schedule",
			slog.String("error", err.Error()),
			slog.String("rem_id", remID.String()))
		return err
	}

	if err := CheckRowsAffected(result, "schedule"); err != nil {
		log.Debug("schedule not found for delete",
			slog.String("rem_id", remID.String()))
		return store.ErrScheduleNotFound
	}

	log.Info("schedule deleted successfully",
		slog.String("rem_id", remID.String()))
	return nil
}

func (s *PostgresScheduleStore) querySchedule(
	ctx context.Context,
	query string,
	userID, remID uuid.UUID,
) (*domain.RemSchedule, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	schedule, err := s.scanSchedule(s.db.QueryRowContext(ctx, query, userID, remID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("schedule not found",
				slog.String("rem_id", remID.String()))
			return nil, store.ErrScheduleNotFound
		}
		log.Error("failed to get schedule",
			slog.String("error", err.Error()),
			slog.String("rem_id", remID.String()))
		return nil, err
	}

	return schedule, nil
}

func (s *PostgresScheduleStore) scanSchedule(row scanTarget) (*domain.RemSchedule, error) {
	var schedule domain.RemSchedule
	var lastReviewedAt sql.NullTime

	err := row.Scan(
		&schedule.UserID,
		&schedule.RemID,
		&schedule.Stability,
		&schedule.Difficulty,
		&schedule.Interval,
		&schedule.ReviewCount,
		&schedule.LapseCount,
		&lastReviewedAt,
		&schedule.NextReviewAt,
		&schedule.CreatedAt,
		&schedule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastReviewedAt.Valid {
		schedule.LastReviewedAt = lastReviewedAt.Time
	}
	return &schedule, nil
}

// timePtr converts a zero-able time to the optional form nullTime expects.
func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
