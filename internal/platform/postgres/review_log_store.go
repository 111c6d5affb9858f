package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/domain"
	"github.com/remvault/remvault/internal/platform/logger"
	"github.com/remvault/remvault/internal/store"
)

// PostgresReviewLogStore implements the store.ReviewLogStore interface
// using a PostgreSQL database as the storage backend.
type PostgresReviewLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReviewLogStore creates a new PostgreSQL implementation of the
// ReviewLogStore interface. If logger is nil, a default logger will be used.
func NewPostgresReviewLogStore(db store.DBTX, logger *slog.Logger) *PostgresReviewLogStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresReviewLogStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_log_store")),
	}
}

// Ensure PostgresReviewLogStore implements store.ReviewLogStore interface
var _ store.ReviewLogStore = (*PostgresReviewLogStore)(nil)

// WithTx implements store.ReviewLogStore.WithTx
func (s *PostgresReviewLogStore) WithTx(tx *sql.Tx) store.ReviewLogStore {
	return &PostgresReviewLogStore{
		db:     tx,
		logger: s.logger,
	}
}

// Append implements store.ReviewLogStore.Append
// Returns store.ErrInvalidEntity if the user or rem doesn't exist (foreign key violation).
func (s *PostgresReviewLogStore) Append(ctx context.Context, reviewLog *domain.ReviewLog) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := reviewLog.Validate(); err != nil {
		log.Warn("review log validation failed during append",
			slog.String("error", err.Error()),
			slog.String("rem_id", reviewLog.RemID.String()))
		return err
	}

	query := `
		INSERT INTO review_logs
			(id, user_id, rem_id, outcome, stability, difficulty, interval_days, reviewed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		reviewLog.ID,
		reviewLog.UserID,
		reviewLog.RemID,
		reviewLog.Outcome,
		reviewLog.Stability,
		reviewLog.Difficulty,
		reviewLog.IntervalDays,
		reviewLog.ReviewedAt,
	)

	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during review log append",
				slog.String("rem_id", reviewLog.RemID.String()),
				slog.String("user_id", reviewLog.UserID.String()))
			return fmt.Errorf("%w: user or rem not found", store.ErrInvalidEntity)
		}

		log.Error("failed to append review log",
			slog.String("error", err.Error()),
			slog.String("rem_id", reviewLog.RemID.String()))
		return err
	}

	log.Debug("review log appended",
		slog.String("rem_id", reviewLog.RemID.String()),
		slog.String("outcome", string(reviewLog.Outcome)))
	return nil
}

// ListByRem implements store.ReviewLogStore.ListByRem
func (s *PostgresReviewLogStore) ListByRem(
	ctx context.Context,
	userID, remID uuid.UUID,
) ([]*domain.ReviewLog, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, rem_id, outcome, stability, difficulty, interval_days, reviewed_at
		FROM review_logs
		WHERE user_id = $1 AND rem_id = $2
		ORDER BY reviewed_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID, remID)
	if err != nil {
		log.Error("failed to list review logs",
			slog.String("error", err.Error()),
			slog.String("rem_id", remID.String()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	logs := []*domain.ReviewLog{}
	for rows.Next() {
		var entry domain.ReviewLog
		var outcome string

		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.RemID,
			&outcome,
			&entry.Stability,
			&entry.Difficulty,
			&entry.IntervalDays,
			&entry.ReviewedAt,
		)
		if err != nil {
			log.Error("failed to scan review log row",
				slog.String("error", err.Error()))
			return nil, err
		}

		entry.Outcome = domain.ReviewOutcome(outcome)
		logs = append(logs, &entry)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	return logs, nil
}
