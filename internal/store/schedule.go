package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/domain"
)

// ScheduleStore defines the interface for review schedule persistence.
type ScheduleStore interface {
	// Create saves a new review schedule for a (user, rem) pair.
	// Returns validation errors from the domain RemSchedule if data is invalid.
	Create(ctx context.Context, schedule *domain.RemSchedule) error

	// Get retrieves the schedule for a (user, rem) pair.
	// Returns ErrScheduleNotFound if no schedule exists.
	Get(ctx context.Context, userID, remID uuid.UUID) (*domain.RemSchedule, error)

	// GetForUpdate retrieves the schedule for a (user, rem) pair with a row
	// lock (SELECT ... FOR UPDATE). It MUST be called within a transaction;
	// the lock guards against two concurrent answers to the same rem.
	// Returns ErrScheduleNotFound if no schedule exists.
	GetForUpdate(ctx context.Context, userID, remID uuid.UUID) (*domain.RemSchedule, error)

	// Update persists new scheduler state after a review.
	// Returns ErrScheduleNotFound if no schedule exists.
	Update(ctx context.Context, schedule *domain.RemSchedule) error

	// GetNextDue retrieves the schedule with the earliest next_review_at that
	// is not after now, for a rem that is not tombstoned. Ties break on
	// next_review_at then rem ID so the order is stable.
	// Returns ErrScheduleNotFound if nothing is due.
	GetNextDue(ctx context.Context, userID uuid.UUID, now time.Time) (*domain.RemSchedule, error)

	// CountDue returns how many of a user's rems are due at the given time.
	CountDue(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)

	// ListByUser retrieves all of a user's schedules, ordered by next_review_at.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.RemSchedule, error)

	// Delete removes the schedule for a (user, rem) pair. Used when a rem is
	// tombstoned so it stops appearing in the review queue.
	// Returns ErrScheduleNotFound if no schedule exists.
	Delete(ctx context.Context, userID, remID uuid.UUID) error

	// WithTx returns a new ScheduleStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) ScheduleStore
}

// ReviewLogStore defines the interface for the append-only review history.
type ReviewLogStore interface {
	// Append records a completed review. Logs are immutable once written.
	Append(ctx context.Context, log *domain.ReviewLog) error

	// ListByRem retrieves a rem's review history for a user, oldest first.
	ListByRem(ctx context.Context, userID, remID uuid.UUID) ([]*domain.ReviewLog, error)

	// WithTx returns a new ReviewLogStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ReviewLogStore
}
