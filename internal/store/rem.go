package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/domain"
)

// RemStore defines the interface for rem data persistence.
type RemStore interface {
	// Create saves a new rem to the store.
	// Returns ErrSlugExists if the user already has a rem with the same slug.
	// Returns validation errors from the domain Rem if data is invalid.
	Create(ctx context.Context, rem *domain.Rem) error

	// GetByID retrieves a rem by its unique ID.
	// Returns ErrRemNotFound if the rem does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Rem, error)

	// GetBySlug retrieves a user's rem by its slug.
	// Returns ErrRemNotFound if the rem does not exist or is deleted.
	GetBySlug(ctx context.Context, userID uuid.UUID, slug string) (*domain.Rem, error)

	// ListByUser retrieves all of a user's rems, excluding tombstoned ones,
	// ordered by slug.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Rem, error)

	// Update modifies an existing rem. The caller provides the complete rem;
	// UpdatedAt is set by the store.
	// Returns ErrRemNotFound if the rem does not exist.
	Update(ctx context.Context, rem *domain.Rem) error

	// Delete tombstones a rem by setting its deleted_at timestamp. The row is
	// kept so review history and sync can still refer to it.
	// Returns ErrRemNotFound if the rem does not exist or is already deleted.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new RemStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) RemStore
}
