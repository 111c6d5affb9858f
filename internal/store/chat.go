package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/domain"
)

// ChatStore defines the interface for chat transcript persistence.
type ChatStore interface {
	// Create saves a new chat to the store.
	// Returns validation errors from the domain Chat if data is invalid.
	Create(ctx context.Context, chat *domain.Chat) error

	// GetByID retrieves a chat by its unique ID.
	// Returns ErrChatNotFound if the chat does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error)

	// ListByUser retrieves all of a user's chats, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Chat, error)

	// UpdateStatus changes a chat's distillation status.
	// Returns ErrChatNotFound if the chat does not exist.
	// Returns domain validation errors if the status is invalid.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ChatStatus) error

	// WithTx returns a new ChatStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) ChatStore
}
