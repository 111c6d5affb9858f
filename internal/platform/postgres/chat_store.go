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

// PostgresChatStore implements the store.ChatStore interface
// using a PostgreSQL database as the storage backend.
type PostgresChatStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresChatStore creates a new PostgreSQL implementation of the ChatStore interface.
// It accepts a database connection or transaction that should be initialized and managed
// by the caller. If logger is nil, a default logger will be used.
func NewPostgresChatStore(db store.DBTX, logger *slog.Logger) *PostgresChatStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresChatStore{
		db:     db,
		logger: logger.With(slog.String("component", "chat_store")),
	}
}

// Ensure PostgresChatStore implements store.ChatStore interface
var _ store.ChatStore = (*PostgresChatStore)(nil)

// WithTx implements store.ChatStore.WithTx
func (s *PostgresChatStore) WithTx(tx *sql.Tx) store.ChatStore {
	return &PostgresChatStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.ChatStore.Create
// Returns validation errors from the domain Chat if data is invalid.
// Returns store.ErrInvalidEntity if the user ID doesn't exist (foreign key violation).
func (s *PostgresChatStore) Create(ctx context.Context, chat *domain.Chat) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := chat.Validate(); err != nil {
		log.Warn("chat validation failed during create",
			slog.String("error", err.Error()),
			slog.String("chat_id", chat.ID.String()))
		return err
	}

	query := `
		INSERT INTO chats (id, user_id, title, transcript, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		chat.ID,
		chat.UserID,
		chat.Title,
		chat.Transcript,
		chat.Status,
		chat.CreatedAt,
		chat.UpdatedAt,
	)

	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during chat creation",
				slog.String("chat_id", chat.ID.String()),
				slog.String("user_id", chat.UserID.String()))
			return fmt.Errorf("%w: user with ID %s not found",
				store.ErrInvalidEntity, chat.UserID)
		}

		log.Error("failed to create chat",
			slog.String("error", err.Error()),
			slog.String("chat_id", chat.ID.String()),
			slog.String("user_id", chat.UserID.String()))
		return err
	}

	log.Info("chat created successfully",
		slog.String("chat_id", chat.ID.String()),
		slog.String("user_id", chat.UserID.String()),
		slog.String("status", string(chat.Status)))
	return nil
}

// GetByID implements store.ChatStore.GetByID
// Returns store.ErrChatNotFound if the chat does not exist.
func (s *PostgresChatStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, title, transcript, status, created_at, updated_at
		FROM chats
		WHERE id = $1
	`

	var chat domain.Chat
	var status string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&chat.ID,
		&chat.UserID,
		&chat.Title,
		&chat.Transcript,
		&status,
		&chat.CreatedAt,
		&chat.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("chat not found", slog.String("chat_id", id.String()))
			return nil, store.ErrChatNotFound
		}
		log.Error("failed to get chat by ID",
			slog.String("error", err.Error()),
			slog.String("chat_id", id.String()))
		return nil, err
	}

	chat.Status = domain.ChatStatus(status)
	return &chat, nil
}

// ListByUser implements store.ChatStore.ListByUser
func (s *PostgresChatStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.Chat, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, title, transcript, status, created_at, updated_at
		FROM chats
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Error("failed to list chats",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	chats := []*domain.Chat{}
	for rows.Next() {
		var chat domain.Chat
		var status string

		err := rows.Scan(
			&chat.ID,
			&chat.UserID,
			&chat.Title,
			&chat.Transcript,
			&status,
			&chat.CreatedAt,
			&chat.UpdatedAt,
		)
		if err != nil {
			log.Error("failed to scan chat row",
				slog.String("error", err.Error()))
			return nil, err
		}

		chat.Status = domain.ChatStatus(status)
		chats = append(chats, &chat)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	log.Debug("listed chats",
		slog.String("user_id", userID.String()),
		slog.Int("count", len(chats)))
	return chats, nil
}

// UpdateStatus implements store.ChatStore.UpdateStatus
// Returns store.ErrChatNotFound if the chat does not exist.
// Returns domain.ErrInvalidChatStatus if the status is not a known value.
func (s *PostgresChatStore) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.ChatStatus,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Validate the status transition target before touching the database.
	tempChat := &domain.Chat{
		ID:         id,
		UserID:     uuid.New(),
		Title:      "temp",
		Transcript: "temp",
		Status:     status,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	if err := tempChat.Validate(); err != nil {
		log.Warn("chat validation failed during status update",
			slog.String("error", err.Error()),
			slog.String("chat_id", id.String()),
			slog.String("status", string(status)))
		return err
	}

	query := `
		UPDATE chats
		SET status = $1, updated_at = $2
		WHERE id = $3
	`
	result, err := s.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update chat status",
			slog.String("error", err.Error()),
			slog.String("chat_id", id.String()),
			slog.String("status", string(status)))
		return err
	}

	if err := CheckRowsAffected(result, "chat"); err != nil {
		log.Debug("chat not found for status update",
			slog.String("chat_id", id.String()))
		return store.ErrChatNotFound
	}

	log.Info("chat status updated successfully",
		slog.String("chat_id", id.String()),
		slog.String("status", string(status)))
	return nil
}
