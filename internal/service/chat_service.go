package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/domain"
	"github.com/remvault/remvault/internal/events"
	"github.com/remvault/remvault/internal/kb"
	"github.com/remvault/remvault/internal/store"
	"github.com/remvault/remvault/internal/task"
)

// ChatService provides chat archival operations. Archiving a chat saves the
// transcript to the database and the knowledge-base tree, then requests
// asynchronous distillation of the transcript into rems.
type ChatService interface {
	// ArchiveChat saves a chat transcript and requests its distillation.
	// The returned chat has status pending; the distillation task moves it
	// through processing to completed or failed.
	ArchiveChat(ctx context.Context, userID uuid.UUID, title, transcript string) (*domain.Chat, error)

	// GetChat retrieves a chat by its ID.
	// Returns store.ErrChatNotFound if the chat does not exist.
	GetChat(ctx context.Context, chatID uuid.UUID) (*domain.Chat, error)

	// ListChats retrieves all of a user's archived chats, newest first.
	ListChats(ctx context.Context, userID uuid.UUID) ([]*domain.Chat, error)

	// UpdateChatStatus updates a chat's distillation status.
	// Returns store.ErrChatNotFound if the chat does not exist.
	UpdateChatStatus(ctx context.Context, chatID uuid.UUID, status domain.ChatStatus) error
}

// ChatServiceImpl implements the ChatService interface
type ChatServiceImpl struct {
	db        *sql.DB
	chatStore store.ChatStore
	emitter   events.EventEmitter
	chatsDir  string
	logger    *slog.Logger
}

// Verify interface compliance at compile time
var _ ChatService = (*ChatServiceImpl)(nil)

// chatDistillationRequestPayload is the event payload consumed by the task
// factory when a chat distillation is requested.
type chatDistillationRequestPayload struct {
	ChatID string `json:"chat_id"`
}

// NewChatService creates a new ChatService. chatsDir is the absolute
// directory where transcript files are written.
func NewChatService(
	db *sql.DB,
	chatStore store.ChatStore,
	emitter events.EventEmitter,
	chatsDir string,
	logger *slog.Logger,
) ChatService {
	if db == nil {
		panic("db cannot be nil")
	}
	if chatStore == nil {
		panic("chatStore cannot be nil")
	}
	if emitter == nil {
		panic("emitter cannot be nil")
	}
	if chatsDir == "" {
		panic("chatsDir cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ChatServiceImpl{
		db:        db,
		chatStore: chatStore,
		emitter:   emitter,
		chatsDir:  chatsDir,
		logger:    logger.With("component", "chat_service"),
	}
}

// ArchiveChat saves a chat transcript and requests its distillation.
func (s *ChatServiceImpl) ArchiveChat(
	ctx context.Context,
	userID uuid.UUID,
	title, transcript string,
) (*domain.Chat, error) {
	chat, err := domain.NewChat(userID, title, transcript)
	if err != nil {
		s.logger.Error("failed to create chat object",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to archive chat: %w", err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.chatStore.WithTx(tx).Create(ctx, chat); err != nil {
			return fmt.Errorf("failed to save chat: %w", err)
		}

		// The transcript file lives alongside the rems so the knowledge base
		// stays self-contained. A failed write rolls the chat row back.
		rendered, err := renderChatFile(chat)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(s.chatsDir, 0o755); err != nil {
			return fmt.Errorf("failed to create chats directory: %w", err)
		}
		if err := kb.AtomicWriteFile(s.chatPath(chat.ID), rendered); err != nil {
			return fmt.Errorf("failed to write transcript file: %w", err)
		}

		return nil
	})
	if err != nil {
		s.logger.Error("failed to archive chat",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to archive chat: %w", err)
	}

	// The chat is durably archived at this point. A failed event emission
	// leaves it pending; it can be re-requested rather than losing the chat.
	event, err := events.NewTaskRequestEvent(
		task.TaskTypeChatDistillation,
		chatDistillationRequestPayload{ChatID: chat.ID.String()},
	)
	if err != nil {
		s.logger.Error("failed to create distillation event",
			"error", err,
			"chat_id", chat.ID)
		return chat, nil
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		s.logger.Error("failed to emit distillation event",
			"error", err,
			"chat_id", chat.ID)
		return chat, nil
	}

	s.logger.Info("chat archived successfully",
		"user_id", userID,
		"chat_id", chat.ID)

	return chat, nil
}

// GetChat retrieves a chat by its ID.
func (s *ChatServiceImpl) GetChat(ctx context.Context, chatID uuid.UUID) (*domain.Chat, error) {
	chat, err := s.chatStore.GetByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, store.ErrChatNotFound) {
			s.logger.Debug("chat not found",
				"chat_id", chatID)
		} else {
			s.logger.Error("failed to retrieve chat",
				"error", err,
				"chat_id", chatID)
		}
		return nil, fmt.Errorf("failed to retrieve chat: %w", err)
	}
	return chat, nil
}

// ListChats retrieves all of a user's archived chats.
func (s *ChatServiceImpl) ListChats(ctx context.Context, userID uuid.UUID) ([]*domain.Chat, error) {
	chats, err := s.chatStore.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list chats",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	return chats, nil
}

// UpdateChatStatus updates a chat's distillation status.
func (s *ChatServiceImpl) UpdateChatStatus(
	ctx context.Context,
	chatID uuid.UUID,
	status domain.ChatStatus,
) error {
	if err := s.chatStore.UpdateStatus(ctx, chatID, status); err != nil {
		s.logger.Error("failed to update chat status",
			"error", err,
			"chat_id", chatID,
			"status", status)
		return fmt.Errorf("failed to update chat status: %w", err)
	}

	s.logger.Debug("chat status updated",
		"chat_id", chatID,
		"status", status)

	return nil
}

// chatPath resolves a chat ID to its transcript file path.
func (s *ChatServiceImpl) chatPath(chatID uuid.UUID) string {
	return filepath.Join(s.chatsDir, chatID.String()+".md")
}

// renderChatFile converts a chat into its markdown file representation. The
// chats directory is a dot-directory by default, so transcripts do not show
// up as rems during sync scans.
func renderChatFile(chat *domain.Chat) ([]byte, error) {
	file := &kb.File{
		Frontmatter: kb.Frontmatter{
			ID:    chat.ID.String(),
			Title: chat.Title,
		},
		Body: chat.Transcript,
	}

	rendered, err := file.Render()
	if err != nil {
		return nil, fmt.Errorf("failed to render transcript file: %w", err)
	}
	return rendered, nil
}
