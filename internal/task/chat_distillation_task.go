package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/domain"
)

// Status constants for task implementations in this package.
// These match the TaskStatus values defined in task.go
const (
	statusPending    = "pending"
	statusProcessing = "processing"
	statusCompleted  = "completed"
	statusFailed     = "failed"
)

// Common errors
var (
	ErrNilChatService = errors.New("chat service cannot be nil")
	ErrNilGenerator   = errors.New("generator cannot be nil")
	ErrNilRemService  = errors.New("rem service cannot be nil")
	ErrNilLogger      = errors.New("logger cannot be nil")
	ErrEmptyChatID    = errors.New("chat ID cannot be empty")
)

// ChatService defines the interface for chat service operations.
// Declared here rather than importing the service package to keep the
// dependency direction service -> task.
type ChatService interface {
	// GetChat retrieves a chat by its ID
	GetChat(ctx context.Context, chatID uuid.UUID) (*domain.Chat, error)

	// UpdateChatStatus updates a chat's distillation status
	UpdateChatStatus(ctx context.Context, chatID uuid.UUID, status domain.ChatStatus) error
}

// Generator defines the interface for rem distillation services
type Generator interface {
	// DistillRems extracts durable knowledge from a chat transcript as rem drafts
	DistillRems(ctx context.Context, transcript string, userID uuid.UUID) ([]*domain.Rem, error)
}

// RemService defines the interface for rem service operations
type RemService interface {
	// CreateRems persists rem drafts, their review schedules, and their
	// knowledge-base files in a single transaction
	CreateRems(ctx context.Context, rems []*domain.Rem) error
}

// chatDistillationPayload represents the serialized data stored in the task
type chatDistillationPayload struct {
	ChatID uuid.UUID `json:"chat_id"`
}

// ChatDistillationTask implements the Task interface for distilling a chat
// transcript into rems
type ChatDistillationTask struct {
	id          uuid.UUID
	chatID      uuid.UUID
	chatService ChatService
	generator   Generator
	remService  RemService
	logger      *slog.Logger
	status      string
}

// NewChatDistillationTask creates a new chat distillation task
func NewChatDistillationTask(
	chatID uuid.UUID,
	chatService ChatService,
	generator Generator,
	remService RemService,
	logger *slog.Logger,
) (*ChatDistillationTask, error) {
	if chatService == nil {
		return nil, ErrNilChatService
	}
	if generator == nil {
		return nil, ErrNilGenerator
	}
	if remService == nil {
		return nil, ErrNilRemService
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if chatID == uuid.Nil {
		return nil, ErrEmptyChatID
	}

	return &ChatDistillationTask{
		id:          uuid.New(),
		chatID:      chatID,
		chatService: chatService,
		generator:   generator,
		remService:  remService,
		logger:      logger.With("task_type", TaskTypeChatDistillation, "chat_id", chatID),
		status:      statusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *ChatDistillationTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *ChatDistillationTask) Type() string {
	return TaskTypeChatDistillation
}

// Payload returns the task data as a byte slice
func (t *ChatDistillationTask) Payload() []byte {
	payload := chatDistillationPayload{
		ChatID: t.chatID,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}

	return data
}

// Status returns the current task status
func (t *ChatDistillationTask) Status() TaskStatus {
	return TaskStatus(t.status)
}

// Execute runs the chat distillation task: it fetches the chat, marks it
// processing, asks the generator for rem drafts, persists them, and records
// the final chat status. A chat that yields no rems still completes.
func (t *ChatDistillationTask) Execute(ctx context.Context) error {
	t.status = statusProcessing
	t.logger.Info("starting chat distillation task")

	if err := ctx.Err(); err != nil {
		t.status = statusFailed
		t.logger.Error("task cancelled by context", "error", err)
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	chat, err := t.chatService.GetChat(ctx, t.chatID)
	if err != nil {
		t.status = statusFailed
		t.logger.Error("failed to retrieve chat", "error", err)
		return fmt.Errorf("failed to retrieve chat: %w", err)
	}

	t.logger.Info("retrieved chat", "user_id", chat.UserID, "chat_status", chat.Status)

	err = t.chatService.UpdateChatStatus(ctx, t.chatID, domain.ChatStatusProcessing)
	if err != nil {
		t.status = statusFailed
		t.logger.Error("failed to update chat status to processing", "error", err)
		return fmt.Errorf("failed to update chat status to processing: %w", err)
	}

	t.logger.Info("distilling rems from chat transcript")
	rems, err := t.generator.DistillRems(ctx, chat.Transcript, chat.UserID)
	if err != nil {
		_ = t.chatService.UpdateChatStatus(ctx, t.chatID, domain.ChatStatusFailed)
		t.status = statusFailed
		t.logger.Error("failed to distill rems", "error", err)
		return fmt.Errorf("failed to distill rems: %w", err)
	}

	t.logger.Info("rems distilled", "count", len(rems))

	if len(rems) > 0 {
		if err := t.remService.CreateRems(ctx, rems); err != nil {
			_ = t.chatService.UpdateChatStatus(ctx, t.chatID, domain.ChatStatusFailed)
			t.status = statusFailed
			t.logger.Error("failed to save distilled rems", "error", err)
			return fmt.Errorf("failed to save distilled rems: %w", err)
		}
		t.logger.Info("saved distilled rems and schedules")
	} else {
		t.logger.Warn("chat distillation produced no rems")
	}

	err = t.chatService.UpdateChatStatus(ctx, t.chatID, domain.ChatStatusCompleted)
	if err != nil {
		// The rems are already saved; log and move on rather than failing the task.
		t.logger.Error("failed to update chat final status, but rems were saved",
			"error", err,
			"rems_created", len(rems))
	}

	t.status = statusCompleted
	t.logger.Info("chat distillation task completed successfully", "rems_created", len(rems))
	return nil
}
