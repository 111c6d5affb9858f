package task

import (
	"log/slog"

	"github.com/google/uuid"
)

// ChatDistillationTaskFactory creates ChatDistillationTask instances
type ChatDistillationTaskFactory struct {
	chatService ChatService
	generator   Generator
	remService  RemService
	logger      *slog.Logger
}

// NewChatDistillationTaskFactory creates a new factory for ChatDistillationTasks
func NewChatDistillationTaskFactory(
	chatService ChatService,
	generator Generator,
	remService RemService,
	logger *slog.Logger,
) *ChatDistillationTaskFactory {
	return &ChatDistillationTaskFactory{
		chatService: chatService,
		generator:   generator,
		remService:  remService,
		logger:      logger.With("component", "chat_distillation_task_factory"),
	}
}

// CreateTask creates a new ChatDistillationTask for the specified chat
func (f *ChatDistillationTaskFactory) CreateTask(chatID uuid.UUID) (Task, error) {
	t, err := NewChatDistillationTask(
		chatID,
		f.chatService,
		f.generator,
		f.remService,
		f.logger,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}
