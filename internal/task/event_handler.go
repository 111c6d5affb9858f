package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/events"
)

// TaskFactory creates a concrete Task from an entity ID. Both the chat
// distillation and graph rebuild factories satisfy it.
type TaskFactory interface {
	CreateTask(id uuid.UUID) (Task, error)
}

// TaskSubmitter accepts tasks for background execution. Implemented by
// TaskRunner.
type TaskSubmitter interface {
	Submit(ctx context.Context, task Task) error
}

// TaskFactoryEventHandler implements the events.EventHandler interface.
// It maps task-request events to the factory registered for the event type,
// creates the task, and hands it to the runner.
type TaskFactoryEventHandler struct {
	factories map[string]TaskFactory
	runner    TaskSubmitter
	logger    *slog.Logger
}

// NewTaskFactoryEventHandler creates an event handler that dispatches events
// to per-type task factories and submits the resulting tasks to the runner.
func NewTaskFactoryEventHandler(
	runner TaskSubmitter,
	logger *slog.Logger,
) *TaskFactoryEventHandler {
	return &TaskFactoryEventHandler{
		factories: make(map[string]TaskFactory),
		runner:    runner,
		logger:    logger.With("component", "task_factory_event_handler"),
	}
}

// RegisterFactory associates an event type with a task factory. Registering
// the same type twice replaces the earlier factory.
func (h *TaskFactoryEventHandler) RegisterFactory(eventType string, factory TaskFactory) {
	h.factories[eventType] = factory
}

// HandleEvent processes a task-request event by creating and submitting the
// matching task. Events with no registered factory are ignored.
func (h *TaskFactoryEventHandler) HandleEvent(
	ctx context.Context,
	event *events.TaskRequestEvent,
) error {
	factory, ok := h.factories[event.Type]
	if !ok {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload struct {
		ChatID string `json:"chat_id"`
		UserID string `json:"user_id"`
	}
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	// Events carry exactly one entity ID; which field is set depends on the type.
	rawID := payload.ChatID
	if rawID == "" {
		rawID = payload.UserID
	}

	entityID, err := uuid.Parse(rawID)
	if err != nil {
		h.logger.Error("invalid entity ID in event payload",
			"error", err,
			"entity_id", rawID,
			"event_id", event.ID)
		return fmt.Errorf("invalid entity ID: %w", err)
	}

	newTask, err := factory.CreateTask(entityID)
	if err != nil {
		h.logger.Error("failed to create task",
			"error", err,
			"entity_id", entityID,
			"event_id", event.ID)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.runner.Submit(ctx, newTask); err != nil {
		h.logger.Error("failed to submit task",
			"error", err,
			"task_id", newTask.ID(),
			"event_id", event.ID)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.Info("task created and submitted successfully",
		"task_id", newTask.ID(),
		"task_type", newTask.Type(),
		"event_id", event.ID)
	return nil
}

// Ensure TaskFactoryEventHandler implements events.EventHandler
var _ events.EventHandler = (*TaskFactoryEventHandler)(nil)
