package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Common errors for graph rebuild tasks
var (
	ErrNilGraphRebuilder = errors.New("graph rebuilder cannot be nil")
	ErrEmptyUserID       = errors.New("user ID cannot be empty")
)

// GraphRebuilder defines the interface for rebuilding a user's link index
type GraphRebuilder interface {
	// RebuildGraph recomputes the knowledge-graph edges for a user from the
	// current rem catalog and persists them
	RebuildGraph(ctx context.Context, userID uuid.UUID) error
}

// graphRebuildPayload represents the serialized data stored in the task
type graphRebuildPayload struct {
	UserID uuid.UUID `json:"user_id"`
}

// GraphRebuildTask implements the Task interface for rebuilding a user's
// knowledge-graph link index in the background
type GraphRebuildTask struct {
	id        uuid.UUID
	userID    uuid.UUID
	rebuilder GraphRebuilder
	logger    *slog.Logger
	status    string
}

// NewGraphRebuildTask creates a new graph rebuild task
func NewGraphRebuildTask(
	userID uuid.UUID,
	rebuilder GraphRebuilder,
	logger *slog.Logger,
) (*GraphRebuildTask, error) {
	if rebuilder == nil {
		return nil, ErrNilGraphRebuilder
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if userID == uuid.Nil {
		return nil, ErrEmptyUserID
	}

	return &GraphRebuildTask{
		id:        uuid.New(),
		userID:    userID,
		rebuilder: rebuilder,
		logger:    logger.With("task_type", TaskTypeGraphRebuild, "user_id", userID),
		status:    statusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *GraphRebuildTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *GraphRebuildTask) Type() string {
	return TaskTypeGraphRebuild
}

// Payload returns the task data as a byte slice
func (t *GraphRebuildTask) Payload() []byte {
	payload := graphRebuildPayload{
		UserID: t.userID,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}

	return data
}

// Status returns the current task status
func (t *GraphRebuildTask) Status() TaskStatus {
	return TaskStatus(t.status)
}

// Execute recomputes and persists the user's link index
func (t *GraphRebuildTask) Execute(ctx context.Context) error {
	t.status = statusProcessing
	t.logger.Info("starting graph rebuild task")

	if err := ctx.Err(); err != nil {
		t.status = statusFailed
		t.logger.Error("task cancelled by context", "error", err)
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	if err := t.rebuilder.RebuildGraph(ctx, t.userID); err != nil {
		t.status = statusFailed
		t.logger.Error("failed to rebuild graph", "error", err)
		return fmt.Errorf("failed to rebuild graph: %w", err)
	}

	t.status = statusCompleted
	t.logger.Info("graph rebuild task completed successfully")
	return nil
}
