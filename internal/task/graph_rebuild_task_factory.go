package task

import (
	"log/slog"

	"github.com/google/uuid"
)

// GraphRebuildTaskFactory creates GraphRebuildTask instances
type GraphRebuildTaskFactory struct {
	rebuilder GraphRebuilder
	logger    *slog.Logger
}

// NewGraphRebuildTaskFactory creates a new factory for GraphRebuildTasks
func NewGraphRebuildTaskFactory(
	rebuilder GraphRebuilder,
	logger *slog.Logger,
) *GraphRebuildTaskFactory {
	return &GraphRebuildTaskFactory{
		rebuilder: rebuilder,
		logger:    logger.With("component", "graph_rebuild_task_factory"),
	}
}

// CreateTask creates a new GraphRebuildTask for the specified user
func (f *GraphRebuildTaskFactory) CreateTask(userID uuid.UUID) (Task, error) {
	t, err := NewGraphRebuildTask(userID, f.rebuilder, f.logger)
	if err != nil {
		return nil, err
	}
	return t, nil
}
