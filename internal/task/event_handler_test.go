package task

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remvault/remvault/internal/events"
)

// recordingSubmitter captures submitted tasks instead of running them.
type recordingSubmitter struct {
	tasks []Task
}

func (r *recordingSubmitter) Submit(ctx context.Context, task Task) error {
	r.tasks = append(r.tasks, task)
	return nil
}

// fakeRebuilder records which user's graph rebuild was requested.
type fakeRebuilder struct {
	userIDs []uuid.UUID
}

func (f *fakeRebuilder) RebuildGraph(ctx context.Context, userID uuid.UUID) error {
	f.userIDs = append(f.userIDs, userID)
	return nil
}

func newHandlerLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestTaskFactoryEventHandler_GraphRebuildEvent(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	submitter := &recordingSubmitter{}
	rebuilder := &fakeRebuilder{}
	logger := newHandlerLogger()

	handler := NewTaskFactoryEventHandler(submitter, logger)
	handler.RegisterFactory(TaskTypeGraphRebuild, NewGraphRebuildTaskFactory(rebuilder, logger))

	event, err := events.NewTaskRequestEvent(
		TaskTypeGraphRebuild,
		map[string]string{"user_id": userID.String()},
	)
	require.NoError(t, err)

	require.NoError(t, handler.HandleEvent(context.Background(), event))

	// The event turned into exactly one rebuild task for the right user.
	require.Len(t, submitter.tasks, 1)
	submitted := submitter.tasks[0]
	assert.Equal(t, TaskTypeGraphRebuild, submitted.Type())

	require.NoError(t, submitted.Execute(context.Background()))
	assert.Equal(t, []uuid.UUID{userID}, rebuilder.userIDs)
}

func TestTaskFactoryEventHandler_UnregisteredTypeIgnored(t *testing.T) {
	t.Parallel()

	submitter := &recordingSubmitter{}
	handler := NewTaskFactoryEventHandler(submitter, newHandlerLogger())

	event, err := events.NewTaskRequestEvent(
		"unknown_type",
		map[string]string{"user_id": uuid.New().String()},
	)
	require.NoError(t, err)

	require.NoError(t, handler.HandleEvent(context.Background(), event))
	assert.Empty(t, submitter.tasks)
}

func TestTaskFactoryEventHandler_InvalidEntityID(t *testing.T) {
	t.Parallel()

	submitter := &recordingSubmitter{}
	rebuilder := &fakeRebuilder{}
	logger := newHandlerLogger()

	handler := NewTaskFactoryEventHandler(submitter, logger)
	handler.RegisterFactory(TaskTypeGraphRebuild, NewGraphRebuildTaskFactory(rebuilder, logger))

	event, err := events.NewTaskRequestEvent(
		TaskTypeGraphRebuild,
		map[string]string{"user_id": "not-a-uuid"},
	)
	require.NoError(t, err)

	err = handler.HandleEvent(context.Background(), event)
	assert.Error(t, err)
	assert.Empty(t, submitter.tasks)
}
