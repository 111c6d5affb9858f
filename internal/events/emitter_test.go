package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRebuildEvent(t *testing.T) *TaskRequestEvent {
	t.Helper()
	event, err := NewTaskRequestEvent("graph_rebuild", map[string]string{"user_id": "u1"})
	require.NoError(t, err)
	return event
}

func TestInMemoryEventEmitter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("no registered handlers is not an error", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		assert.NoError(t, emitter.EmitEvent(context.Background(), newRebuildEvent(t)))
	})

	t.Run("every handler receives the event", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		first := &captureHandler{}
		second := &captureHandler{}
		emitter.RegisterHandler(first)
		emitter.RegisterHandler(second)

		event := newRebuildEvent(t)
		require.NoError(t, emitter.EmitEvent(context.Background(), event))

		require.Len(t, first.received, 1)
		require.Len(t, second.received, 1)
		assert.Equal(t, event, first.received[0])
		assert.Equal(t, event, second.received[0])
	})

	t.Run("failing handler does not starve the others", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		failing := &captureHandler{err: errors.New("handler down")}
		healthy := &captureHandler{}
		emitter.RegisterHandler(failing)
		emitter.RegisterHandler(healthy)

		err := emitter.EmitEvent(context.Background(), newRebuildEvent(t))
		require.Error(t, err)
		assert.Equal(t, "handler down", err.Error())

		// Dispatch continues past the failure; the first error wins.
		assert.Len(t, failing.received, 1)
		assert.Len(t, healthy.received, 1)
	})
}
