package service_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/domain"
	"github.com/remvault/remvault/internal/kb"
	"github.com/remvault/remvault/internal/service"
	"github.com/remvault/remvault/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatServiceFixture struct {
	svc      service.ChatService
	chats    *fakeChatStore
	emitter  *recordingEmitter
	chatsDir string
}

func newChatServiceFixture(t *testing.T) *chatServiceFixture {
	t.Helper()

	chatsDir := filepath.Join(t.TempDir(), ".chats")
	chats := newFakeChatStore()
	emitter := &recordingEmitter{}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	svc := service.NewChatService(newTxDB(t), chats, emitter, chatsDir, logger)
	return &chatServiceFixture{svc: svc, chats: chats, emitter: emitter, chatsDir: chatsDir}
}

func TestChatService_ArchiveChat(t *testing.T) {
	userID := uuid.New()

	t.Run("saves chat, writes transcript, emits distillation request", func(t *testing.T) {
		fx := newChatServiceFixture(t)

		chat, err := fx.svc.ArchiveChat(context.Background(), userID, "Designing the cache", "Q: ...\nA: ...")
		require.NoError(t, err)
		require.NotNil(t, chat)
		assert.Equal(t, domain.ChatStatusPending, chat.Status)

		// Row is persisted.
		stored, err := fx.chats.GetByID(context.Background(), chat.ID)
		require.NoError(t, err)
		assert.Equal(t, "Designing the cache", stored.Title)

		// Transcript file landed in the chats directory.
		content, err := os.ReadFile(filepath.Join(fx.chatsDir, chat.ID.String()+".md"))
		require.NoError(t, err)
		parsed, err := kb.Parse(content)
		require.NoError(t, err)
		assert.Equal(t, "Designing the cache", parsed.Frontmatter.Title)
		assert.Equal(t, "Q: ...\nA: ...", parsed.Body)

		// A distillation request was emitted for this chat.
		require.Len(t, fx.emitter.events, 1)
		event := fx.emitter.events[0]
		assert.Equal(t, task.TaskTypeChatDistillation, event.Type)

		var payload struct {
			ChatID string `json:"chat_id"`
		}
		require.NoError(t, event.UnmarshalPayload(&payload))
		assert.Equal(t, chat.ID.String(), payload.ChatID)
	})

	t.Run("empty transcript is rejected", func(t *testing.T) {
		fx := newChatServiceFixture(t)

		_, err := fx.svc.ArchiveChat(context.Background(), userID, "Empty", "")
		require.Error(t, err)
		assert.Empty(t, fx.emitter.events)
	})

	t.Run("emit failure still archives the chat", func(t *testing.T) {
		fx := newChatServiceFixture(t)
		fx.emitter.err = assert.AnError

		chat, err := fx.svc.ArchiveChat(context.Background(), userID, "Unlucky", "Transcript.")
		require.NoError(t, err)

		stored, err := fx.chats.GetByID(context.Background(), chat.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ChatStatusPending, stored.Status)
	})
}

func TestChatService_StatusAndListing(t *testing.T) {
	userID := uuid.New()
	fx := newChatServiceFixture(t)

	chat, err := fx.svc.ArchiveChat(context.Background(), userID, "First", "Transcript one.")
	require.NoError(t, err)

	require.NoError(t, fx.svc.UpdateChatStatus(context.Background(), chat.ID, domain.ChatStatusProcessing))
	stored, err := fx.svc.GetChat(context.Background(), chat.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChatStatusProcessing, stored.Status)

	chats, err := fx.svc.ListChats(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, chat.ID, chats[0].ID)

	// Unknown chat surfaces a wrapped not-found.
	_, err = fx.svc.GetChat(context.Background(), uuid.New())
	assert.Error(t, err)
}
