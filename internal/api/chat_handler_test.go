package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/domain"
	"github.com/remvault/remvault/internal/service"
	"github.com/remvault/remvault/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubChatService implements service.ChatService with function fields.
type stubChatService struct {
	archiveChatFn      func(ctx context.Context, userID uuid.UUID, title, transcript string) (*domain.Chat, error)
	getChatFn          func(ctx context.Context, chatID uuid.UUID) (*domain.Chat, error)
	listChatsFn        func(ctx context.Context, userID uuid.UUID) ([]*domain.Chat, error)
	updateChatStatusFn func(ctx context.Context, chatID uuid.UUID, status domain.ChatStatus) error
}

func (s *stubChatService) ArchiveChat(ctx context.Context, userID uuid.UUID, title, transcript string) (*domain.Chat, error) {
	return s.archiveChatFn(ctx, userID, title, transcript)
}

func (s *stubChatService) GetChat(ctx context.Context, chatID uuid.UUID) (*domain.Chat, error) {
	return s.getChatFn(ctx, chatID)
}

func (s *stubChatService) ListChats(ctx context.Context, userID uuid.UUID) ([]*domain.Chat, error) {
	return s.listChatsFn(ctx, userID)
}

func (s *stubChatService) UpdateChatStatus(ctx context.Context, chatID uuid.UUID, status domain.ChatStatus) error {
	return s.updateChatStatusFn(ctx, chatID, status)
}

func newChatRouter(svc service.ChatService) chi.Router {
	h := NewChatHandler(svc, testLogger())
	r := chi.NewRouter()
	r.Post("/chats", h.ArchiveChat)
	r.Get("/chats", h.ListChats)
	r.Get("/chats/{id}", h.GetChat)
	return r
}

func newTestChat(t *testing.T, userID uuid.UUID, title string) *domain.Chat {
	t.Helper()
	chat, err := domain.NewChat(userID, title, "Transcript.")
	require.NoError(t, err)
	return chat
}

func TestChatHandler_ArchiveChat(t *testing.T) {
	userID := uuid.New()

	t.Run("archive responds 202 with pending status", func(t *testing.T) {
		chat := newTestChat(t, userID, "Designing the cache")
		svc := &stubChatService{
			archiveChatFn: func(ctx context.Context, gotUser uuid.UUID, title, transcript string) (*domain.Chat, error) {
				assert.Equal(t, userID, gotUser)
				assert.Equal(t, "Designing the cache", title)
				return chat, nil
			},
		}

		rec := httptest.NewRecorder()
		newChatRouter(svc).ServeHTTP(rec, authedRequest(t, http.MethodPost, "/chats", ArchiveChatRequest{
			Title:      "Designing the cache",
			Transcript: "Q: ...\nA: ...",
		}, userID))

		require.Equal(t, http.StatusAccepted, rec.Code)
		var resp ChatResponse
		decodeBody(t, rec, &resp)
		assert.Equal(t, chat.ID.String(), resp.ID)
		assert.Equal(t, "pending", resp.Status)
	})

	t.Run("empty transcript responds 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newChatRouter(&stubChatService{}).ServeHTTP(rec, authedRequest(t, http.MethodPost, "/chats", ArchiveChatRequest{
			Title: "No transcript",
		}, userID))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestChatHandler_GetChat(t *testing.T) {
	userID := uuid.New()
	chat := newTestChat(t, userID, "First")

	t.Run("own chat is returned", func(t *testing.T) {
		svc := &stubChatService{
			getChatFn: func(ctx context.Context, chatID uuid.UUID) (*domain.Chat, error) {
				return chat, nil
			},
		}

		rec := httptest.NewRecorder()
		newChatRouter(svc).ServeHTTP(rec,
			authedRequest(t, http.MethodGet, "/chats/"+chat.ID.String(), nil, userID))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp ChatResponse
		decodeBody(t, rec, &resp)
		assert.Equal(t, "First", resp.Title)
	})

	t.Run("another user's chat responds 404", func(t *testing.T) {
		svc := &stubChatService{
			getChatFn: func(ctx context.Context, chatID uuid.UUID) (*domain.Chat, error) {
				return chat, nil
			},
		}

		rec := httptest.NewRecorder()
		newChatRouter(svc).ServeHTTP(rec,
			authedRequest(t, http.MethodGet, "/chats/"+chat.ID.String(), nil, uuid.New()))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown chat responds 404", func(t *testing.T) {
		svc := &stubChatService{
			getChatFn: func(ctx context.Context, chatID uuid.UUID) (*domain.Chat, error) {
				return nil, store.ErrChatNotFound
			},
		}

		rec := httptest.NewRecorder()
		newChatRouter(svc).ServeHTTP(rec,
			authedRequest(t, http.MethodGet, "/chats/"+uuid.NewString(), nil, userID))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestChatHandler_ListChats(t *testing.T) {
	userID := uuid.New()
	svc := &stubChatService{
		listChatsFn: func(ctx context.Context, gotUser uuid.UUID) ([]*domain.Chat, error) {
			return []*domain.Chat{
				newTestChat(t, userID, "Newest"),
				newTestChat(t, userID, "Older"),
			}, nil
		},
	}

	rec := httptest.NewRecorder()
	newChatRouter(svc).ServeHTTP(rec, authedRequest(t, http.MethodGet, "/chats", nil, userID))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []ChatResponse
	decodeBody(t, rec, &resp)
	require.Len(t, resp, 2)
	assert.Equal(t, "Newest", resp[0].Title)
}
