package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/remvault/remvault/internal/api/shared"
	"github.com/remvault/remvault/internal/domain"
	"github.com/remvault/remvault/internal/platform/logger"
	"github.com/remvault/remvault/internal/redact"
	"github.com/remvault/remvault/internal/service"
)

// ChatResponse represents the response data for an archived chat
type ChatResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ArchiveChatRequest is the request body for archiving a chat transcript.
type ArchiveChatRequest struct {
	Title      string `json:"title"      validate:"required"`
	Transcript string `json:"transcript" validate:"required"`
}

// ChatHandler handles chat archival HTTP requests
type ChatHandler struct {
	chatService service.ChatService
	logger      *slog.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(chatService service.ChatService, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ChatHandler")
	}

	return &ChatHandler{
		chatService: chatService,
		logger:      logger.With(slog.String("component", "chat_handler")),
	}
}

// ArchiveChat handles POST /chats requests. The chat is saved immediately;
// distillation into rems happens asynchronously, tracked by the chat status.
func (h *ChatHandler) ArchiveChat(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req ArchiveChatRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", userID.String()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	chat, err := h.chatService.ArchiveChat(r.Context(), userID, req.Title, req.Transcript)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to archive chat")
		return
	}

	log.Debug("chat archived",
		slog.String("user_id", userID.String()),
		slog.String("chat_id", chat.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusAccepted, chatToResponse(chat))
}

// GetChat handles GET /chats/{id} requests. Chats belonging to other users
// are reported as not found.
func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	chatID, ok := getPathUUID(w, r, "id")
	if !ok {
		return
	}

	chat, err := h.chatService.GetChat(r.Context(), chatID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to retrieve chat")
		return
	}

	if chat.UserID != userID {
		shared.RespondWithError(w, r, http.StatusNotFound, "Chat not found")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, chatToResponse(chat))
}

// ListChats handles GET /chats requests. Chats are returned newest first.
func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	chats, err := h.chatService.ListChats(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list chats")
		return
	}

	responses := make([]ChatResponse, 0, len(chats))
	for _, chat := range chats {
		responses = append(responses, chatToResponse(chat))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// chatToResponse converts a domain.Chat to a ChatResponse. The transcript is
// deliberately omitted from listings; it lives in the chats directory.
func chatToResponse(chat *domain.Chat) ChatResponse {
	return ChatResponse{
		ID:        chat.ID.String(),
		Title:     chat.Title,
		Status:    string(chat.Status),
		CreatedAt: chat.CreatedAt,
		UpdatedAt: chat.UpdatedAt,
	}
}
