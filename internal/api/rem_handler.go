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

// RemResponse represents the response data for a rem
type RemResponse struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags,omitempty"`
	Source    string    `json:"source,omitempty"`
	Body      string    `json:"body"`
	Related   []string  `json:"related,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateRemRequest is the request body for creating a rem.
type CreateRemRequest struct {
	Slug    string   `json:"slug"    validate:"required"`
	Title   string   `json:"title"   validate:"required"`
	Tags    []string `json:"tags"`
	Source  string   `json:"source"`
	Body    string   `json:"body"    validate:"required"`
	Related []string `json:"related"`
}

// UpdateRemRequest is the request body for updating a rem. The slug comes
// from the URL path; everything else is replaced wholesale.
type UpdateRemRequest struct {
	Title   string   `json:"title" validate:"required"`
	Tags    []string `json:"tags"`
	Source  string   `json:"source"`
	Body    string   `json:"body"  validate:"required"`
	Related []string `json:"related"`
}

// RemHandler handles rem CRUD HTTP requests
type RemHandler struct {
	remService service.RemService
	logger     *slog.Logger
}

// NewRemHandler creates a new RemHandler
func NewRemHandler(remService service.RemService, logger *slog.Logger) *RemHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for RemHandler")
	}

	return &RemHandler{
		remService: remService,
		logger:     logger.With(slog.String("component", "rem_handler")),
	}
}

// CreateRem handles POST /rems requests.
func (h *RemHandler) CreateRem(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req CreateRemRequest
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

	rem, err := h.remService.CreateRem(r.Context(), userID, req.Slug, service.RemContent{
		Title:   req.Title,
		Tags:    req.Tags,
		Source:  req.Source,
		Body:    req.Body,
		Related: req.Related,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create rem")
		return
	}

	log.Debug("rem created",
		slog.String("user_id", userID.String()),
		slog.String("slug", rem.Slug))
	shared.RespondWithJSON(w, r, http.StatusCreated, remToResponse(rem))
}

// GetRem handles GET /rems/{slug} requests.
func (h *RemHandler) GetRem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	slug, ok := getPathSlug(w, r)
	if !ok {
		return
	}

	rem, err := h.remService.GetRem(r.Context(), userID, slug)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to retrieve rem")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, remToResponse(rem))
}

// ListRems handles GET /rems requests. Rems are returned sorted by slug.
func (h *RemHandler) ListRems(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	rems, err := h.remService.ListRems(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list rems")
		return
	}

	responses := make([]RemResponse, 0, len(rems))
	for _, rem := range rems {
		responses = append(responses, remToResponse(rem))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// UpdateRem handles PUT /rems/{slug} requests.
func (h *RemHandler) UpdateRem(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	slug, ok := getPathSlug(w, r)
	if !ok {
		return
	}

	var req UpdateRemRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", userID.String()),
			slog.String("slug", slug))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	rem, err := h.remService.UpdateRem(r.Context(), userID, slug, service.RemContent{
		Title:   req.Title,
		Tags:    req.Tags,
		Source:  req.Source,
		Body:    req.Body,
		Related: req.Related,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update rem")
		return
	}

	log.Debug("rem updated",
		slog.String("user_id", userID.String()),
		slog.String("slug", slug))
	shared.RespondWithJSON(w, r, http.StatusOK, remToResponse(rem))
}

// DeleteRem handles DELETE /rems/{slug} requests.
func (h *RemHandler) DeleteRem(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	slug, ok := getPathSlug(w, r)
	if !ok {
		return
	}

	if err := h.remService.DeleteRem(r.Context(), userID, slug); err != nil {
		HandleAPIError(w, r, err, "Failed to delete rem")
		return
	}

	log.Debug("rem deleted",
		slog.String("user_id", userID.String()),
		slog.String("slug", slug))
	w.WriteHeader(http.StatusNoContent)
}

// remToResponse converts a domain.Rem to a RemResponse
func remToResponse(rem *domain.Rem) RemResponse {
	return RemResponse{
		ID:        rem.ID.String(),
		Slug:      rem.Slug,
		Title:     rem.Title,
		Tags:      rem.Tags,
		Source:    rem.Source,
		Body:      rem.Body,
		Related:   rem.Related,
		CreatedAt: rem.CreatedAt,
		UpdatedAt: rem.UpdatedAt,
	}
}
