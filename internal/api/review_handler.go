package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/remvault/remvault/internal/api/shared"
	"github.com/remvault/remvault/internal/domain"
	"github.com/remvault/remvault/internal/platform/logger"
	"github.com/remvault/remvault/internal/redact"
	"github.com/remvault/remvault/internal/service/review"
)

// ReviewRemResponse is the payload returned for the next rem due for review.
type ReviewRemResponse struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	Tags         []string  `json:"tags,omitempty"`
	Body         string    `json:"body"`
	Related      []string  `json:"related,omitempty"`
	NextReviewAt time.Time `json:"next_review_at"`
	ReviewCount  int       `json:"review_count"`
}

// ScheduleResponse is the payload returned after a review mutation.
type ScheduleResponse struct {
	RemID          string     `json:"rem_id"`
	Stability      float64    `json:"stability"`
	Difficulty     float64    `json:"difficulty"`
	IntervalDays   int        `json:"interval_days"`
	ReviewCount    int        `json:"review_count"`
	LapseCount     int        `json:"lapse_count"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
	NextReviewAt   time.Time  `json:"next_review_at"`
}

// SubmitAnswerRequest is the request body for submitting a review answer.
type SubmitAnswerRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=again hard good easy"`
}

// PostponeRequest is the request body for postponing a review.
type PostponeRequest struct {
	Days int `json:"days" validate:"required,gte=1"`
}

// ReviewHandler handles review-related HTTP requests
type ReviewHandler struct {
	reviewService review.ReviewService
	logger        *slog.Logger
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(reviewService review.ReviewService, logger *slog.Logger) *ReviewHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ReviewHandler")
	}

	return &ReviewHandler{
		reviewService: reviewService,
		logger:        logger.With(slog.String("component", "review_handler")),
	}
}

// GetNextRem handles GET /review/next requests. It retrieves the rem whose
// review is due soonest for the authenticated user. Responds 204 when the
// review queue is empty.
func (h *ReviewHandler) GetNextRem(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		return
	}

	rem, schedule, err := h.reviewService.GetNextRem(r.Context(), userID)
	if errors.Is(err, review.ErrNoRemsDue) {
		log.Debug("no rems due for review", slog.String("user_id", userID.String()))
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get next review rem")
		return
	}

	log.Debug("retrieved next review rem",
		slog.String("user_id", userID.String()),
		slog.String("rem_id", rem.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusOK, reviewRemToResponse(rem, schedule))
}

// SubmitAnswer handles POST /review/{id}/answer requests. It grades the rem
// and reschedules it according to the review outcome.
func (h *ReviewHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		return
	}

	remID, ok := getPathUUID(w, r, "id")
	if !ok {
		return
	}

	var req SubmitAnswerRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", userID.String()),
			slog.String("rem_id", remID.String()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		log.Warn("validation error",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", userID.String()),
			slog.String("rem_id", remID.String()))
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Validation error", err)
		return
	}

	outcome := domain.ReviewOutcome(req.Outcome)
	schedule, err := h.reviewService.SubmitAnswer(
		r.Context(),
		userID,
		remID,
		review.ReviewAnswer{Outcome: outcome},
	)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit answer")
		return
	}

	log.Debug("successfully submitted answer",
		slog.String("user_id", userID.String()),
		slog.String("rem_id", remID.String()),
		slog.String("outcome", string(outcome)))
	shared.RespondWithJSON(w, r, http.StatusOK, scheduleToResponse(schedule))
}

// Postpone handles POST /review/{id}/postpone requests. It pushes the rem's
// next review out by the requested number of days without grading it.
func (h *ReviewHandler) Postpone(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		return
	}

	remID, ok := getPathUUID(w, r, "id")
	if !ok {
		return
	}

	var req PostponeRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", userID.String()),
			slog.String("rem_id", remID.String()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		log.Warn("validation error",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", userID.String()),
			slog.String("rem_id", remID.String()))
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Validation error", err)
		return
	}

	schedule, err := h.reviewService.Postpone(r.Context(), userID, remID, req.Days)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to postpone review")
		return
	}

	log.Debug("successfully postponed review",
		slog.String("user_id", userID.String()),
		slog.String("rem_id", remID.String()),
		slog.Int("days", req.Days))
	shared.RespondWithJSON(w, r, http.StatusOK, scheduleToResponse(schedule))
}

// reviewRemToResponse combines a rem and its schedule into the review payload
func reviewRemToResponse(rem *domain.Rem, schedule *domain.RemSchedule) ReviewRemResponse {
	return ReviewRemResponse{
		ID:           rem.ID.String(),
		Slug:         rem.Slug,
		Title:        rem.Title,
		Tags:         rem.Tags,
		Body:         rem.Body,
		Related:      rem.Related,
		NextReviewAt: schedule.NextReviewAt,
		ReviewCount:  schedule.ReviewCount,
	}
}

// scheduleToResponse converts a domain.RemSchedule to a ScheduleResponse
func scheduleToResponse(schedule *domain.RemSchedule) ScheduleResponse {
	resp := ScheduleResponse{
		RemID:        schedule.RemID.String(),
		Stability:    schedule.Stability,
		Difficulty:   schedule.Difficulty,
		IntervalDays: schedule.Interval,
		ReviewCount:  schedule.ReviewCount,
		LapseCount:   schedule.LapseCount,
		NextReviewAt: schedule.NextReviewAt,
	}
	if !schedule.LastReviewedAt.IsZero() {
		last := schedule.LastReviewedAt
		resp.LastReviewedAt = &last
	}
	return resp
}
