package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/remvault/remvault/internal/api/shared"
	"github.com/remvault/remvault/internal/service"
	"github.com/remvault/remvault/internal/service/auth"
	"github.com/remvault/remvault/internal/service/review"
	"github.com/remvault/remvault/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, review.ErrRemNotOwned),
		errors.Is(err, service.ErrNotOwned):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrRemNotFound),
		errors.Is(err, store.ErrChatNotFound),
		errors.Is(err, store.ErrScheduleNotFound),
		errors.Is(err, review.ErrRemNotFound),
		errors.Is(err, review.ErrScheduleNotFound),
		errors.Is(err, service.ErrSlugNotInGraph):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrEmailExists),
		errors.Is(err, store.ErrSlugExists),
		errors.Is(err, service.ErrExportInProgress):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, review.ErrInvalidAnswer),
		errors.Is(err, review.ErrInvalidPostpone):
		return http.StatusBadRequest

	// Special cases
	case errors.Is(err, review.ErrNoRemsDue):
		return http.StatusNoContent

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid refresh token"

	// Authorization errors
	case errors.Is(err, review.ErrRemNotOwned),
		errors.Is(err, service.ErrNotOwned):
		return "You do not own this rem"

	// Not found errors
	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, store.ErrRemNotFound),
		errors.Is(err, review.ErrRemNotFound),
		errors.Is(err, service.ErrSlugNotInGraph):
		return "Rem not found"

	case errors.Is(err, store.ErrChatNotFound):
		return "Chat not found"

	case errors.Is(err, store.ErrScheduleNotFound),
		errors.Is(err, review.ErrScheduleNotFound):
		return "Review schedule not found"

	// Conflict errors
	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"

	case errors.Is(err, store.ErrSlugExists):
		return "A rem with this slug already exists"

	case errors.Is(err, service.ErrExportInProgress):
		return "An export is already in progress"

	// Bad request errors
	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	case errors.Is(err, review.ErrInvalidAnswer):
		return "Invalid answer"

	case errors.Is(err, review.ErrInvalidPostpone):
		return "Invalid postpone request"

	// No rems due is handled separately with StatusNoContent

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes an error response using the standard status code and
// message mapping. fallbackMessage overrides the mapped message for internal
// server errors so handlers can name the failed operation without exposing
// the underlying error.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallbackMessage string) {
	statusCode := MapErrorToStatusCode(err)
	if statusCode == http.StatusNoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	safeMessage := GetSafeErrorMessage(err)
	if statusCode == http.StatusInternalServerError && fallbackMessage != "" {
		safeMessage = fallbackMessage
	}

	shared.RespondWithErrorAndLog(w, r, statusCode, safeMessage, err)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Check if this is likely a validation error message
	if strings.Contains(errMsg, "Field validation") {
		// Extract the field name and validation tag
		// Example format: "Key: 'LoginRequest.Email' Error:Field validation for 'Email' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			// Further split to get just the field validation part
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				// Create a cleaner error message
				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	// Fall back to a generic validation error message
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
