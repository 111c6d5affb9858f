package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/api/shared"
	"github.com/remvault/remvault/internal/domain"
	"github.com/stretchr/testify/require"
)

// testLogger discards everything below error level to keep test output quiet.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// authedRequest builds a request carrying the given user ID in its context,
// mimicking what the auth middleware does for real traffic.
func authedRequest(t *testing.T, method, target string, body any, userID uuid.UUID) *http.Request {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if userID != uuid.Nil {
		ctx := context.WithValue(req.Context(), shared.UserIDContextKey, userID)
		req = req.WithContext(ctx)
	}
	return req
}

// decodeBody unmarshals a recorded JSON response body.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

// testRem builds a rem for handler fixtures.
func testRem(t *testing.T, userID uuid.UUID, slug, title, body string) *domain.Rem {
	t.Helper()
	rem, err := domain.NewRem(userID, slug, title, body)
	require.NoError(t, err)
	return rem
}

// testSchedule builds a schedule due at the given time.
func testSchedule(t *testing.T, userID, remID uuid.UUID, nextReview time.Time) *domain.RemSchedule {
	t.Helper()
	schedule, err := domain.NewRemSchedule(userID, remID)
	require.NoError(t, err)
	schedule.NextReviewAt = nextReview
	return schedule
}
