package shared

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureDefaultLogger swaps slog's default logger for one writing into the
// returned builder, restoring the original when the test ends.
func captureDefaultLogger(t *testing.T) *strings.Builder {
	t.Helper()

	var buf strings.Builder
	old := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))
	t.Cleanup(func() { slog.SetDefault(old) })
	return &buf
}

func TestRespondWithJSON(t *testing.T) {
	t.Run("payload is encoded with status and content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/review/next", nil)
		w := httptest.NewRecorder()

		RespondWithJSON(w, req, http.StatusOK, map[string]interface{}{
			"slug":  "go/channels",
			"title": "Go channels",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "go/channels", body["slug"])
		assert.Equal(t, "Go channels", body["title"])
	})

	t.Run("nil payload encodes as null", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/review/next", nil)
		w := httptest.NewRecorder()

		RespondWithJSON(w, req, http.StatusOK, nil)

		assert.Equal(t, "null\n", w.Body.String())
	})

	t.Run("unencodable payload is logged", func(t *testing.T) {
		type cyclic struct {
			Self *cyclic
		}
		payload := &cyclic{}
		payload.Self = payload

		logBuf := captureDefaultLogger(t)
		req := httptest.NewRequest(http.MethodGet, "/api/review/next", nil)
		w := httptest.NewRecorder()

		RespondWithJSON(w, req, http.StatusOK, payload)

		// The status line is already written; all we can do is log.
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, logBuf.String(), "failed to encode JSON response")
	})
}

func TestRespondWithError(t *testing.T) {
	t.Run("trace ID from the request context is echoed", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), TraceIDKey, "trace-abc123")
		req := httptest.NewRequest(http.MethodGet, "/api/rems/go/channels", nil).WithContext(ctx)
		w := httptest.NewRecorder()

		RespondWithError(w, req, http.StatusNotFound, "Rem not found")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Rem not found", body.Error)
		assert.Equal(t, "trace-abc123", body.TraceID)
	})

	t.Run("missing trace ID stays empty", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/rems", nil)
		w := httptest.NewRecorder()

		RespondWithError(w, req, http.StatusUnauthorized, "Unauthorized")

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Unauthorized", body.Error)
		assert.Empty(t, body.TraceID)
	})
}

func TestRespondWithErrorAndLog(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		message  string
		err      error
		elevated bool
		logLevel string
	}{
		{
			name:     "server errors log at ERROR",
			status:   http.StatusInternalServerError,
			message:  "Failed to sync knowledge base",
			err:      errors.New("database connection failed"),
			logLevel: "ERROR",
		},
		{
			name:     "client errors log at DEBUG by default",
			status:   http.StatusBadRequest,
			message:  "Invalid review outcome",
			err:      errors.New("outcome must be one of again, hard, good, easy"),
			logLevel: "DEBUG",
		},
		{
			name:     "elevated client errors log at WARN",
			status:   http.StatusBadRequest,
			message:  "Repeated login failure",
			err:      errors.New("credential mismatch"),
			elevated: true,
			logLevel: "WARN",
		},
		{
			name:     "rate limiting always logs at WARN",
			status:   http.StatusTooManyRequests,
			message:  "Too many requests",
			err:      errors.New("rate limit exceeded"),
			logLevel: "WARN",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.WithValue(context.Background(), TraceIDKey, "trace-abc123")
			req := httptest.NewRequest(http.MethodGet, "/api/sync", nil).WithContext(ctx)
			w := httptest.NewRecorder()
			logBuf := captureDefaultLogger(t)

			if tc.elevated {
				RespondWithErrorAndLog(w, req, tc.status, tc.message, tc.err, WithElevatedLogLevel())
			} else {
				RespondWithErrorAndLog(w, req, tc.status, tc.message, tc.err)
			}

			assert.Equal(t, tc.status, w.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.message, body.Error)
			assert.Equal(t, "trace-abc123", body.TraceID)

			logOutput := logBuf.String()
			assert.Contains(t, logOutput, tc.logLevel)
			assert.Contains(t, logOutput, tc.message)
			assert.Contains(t, logOutput, "trace_id=trace-abc123")
			// Raw error text is redacted; only the error type survives.
			assert.Contains(t, logOutput, "error_type=")
		})
	}
}

func TestWithElevatedLogLevel(t *testing.T) {
	opts := responseOptions{}
	WithElevatedLogLevel()(&opts)
	assert.True(t, opts.elevateLogLevel)
}
