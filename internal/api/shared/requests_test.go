package shared

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createRemBody struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

func TestDecodeJSON(t *testing.T) {
	t.Run("valid body populates the target", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/rems",
			strings.NewReader(`{"slug": "go/channels", "title": "Go channels"}`))

		var body createRemBody
		require.NoError(t, DecodeJSON(req, &body))
		assert.Equal(t, "go/channels", body.Slug)
		assert.Equal(t, "Go channels", body.Title)
	})

	t.Run("malformed body is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/rems",
			strings.NewReader(`{"slug": "go/channels",}`))

		var body createRemBody
		err := DecodeJSON(req, &body)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid character")
	})

	t.Run("empty body is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/rems", strings.NewReader(""))

		var body createRemBody
		err := DecodeJSON(req, &body)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "EOF")
	})

	t.Run("body read failure surfaces", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/rems", failingReader{})

		var body createRemBody
		err := DecodeJSON(req, &body)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected EOF")
	})
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}

// answerBody carries its own validation, like the review answer request.
type answerBody struct {
	Outcome string `validate:"required"`
}

func (b *answerBody) Validate() error {
	switch b.Outcome {
	case "again", "hard", "good", "easy":
		return nil
	}
	return assert.AnError
}

func TestValidateRequest(t *testing.T) {
	t.Run("custom Validate method is preferred", func(t *testing.T) {
		assert.NoError(t, ValidateRequest(&answerBody{Outcome: "good"}))
		assert.Error(t, ValidateRequest(&answerBody{Outcome: "perfect"}))
	})

	t.Run("tag validation applies otherwise", func(t *testing.T) {
		type taggedBody struct {
			Email string `validate:"required,email"`
		}
		assert.NoError(t, ValidateRequest(&taggedBody{Email: "maya@remvault.dev"}))
		assert.Error(t, ValidateRequest(&taggedBody{Email: "not-an-email"}))
	})
}
