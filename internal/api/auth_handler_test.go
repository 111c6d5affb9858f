package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/domain"
	"github.com/remvault/remvault/internal/mocks"
	"github.com/remvault/remvault/internal/service/auth"
	"github.com/remvault/remvault/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthHandler(userStore store.UserStore, jwtService auth.JWTService, verifier auth.PasswordVerifier) *AuthHandler {
	return NewAuthHandler(userStore, jwtService, verifier)
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestAuthHandler_Register(t *testing.T) {
	t.Run("valid registration returns a token pair", func(t *testing.T) {
		userStore := mocks.NewMockUserStore()
		jwtService := &mocks.MockJWTService{Token: "access-token", RefreshToken: "refresh-token"}
		handler := newAuthHandler(userStore, jwtService, &mocks.MockPasswordVerifier{})

		rec := postJSON(t, handler.Register, "/auth/register", RegisterRequest{
			Email:    "user@example.com",
			Password: "correct horse battery staple",
		})

		require.Equal(t, http.StatusCreated, rec.Code)
		var resp AuthResponse
		decodeBody(t, rec, &resp)
		assert.Equal(t, "access-token", resp.AccessToken)
		assert.Equal(t, "refresh-token", resp.RefreshToken)
		assert.NotEqual(t, uuid.Nil, resp.UserID)

		// The user landed in the store.
		_, err := userStore.GetByEmail(context.Background(), "user@example.com")
		assert.NoError(t, err)
	})

	t.Run("duplicate email responds 409", func(t *testing.T) {
		userStore := mocks.NewMockUserStore()
		userStore.CreateError = store.ErrEmailExists
		handler := newAuthHandler(userStore, &mocks.MockJWTService{}, &mocks.MockPasswordVerifier{})

		rec := postJSON(t, handler.Register, "/auth/register", RegisterRequest{
			Email:    "taken@example.com",
			Password: "correct horse battery staple",
		})

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("short password responds 400", func(t *testing.T) {
		handler := newAuthHandler(mocks.NewMockUserStore(), &mocks.MockJWTService{}, &mocks.MockPasswordVerifier{})

		rec := postJSON(t, handler.Register, "/auth/register", RegisterRequest{
			Email:    "user@example.com",
			Password: "short",
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	userID := uuid.New()

	makeUserStore := func() *mocks.MockUserStore {
		userStore := mocks.NewMockUserStore()
		userStore.GetByEmailFn = func(ctx context.Context, email string) (*domain.User, error) {
			if email != "user@example.com" {
				return nil, store.ErrUserNotFound
			}
			return &domain.User{
				ID:             userID,
				Email:          email,
				HashedPassword: "$2a$10$hash",
			}, nil
		}
		return userStore
	}

	t.Run("valid credentials return a token pair", func(t *testing.T) {
		jwtService := &mocks.MockJWTService{Token: "access-token", RefreshToken: "refresh-token"}
		handler := newAuthHandler(makeUserStore(), jwtService, &mocks.MockPasswordVerifier{ShouldSucceed: true})

		rec := postJSON(t, handler.Login, "/auth/login", LoginRequest{
			Email:    "user@example.com",
			Password: "correct horse battery staple",
		})

		require.Equal(t, http.StatusOK, rec.Code)
		var resp AuthResponse
		decodeBody(t, rec, &resp)
		assert.Equal(t, userID, resp.UserID)
		assert.Equal(t, "access-token", resp.AccessToken)
		assert.Equal(t, "refresh-token", resp.RefreshToken)
	})

	t.Run("wrong password responds 401", func(t *testing.T) {
		handler := newAuthHandler(makeUserStore(), &mocks.MockJWTService{}, &mocks.MockPasswordVerifier{ShouldSucceed: false})

		rec := postJSON(t, handler.Login, "/auth/login", LoginRequest{
			Email:    "user@example.com",
			Password: "wrong password entirely",
		})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown email responds 401, not 404", func(t *testing.T) {
		handler := newAuthHandler(makeUserStore(), &mocks.MockJWTService{}, &mocks.MockPasswordVerifier{ShouldSucceed: true})

		rec := postJSON(t, handler.Login, "/auth/login", LoginRequest{
			Email:    "nobody@example.com",
			Password: "correct horse battery staple",
		})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthHandler_RefreshToken(t *testing.T) {
	userID := uuid.New()

	t.Run("valid refresh token issues a fresh pair", func(t *testing.T) {
		jwtService := &mocks.MockJWTService{
			Token:        "new-access",
			RefreshToken: "new-refresh",
			ValidateRefreshTokenFn: func(ctx context.Context, tokenString string) (*auth.Claims, error) {
				assert.Equal(t, "old-refresh", tokenString)
				return &auth.Claims{UserID: userID, TokenType: "refresh"}, nil
			},
		}
		handler := newAuthHandler(mocks.NewMockUserStore(), jwtService, &mocks.MockPasswordVerifier{})

		rec := postJSON(t, handler.RefreshToken, "/auth/refresh", RefreshTokenRequest{
			RefreshToken: "old-refresh",
		})

		require.Equal(t, http.StatusOK, rec.Code)
		var resp RefreshTokenResponse
		decodeBody(t, rec, &resp)
		assert.Equal(t, "new-access", resp.AccessToken)
		assert.Equal(t, "new-refresh", resp.RefreshToken)
	})

	t.Run("expired refresh token responds 401", func(t *testing.T) {
		jwtService := &mocks.MockJWTService{
			ValidateRefreshTokenFn: func(ctx context.Context, tokenString string) (*auth.Claims, error) {
				return nil, auth.ErrExpiredRefreshToken
			},
		}
		handler := newAuthHandler(mocks.NewMockUserStore(), jwtService, &mocks.MockPasswordVerifier{})

		rec := postJSON(t, handler.RefreshToken, "/auth/refresh", RefreshTokenRequest{
			RefreshToken: "expired",
		})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("access token presented as refresh token responds 401", func(t *testing.T) {
		jwtService := &mocks.MockJWTService{
			ValidateRefreshTokenFn: func(ctx context.Context, tokenString string) (*auth.Claims, error) {
				return nil, auth.ErrWrongTokenType
			},
		}
		handler := newAuthHandler(mocks.NewMockUserStore(), jwtService, &mocks.MockPasswordVerifier{})

		rec := postJSON(t, handler.RefreshToken, "/auth/refresh", RefreshTokenRequest{
			RefreshToken: "access-token",
		})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing refresh token responds 400", func(t *testing.T) {
		handler := newAuthHandler(mocks.NewMockUserStore(), &mocks.MockJWTService{}, &mocks.MockPasswordVerifier{})

		rec := postJSON(t, handler.RefreshToken, "/auth/refresh", RefreshTokenRequest{})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
