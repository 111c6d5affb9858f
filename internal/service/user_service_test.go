package service_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/domain"
	"github.com/remvault/remvault/internal/mocks"
	"github.com/remvault/remvault/internal/service"
	"github.com/remvault/remvault/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// newUserService wires a UserService to a mocked store and a sqlmock database
// so transaction begin/commit/rollback can be asserted.
func newUserService(
	t *testing.T,
	userStore store.UserStore,
) (service.UserService, sqlmock.Sqlmock) {
	t.Helper()

	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return service.NewUserService(userStore, db, logger), dbMock
}

func TestUserService_UpdateUserEmail(t *testing.T) {
	// Setup
	userID := uuid.New()
	email := "user@example.com"
	newEmail := "new@example.com"
	hashedPassword := "hashed_password123"

	t.Run("successful update", func(t *testing.T) {
		mockUserStore := new(mocks.TestifyMockUserStore)

		// Create an existing user object as the store would return it
		existingUser := &domain.User{
			ID:             userID,
			Email:          email,
			HashedPassword: hashedPassword,
			CreatedAt:      time.Now().Add(-24 * time.Hour),
			UpdatedAt:      time.Now().Add(-24 * time.Hour),
		}

		// Setup expectations
		mockUserStore.On("WithTx", mock.Anything).Return(mockUserStore)
		mockUserStore.On("GetByID", mock.Anything, userID).Return(existingUser, nil)

		// Verify that Update is called with the complete user object
		mockUserStore.On("Update", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.ID == userID &&
				u.Email == newEmail &&
				u.HashedPassword == hashedPassword &&
				u.CreatedAt.Equal(existingUser.CreatedAt)
		})).Return(nil)

		userService, dbMock := newUserService(t, mockUserStore)
		dbMock.ExpectBegin()
		dbMock.ExpectCommit()

		// Test the UpdateUserEmail method
		err := userService.UpdateUserEmail(context.Background(), userID, newEmail)

		// Assertions
		require.NoError(t, err)
		mockUserStore.AssertExpectations(t)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("user not found", func(t *testing.T) {
		mockUserStore := new(mocks.TestifyMockUserStore)

		// Setup expectations
		mockUserStore.On("WithTx", mock.Anything).Return(mockUserStore)
		mockUserStore.On("GetByID", mock.Anything, userID).Return(nil, store.ErrUserNotFound)

		userService, dbMock := newUserService(t, mockUserStore)
		dbMock.ExpectBegin()
		dbMock.ExpectRollback()

		// Test the UpdateUserEmail method
		err := userService.UpdateUserEmail(context.Background(), userID, newEmail)

		// Assertions
		require.Error(t, err)
		assert.True(t, errors.Is(err, store.ErrUserNotFound))
		mockUserStore.AssertExpectations(t)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("email already exists", func(t *testing.T) {
		mockUserStore := new(mocks.TestifyMockUserStore)

		// Create an existing user object
		existingUser := &domain.User{
			ID:             userID,
			Email:          email,
			HashedPassword: hashedPassword,
			CreatedAt:      time.Now().Add(-24 * time.Hour),
			UpdatedAt:      time.Now().Add(-24 * time.Hour),
		}

		// Setup expectations
		mockUserStore.On("WithTx", mock.Anything).Return(mockUserStore)
		mockUserStore.On("GetByID", mock.Anything, userID).Return(existingUser, nil)
		mockUserStore.On("Update", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.ID == userID &&
				u.Email == newEmail &&
				u.HashedPassword == hashedPassword
		})).Return(store.ErrEmailExists)

		userService, dbMock := newUserService(t, mockUserStore)
		dbMock.ExpectBegin()
		dbMock.ExpectRollback()

		// Test the UpdateUserEmail method
		err := userService.UpdateUserEmail(context.Background(), userID, newEmail)

		// Assertions
		require.Error(t, err)
		assert.True(t, errors.Is(err, store.ErrEmailExists))
		mockUserStore.AssertExpectations(t)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})
}

func TestUserService_UpdateUserPassword(t *testing.T) {
	// Setup
	userID := uuid.New()
	email := "user@example.com"
	hashedPassword := "hashed_password123"
	newPassword := "NewPassword123!"

	t.Run("successful update", func(t *testing.T) {
		mockUserStore := new(mocks.TestifyMockUserStore)

		// Create an existing user object
		existingUser := &domain.User{
			ID:             userID,
			Email:          email,
			HashedPassword: hashedPassword,
			CreatedAt:      time.Now().Add(-24 * time.Hour),
			UpdatedAt:      time.Now().Add(-24 * time.Hour),
		}

		// Setup expectations
		mockUserStore.On("WithTx", mock.Anything).Return(mockUserStore)
		mockUserStore.On("GetByID", mock.Anything, userID).Return(existingUser, nil)

		// Verify that Update is called with the complete user object including the new password
		mockUserStore.On("Update", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.ID == userID &&
				u.Email == email &&
				u.Password == newPassword && // New password is set
				u.HashedPassword == hashedPassword && // Original password hash is preserved
				u.CreatedAt.Equal(existingUser.CreatedAt)
		})).Return(nil)

		userService, dbMock := newUserService(t, mockUserStore)
		dbMock.ExpectBegin()
		dbMock.ExpectCommit()

		// Test the UpdateUserPassword method
		err := userService.UpdateUserPassword(context.Background(), userID, newPassword)

		// Assertions
		require.NoError(t, err)
		mockUserStore.AssertExpectations(t)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("user not found", func(t *testing.T) {
		mockUserStore := new(mocks.TestifyMockUserStore)

		// Setup expectations
		mockUserStore.On("WithTx", mock.Anything).Return(mockUserStore)
		mockUserStore.On("GetByID", mock.Anything, userID).Return(nil, store.ErrUserNotFound)

		userService, dbMock := newUserService(t, mockUserStore)
		dbMock.ExpectBegin()
		dbMock.ExpectRollback()

		// Test the UpdateUserPassword method
		err := userService.UpdateUserPassword(context.Background(), userID, newPassword)

		// Assertions
		require.Error(t, err)
		assert.True(t, errors.Is(err, store.ErrUserNotFound))
		mockUserStore.AssertExpectations(t)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("invalid password", func(t *testing.T) {
		mockUserStore := new(mocks.TestifyMockUserStore)

		// Create an existing user object
		existingUser := &domain.User{
			ID:             userID,
			Email:          email,
			HashedPassword: hashedPassword,
			CreatedAt:      time.Now().Add(-24 * time.Hour),
			UpdatedAt:      time.Now().Add(-24 * time.Hour),
		}

		// Setup expectations
		mockUserStore.On("WithTx", mock.Anything).Return(mockUserStore)
		mockUserStore.On("GetByID", mock.Anything, userID).Return(existingUser, nil)
		mockUserStore.On("Update", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.ID == userID &&
				u.Password == "short" // Too short password
		})).Return(store.ErrInvalidEntity)

		userService, dbMock := newUserService(t, mockUserStore)
		dbMock.ExpectBegin()
		dbMock.ExpectRollback()

		// Test the UpdateUserPassword method with invalid password
		err := userService.UpdateUserPassword(context.Background(), userID, "short")

		// Assertions
		require.Error(t, err)
		assert.True(t, errors.Is(err, store.ErrInvalidEntity))
		mockUserStore.AssertExpectations(t)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})
}
