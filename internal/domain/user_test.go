package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestNewUser(t *testing.T) {
	validEmail := "test@example.com"
	validPassword := "correct-horse-battery"

	user, err := NewUser(validEmail, validPassword)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if user.ID == uuid.Nil {
		t.Error("Expected non-nil UUID")
	}
	if user.Email != validEmail {
		t.Errorf("Expected email %s, got %s", validEmail, user.Email)
	}
	if user.Password != validPassword {
		t.Errorf("Expected plaintext password to be carried for hashing, got %q", user.Password)
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Error("Expected non-zero timestamps")
	}
}

func TestNewUserValidation(t *testing.T) {
	validPassword := "correct-horse-battery"

	if _, err := NewUser("", validPassword); !errors.Is(err, ErrEmptyEmail) {
		t.Errorf("Expected ErrEmptyEmail, got %v", err)
	}
	if _, err := NewUser("invalidemail", validPassword); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("Expected ErrInvalidEmail, got %v", err)
	}
	if _, err := NewUser("a@b", validPassword); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("Expected ErrInvalidEmail for missing domain dot, got %v", err)
	}
	if _, err := NewUser("test@example.com", "short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("Expected ErrPasswordTooShort, got %v", err)
	}

	long := make([]byte, 80)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := NewUser("test@example.com", string(long)); !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("Expected ErrPasswordTooLong, got %v", err)
	}
}

func TestUserValidateHashedOnly(t *testing.T) {
	// Users loaded from the store carry only the hash.
	user := &User{
		ID:             uuid.New(),
		Email:          "test@example.com",
		HashedPassword: "$2a$10$abcdefghijklmnopqrstuv",
	}
	if err := user.Validate(); err != nil {
		t.Errorf("Expected stored user to validate, got %v", err)
	}

	user.HashedPassword = ""
	if err := user.Validate(); !errors.Is(err, ErrEmptyPassword) {
		t.Errorf("Expected ErrEmptyPassword, got %v", err)
	}
}
