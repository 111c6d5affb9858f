package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewRem(t *testing.T) {
	userID := uuid.New()

	rem, err := NewRem(userID, "math/bayes-theorem", "Bayes' Theorem", "P(A|B) = P(B|A)P(A)/P(B)")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rem.ID == uuid.Nil {
		t.Error("Expected non-nil UUID")
	}
	if rem.UserID != userID {
		t.Errorf("Expected user ID %s, got %s", userID, rem.UserID)
	}
	if rem.Slug != "math/bayes-theorem" {
		t.Errorf("Expected slug math/bayes-theorem, got %s", rem.Slug)
	}
	if rem.CreatedAt.IsZero() || rem.UpdatedAt.IsZero() {
		t.Error("Expected non-zero timestamps")
	}
	if rem.IsDeleted() {
		t.Error("New rem must not be deleted")
	}
}

func TestRemValidate(t *testing.T) {
	userID := uuid.New()

	testCases := []struct {
		name    string
		slug    string
		title   string
		body    string
		wantErr error
	}{
		{"valid flat slug", "bayes-theorem", "Bayes", "body", nil},
		{"valid nested slug", "math/prob/bayes", "Bayes", "body", nil},
		{"empty slug", "", "Bayes", "body", ErrRemSlugEmpty},
		{"slug with spaces", "bayes theorem", "Bayes", "body", ErrRemSlugInvalid},
		{"slug with uppercase", "Bayes", "Bayes", "body", ErrRemSlugInvalid},
		{"slug with leading slash", "/bayes", "Bayes", "body", ErrRemSlugInvalid},
		{"slug with trailing slash", "bayes/", "Bayes", "body", ErrRemSlugInvalid},
		{"empty title", "bayes", "", "body", ErrRemTitleEmpty},
		{"empty body", "bayes", "Bayes", "", ErrRemBodyEmpty},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRem(userID, tc.slug, tc.title, tc.body)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("NewRem(%q, %q, ...) error = %v, want %v", tc.slug, tc.title, err, tc.wantErr)
			}
		})
	}
}

func TestRemIsDeleted(t *testing.T) {
	rem, err := NewRem(uuid.New(), "bayes", "Bayes", "body")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	now := time.Now().UTC()
	rem.DeletedAt = &now
	if !rem.IsDeleted() {
		t.Error("Expected rem with DeletedAt to be deleted")
	}
}
