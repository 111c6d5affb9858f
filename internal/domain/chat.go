package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ChatStatus represents the processing state of an archived chat
type ChatStatus string

// Possible chat status values
const (
	ChatStatusPending             ChatStatus = "pending"
	ChatStatusProcessing          ChatStatus = "processing"
	ChatStatusCompleted           ChatStatus = "completed"
	ChatStatusCompletedWithErrors ChatStatus = "completed_with_errors"
	ChatStatusFailed              ChatStatus = "failed"
)

// Common validation errors for Chat
var (
	ErrEmptyChatID       = errors.New("chat ID cannot be empty")
	ErrEmptyChatUserID   = errors.New("chat user ID cannot be empty")
	ErrEmptyChatTitle    = errors.New("chat title cannot be empty")
	ErrEmptyTranscript   = errors.New("chat transcript cannot be empty")
	ErrInvalidChatStatus = errors.New("invalid chat status")
)

// Chat represents an archived conversation saved into the knowledge base.
// The transcript is the raw material the distillation pipeline turns into
// rems; the status tracks that pipeline's progress.
type Chat struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	Title      string     `json:"title"`
	Transcript string     `json:"transcript"`
	Status     ChatStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// NewChat creates a new Chat with the given user ID, title, and transcript.
// It generates a new UUID for the chat ID, sets the status to pending,
// and sets the creation/update timestamps.
// Returns an error if validation fails.
func NewChat(userID uuid.UUID, title, transcript string) (*Chat, error) {
	chat := &Chat{
		ID:         uuid.New(),
		UserID:     userID,
		Title:      title,
		Transcript: transcript,
		Status:     ChatStatusPending,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}

	if err := chat.Validate(); err != nil {
		return nil, err
	}

	return chat, nil
}

// Validate checks if the Chat has valid data.
// Returns an error if any field fails validation.
func (c *Chat) Validate() error {
	if c.ID == uuid.Nil {
		return ErrEmptyChatID
	}

	if c.UserID == uuid.Nil {
		return ErrEmptyChatUserID
	}

	if c.Title == "" {
		return ErrEmptyChatTitle
	}

	if c.Transcript == "" {
		return ErrEmptyTranscript
	}

	if !isValidChatStatus(c.Status) {
		return ErrInvalidChatStatus
	}

	return nil
}

// UpdateStatus updates the chat's status and updates the UpdatedAt timestamp.
// Returns an error if the new status is invalid.
func (c *Chat) UpdateStatus(status ChatStatus) error {
	if !isValidChatStatus(status) {
		return ErrInvalidChatStatus
	}

	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// isValidChatStatus checks if the given status is a valid ChatStatus.
func isValidChatStatus(status ChatStatus) bool {
	switch status {
	case ChatStatusPending, ChatStatusProcessing, ChatStatusCompleted,
		ChatStatusCompletedWithErrors, ChatStatusFailed:
		return true
	default:
		return false
	}
}
