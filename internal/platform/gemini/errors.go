package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrEmptyTranscript is returned when a chat transcript is empty.
	ErrEmptyTranscript = errors.New("chat transcript cannot be empty")
)
