package generation

import (
	"context"

	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/domain"
)

// Generator defines the interface for distilling an archived chat transcript
// into rem drafts. Implementations call an external LLM service; the returned
// rems carry slug, title, tags, and body but are not yet persisted.
type Generator interface {
	// DistillRems extracts durable knowledge from a chat transcript and
	// returns it as rem drafts owned by the given user. An empty slice with a
	// nil error means the transcript contained nothing worth keeping.
	DistillRems(ctx context.Context, transcript string, userID uuid.UUID) ([]*domain.Rem, error)
}
