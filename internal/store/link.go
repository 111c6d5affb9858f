package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// Link is one directed edge in the knowledge graph, keyed by slug. The target
// is a slug rather than a rem ID because links may point at rems that do not
// exist yet; those show up as broken links in maintenance reports.
type Link struct {
	UserID   uuid.UUID
	FromSlug string
	ToSlug   string
}

// LinkStore defines the interface for knowledge-graph edge persistence.
type LinkStore interface {
	// ReplaceForSlug atomically replaces all outbound links of a source slug.
	// Call it with an empty targets slice to clear a rem's links.
	ReplaceForSlug(ctx context.Context, userID uuid.UUID, fromSlug string, toSlugs []string) error

	// Backlinks retrieves the source slugs that link to the given slug,
	// sorted ascending.
	Backlinks(ctx context.Context, userID uuid.UUID, slug string) ([]string, error)

	// ListByUser retrieves all of a user's links, sorted by source then target.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Link, error)

	// DeleteForSlug removes all outbound links of a source slug. Used when a
	// rem is tombstoned.
	DeleteForSlug(ctx context.Context, userID uuid.UUID, fromSlug string) error

	// WithTx returns a new LinkStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) LinkStore
}
