package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/domain"
	"github.com/remvault/remvault/internal/graph"
	"github.com/remvault/remvault/internal/kb"
	"github.com/remvault/remvault/internal/store"
)

// ErrSlugNotInGraph indicates the requested slug has no rem in the catalog.
var ErrSlugNotInGraph = errors.New("slug not found in knowledge graph")

// GraphNodeView is the graph neighborhood of a single rem.
type GraphNodeView struct {
	Slug         string   `json:"slug"`
	Links        []string `json:"links"`
	Backlinks    []string `json:"backlinks"`
	Neighborhood []string `json:"neighborhood,omitempty"`
}

// GraphService answers knowledge-graph queries: a rem's outbound links, its
// backlinks, and its multi-hop neighborhood.
type GraphService interface {
	// Node returns the graph view of a rem: outbound links, backlinks, and
	// the slugs reachable within the given number of hops (0 skips the
	// neighborhood walk).
	// Returns ErrSlugNotInGraph if the user has no live rem at the slug.
	Node(ctx context.Context, userID uuid.UUID, slug string, hops int) (*GraphNodeView, error)

	// Backlinks returns the slugs of rems linking to the given slug, sorted.
	// Unlike Node, the target slug does not have to exist: backlinks of a
	// yet-unwritten rem show what would connect to it.
	Backlinks(ctx context.Context, userID uuid.UUID, slug string) ([]string, error)
}

// GraphServiceImpl implements the GraphService interface
type GraphServiceImpl struct {
	remStore  store.RemStore
	linkStore store.LinkStore
	logger    *slog.Logger
}

// Verify interface compliance at compile time
var _ GraphService = (*GraphServiceImpl)(nil)

// NewGraphService creates a new GraphService
func NewGraphService(
	remStore store.RemStore,
	linkStore store.LinkStore,
	logger *slog.Logger,
) GraphService {
	if remStore == nil {
		panic("remStore cannot be nil")
	}
	if linkStore == nil {
		panic("linkStore cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &GraphServiceImpl{
		remStore:  remStore,
		linkStore: linkStore,
		logger:    logger.With("component", "graph_service"),
	}
}

// Node returns the graph view of a rem.
func (s *GraphServiceImpl) Node(
	ctx context.Context,
	userID uuid.UUID,
	slug string,
	hops int,
) (*GraphNodeView, error) {
	rems, err := s.remStore.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list rems for graph query",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}

	index := buildIndex(rems)
	if !index.Contains(slug) {
		return nil, ErrSlugNotInGraph
	}

	view := &GraphNodeView{
		Slug:      slug,
		Links:     index.LinksOf(slug),
		Backlinks: index.BacklinksOf(slug),
	}
	if hops > 0 {
		view.Neighborhood = index.Neighborhood(slug, hops)
	}

	return view, nil
}

// Backlinks returns the slugs of rems linking to the given slug.
func (s *GraphServiceImpl) Backlinks(
	ctx context.Context,
	userID uuid.UUID,
	slug string,
) ([]string, error) {
	backlinks, err := s.linkStore.Backlinks(ctx, userID, slug)
	if err != nil {
		s.logger.Error("failed to query backlinks",
			"error", err,
			"user_id", userID,
			"slug", slug)
		return nil, fmt.Errorf("failed to query backlinks: %w", err)
	}
	return backlinks, nil
}

// buildIndex converts catalog rems into a computed link index.
func buildIndex(rems []*domain.Rem) *graph.Index {
	nodes := make([]*graph.Node, 0, len(rems))
	for _, rem := range rems {
		nodes = append(nodes, &graph.Node{
			Slug:    rem.Slug,
			Links:   kb.ExtractWikilinks(rem.Body),
			Related: rem.Related,
		})
	}
	return graph.Build(nodes)
}
