package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/remvault/remvault/internal/api/shared"
	"github.com/remvault/remvault/internal/platform/logger"
	"github.com/remvault/remvault/internal/service"
)

// maxNeighborhoodHops caps the breadth-first walk so a query cannot traverse
// the whole graph one hop at a time.
const maxNeighborhoodHops = 5

// BacklinksResponse is the payload for a backlink query.
type BacklinksResponse struct {
	Slug      string   `json:"slug"`
	Backlinks []string `json:"backlinks"`
}

// GraphHandler handles knowledge-graph HTTP requests
type GraphHandler struct {
	graphService service.GraphService
	logger       *slog.Logger
}

// NewGraphHandler creates a new GraphHandler
func NewGraphHandler(graphService service.GraphService, logger *slog.Logger) *GraphHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for GraphHandler")
	}

	return &GraphHandler{
		graphService: graphService,
		logger:       logger.With(slog.String("component", "graph_handler")),
	}
}

// Node handles GET /graph/{slug} requests. The optional hops query parameter
// expands the response with the rem's multi-hop neighborhood.
func (h *GraphHandler) Node(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	slug, ok := getPathSlug(w, r)
	if !ok {
		return
	}

	hops := 0
	if raw := r.URL.Query().Get("hops"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 || parsed > maxNeighborhoodHops {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid hops parameter")
			return
		}
		hops = parsed
	}

	view, err := h.graphService.Node(r.Context(), userID, slug, hops)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to query graph")
		return
	}

	log.Debug("graph node queried",
		slog.String("user_id", userID.String()),
		slog.String("slug", slug),
		slog.Int("hops", hops))
	shared.RespondWithJSON(w, r, http.StatusOK, view)
}

// Backlinks handles GET /graph/backlinks/{slug} requests. The slug does not
// have to name an existing rem: backlinks of an unwritten rem show what
// would connect to it.
func (h *GraphHandler) Backlinks(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	slug, ok := getPathSlug(w, r)
	if !ok {
		return
	}

	backlinks, err := h.graphService.Backlinks(r.Context(), userID, slug)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to query backlinks")
		return
	}

	if backlinks == nil {
		backlinks = []string{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, BacklinksResponse{
		Slug:      slug,
		Backlinks: backlinks,
	})
}
