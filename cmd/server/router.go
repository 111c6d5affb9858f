package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/remvault/remvault/internal/api"
	apiMiddleware "github.com/remvault/remvault/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware. Returns the configured router.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(apiMiddleware.TraceMiddleware)

	// Create API handlers using the application's services
	authHandler := api.NewAuthHandler(app.userStore, app.jwtService, app.passwordVerifier)
	reviewHandler := api.NewReviewHandler(app.reviewService, app.logger)
	remHandler := api.NewRemHandler(app.remService, app.logger)
	chatHandler := api.NewChatHandler(app.chatService, app.logger)
	graphHandler := api.NewGraphHandler(app.graphService, app.logger)
	systemHandler := api.NewSystemHandler(
		app.syncService,
		app.maintenanceService,
		app.exportService,
		app.logger,
	)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	// Register routes
	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Review queue endpoints
			r.Get("/review/next", reviewHandler.GetNextRem)
			r.Post("/review/{id}/answer", reviewHandler.SubmitAnswer)
			r.Post("/review/{id}/postpone", reviewHandler.Postpone)

			// Rem management endpoints. Slugs are hierarchical paths, so the
			// item routes use a wildcard rather than a named URL parameter.
			r.Post("/rems", remHandler.CreateRem)
			r.Get("/rems", remHandler.ListRems)
			r.Get("/rems/*", remHandler.GetRem)
			r.Put("/rems/*", remHandler.UpdateRem)
			r.Delete("/rems/*", remHandler.DeleteRem)

			// Chat archival endpoints
			r.Post("/chats", chatHandler.ArchiveChat)
			r.Get("/chats", chatHandler.ListChats)
			r.Get("/chats/{id}", chatHandler.GetChat)

			// Knowledge-graph endpoints. The backlinks route must be mounted
			// before the node wildcard or it would never match.
			r.Get("/graph/backlinks/*", graphHandler.Backlinks)
			r.Get("/graph/*", graphHandler.Node)

			// Knowledge-base system endpoints
			r.Post("/sync", systemHandler.Sync)
			r.Get("/maintenance/report", systemHandler.MaintenanceReport)
			r.Post("/export", systemHandler.Export)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
