package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/remvault/remvault/internal/config"
	"github.com/remvault/remvault/internal/domain/srs"
	"github.com/remvault/remvault/internal/events"
	"github.com/remvault/remvault/internal/generation"
	"github.com/remvault/remvault/internal/kb"
	"github.com/remvault/remvault/internal/platform/gemini"
	"github.com/remvault/remvault/internal/platform/postgres"
	"github.com/remvault/remvault/internal/service"
	"github.com/remvault/remvault/internal/service/auth"
	"github.com/remvault/remvault/internal/service/review"
	"github.com/remvault/remvault/internal/store"
	"github.com/remvault/remvault/internal/task"
	"github.com/remvault/remvault/internal/watch"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	userStore     store.UserStore
	remStore      store.RemStore
	scheduleStore store.ScheduleStore
	reviewLogs    store.ReviewLogStore
	chatStore     store.ChatStore
	linkStore     store.LinkStore
	taskStore     task.TaskStore

	// Service interfaces
	jwtService         auth.JWTService
	passwordVerifier   auth.PasswordVerifier
	generator          generation.Generator
	srsService         srs.Service
	remService         service.RemService
	chatService        service.ChatService
	syncService        service.SyncService
	graphService       service.GraphService
	maintenanceService service.MaintenanceService
	exportService      service.ExportService
	reviewService      review.ReviewService

	// Event system
	eventEmitter events.EventEmitter

	// Task handling
	taskRunner *task.TaskRunner

	// Filesystem watcher (nil unless kb.watch_enabled)
	watcher *watch.Watcher
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger, and
// database connection that must be established before application
// initialization.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	// Initialize JWT service
	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	// Initialize password verifier
	app.passwordVerifier = auth.NewBcryptVerifier()

	// Initialize stores
	app.userStore = postgres.NewPostgresUserStore(db, cfg.Auth.BCryptCost, logger)
	app.remStore = postgres.NewPostgresRemStore(db, logger)
	app.scheduleStore = postgres.NewPostgresScheduleStore(db, logger)
	app.reviewLogs = postgres.NewPostgresReviewLogStore(db, logger)
	app.chatStore = postgres.NewPostgresChatStore(db, logger)
	app.linkStore = postgres.NewPostgresLinkStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)

	// Create the LLM distillation service
	app.generator, err = gemini.NewGeminiGenerator(
		ctx,
		logger.With("component", "llm_generator"),
		cfg.LLM,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM generator: %w", err)
	}
	logger.Info("LLM distillation generator initialized", "model", cfg.LLM.ModelName)

	// Initialize task runner
	app.taskRunner, err = setupTaskRunner(app)
	if err != nil {
		return nil, fmt.Errorf("failed to setup task runner: %w", err)
	}

	// Initialize event emitter
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)

	// Initialize SRS scheduler
	app.srsService = setupSRSService(cfg)

	// Knowledge-base filesystem helpers share the configured root.
	kbRoot := cfg.KB.Root
	writer := kb.NewWriter(kbRoot)
	scanner := kb.NewScanner(kbRoot)

	// Initialize domain services
	app.reviewService = review.NewReviewService(
		db,
		app.remStore,
		app.scheduleStore,
		app.reviewLogs,
		app.srsService,
		logger,
	)

	app.remService = service.NewRemService(
		db,
		app.remStore,
		app.scheduleStore,
		app.linkStore,
		writer,
		logger,
	)

	app.chatService = service.NewChatService(
		db,
		app.chatStore,
		app.eventEmitter,
		resolveKBDir(kbRoot, cfg.KB.ChatsDir, "chats"),
		logger,
	)

	app.syncService = service.NewSyncService(
		db,
		scanner,
		app.remStore,
		app.scheduleStore,
		app.linkStore,
		app.eventEmitter,
		logger,
	)

	app.graphService = service.NewGraphService(app.remStore, app.linkStore, logger)
	app.maintenanceService = service.NewMaintenanceService(
		app.remStore,
		app.scheduleStore,
		time.Duration(cfg.KB.StaleRemDays)*24*time.Hour,
		logger,
	)

	app.exportService = service.NewExportService(
		app.remStore,
		app.scheduleStore,
		app.linkStore,
		resolveKBDir(kbRoot, cfg.KB.ExportDir, ".review"),
		logger,
	)

	// Create task factories and register them with the event handler so that
	// emitted task-request events turn into background work.
	distillationFactory := task.NewChatDistillationTaskFactory(
		app.chatService,
		app.generator,
		app.remService,
		logger,
	)
	rebuildFactory := task.NewGraphRebuildTaskFactory(app.syncService, logger)

	eventHandler := task.NewTaskFactoryEventHandler(app.taskRunner, logger)
	eventHandler.RegisterFactory(task.TaskTypeChatDistillation, distillationFactory)
	eventHandler.RegisterFactory(task.TaskTypeGraphRebuild, rebuildFactory)

	if emitter, ok := app.eventEmitter.(*events.InMemoryEventEmitter); ok {
		emitter.RegisterHandler(eventHandler)
	} else {
		return nil, fmt.Errorf("unexpected event emitter type, cannot register task handler")
	}

	// Optional filesystem watcher re-syncs the knowledge base on file
	// changes. The on-disk tree belongs to exactly one account, so the
	// watcher needs the owner's identity to know whose catalog to sync.
	if cfg.KB.WatchEnabled {
		if cfg.KB.OwnerEmail == "" {
			return nil, fmt.Errorf("kb.owner_email is required when kb.watch_enabled is set")
		}
		owner, err := app.userStore.GetByEmail(ctx, cfg.KB.OwnerEmail)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve kb owner %q: %w", cfg.KB.OwnerEmail, err)
		}

		app.watcher, err = watch.NewWatcher(kbRoot, func(ctx context.Context) error {
			_, syncErr := app.syncService.Sync(ctx, owner.ID)
			return syncErr
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize kb watcher: %w", err)
		}
		if err := app.watcher.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start kb watcher: %w", err)
		}
		logger.Info("Knowledge-base watcher started", "root", kbRoot, "owner", cfg.KB.OwnerEmail)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// setupSRSService builds the FSRS scheduler, applying configured parameter
// overrides when present.
func setupSRSService(cfg *config.Config) srs.Service {
	params, err := srs.NewParams(srs.ParamsConfig{
		DesiredRetention:   cfg.SRS.DesiredRetention,
		MinIntervalDays:    cfg.SRS.MinIntervalDays,
		MaxIntervalDays:    cfg.SRS.MaxIntervalDays,
		AgainReviewMinutes: cfg.SRS.AgainReviewMinutes,
	})
	if err != nil {
		// Invalid overrides fall back to the reference parameters.
		return srs.NewDefaultService()
	}
	return srs.NewServiceWithParams(params)
}

// taskRunnerConfig translates the minute-based task settings into the
// runner's duration-based config.
func taskRunnerConfig(cfg config.TaskConfig) task.TaskRunnerConfig {
	return task.TaskRunnerConfig{
		QueueSize:              cfg.QueueSize,
		WorkerCount:            cfg.WorkerCount,
		StuckTaskAge:           time.Duration(cfg.StuckTaskAgeMinutes) * time.Minute,
		StuckTaskCheckInterval: time.Duration(cfg.StuckTaskCheckMinutes) * time.Minute,
	}
}

// setupTaskRunner initializes and starts the background task processor.
func setupTaskRunner(app *application) (*task.TaskRunner, error) {
	taskRunner := task.NewTaskRunner(app.taskStore, taskRunnerConfig(app.config.Task), app.logger)

	if err := taskRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}

	return taskRunner, nil
}

// resolveKBDir resolves a configured knowledge-base subdirectory against the
// KB root, falling back to a default subdirectory name when unset. Absolute
// paths are used as-is.
func resolveKBDir(root, configured, fallback string) string {
	dir := configured
	if dir == "" {
		dir = fallback
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(root, dir)
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	// Stop filesystem watcher
	if app.watcher != nil {
		app.watcher.Stop()
	}

	// Stop task runner
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	// Close database connection
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
