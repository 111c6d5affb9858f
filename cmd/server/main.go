// Package main implements the entry point for the remvault server,
// which manages a markdown knowledge base of rems, their spaced-repetition
// review schedules, and LLM-backed distillation of archived chats.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/remvault/remvault/internal/config"
)

func main() {
	migrateCmd := flag.String("migrate", "", "Run database migrations (up, down, reset, status, version, create)")
	migrationName := flag.String("name", "", "Name for the new migration (used with -migrate=create)")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	verifyOnly := flag.Bool("verify-migrations", false, "Only verify migrations without applying them")
	validateMigrations := flag.Bool("validate-migrations", false, "Validate that all migrations have been applied")
	flag.Parse()

	cfg, err := loadAppConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := setupAppLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	// Migration commands run and exit without starting the server.
	if *migrateCmd != "" || *verifyOnly || *validateMigrations {
		if err := handleMigrations(cfg, *migrateCmd, *migrationName, *verbose, *verifyOnly, *validateMigrations); err != nil {
			logger.Error("Migration operation failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

// run wires the application together and blocks until shutdown.
func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	db, err := setupAppDatabase(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	app, err := newApplication(ctx, cfg, logger, db)
	if err != nil {
		// newApplication does not take ownership of the connection on failure.
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("Error closing database connection", "error", closeErr)
		}
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}
