package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/remvault/remvault/internal/config"
)

// executeMigration runs one goose command against the configured database.
// Every log line carries a correlation ID so a full migration run can be
// traced through mixed CI output.
func executeMigration(cfg *config.Config, command string, verbose bool, args ...string) error {
	logger := slog.Default().With(
		"correlation_id", uuid.New().String(),
		"component", "migrations",
		"command", command,
	)

	started := time.Now()
	logger.Info("Starting migration operation",
		"operation", fmt.Sprintf("goose %s", command),
		"verbose", verbose,
		"mode", getExecutionMode())

	goose.SetLogger(&slogGooseLogger{})

	dbURL := cfg.Database.URL
	if testDBURL := GetTestDatabaseURL(); testDBURL != "" {
		logger.Info("Using standardized test database URL",
			"source", "GetTestDatabaseURL")
		dbURL = testDBURL
	}
	if dbURL == "" {
		logger.Error("Database URL is empty",
			"error", "missing configuration",
			"resolution", "check DATABASE_URL environment variable or config file")
		return fmt.Errorf("database URL is empty: check your configuration")
	}

	logger.Info("Using database URL",
		"url", maskDatabaseURL(dbURL),
		"source", detectDatabaseURLSource(dbURL),
		"host", extractHostFromURL(dbURL))

	db, err := openMigrationDB(dbURL, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("Error closing database connection",
				"error", closeErr,
				"error_type", fmt.Sprintf("%T", closeErr))
		}
		logger.Info("Migration operation completed",
			"operation", fmt.Sprintf("goose %s", command),
			"duration_ms", time.Since(started).Milliseconds())
	}()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pingMigrationDB(pingCtx, db, logger); err != nil {
		return err
	}

	if verbose || os.Getenv("CI") != "" {
		logDatabaseInfo(db, pingCtx, logger)
	}

	dir, err := resolveMigrationsDir(logger)
	if err != nil {
		return err
	}
	logMigrationFiles(dir, verbose, logger)

	if err := goose.SetDialect("postgres"); err != nil {
		logger.Error("Failed to set dialect", "error", err)
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	goose.SetTableName(MigrationTableName)

	previousVersion := currentSchemaVersion(db, logger)

	logger.Info("Starting migration command execution",
		"command", command,
		"args", args)
	commandStarted := time.Now()
	err = runGooseCommand(db, dir, command, args, logger)
	commandDuration := time.Since(commandStarted)

	if err != nil {
		logger.Error("Migration command failed",
			"command", command,
			"error", err,
			"error_type", fmt.Sprintf("%T", err),
			"duration_ms", commandDuration.Milliseconds())
		return fmt.Errorf("migration command '%s' failed: %w", command, err)
	}

	logger.Info("Migration command executed successfully",
		"command", command,
		"duration_ms", commandDuration.Milliseconds())

	switch command {
	case "up", "down", "reset":
		newVersion := currentSchemaVersion(db, logger)
		if newVersion != previousVersion {
			logger.Info("Database schema version changed",
				"previous_version", previousVersion,
				"new_version", newVersion)
		} else {
			logger.Info("Database schema version unchanged", "version", newVersion)
		}
	}

	if command == "up" && (verbose || os.Getenv("CI") != "") {
		if verifyErr := verifyAppliedMigrations(db, logger); verifyErr != nil {
			logger.Error("Migration verification failed",
				"error", verifyErr,
				"error_type", fmt.Sprintf("%T", verifyErr))
			return fmt.Errorf("migration verification failed: %w", verifyErr)
		}
	}

	return nil
}

// openMigrationDB opens a pgx connection sized for migration work: a handful
// of short-lived connections, nothing more.
func openMigrationDB(dbURL string, logger *slog.Logger) (*sql.DB, error) {
	logger.Info("Opening database connection for migrations")
	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		logger.Error("Failed to open database connection",
			"error", err,
			"error_type", fmt.Sprintf("%T", err))
		return nil, fmt.Errorf(
			"failed to open database connection: %w (check connection string format and credentials)",
			err,
		)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// pingMigrationDB verifies connectivity and turns the common failure classes
// into actionable error messages.
func pingMigrationDB(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	logger.Debug("Verifying database connection with ping")
	pingStarted := time.Now()

	err := db.PingContext(ctx)
	pingDuration := time.Since(pingStarted)
	if err == nil {
		logger.Info("Database connection verified successfully",
			"duration_ms", pingDuration.Milliseconds())
		return nil
	}

	logger.Error("Database ping failed",
		"error", err,
		"duration_ms", pingDuration.Milliseconds(),
		"error_type", fmt.Sprintf("%T", err))

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf(
			"database ping timed out after 5s: %w (check network connectivity, firewall rules, and server load)",
			err,
		)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf(
				"network timeout connecting to database: %w (check network latency and database server load)",
				err,
			)
		}
		return fmt.Errorf(
			"network error connecting to database: %w (check hostname, port, and network connectivity)",
			err,
		)
	}

	return fmt.Errorf(
		"failed to connect to database: %w (check connection string, credentials, and database availability)",
		err,
	)
}

// resolveMigrationsDir finds the migrations directory, preferring the
// project-root lookup and falling back to paths relative to the working
// directory.
func resolveMigrationsDir(logger *slog.Logger) (string, error) {
	path, err := FindMigrationsDir()
	if err == nil && directoryExists(path) {
		logger.Info("Using standardized migrations directory path",
			"path", path,
			"source", "FindMigrationsDir")
		return path, nil
	}
	logger.Debug("Standardized migrations path detection failed, using fallback",
		"error", err)

	path = migrationsDir
	if absPath, absErr := filepath.Abs(path); absErr == nil {
		path = absPath
	} else {
		logger.Warn("Could not resolve absolute path for migrations directory",
			"relative_path", path,
			"error", absErr)
	}
	if directoryExists(path) {
		logger.Info("Using migrations directory", "path", path)
		return path, nil
	}

	cwd, _ := os.Getwd()
	altPath := filepath.Join(cwd, migrationsDir)
	logger.Warn("Migrations directory not found at specified path, trying alternative",
		"original_path", path,
		"alternative_path", altPath)
	if directoryExists(altPath) {
		logger.Info("Found migrations at alternative path", "path", altPath)
		return altPath, nil
	}

	logger.Error("Failed to locate migrations directory",
		"original_path", path,
		"alternative_path", altPath)
	return "", fmt.Errorf("migrations directory not found at %s or %s", path, altPath)
}

// logMigrationFiles summarizes what is on disk before goose runs, so a
// missing or misnumbered file is visible in the logs next to the failure.
func logMigrationFiles(dir string, verbose bool, logger *slog.Logger) {
	onDisk, err := enumerateMigrationFiles(dir)
	if err != nil {
		logger.Warn("Failed to read migrations directory", "error", err)
		return
	}

	logger.Info("Found migration files",
		"count", len(onDisk.Files),
		"sql_count", onDisk.SQLCount,
		"newest_file", onDisk.NewestFile,
		"oldest_file", onDisk.OldestFile)

	if verbose || os.Getenv("CI") != "" {
		logger.Info("Migration files list", "files", onDisk.Files)
	}
}

// currentSchemaVersion reads the highest applied version from the goose
// bookkeeping table. An empty table reports version "0".
func currentSchemaVersion(db *sql.DB, logger *slog.Logger) string {
	var version string
	query := fmt.Sprintf(
		"SELECT version_id FROM %s ORDER BY version_id DESC LIMIT 1",
		MigrationTableName,
	)
	if err := db.QueryRow(query).Scan(&version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.Info("No migrations currently applied", "status", "clean database")
		} else {
			logger.Warn("Failed to retrieve current migration version",
				"error", err,
				"error_type", fmt.Sprintf("%T", err))
		}
		return "0"
	}
	logger.Info("Current database migration version", "version", version)
	return version
}

func runGooseCommand(db *sql.DB, dir, command string, args []string, logger *slog.Logger) error {
	switch command {
	case "up":
		logger.Info("Applying pending migrations")
		return goose.Up(db, dir)
	case "down":
		logger.Info("Rolling back one migration version")
		return goose.Down(db, dir)
	case "reset":
		logger.Info("Resetting all migrations (roll back to zero)")
		return goose.Reset(db, dir)
	case "status":
		logger.Info("Checking migration status")
		return goose.Status(db, dir)
	case "version":
		logger.Info("Retrieving current migration version")
		return goose.Version(db, dir)
	case "create":
		if len(args) == 0 || args[0] == "" {
			logger.Error("Migration create command requires a name parameter")
			return fmt.Errorf("migration name is required for 'create' command")
		}
		logger.Info("Creating new migration",
			"name", args[0],
			"type", "sql",
			"directory", dir)
		return goose.Create(db, dir, args[0], "sql")
	default:
		logger.Error("Unknown migration command",
			"command", command,
			"valid_commands", []string{"up", "down", "reset", "status", "version", "create"})
		return fmt.Errorf(
			"unknown migration command: %s (expected up, down, reset, status, version, or create)",
			command,
		)
	}
}

// runMigrations is the entry point used by the command dispatcher.
func runMigrations(cfg *config.Config, command string, verbose bool, args ...string) error {
	return executeMigration(cfg, command, verbose, args...)
}
