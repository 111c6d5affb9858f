package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// migrationsDir is the fallback directory name, relative to the project
// root, when the standardized lookup fails.
const migrationsDir = "migrations"

// slogGooseLogger routes goose's log output through slog.
type slogGooseLogger struct{}

func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	slog.Info(fmt.Sprintf(format, v...))
}

// Fatalf logs without exiting; the error propagates back to main, which
// owns process exit.
func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	slog.Error(fmt.Sprintf(format, v...))
}

// getExecutionMode tags log lines with the environment they ran in.
func getExecutionMode() string {
	if isCIEnvironment() {
		return "ci"
	}
	return "local"
}

func isCIEnvironment() bool {
	return os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != ""
}

// maskDatabaseURL hides the password in a database URL for safe logging.
func maskDatabaseURL(dbURL string) string {
	parsedURL, err := url.Parse(dbURL)
	if err != nil {
		return "invalid-url"
	}

	if parsedURL.User != nil {
		parsedURL.User = url.UserPassword(parsedURL.User.Username(), "****")
		return parsedURL.String()
	}

	return dbURL
}

// detectDatabaseURLSource reports which environment variable supplied the
// URL, for migration diagnostics.
func detectDatabaseURLSource(dbURL string) string {
	for _, envVar := range []string{"DATABASE_URL", "REMVAULT_TEST_DB_URL", "REMVAULT_DATABASE_URL"} {
		if os.Getenv(envVar) == dbURL {
			return fmt.Sprintf("environment variable %s", envVar)
		}
	}
	return "configuration"
}

func extractHostFromURL(dbURL string) string {
	parsedURL, err := url.Parse(dbURL)
	if err != nil {
		return "unknown"
	}
	return parsedURL.Hostname()
}

func directoryExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// getMigrationsPath finds the migrations directory, trying the project-root
// lookup first and falling back to walking up from the working directory.
func getMigrationsPath() (string, error) {
	migrationsPath, err := FindMigrationsDir()
	if err == nil && directoryExists(migrationsPath) {
		return migrationsPath, nil
	}
	slog.Debug("FindMigrationsDir failed, falling back to directory walk", "error", err)

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}

	if stdPath := filepath.Join(cwd, migrationsDir); directoryExists(stdPath) {
		return stdPath, nil
	}

	// Walk up looking for a go.mod with a migrations directory next to it.
	dir := cwd
	for i := 0; i < 10; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			if migPath := filepath.Join(dir, migrationsDir); directoryExists(migPath) {
				return migPath, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if ghWorkspace := os.Getenv("GITHUB_WORKSPACE"); ghWorkspace != "" {
		if migPath := filepath.Join(ghWorkspace, migrationsDir); directoryExists(migPath) {
			return migPath, nil
		}
	}

	return "", fmt.Errorf("could not locate migrations directory")
}

// logDatabaseInfo records server version, connection identity, and migration
// table state before a migration run, so failed runs are diagnosable from
// logs alone.
func logDatabaseInfo(db *sql.DB, ctx context.Context, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Gathering detailed database information")
	started := time.Now()

	checks := []struct {
		query string
		label string
		key   string
	}{
		{"SELECT version()", "Database version information", "version"},
		{"SELECT current_user", "Database connection credentials", "user"},
		{"SELECT current_database()", "Connected to database", "database"},
	}
	for _, c := range checks {
		var value string
		if err := db.QueryRowContext(ctx, c.query).Scan(&value); err != nil {
			logger.Warn("Database check failed",
				"query", c.query,
				"error", err,
				"error_type", fmt.Sprintf("%T", err))
			continue
		}
		logger.Info(c.label, c.key, value)
	}

	var tableExists bool
	tableQuery := fmt.Sprintf(
		"SELECT EXISTS (SELECT FROM pg_tables WHERE schemaname = 'public' AND tablename = '%s')",
		MigrationTableName,
	)
	if err := db.QueryRowContext(ctx, tableQuery).Scan(&tableExists); err != nil {
		logger.Warn("Failed to check for migrations table",
			"error", err,
			"table", MigrationTableName)
	} else {
		logger.Info("Migration tracking table",
			"table", MigrationTableName,
			"exists", tableExists)

		if tableExists {
			var applied int
			countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", MigrationTableName)
			if err := db.QueryRowContext(ctx, countQuery).Scan(&applied); err != nil {
				logger.Warn("Failed to count applied migrations", "error", err)
			} else {
				logger.Info("Migration status summary", "count", applied)
			}
		}
	}

	logger.Debug("Database information gathering completed",
		"duration_ms", time.Since(started).Milliseconds())
}
