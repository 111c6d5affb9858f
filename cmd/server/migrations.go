package main

import (
	"fmt"
	"log/slog"

	"github.com/remvault/remvault/internal/config"
)

// handleMigrations dispatches the migration-related command line flags.
// Exactly one mode runs per invocation; main exits after it returns.
func handleMigrations(
	cfg *config.Config,
	migrateCmd string,
	migrationName string,
	verbose bool,
	verifyOnly bool,
	validateMigrations bool,
) error {
	switch {
	case validateMigrations:
		// CI check: every migration file on disk is applied, nothing extra.
		slog.Info("Validating applied migrations",
			"verbose", verbose,
			"mode", getExecutionMode())
		return validateAppliedMigrations(cfg, verbose)

	case verifyOnly:
		slog.Info("Verifying migrations only (not applying)",
			"command", migrateCmd,
			"verbose", verbose)
		return verifyMigrations(cfg, verbose)

	case migrateCmd != "":
		slog.Info("Executing migrations",
			"command", migrateCmd,
			"verbose", verbose)

		// "create" is the only subcommand that takes an argument.
		var args []string
		if migrateCmd == "create" && migrationName != "" {
			args = append(args, migrationName)
		}
		return runMigrations(cfg, migrateCmd, verbose, args...)
	}

	return fmt.Errorf("no migration operation specified")
}
