package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/platform/logger"
	"github.com/remvault/remvault/internal/store"
)

// PostgresLinkStore implements the store.LinkStore interface
// using a PostgreSQL database as the storage backend.
type PostgresLinkStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresLinkStore creates a new PostgreSQL implementation of the LinkStore
// interface. If logger is nil, a default logger will be used.
func NewPostgresLinkStore(db store.DBTX, logger *slog.Logger) *PostgresLinkStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresLinkStore{
		db:     db,
		logger: logger.With(slog.String("component", "link_store")),
	}
}

// Ensure PostgresLinkStore implements store.LinkStore interface
var _ store.LinkStore = (*PostgresLinkStore)(nil)

// WithTx implements store.LinkStore.WithTx
func (s *PostgresLinkStore) WithTx(tx *sql.Tx) store.LinkStore {
	return &PostgresLinkStore{
		db:     tx,
		logger: s.logger,
	}
}

// ReplaceForSlug implements store.LinkStore.ReplaceForSlug
// The delete-then-insert pair should run inside a transaction when called
// during sync; the store itself does not open one.
func (s *PostgresLinkStore) ReplaceForSlug(
	ctx context.Context,
	userID uuid.UUID,
	fromSlug string,
	toSlugs []string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	deleteQuery := `DELETE FROM links WHERE user_id = $1 AND from_slug = $2`
	if _, err := s.db.ExecContext(ctx, deleteQuery, userID, fromSlug); err != nil {
		log.Error("failed to clear links",
			slog.String("error", err.Error()),
			slog.String("from_slug", fromSlug))
		return err
	}

	insertQuery := `INSERT INTO links (user_id, from_slug, to_slug) VALUES ($1, $2, $3)`
	for _, toSlug := range toSlugs {
		if _, err := s.db.ExecContext(ctx, insertQuery, userID, fromSlug, toSlug); err != nil {
			log.Error("failed to insert link",
				slog.String("error", err.Error()),
				slog.String("from_slug", fromSlug),
				slog.String("to_slug", toSlug))
			return err
		}
	}

	log.Debug("links replaced",
		slog.String("from_slug", fromSlug),
		slog.Int("count", len(toSlugs)))
	return nil
}

// Backlinks implements store.LinkStore.Backlinks
func (s *PostgresLinkStore) Backlinks(
	ctx context.Context,
	userID uuid.UUID,
	slug string,
) ([]string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT from_slug
		FROM links
		WHERE user_id = $1 AND to_slug = $2
		ORDER BY from_slug ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID, slug)
	if err != nil {
		log.Error("failed to query backlinks",
			slog.String("error", err.Error()),
			slog.String("slug", slug))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	backlinks := []string{}
	for rows.Next() {
		var fromSlug string
		if err := rows.Scan(&fromSlug); err != nil {
			log.Error("failed to scan backlink row",
				slog.String("error", err.Error()))
			return nil, err
		}
		backlinks = append(backlinks, fromSlug)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	return backlinks, nil
}

// ListByUser implements store.LinkStore.ListByUser
func (s *PostgresLinkStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]store.Link, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT user_id, from_slug, to_slug
		FROM links
		WHERE user_id = $1
		ORDER BY from_slug ASC, to_slug ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Error("failed to list links",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	links := []store.Link{}
	for rows.Next() {
		var link store.Link
		if err := rows.Scan(&link.UserID, &link.FromSlug, &link.ToSlug); err != nil {
			log.Error("failed to scan link row",
				slog.String("error", err.Error()))
			return nil, err
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	return links, nil
}

// DeleteForSlug implements store.LinkStore.DeleteForSlug
// Deleting links for a slug with none is a no-op, not an error.
func (s *PostgresLinkStore) DeleteForSlug(
	ctx context.Context,
	userID uuid.UUID,
	fromSlug string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM links WHERE user_id = $1 AND from_slug = $2`
	if _, err := s.db.ExecContext(ctx, query, userID, fromSlug); err != nil {
		log.Error("failed to delete links",
			slog.String("error", err.Error()),
			slog.String("from_slug", fromSlug))
		return err
	}

	return nil
}
