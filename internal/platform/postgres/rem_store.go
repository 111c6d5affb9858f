package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/remvault/remvault/internal/domain"
	"github.com/remvault/remvault/internal/platform/logger"
	"github.com/remvault/remvault/internal/store"
)

// PostgresRemStore implements the store.RemStore interface
// using a PostgreSQL database as the storage backend.
type PostgresRemStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresRemStore creates a new PostgreSQL implementation of the RemStore interface.
// It accepts a database connection or transaction that should be initialized and managed
// by the caller. If logger is nil, a default logger will be used.
func NewPostgresRemStore(db store.DBTX, logger *slog.Logger) *PostgresRemStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresRemStore{
		db:     db,
		logger: logger.With(slog.String("component", "rem_store")),
	}
}

// Ensure PostgresRemStore implements store.RemStore interface
var _ store.RemStore = (*PostgresRemStore)(nil)

// WithTx implements store.RemStore.WithTx
func (s *PostgresRemStore) WithTx(tx *sql.Tx) store.RemStore {
	return &PostgresRemStore{
		db:     tx,
		logger: s.logger,
	}
}

const remColumns = `id, user_id, slug, title, tags, source, body, related, content_hash, deleted_at, created_at, updated_at`

// Create implements store.RemStore.Create
// Returns store.ErrSlugExists if the user already has a rem with this slug.
// Returns store.ErrInvalidEntity if the user ID doesn't exist (foreign key violation).
func (s *PostgresRemStore) Create(ctx context.Context, rem *domain.Rem) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := rem.Validate(); err != nil {
		log.Warn("rem validation failed during create",
			slog.String("error", err.Error()),
			slog.String("rem_id", rem.ID.String()))
		return err
	}

	query := `
		INSERT INTO rems (` + remColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		rem.ID,
		rem.UserID,
		rem.Slug,
		rem.Title,
		pq.Array(rem.Tags),
		rem.Source,
		rem.Body,
		pq.Array(rem.Related),
		rem.ContentHash,
		nullTime(rem.DeletedAt),
		rem.CreatedAt,
		rem.UpdatedAt,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("duplicate slug during rem creation",
				slog.String("rem_id", rem.ID.String()),
				slog.String("slug", rem.Slug))
			return store.ErrSlugExists
		}
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during rem creation",
				slog.String("rem_id", rem.ID.String()),
				slog.String("user_id", rem.UserID.String()))
			return fmt.Errorf("%w: user with ID %s not found",
				store.ErrInvalidEntity, rem.UserID)
		}

		log.Error("failed to create rem",
			slog.String("error", err.Error()),
			slog.String("rem_id", rem.ID.String()),
			slog.String("slug", rem.Slug))
		return err
	}

	log.Info("rem created successfully",
		slog.String("rem_id", rem.ID.String()),
		slog.String("slug", rem.Slug))
	return nil
}

// GetByID implements store.RemStore.GetByID
// Returns store.ErrRemNotFound if the rem does not exist.
func (s *PostgresRemStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Rem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + remColumns + ` FROM rems WHERE id = $1`

	rem, err := s.scanRem(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("rem not found", slog.String("rem_id", id.String()))
			return nil, store.ErrRemNotFound
		}
		log.Error("failed to get rem by ID",
			slog.String("error", err.Error()),
			slog.String("rem_id", id.String()))
		return nil, err
	}

	return rem, nil
}

// GetBySlug implements store.RemStore.GetBySlug
// Tombstoned rems are treated as absent.
// Returns store.ErrRemNotFound if the rem does not exist.
func (s *PostgresRemStore) GetBySlug(
	ctx context.Context,
	userID uuid.UUID,
	slug string,
) (*domain.Rem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + remColumns + `
		FROM rems
		WHERE user_id = $1 AND slug = $2 AND deleted_at IS NULL
	`

	rem, err := s.scanRem(s.db.QueryRowContext(ctx, query, userID, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("rem not found by slug", slog.String("slug", slug))
			return nil, store.ErrRemNotFound
		}
		log.Error("failed to get rem by slug",
			slog.String("error", err.Error()),
			slog.String("slug", slug))
		return nil, err
	}

	return rem, nil
}

// ListByUser implements store.RemStore.ListByUser
func (s *PostgresRemStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.Rem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + remColumns + `
		FROM rems
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY slug ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Error("failed to list rems",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	rems := []*domain.Rem{}
	for rows.Next() {
		rem, err := s.scanRem(rows)
		if err != nil {
			log.Error("failed to scan rem row",
				slog.String("error", err.Error()))
			return nil, err
		}
		rems = append(rems, rem)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	log.Debug("listed rems",
		slog.String("user_id", userID.String()),
		slog.Int("count", len(rems)))
	return rems, nil
}

// Update implements store.RemStore.Update
// Returns store.ErrRemNotFound if the rem does not exist.
func (s *PostgresRemStore) Update(ctx context.Context, rem *domain.Rem) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := rem.Validate(); err != nil {
		log.Warn("rem validation failed during update",
			slog.String("error", err.Error()),
			slog.String("rem_id", rem.ID.String()))
		return err
	}

	rem.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE rems
		SET slug = $1, title = $2, tags = $3, source = $4, body = $5,
		    related = $6, content_hash = $7, deleted_at = $8, updated_at = $9
		WHERE id = $10
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		rem.Slug,
		rem.Title,
		pq.Array(rem.Tags),
		rem.Source,
		rem.Body,
		pq.Array(rem.Related),
		rem.ContentHash,
		nullTime(rem.DeletedAt),
		rem.UpdatedAt,
		rem.ID,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("duplicate slug during rem update",
				slog.String("rem_id", rem.ID.String()),
				slog.String("slug", rem.Slug))
			return store.ErrSlugExists
		}
		log.Error("failed to update rem",
			slog.String("error", err.Error()),
			slog.String("rem_id", rem.ID.String()))
		return err
	}

	if err := CheckRowsAffected(result, "rem"); err != nil {
		log.Debug("rem not found for update",
			slog.String("rem_id", rem.ID.String()))
		return store.ErrRemNotFound
	}

	log.Info("rem updated successfully",
		slog.String("rem_id", rem.ID.String()),
		slog.String("slug", rem.Slug))
	return nil
}

// Delete implements store.RemStore.Delete
// The rem is tombstoned, not removed, so its review history stays intact.
// Returns store.ErrRemNotFound if the rem does not exist or is already deleted.
func (s *PostgresRemStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	now := time.Now().UTC()

	query := `
		UPDATE rems
		SET deleted_at = $1, updated_at = $1
		WHERE id = $2 AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, now, id)
	if err != nil {
		log.Error("failed to delete rem",
			slog.String("error", err.Error()),
			slog.String("rem_id", id.String()))
		return err
	}

	if err := CheckRowsAffected(result, "rem"); err != nil {
		log.Debug("rem not found for delete",
			slog.String("rem_id", id.String()))
		return store.ErrRemNotFound
	}

	log.Info("rem tombstoned successfully",
		slog.String("rem_id", id.String()))
	return nil
}

// scanTarget abstracts *sql.Row and *sql.Rows for scanRem.
type scanTarget interface {
	Scan(dest ...any) error
}

func (s *PostgresRemStore) scanRem(row scanTarget) (*domain.Rem, error) {
	var rem domain.Rem
	var deletedAt sql.NullTime

	err := row.Scan(
		&rem.ID,
		&rem.UserID,
		&rem.Slug,
		&rem.Title,
		pq.Array(&rem.Tags),
		&rem.Source,
		&rem.Body,
		pq.Array(&rem.Related),
		&rem.ContentHash,
		&deletedAt,
		&rem.CreatedAt,
		&rem.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if deletedAt.Valid {
		rem.DeletedAt = &deletedAt.Time
	}
	return &rem, nil
}

// nullTime converts an optional timestamp to its sql representation.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
