package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/domain"
	"github.com/remvault/remvault/internal/kb"
	"github.com/remvault/remvault/internal/store"
)

// RemContent is the caller-editable part of a rem. Slug and ownership are
// fixed at creation; everything here can change on update.
type RemContent struct {
	Title   string
	Tags    []string
	Source  string
	Body    string
	Related []string
}

// RemService provides rem CRUD operations. Every mutation keeps the rems
// table, the review schedule, and the knowledge-graph edges consistent inside
// one transaction. The markdown file on disk is written last, inside the
// transaction window, so a failed write aborts the database changes. The
// reverse does not hold: a commit that fails after the file was written
// leaves the tree ahead of the catalog until the next sync pass reconciles
// them.
type RemService interface {
	// CreateRem creates a rem for the user at the given slug, schedules it
	// for review, indexes its links, and writes the markdown file.
	// Returns store.ErrSlugExists if the user already has a rem at the slug.
	CreateRem(ctx context.Context, userID uuid.UUID, slug string, content RemContent) (*domain.Rem, error)

	// CreateRems persists a batch of rem drafts, typically produced by chat
	// distillation. Drafts whose slug already exists are skipped rather than
	// failing the batch; a distilled chat often re-mentions known concepts.
	CreateRems(ctx context.Context, rems []*domain.Rem) error

	// GetRem retrieves a user's rem by slug.
	// Returns store.ErrRemNotFound if the rem does not exist or is deleted.
	GetRem(ctx context.Context, userID uuid.UUID, slug string) (*domain.Rem, error)

	// ListRems retrieves all of a user's live rems, ordered by slug.
	ListRems(ctx context.Context, userID uuid.UUID) ([]*domain.Rem, error)

	// UpdateRem replaces the content of an existing rem, reindexes its links,
	// and rewrites the markdown file.
	// Returns store.ErrRemNotFound if the rem does not exist or is deleted.
	UpdateRem(ctx context.Context, userID uuid.UUID, slug string, content RemContent) (*domain.Rem, error)

	// DeleteRem tombstones a rem, drops its schedule and outbound links, and
	// removes the markdown file. Inbound links from other rems are kept and
	// show up as broken links in maintenance reports.
	// Returns store.ErrRemNotFound if the rem does not exist or is deleted.
	DeleteRem(ctx context.Context, userID uuid.UUID, slug string) error
}

// RemServiceImpl implements the RemService interface
type RemServiceImpl struct {
	db            *sql.DB
	remStore      store.RemStore
	scheduleStore store.ScheduleStore
	linkStore     store.LinkStore
	writer        *kb.Writer
	logger        *slog.Logger
}

// Verify interface compliance at compile time
var _ RemService = (*RemServiceImpl)(nil)

// NewRemService creates a new RemService
func NewRemService(
	db *sql.DB,
	remStore store.RemStore,
	scheduleStore store.ScheduleStore,
	linkStore store.LinkStore,
	writer *kb.Writer,
	logger *slog.Logger,
) RemService {
	if db == nil {
		panic("db cannot be nil")
	}
	if remStore == nil {
		panic("remStore cannot be nil")
	}
	if scheduleStore == nil {
		panic("scheduleStore cannot be nil")
	}
	if linkStore == nil {
		panic("linkStore cannot be nil")
	}
	if writer == nil {
		panic("writer cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &RemServiceImpl{
		db:            db,
		remStore:      remStore,
		scheduleStore: scheduleStore,
		linkStore:     linkStore,
		writer:        writer,
		logger:        logger.With("component", "rem_service"),
	}
}

// CreateRem creates a rem with its schedule, links, and markdown file.
func (s *RemServiceImpl) CreateRem(
	ctx context.Context,
	userID uuid.UUID,
	slug string,
	content RemContent,
) (*domain.Rem, error) {
	rem, err := domain.NewRem(userID, slug, content.Title, content.Body)
	if err != nil {
		s.logger.Error("failed to create rem object",
			"error", err,
			"user_id", userID,
			"slug", slug)
		return nil, fmt.Errorf("failed to create rem: %w", err)
	}
	rem.Tags = content.Tags
	rem.Source = content.Source
	rem.Related = content.Related

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.persistNewRem(ctx, tx, rem)
	})
	if err != nil {
		if errors.Is(err, store.ErrSlugExists) {
			s.logger.Debug("attempted to create rem with existing slug",
				"user_id", userID,
				"slug", slug)
		} else {
			s.logger.Error("failed to create rem",
				"error", err,
				"user_id", userID,
				"slug", slug)
		}
		return nil, fmt.Errorf("failed to create rem: %w", err)
	}

	s.logger.Info("rem created successfully",
		"user_id", userID,
		"rem_id", rem.ID,
		"slug", slug)

	return rem, nil
}

// CreateRems persists a batch of rem drafts in a single transaction.
func (s *RemServiceImpl) CreateRems(ctx context.Context, rems []*domain.Rem) error {
	if len(rems) == 0 {
		return nil
	}

	created := 0
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txRems := s.remStore.WithTx(tx)
		for _, rem := range rems {
			// Skip drafts whose slug is already taken by a live rem.
			_, err := txRems.GetBySlug(ctx, rem.UserID, rem.Slug)
			if err == nil {
				s.logger.Debug("skipping rem draft with existing slug",
					"user_id", rem.UserID,
					"slug", rem.Slug)
				continue
			}
			if !errors.Is(err, store.ErrRemNotFound) {
				return fmt.Errorf("failed to check slug %q: %w", rem.Slug, err)
			}

			if err := s.persistNewRem(ctx, tx, rem); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to create rem batch",
			"error", err,
			"count", len(rems))
		return fmt.Errorf("failed to create rems: %w", err)
	}

	s.logger.Info("rem batch created successfully",
		"requested", len(rems),
		"created", created)

	return nil
}

// GetRem retrieves a user's rem by slug.
func (s *RemServiceImpl) GetRem(
	ctx context.Context,
	userID uuid.UUID,
	slug string,
) (*domain.Rem, error) {
	rem, err := s.remStore.GetBySlug(ctx, userID, slug)
	if err != nil {
		if errors.Is(err, store.ErrRemNotFound) {
			s.logger.Debug("rem not found by slug",
				"user_id", userID,
				"slug", slug)
		} else {
			s.logger.Error("failed to retrieve rem",
				"error", err,
				"user_id", userID,
				"slug", slug)
		}
		return nil, fmt.Errorf("failed to retrieve rem: %w", err)
	}
	return rem, nil
}

// ListRems retrieves all of a user's live rems.
func (s *RemServiceImpl) ListRems(ctx context.Context, userID uuid.UUID) ([]*domain.Rem, error) {
	rems, err := s.remStore.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list rems",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to list rems: %w", err)
	}
	return rems, nil
}

// UpdateRem replaces the content of an existing rem.
func (s *RemServiceImpl) UpdateRem(
	ctx context.Context,
	userID uuid.UUID,
	slug string,
	content RemContent,
) (*domain.Rem, error) {
	var updated *domain.Rem
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txRems := s.remStore.WithTx(tx)

		rem, err := txRems.GetBySlug(ctx, userID, slug)
		if err != nil {
			return fmt.Errorf("failed to retrieve rem for update: %w", err)
		}

		rem.Title = content.Title
		rem.Tags = content.Tags
		rem.Source = content.Source
		rem.Body = content.Body
		rem.Related = content.Related

		rendered, err := renderRemFile(rem)
		if err != nil {
			return err
		}
		rem.ContentHash = kb.HashContent(rendered)

		if err := txRems.Update(ctx, rem); err != nil {
			return fmt.Errorf("failed to update rem: %w", err)
		}

		links := outboundLinks(rem)
		if err := s.linkStore.WithTx(tx).ReplaceForSlug(ctx, userID, slug, links); err != nil {
			return fmt.Errorf("failed to replace links: %w", err)
		}

		if _, err := s.writer.WriteRendered(slug, rendered); err != nil {
			return fmt.Errorf("failed to write rem file: %w", err)
		}

		updated = rem
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrRemNotFound) {
			s.logger.Debug("attempted to update missing rem",
				"user_id", userID,
				"slug", slug)
		} else {
			s.logger.Error("failed to update rem",
				"error", err,
				"user_id", userID,
				"slug", slug)
		}
		return nil, fmt.Errorf("failed to update rem: %w", err)
	}

	s.logger.Info("rem updated successfully",
		"user_id", userID,
		"rem_id", updated.ID,
		"slug", slug)

	return updated, nil
}

// DeleteRem tombstones a rem and cleans up its schedule, links, and file.
func (s *RemServiceImpl) DeleteRem(ctx context.Context, userID uuid.UUID, slug string) error {
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txRems := s.remStore.WithTx(tx)

		rem, err := txRems.GetBySlug(ctx, userID, slug)
		if err != nil {
			return fmt.Errorf("failed to retrieve rem for delete: %w", err)
		}

		if err := txRems.Delete(ctx, rem.ID); err != nil {
			return fmt.Errorf("failed to tombstone rem: %w", err)
		}

		// Schedules may be missing for rems that never entered the queue.
		if err := s.scheduleStore.WithTx(tx).Delete(ctx, userID, rem.ID); err != nil &&
			!errors.Is(err, store.ErrScheduleNotFound) {
			return fmt.Errorf("failed to delete schedule: %w", err)
		}

		if err := s.linkStore.WithTx(tx).DeleteForSlug(ctx, userID, slug); err != nil {
			return fmt.Errorf("failed to delete links: %w", err)
		}

		if err := s.writer.Remove(slug); err != nil {
			return fmt.Errorf("failed to remove rem file: %w", err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrRemNotFound) {
			s.logger.Debug("attempted to delete missing rem",
				"user_id", userID,
				"slug", slug)
		} else {
			s.logger.Error("failed to delete rem",
				"error", err,
				"user_id", userID,
				"slug", slug)
		}
		return fmt.Errorf("failed to delete rem: %w", err)
	}

	s.logger.Info("rem deleted successfully",
		"user_id", userID,
		"slug", slug)

	return nil
}

// persistNewRem creates the rem row, its schedule, its links, and its file,
// all against the given transaction. The rem's content hash is set from the
// rendered file so sync recognizes the file as unchanged.
func (s *RemServiceImpl) persistNewRem(ctx context.Context, tx *sql.Tx, rem *domain.Rem) error {
	rendered, err := renderRemFile(rem)
	if err != nil {
		return err
	}
	rem.ContentHash = kb.HashContent(rendered)

	if err := s.remStore.WithTx(tx).Create(ctx, rem); err != nil {
		return err
	}

	schedule, err := domain.NewRemSchedule(rem.UserID, rem.ID)
	if err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}
	if err := s.scheduleStore.WithTx(tx).Create(ctx, schedule); err != nil {
		return fmt.Errorf("failed to save schedule: %w", err)
	}

	links := outboundLinks(rem)
	if err := s.linkStore.WithTx(tx).ReplaceForSlug(ctx, rem.UserID, rem.Slug, links); err != nil {
		return fmt.Errorf("failed to save links: %w", err)
	}

	if _, err := s.writer.WriteRendered(rem.Slug, rendered); err != nil {
		return fmt.Errorf("failed to write rem file: %w", err)
	}

	return nil
}

// renderRemFile converts a rem into its markdown file representation.
func renderRemFile(rem *domain.Rem) ([]byte, error) {
	file := &kb.File{
		Frontmatter: kb.Frontmatter{
			ID:      rem.ID.String(),
			Title:   rem.Title,
			Tags:    rem.Tags,
			Source:  rem.Source,
			Related: rem.Related,
		},
		Body: rem.Body,
	}

	rendered, err := file.Render()
	if err != nil {
		return nil, fmt.Errorf("failed to render rem file: %w", err)
	}
	return rendered, nil
}

// outboundLinks collects the deduplicated union of a rem's body wikilinks and
// frontmatter related slugs, sorted for deterministic storage.
func outboundLinks(rem *domain.Rem) []string {
	seen := make(map[string]struct{})
	for _, target := range kb.ExtractWikilinks(rem.Body) {
		seen[target] = struct{}{}
	}
	for _, target := range rem.Related {
		if target != "" {
			seen[target] = struct{}{}
		}
	}

	// A rem linking to itself is noise, not an edge.
	delete(seen, rem.Slug)

	links := make([]string, 0, len(seen))
	for target := range seen {
		links = append(links, target)
	}
	sort.Strings(links)
	return links
}
