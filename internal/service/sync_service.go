package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/domain"
	"github.com/remvault/remvault/internal/events"
	"github.com/remvault/remvault/internal/kb"
	"github.com/remvault/remvault/internal/store"
	"github.com/remvault/remvault/internal/task"
)

// graphRebuildRequestPayload is the event payload consumed by the task
// factory handler when a bulk change requests a knowledge-graph rebuild.
type graphRebuildRequestPayload struct {
	UserID string `json:"user_id"`
}

// SyncReport summarizes one reconciliation pass between the knowledge-base
// tree and the catalog.
type SyncReport struct {
	Created   int       `json:"created"`
	Updated   int       `json:"updated"`
	Deleted   int       `json:"deleted"`
	Unchanged int       `json:"unchanged"`
	Scanned   int       `json:"scanned"`
	SyncedAt  time.Time `json:"synced_at"`

	CreatedSlugs []string `json:"created_slugs,omitempty"`
	UpdatedSlugs []string `json:"updated_slugs,omitempty"`
	DeletedSlugs []string `json:"deleted_slugs,omitempty"`
}

// SyncService reconciles the markdown tree with the catalog. The files are
// the source of truth: rows are created for new files, refreshed for changed
// files (detected by content hash), and tombstoned for files that vanished.
type SyncService interface {
	// Sync runs one full reconciliation pass for a user and reports what
	// changed. The whole pass runs in a single transaction so a half-synced
	// catalog is never observable. A pass that changed anything requests a
	// background knowledge-graph rebuild.
	Sync(ctx context.Context, userID uuid.UUID) (*SyncReport, error)

	// RebuildGraph re-derives every knowledge-graph edge from the catalog's
	// rem contents. Used after bulk changes (distillation, imports) where
	// per-rem incremental updates would be noisy.
	RebuildGraph(ctx context.Context, userID uuid.UUID) error
}

// SyncServiceImpl implements the SyncService interface
type SyncServiceImpl struct {
	db            *sql.DB
	scanner       *kb.Scanner
	remStore      store.RemStore
	scheduleStore store.ScheduleStore
	linkStore     store.LinkStore
	emitter       events.EventEmitter
	logger        *slog.Logger
}

// Verify interface compliance at compile time
var _ SyncService = (*SyncServiceImpl)(nil)

// NewSyncService creates a new SyncService
func NewSyncService(
	db *sql.DB,
	scanner *kb.Scanner,
	remStore store.RemStore,
	scheduleStore store.ScheduleStore,
	linkStore store.LinkStore,
	emitter events.EventEmitter,
	logger *slog.Logger,
) SyncService {
	if db == nil {
		panic("db cannot be nil")
	}
	if scanner == nil {
		panic("scanner cannot be nil")
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
	if emitter == nil {
		panic("emitter cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &SyncServiceImpl{
		db:            db,
		scanner:       scanner,
		remStore:      remStore,
		scheduleStore: scheduleStore,
		linkStore:     linkStore,
		emitter:       emitter,
		logger:        logger.With("component", "sync_service"),
	}
}

// Sync runs one full reconciliation pass for a user.
func (s *SyncServiceImpl) Sync(ctx context.Context, userID uuid.UUID) (*SyncReport, error) {
	scanned, err := s.scanner.Scan(ctx)
	if err != nil {
		s.logger.Error("knowledge-base scan failed",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to scan knowledge base: %w", err)
	}

	report := &SyncReport{
		Scanned:  len(scanned),
		SyncedAt: time.Now().UTC(),
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txRems := s.remStore.WithTx(tx)
		txSchedules := s.scheduleStore.WithTx(tx)
		txLinks := s.linkStore.WithTx(tx)

		existing, err := txRems.ListByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list catalog rems: %w", err)
		}
		bySlug := make(map[string]*domain.Rem, len(existing))
		for _, rem := range existing {
			bySlug[rem.Slug] = rem
		}

		seen := make(map[string]struct{}, len(scanned))
		for _, file := range scanned {
			seen[file.Slug] = struct{}{}

			rem, known := bySlug[file.Slug]
			switch {
			case !known:
				if err := s.createFromFile(ctx, tx, userID, file); err != nil {
					return err
				}
				report.Created++
				report.CreatedSlugs = append(report.CreatedSlugs, file.Slug)

			case rem.ContentHash != file.ContentHash:
				if err := s.updateFromFile(ctx, txRems, txLinks, rem, file); err != nil {
					return err
				}
				report.Updated++
				report.UpdatedSlugs = append(report.UpdatedSlugs, file.Slug)

			default:
				report.Unchanged++
			}
		}

		// Files that vanished tombstone their catalog rows. The rows are kept
		// for history; the schedule and outbound edges go away.
		for _, rem := range existing {
			if _, ok := seen[rem.Slug]; ok {
				continue
			}

			if err := txRems.Delete(ctx, rem.ID); err != nil {
				return fmt.Errorf("failed to tombstone rem %q: %w", rem.Slug, err)
			}
			if err := txSchedules.Delete(ctx, userID, rem.ID); err != nil &&
				!errors.Is(err, store.ErrScheduleNotFound) {
				return fmt.Errorf("failed to delete schedule for %q: %w", rem.Slug, err)
			}
			if err := txLinks.DeleteForSlug(ctx, userID, rem.Slug); err != nil {
				return fmt.Errorf("failed to delete links for %q: %w", rem.Slug, err)
			}
			report.Deleted++
			report.DeletedSlugs = append(report.DeletedSlugs, rem.Slug)
		}

		return nil
	})
	if err != nil {
		s.logger.Error("sync transaction failed",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to sync knowledge base: %w", err)
	}

	s.logger.Info("knowledge base synced",
		"user_id", userID,
		"scanned", report.Scanned,
		"created", report.Created,
		"updated", report.Updated,
		"deleted", report.Deleted,
		"unchanged", report.Unchanged)

	// A changing pass can touch many rems at once, so the edge index is
	// rebuilt in the background rather than per rem. The catalog is already
	// committed; a failed emission only delays the rebuild until the next
	// changing pass.
	if report.Created+report.Updated+report.Deleted > 0 {
		event, err := events.NewTaskRequestEvent(
			task.TaskTypeGraphRebuild,
			graphRebuildRequestPayload{UserID: userID.String()},
		)
		if err != nil {
			s.logger.Error("failed to create graph rebuild event",
				"error", err,
				"user_id", userID)
			return report, nil
		}
		if err := s.emitter.EmitEvent(ctx, event); err != nil {
			s.logger.Error("failed to emit graph rebuild event",
				"error", err,
				"user_id", userID)
		}
	}

	return report, nil
}

// RebuildGraph re-derives every knowledge-graph edge from catalog contents.
func (s *SyncServiceImpl) RebuildGraph(ctx context.Context, userID uuid.UUID) error {
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txLinks := s.linkStore.WithTx(tx)

		rems, err := s.remStore.WithTx(tx).ListByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list catalog rems: %w", err)
		}

		for _, rem := range rems {
			if err := txLinks.ReplaceForSlug(ctx, userID, rem.Slug, outboundLinks(rem)); err != nil {
				return fmt.Errorf("failed to rebuild links for %q: %w", rem.Slug, err)
			}
		}

		return nil
	})
	if err != nil {
		s.logger.Error("graph rebuild failed",
			"error", err,
			"user_id", userID)
		return fmt.Errorf("failed to rebuild graph: %w", err)
	}

	s.logger.Info("knowledge graph rebuilt", "user_id", userID)
	return nil
}

// createFromFile inserts a catalog row, schedule, and edges for a file that
// has no catalog entry yet.
func (s *SyncServiceImpl) createFromFile(
	ctx context.Context,
	tx *sql.Tx,
	userID uuid.UUID,
	file *kb.ScannedRem,
) error {
	rem := remFromFile(userID, file)
	if err := rem.Validate(); err != nil {
		return fmt.Errorf("invalid rem file %q: %w", file.Slug, err)
	}

	if err := s.remStore.WithTx(tx).Create(ctx, rem); err != nil {
		return fmt.Errorf("failed to create rem %q: %w", file.Slug, err)
	}

	schedule, err := domain.NewRemSchedule(userID, rem.ID)
	if err != nil {
		return fmt.Errorf("failed to create schedule for %q: %w", file.Slug, err)
	}
	if err := s.scheduleStore.WithTx(tx).Create(ctx, schedule); err != nil {
		return fmt.Errorf("failed to save schedule for %q: %w", file.Slug, err)
	}

	if err := s.linkStore.WithTx(tx).ReplaceForSlug(ctx, userID, rem.Slug, outboundLinks(rem)); err != nil {
		return fmt.Errorf("failed to save links for %q: %w", file.Slug, err)
	}

	return nil
}

// updateFromFile refreshes a catalog row whose file content changed.
func (s *SyncServiceImpl) updateFromFile(
	ctx context.Context,
	txRems store.RemStore,
	txLinks store.LinkStore,
	rem *domain.Rem,
	file *kb.ScannedRem,
) error {
	rem.Title = fileTitle(file)
	rem.Tags = file.File.Frontmatter.Tags
	rem.Source = file.File.Frontmatter.Source
	rem.Body = file.File.Body
	rem.Related = file.File.Frontmatter.Related
	rem.ContentHash = file.ContentHash

	if err := rem.Validate(); err != nil {
		return fmt.Errorf("invalid rem file %q: %w", file.Slug, err)
	}

	if err := txRems.Update(ctx, rem); err != nil {
		return fmt.Errorf("failed to update rem %q: %w", file.Slug, err)
	}

	if err := txLinks.ReplaceForSlug(ctx, rem.UserID, rem.Slug, outboundLinks(rem)); err != nil {
		return fmt.Errorf("failed to replace links for %q: %w", file.Slug, err)
	}

	return nil
}

// remFromFile builds a catalog rem from a scanned file. The frontmatter ID is
// honored when it is a valid UUID so rems keep their identity across an
// export/reimport; otherwise a fresh ID is assigned.
func remFromFile(userID uuid.UUID, file *kb.ScannedRem) *domain.Rem {
	id := uuid.New()
	if parsed, err := uuid.Parse(file.File.Frontmatter.ID); err == nil {
		id = parsed
	}

	now := time.Now().UTC()
	return &domain.Rem{
		ID:          id,
		UserID:      userID,
		Slug:        file.Slug,
		Title:       fileTitle(file),
		Tags:        file.File.Frontmatter.Tags,
		Source:      file.File.Frontmatter.Source,
		Body:        file.File.Body,
		Related:     file.File.Frontmatter.Related,
		ContentHash: file.ContentHash,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// fileTitle returns the frontmatter title, falling back to the slug's last
// segment for files that carry no frontmatter.
func fileTitle(file *kb.ScannedRem) string {
	if title := file.File.Frontmatter.Title; title != "" {
		return title
	}
	return path.Base(file.Slug)
}
