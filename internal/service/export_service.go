package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/domain"
	"github.com/remvault/remvault/internal/kb"
	"github.com/remvault/remvault/internal/store"
)

// ErrExportInProgress indicates another export holds the lock file.
var ErrExportInProgress = errors.New("an export is already in progress")

// exportLockFile guards against two concurrent exports clobbering each other.
const exportLockFile = ".export.lock"

// ExportResult describes a completed snapshot export.
type ExportResult struct {
	Dir           string    `json:"dir"`
	ScheduleFile  string    `json:"schedule_file"`
	BacklinksFile string    `json:"backlinks_file"`
	RemCount      int       `json:"rem_count"`
	ExportedAt    time.Time `json:"exported_at"`
}

// exportedSchedule is one row of schedule.json, keyed by slug so the file is
// meaningful without database access.
type exportedSchedule struct {
	Slug           string     `json:"slug"`
	Stability      float64    `json:"stability"`
	Difficulty     float64    `json:"difficulty"`
	IntervalDays   int        `json:"interval_days"`
	ReviewCount    int        `json:"review_count"`
	LapseCount     int        `json:"lapse_count"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
	NextReviewAt   time.Time  `json:"next_review_at"`
}

// ExportService writes review-state snapshots into the knowledge-base tree so
// schedules and backlinks survive in plain files next to the rems they
// describe.
type ExportService interface {
	// Export writes schedule.json and backlinks.json into the export
	// directory. Returns ErrExportInProgress if another export holds the
	// lock.
	Export(ctx context.Context, userID uuid.UUID) (*ExportResult, error)
}

// ExportServiceImpl implements the ExportService interface
type ExportServiceImpl struct {
	remStore      store.RemStore
	scheduleStore store.ScheduleStore
	linkStore     store.LinkStore
	exportDir     string
	logger        *slog.Logger
}

// Verify interface compliance at compile time
var _ ExportService = (*ExportServiceImpl)(nil)

// NewExportService creates a new ExportService. exportDir is the absolute
// directory snapshots are written to.
func NewExportService(
	remStore store.RemStore,
	scheduleStore store.ScheduleStore,
	linkStore store.LinkStore,
	exportDir string,
	logger *slog.Logger,
) ExportService {
	if remStore == nil {
		panic("remStore cannot be nil")
	}
	if scheduleStore == nil {
		panic("scheduleStore cannot be nil")
	}
	if linkStore == nil {
		panic("linkStore cannot be nil")
	}
	if exportDir == "" {
		panic("exportDir cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ExportServiceImpl{
		remStore:      remStore,
		scheduleStore: scheduleStore,
		linkStore:     linkStore,
		exportDir:     exportDir,
		logger:        logger.With("component", "export_service"),
	}
}

// Export writes schedule.json and backlinks.json into the export directory.
func (s *ExportServiceImpl) Export(
	ctx context.Context,
	userID uuid.UUID,
) (*ExportResult, error) {
	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	unlock, err := s.acquireLock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	rems, err := s.remStore.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list rems for export",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to export: %w", err)
	}
	slugByID := make(map[uuid.UUID]string, len(rems))
	for _, rem := range rems {
		slugByID[rem.ID] = rem.Slug
	}

	schedules, err := s.scheduleStore.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list schedules for export",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to export: %w", err)
	}

	links, err := s.linkStore.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list links for export",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to export: %w", err)
	}

	schedulePath := filepath.Join(s.exportDir, "schedule.json")
	if err := writeJSON(schedulePath, exportSchedules(schedules, slugByID)); err != nil {
		return nil, err
	}

	backlinksPath := filepath.Join(s.exportDir, "backlinks.json")
	if err := writeJSON(backlinksPath, exportBacklinks(links)); err != nil {
		return nil, err
	}

	result := &ExportResult{
		Dir:           s.exportDir,
		ScheduleFile:  schedulePath,
		BacklinksFile: backlinksPath,
		RemCount:      len(rems),
		ExportedAt:    time.Now().UTC(),
	}

	s.logger.Info("export completed",
		"user_id", userID,
		"dir", s.exportDir,
		"rem_count", result.RemCount)

	return result, nil
}

// acquireLock takes the export lock file with O_EXCL so only one export runs
// at a time. The returned function releases the lock.
func (s *ExportServiceImpl) acquireLock() (func(), error) {
	lockPath := filepath.Join(s.exportDir, exportLockFile)
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrExportInProgress
		}
		return nil, fmt.Errorf("failed to acquire export lock: %w", err)
	}
	_ = f.Close()

	return func() {
		if err := os.Remove(lockPath); err != nil {
			s.logger.Warn("failed to release export lock",
				"error", err,
				"path", lockPath)
		}
	}, nil
}

// exportSchedules converts schedules to their file representation, sorted by
// slug. Schedules whose rem is tombstoned are skipped.
func exportSchedules(
	schedules []*domain.RemSchedule,
	slugByID map[uuid.UUID]string,
) []exportedSchedule {
	out := make([]exportedSchedule, 0, len(schedules))
	for _, schedule := range schedules {
		slug, ok := slugByID[schedule.RemID]
		if !ok {
			continue
		}

		row := exportedSchedule{
			Slug:         slug,
			Stability:    schedule.Stability,
			Difficulty:   schedule.Difficulty,
			IntervalDays: schedule.Interval,
			ReviewCount:  schedule.ReviewCount,
			LapseCount:   schedule.LapseCount,
			NextReviewAt: schedule.NextReviewAt,
		}
		if !schedule.LastReviewedAt.IsZero() {
			last := schedule.LastReviewedAt
			row.LastReviewedAt = &last
		}
		out = append(out, row)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

// exportBacklinks inverts the edge list into target -> sorted sources.
func exportBacklinks(links []store.Link) map[string][]string {
	backlinks := make(map[string][]string)
	for _, link := range links {
		backlinks[link.ToSlug] = append(backlinks[link.ToSlug], link.FromSlug)
	}
	for slug := range backlinks {
		sort.Strings(backlinks[slug])
	}
	return backlinks
}

// writeJSON marshals v and writes it atomically.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')

	if err := kb.AtomicWriteFile(path, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
