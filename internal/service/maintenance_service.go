package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/domain"
	"github.com/remvault/remvault/internal/graph"
	"github.com/remvault/remvault/internal/store"
)

// MaintenanceReport is a health snapshot of a user's knowledge base: link rot,
// disconnected rems, and review backlog.
type MaintenanceReport struct {
	GeneratedAt time.Time `json:"generated_at"`

	// TotalRems counts the user's live rems.
	TotalRems int `json:"total_rems"`

	// DueRems counts rems whose next review time has passed.
	DueRems int `json:"due_rems"`

	// BrokenLinks lists links whose target slug has no rem.
	BrokenLinks []graph.BrokenLink `json:"broken_links,omitempty"`

	// Orphans lists rems with no inbound and no outbound links.
	Orphans []string `json:"orphans,omitempty"`

	// StaleRems lists rems with no review activity inside the staleness
	// window. Rems that were never reviewed age from their creation time.
	StaleRems []string `json:"stale_rems,omitempty"`

	// DanglingSchedules lists rem IDs of schedule rows whose rem is deleted
	// or missing from the catalog.
	DanglingSchedules []string `json:"dangling_schedules,omitempty"`
}

// MaintenanceService produces knowledge-base health reports.
type MaintenanceService interface {
	// Report computes the current health snapshot for a user.
	Report(ctx context.Context, userID uuid.UUID) (*MaintenanceReport, error)
}

// defaultStaleAfter flags rems untouched for a quarter year.
const defaultStaleAfter = 90 * 24 * time.Hour

// MaintenanceServiceImpl implements the MaintenanceService interface
type MaintenanceServiceImpl struct {
	remStore      store.RemStore
	scheduleStore store.ScheduleStore
	staleAfter    time.Duration
	logger        *slog.Logger
}

// Verify interface compliance at compile time
var _ MaintenanceService = (*MaintenanceServiceImpl)(nil)

// NewMaintenanceService creates a new MaintenanceService. staleAfter is the
// review-inactivity window for flagging stale rems; zero or negative values
// fall back to the default.
func NewMaintenanceService(
	remStore store.RemStore,
	scheduleStore store.ScheduleStore,
	staleAfter time.Duration,
	logger *slog.Logger,
) MaintenanceService {
	if remStore == nil {
		panic("remStore cannot be nil")
	}
	if scheduleStore == nil {
		panic("scheduleStore cannot be nil")
	}
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &MaintenanceServiceImpl{
		remStore:      remStore,
		scheduleStore: scheduleStore,
		staleAfter:    staleAfter,
		logger:        logger.With("component", "maintenance_service"),
	}
}

// Report computes the current health snapshot for a user.
func (s *MaintenanceServiceImpl) Report(
	ctx context.Context,
	userID uuid.UUID,
) (*MaintenanceReport, error) {
	rems, err := s.remStore.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list rems for maintenance report",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to build maintenance report: %w", err)
	}

	now := time.Now().UTC()
	due, err := s.scheduleStore.CountDue(ctx, userID, now)
	if err != nil {
		s.logger.Error("failed to count due rems",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to build maintenance report: %w", err)
	}

	schedules, err := s.scheduleStore.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list schedules for maintenance report",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to build maintenance report: %w", err)
	}

	index := buildIndex(rems)
	stale, dangling := auditSchedules(rems, schedules, now, s.staleAfter)

	report := &MaintenanceReport{
		GeneratedAt:       now,
		TotalRems:         len(rems),
		DueRems:           due,
		BrokenLinks:       index.Broken,
		Orphans:           index.Orphans,
		StaleRems:         stale,
		DanglingSchedules: dangling,
	}

	s.logger.Info("maintenance report generated",
		"user_id", userID,
		"total_rems", report.TotalRems,
		"due_rems", report.DueRems,
		"broken_links", len(report.BrokenLinks),
		"orphans", len(report.Orphans),
		"stale_rems", len(report.StaleRems),
		"dangling_schedules", len(report.DanglingSchedules))

	return report, nil
}

// auditSchedules cross-checks schedule rows against the live rem catalog.
// It returns the slugs of rems with no review activity inside the staleness
// window and the rem IDs of schedules whose rem row is gone.
func auditSchedules(
	rems []*domain.Rem,
	schedules []*domain.RemSchedule,
	now time.Time,
	staleAfter time.Duration,
) (stale, dangling []string) {
	byID := make(map[uuid.UUID]*domain.Rem, len(rems))
	for _, rem := range rems {
		byID[rem.ID] = rem
	}

	for _, schedule := range schedules {
		rem, live := byID[schedule.RemID]
		if !live {
			dangling = append(dangling, schedule.RemID.String())
			continue
		}

		lastActivity := schedule.LastReviewedAt
		if lastActivity.IsZero() {
			lastActivity = schedule.CreatedAt
		}
		if now.Sub(lastActivity) > staleAfter {
			stale = append(stale, rem.Slug)
		}
	}

	sort.Strings(stale)
	sort.Strings(dangling)
	return stale, dangling
}
