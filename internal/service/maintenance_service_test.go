package service_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/domain"
	"github.com/remvault/remvault/internal/graph"
	"github.com/remvault/remvault/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaintenanceService_Report(t *testing.T) {
	userID := uuid.New()
	rems := newFakeRemStore()
	schedules := newFakeScheduleStore()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := service.NewMaintenanceService(rems, schedules, 0, logger)

	// linked -> hub exists; linked -> missing is broken; island has no edges.
	hub := mustNewRem(t, userID, "hub", "Hub", "The well-connected rem.")
	linked := mustNewRem(t, userID, "linked", "Linked", "Points at [[hub]] and [[missing]].")
	island := mustNewRem(t, userID, "island", "Island", "Nothing links here.")
	for _, rem := range []*domain.Rem{hub, linked, island} {
		require.NoError(t, rems.Create(context.Background(), rem))
	}

	// One schedule due yesterday, one due tomorrow.
	now := time.Now().UTC()
	dueSchedule, err := domain.NewRemSchedule(userID, hub.ID)
	require.NoError(t, err)
	dueSchedule.NextReviewAt = now.Add(-24 * time.Hour)
	require.NoError(t, schedules.Create(context.Background(), dueSchedule))

	futureSchedule, err := domain.NewRemSchedule(userID, linked.ID)
	require.NoError(t, err)
	futureSchedule.NextReviewAt = now.Add(24 * time.Hour)
	require.NoError(t, schedules.Create(context.Background(), futureSchedule))

	report, err := svc.Report(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalRems)
	assert.Equal(t, 1, report.DueRems)
	assert.Equal(t, []graph.BrokenLink{{From: "linked", To: "missing"}}, report.BrokenLinks)
	assert.Equal(t, []string{"island"}, report.Orphans)
	assert.Empty(t, report.StaleRems)
	assert.Empty(t, report.DanglingSchedules)
	assert.False(t, report.GeneratedAt.IsZero())
}

func TestMaintenanceService_ReportStaleAndDanglingSchedules(t *testing.T) {
	userID := uuid.New()
	rems := newFakeRemStore()
	schedules := newFakeScheduleStore()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := service.NewMaintenanceService(rems, schedules, 30*24*time.Hour, logger)

	fresh := mustNewRem(t, userID, "fresh", "Fresh", "Reviewed yesterday.")
	stale := mustNewRem(t, userID, "stale", "Stale", "Reviewed two months ago.")
	never := mustNewRem(t, userID, "never", "Never", "Created long ago, never reviewed.")
	ghost := mustNewRem(t, userID, "ghost", "Ghost", "About to be tombstoned.")
	for _, rem := range []*domain.Rem{fresh, stale, never, ghost} {
		require.NoError(t, rems.Create(context.Background(), rem))
	}

	now := time.Now().UTC()

	freshSchedule, err := domain.NewRemSchedule(userID, fresh.ID)
	require.NoError(t, err)
	freshSchedule.LastReviewedAt = now.Add(-24 * time.Hour)
	require.NoError(t, schedules.Create(context.Background(), freshSchedule))

	staleSchedule, err := domain.NewRemSchedule(userID, stale.ID)
	require.NoError(t, err)
	staleSchedule.LastReviewedAt = now.Add(-60 * 24 * time.Hour)
	require.NoError(t, schedules.Create(context.Background(), staleSchedule))

	// Never reviewed; ages from its creation time instead.
	neverSchedule, err := domain.NewRemSchedule(userID, never.ID)
	require.NoError(t, err)
	neverSchedule.CreatedAt = now.Add(-45 * 24 * time.Hour)
	require.NoError(t, schedules.Create(context.Background(), neverSchedule))

	// Tombstoning the rem leaves its schedule row behind.
	ghostSchedule, err := domain.NewRemSchedule(userID, ghost.ID)
	require.NoError(t, err)
	require.NoError(t, schedules.Create(context.Background(), ghostSchedule))
	require.NoError(t, rems.Delete(context.Background(), ghost.ID))

	report, err := svc.Report(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, []string{"never", "stale"}, report.StaleRems)
	assert.Equal(t, []string{ghost.ID.String()}, report.DanglingSchedules)
}

func TestMaintenanceService_ReportEmptyBase(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := service.NewMaintenanceService(newFakeRemStore(), newFakeScheduleStore(), 0, logger)

	report, err := svc.Report(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 0, report.TotalRems)
	assert.Equal(t, 0, report.DueRems)
	assert.Empty(t, report.BrokenLinks)
	assert.Empty(t, report.Orphans)
}
