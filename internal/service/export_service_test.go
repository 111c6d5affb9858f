package service_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/domain"
	"github.com/remvault/remvault/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type exportServiceFixture struct {
	svc       service.ExportService
	rems      *fakeRemStore
	schedules *fakeScheduleStore
	links     *fakeLinkStore
	exportDir string
}

func newExportServiceFixture(t *testing.T) *exportServiceFixture {
	t.Helper()

	exportDir := filepath.Join(t.TempDir(), ".review")
	rems := newFakeRemStore()
	schedules := newFakeScheduleStore()
	links := newFakeLinkStore()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	svc := service.NewExportService(rems, schedules, links, exportDir, logger)
	return &exportServiceFixture{svc: svc, rems: rems, schedules: schedules, links: links, exportDir: exportDir}
}

func (fx *exportServiceFixture) seedRem(t *testing.T, userID uuid.UUID, slug string, nextReview time.Time) *domain.Rem {
	t.Helper()

	rem := mustNewRem(t, userID, slug, "Title of "+slug, "Body of "+slug+".")
	require.NoError(t, fx.rems.Create(context.Background(), rem))

	schedule, err := domain.NewRemSchedule(userID, rem.ID)
	require.NoError(t, err)
	schedule.NextReviewAt = nextReview
	require.NoError(t, fx.schedules.Create(context.Background(), schedule))

	return rem
}

func TestExportService_Export(t *testing.T) {
	userID := uuid.New()
	now := time.Now().UTC()

	t.Run("writes schedule and backlink snapshots", func(t *testing.T) {
		fx := newExportServiceFixture(t)
		fx.seedRem(t, userID, "go/channels", now)
		fx.seedRem(t, userID, "go/select", now.Add(48*time.Hour))
		require.NoError(t, fx.links.ReplaceForSlug(context.Background(), userID, "go/channels", []string{"go/select"}))

		result, err := fx.svc.Export(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, 2, result.RemCount)
		assert.Equal(t, fx.exportDir, result.Dir)

		// schedule.json is keyed by slug, sorted.
		var rows []map[string]any
		scheduleData, err := os.ReadFile(result.ScheduleFile)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(scheduleData, &rows))
		require.Len(t, rows, 2)
		assert.Equal(t, "go/channels", rows[0]["slug"])
		assert.Equal(t, "go/select", rows[1]["slug"])
		assert.Contains(t, rows[0], "next_review_at")

		// backlinks.json inverts the edge list.
		var backlinks map[string][]string
		backlinkData, err := os.ReadFile(result.BacklinksFile)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(backlinkData, &backlinks))
		assert.Equal(t, map[string][]string{"go/select": {"go/channels"}}, backlinks)

		// The lock is released after a successful export.
		_, err = os.Stat(filepath.Join(fx.exportDir, ".export.lock"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("tombstoned rems are excluded from the schedule snapshot", func(t *testing.T) {
		fx := newExportServiceFixture(t)
		kept := fx.seedRem(t, userID, "kept", now)
		dropped := fx.seedRem(t, userID, "dropped", now)
		require.NoError(t, fx.rems.Delete(context.Background(), dropped.ID))

		result, err := fx.svc.Export(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, 1, result.RemCount)

		var rows []map[string]any
		scheduleData, err := os.ReadFile(result.ScheduleFile)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(scheduleData, &rows))
		require.Len(t, rows, 1)
		assert.Equal(t, kept.Slug, rows[0]["slug"])
	})

	t.Run("held lock rejects a second export", func(t *testing.T) {
		fx := newExportServiceFixture(t)
		require.NoError(t, os.MkdirAll(fx.exportDir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(fx.exportDir, ".export.lock"), nil, 0o644))

		_, err := fx.svc.Export(context.Background(), userID)
		assert.ErrorIs(t, err, service.ErrExportInProgress)
	})

	t.Run("empty knowledge base still produces snapshots", func(t *testing.T) {
		fx := newExportServiceFixture(t)

		result, err := fx.svc.Export(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, 0, result.RemCount)

		_, err = os.Stat(result.ScheduleFile)
		require.NoError(t, err)
		_, err = os.Stat(result.BacklinksFile)
		require.NoError(t, err)
	})
}
