package service_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/kb"
	"github.com/remvault/remvault/internal/service"
	"github.com/remvault/remvault/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncServiceFixture struct {
	svc       service.SyncService
	rems      *fakeRemStore
	schedules *fakeScheduleStore
	links     *fakeLinkStore
	emitter   *recordingEmitter
	root      string
}

func newSyncServiceFixture(t *testing.T) *syncServiceFixture {
	t.Helper()

	root := t.TempDir()
	rems := newFakeRemStore()
	schedules := newFakeScheduleStore()
	links := newFakeLinkStore()
	emitter := &recordingEmitter{}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	svc := service.NewSyncService(newTxDB(t), kb.NewScanner(root), rems, schedules, links, emitter, logger)
	return &syncServiceFixture{
		svc:       svc,
		rems:      rems,
		schedules: schedules,
		links:     links,
		emitter:   emitter,
		root:      root,
	}
}

func (fx *syncServiceFixture) writeFile(t *testing.T, relPath, content string) {
	t.Helper()
	path := filepath.Join(fx.root, filepath.FromSlash(relPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestSyncService_Sync(t *testing.T) {
	userID := uuid.New()

	t.Run("first pass creates catalog rows for every file", func(t *testing.T) {
		fx := newSyncServiceFixture(t)
		fx.writeFile(t, "go/channels.md", `---
title: Go channels
tags: [go]
---
Channels connect goroutines. See [[go/goroutines]].
`)
		fx.writeFile(t, "go/goroutines.md", `---
title: Goroutines
---
Lightweight threads.
`)

		report, err := fx.svc.Sync(context.Background(), userID)
		require.NoError(t, err)

		assert.Equal(t, 2, report.Scanned)
		assert.Equal(t, 2, report.Created)
		assert.Equal(t, 0, report.Updated)
		assert.Equal(t, 0, report.Deleted)
		assert.ElementsMatch(t, []string{"go/channels", "go/goroutines"}, report.CreatedSlugs)

		rem, err := fx.rems.GetBySlug(context.Background(), userID, "go/channels")
		require.NoError(t, err)
		assert.Equal(t, "Go channels", rem.Title)
		assert.Equal(t, []string{"go"}, rem.Tags)
		assert.NotEmpty(t, rem.ContentHash)

		// Schedules make new rems immediately reviewable.
		_, err = fx.schedules.Get(context.Background(), userID, rem.ID)
		require.NoError(t, err)

		// Links were indexed from the body.
		assert.Equal(t, []string{"go/goroutines"}, fx.links.outbound(userID, "go/channels"))
	})

	t.Run("second pass is a no-op for unchanged files", func(t *testing.T) {
		fx := newSyncServiceFixture(t)
		fx.writeFile(t, "a.md", "---\ntitle: A\n---\nBody A.\n")

		_, err := fx.svc.Sync(context.Background(), userID)
		require.NoError(t, err)

		report, err := fx.svc.Sync(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Created)
		assert.Equal(t, 0, report.Updated)
		assert.Equal(t, 0, report.Deleted)
		assert.Equal(t, 1, report.Unchanged)
	})

	t.Run("changed content refreshes the row and its links", func(t *testing.T) {
		fx := newSyncServiceFixture(t)
		fx.writeFile(t, "notes.md", "---\ntitle: Notes\n---\nOld body. See [[a]].\n")

		_, err := fx.svc.Sync(context.Background(), userID)
		require.NoError(t, err)
		before, err := fx.rems.GetBySlug(context.Background(), userID, "notes")
		require.NoError(t, err)

		fx.writeFile(t, "notes.md", "---\ntitle: Notes v2\n---\nNew body. See [[b]].\n")

		report, err := fx.svc.Sync(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Updated)
		assert.Equal(t, []string{"notes"}, report.UpdatedSlugs)

		after, err := fx.rems.GetBySlug(context.Background(), userID, "notes")
		require.NoError(t, err)
		assert.Equal(t, before.ID, after.ID, "identity survives content changes")
		assert.Equal(t, "Notes v2", after.Title)
		assert.NotEqual(t, before.ContentHash, after.ContentHash)
		assert.Equal(t, []string{"b"}, fx.links.outbound(userID, "notes"))
	})

	t.Run("vanished files tombstone their rows", func(t *testing.T) {
		fx := newSyncServiceFixture(t)
		fx.writeFile(t, "keep.md", "---\ntitle: Keep\n---\nKept.\n")
		fx.writeFile(t, "drop.md", "---\ntitle: Drop\n---\nDropped. See [[keep]].\n")

		_, err := fx.svc.Sync(context.Background(), userID)
		require.NoError(t, err)
		dropped, err := fx.rems.GetBySlug(context.Background(), userID, "drop")
		require.NoError(t, err)

		require.NoError(t, os.Remove(filepath.Join(fx.root, "drop.md")))

		report, err := fx.svc.Sync(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Deleted)
		assert.Equal(t, []string{"drop"}, report.DeletedSlugs)

		// Row is tombstoned, not erased; schedule and edges are gone.
		tombstoned, err := fx.rems.GetByID(context.Background(), dropped.ID)
		require.NoError(t, err)
		assert.True(t, tombstoned.IsDeleted())
		_, err = fx.schedules.Get(context.Background(), userID, dropped.ID)
		assert.Error(t, err)
		assert.Empty(t, fx.links.outbound(userID, "drop"))
	})

	t.Run("frontmatter UUID is honored as the rem identity", func(t *testing.T) {
		fx := newSyncServiceFixture(t)
		id := uuid.New()
		fx.writeFile(t, "pinned.md", "---\nid: "+id.String()+"\ntitle: Pinned\n---\nBody.\n")

		_, err := fx.svc.Sync(context.Background(), userID)
		require.NoError(t, err)

		rem, err := fx.rems.GetBySlug(context.Background(), userID, "pinned")
		require.NoError(t, err)
		assert.Equal(t, id, rem.ID)
	})

	t.Run("dot directories are not scanned", func(t *testing.T) {
		fx := newSyncServiceFixture(t)
		fx.writeFile(t, "real.md", "---\ntitle: Real\n---\nBody.\n")
		fx.writeFile(t, ".chats/transcript.md", "---\ntitle: A chat\n---\nNot a rem.\n")
		fx.writeFile(t, ".review/schedule.md", "---\ntitle: Export\n---\nNot a rem.\n")

		report, err := fx.svc.Sync(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Scanned)
		assert.Equal(t, []string{"real"}, report.CreatedSlugs)
	})
}

func TestSyncService_SyncRequestsGraphRebuild(t *testing.T) {
	userID := uuid.New()

	t.Run("changing pass emits one rebuild request", func(t *testing.T) {
		fx := newSyncServiceFixture(t)
		fx.writeFile(t, "a.md", "---\ntitle: A\n---\nBody A.\n")

		_, err := fx.svc.Sync(context.Background(), userID)
		require.NoError(t, err)

		require.Len(t, fx.emitter.events, 1)
		event := fx.emitter.events[0]
		assert.Equal(t, task.TaskTypeGraphRebuild, event.Type)

		var payload struct {
			UserID string `json:"user_id"`
		}
		require.NoError(t, event.UnmarshalPayload(&payload))
		assert.Equal(t, userID.String(), payload.UserID)
	})

	t.Run("no-op pass emits nothing", func(t *testing.T) {
		fx := newSyncServiceFixture(t)
		fx.writeFile(t, "a.md", "---\ntitle: A\n---\nBody A.\n")

		_, err := fx.svc.Sync(context.Background(), userID)
		require.NoError(t, err)
		require.Len(t, fx.emitter.events, 1)

		_, err = fx.svc.Sync(context.Background(), userID)
		require.NoError(t, err)
		assert.Len(t, fx.emitter.events, 1, "unchanged pass must not request a rebuild")
	})

	t.Run("emit failure does not fail the sync", func(t *testing.T) {
		fx := newSyncServiceFixture(t)
		fx.emitter.err = errors.New("emitter down")
		fx.writeFile(t, "a.md", "---\ntitle: A\n---\nBody A.\n")

		report, err := fx.svc.Sync(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Created)
	})
}

func TestSyncService_RebuildGraph(t *testing.T) {
	userID := uuid.New()
	fx := newSyncServiceFixture(t)
	fx.writeFile(t, "x.md", "---\ntitle: X\nrelated: [y]\n---\nBody with [[z]].\n")

	_, err := fx.svc.Sync(context.Background(), userID)
	require.NoError(t, err)

	// Wipe the edges, then rebuild them from catalog contents.
	require.NoError(t, fx.links.DeleteForSlug(context.Background(), userID, "x"))
	assert.Empty(t, fx.links.outbound(userID, "x"))

	require.NoError(t, fx.svc.RebuildGraph(context.Background(), userID))
	assert.Equal(t, []string{"y", "z"}, fx.links.outbound(userID, "x"))
}
