package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSyncService implements service.SyncService with function fields.
type stubSyncService struct {
	syncFn         func(ctx context.Context, userID uuid.UUID) (*service.SyncReport, error)
	rebuildGraphFn func(ctx context.Context, userID uuid.UUID) error
}

func (s *stubSyncService) Sync(ctx context.Context, userID uuid.UUID) (*service.SyncReport, error) {
	return s.syncFn(ctx, userID)
}

func (s *stubSyncService) RebuildGraph(ctx context.Context, userID uuid.UUID) error {
	return s.rebuildGraphFn(ctx, userID)
}

// stubMaintenanceService implements service.MaintenanceService.
type stubMaintenanceService struct {
	reportFn func(ctx context.Context, userID uuid.UUID) (*service.MaintenanceReport, error)
}

func (s *stubMaintenanceService) Report(ctx context.Context, userID uuid.UUID) (*service.MaintenanceReport, error) {
	return s.reportFn(ctx, userID)
}

// stubExportService implements service.ExportService.
type stubExportService struct {
	exportFn func(ctx context.Context, userID uuid.UUID) (*service.ExportResult, error)
}

func (s *stubExportService) Export(ctx context.Context, userID uuid.UUID) (*service.ExportResult, error) {
	return s.exportFn(ctx, userID)
}

func newSystemRouter(sync *stubSyncService, maintenance *stubMaintenanceService, export *stubExportService) chi.Router {
	if sync == nil {
		sync = &stubSyncService{}
	}
	if maintenance == nil {
		maintenance = &stubMaintenanceService{}
	}
	if export == nil {
		export = &stubExportService{}
	}

	h := NewSystemHandler(sync, maintenance, export, testLogger())
	r := chi.NewRouter()
	r.Post("/sync", h.Sync)
	r.Get("/maintenance/report", h.MaintenanceReport)
	r.Post("/export", h.Export)
	return r
}

func TestSystemHandler_Sync(t *testing.T) {
	userID := uuid.New()

	t.Run("returns the change report", func(t *testing.T) {
		sync := &stubSyncService{
			syncFn: func(ctx context.Context, gotUser uuid.UUID) (*service.SyncReport, error) {
				assert.Equal(t, userID, gotUser)
				return &service.SyncReport{
					Scanned:      3,
					Created:      1,
					Updated:      1,
					Unchanged:    1,
					CreatedSlugs: []string{"new/rem"},
					SyncedAt:     time.Now().UTC(),
				}, nil
			},
		}

		rec := httptest.NewRecorder()
		newSystemRouter(sync, nil, nil).ServeHTTP(rec,
			authedRequest(t, http.MethodPost, "/sync", nil, userID))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp service.SyncReport
		decodeBody(t, rec, &resp)
		assert.Equal(t, 1, resp.Created)
		assert.Equal(t, []string{"new/rem"}, resp.CreatedSlugs)
	})

	t.Run("missing user context responds 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newSystemRouter(nil, nil, nil).ServeHTTP(rec,
			authedRequest(t, http.MethodPost, "/sync", nil, uuid.Nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSystemHandler_MaintenanceReport(t *testing.T) {
	userID := uuid.New()
	maintenance := &stubMaintenanceService{
		reportFn: func(ctx context.Context, gotUser uuid.UUID) (*service.MaintenanceReport, error) {
			return &service.MaintenanceReport{
				GeneratedAt: time.Now().UTC(),
				TotalRems:   10,
				DueRems:     2,
				Orphans:     []string{"island"},
			}, nil
		},
	}

	rec := httptest.NewRecorder()
	newSystemRouter(nil, maintenance, nil).ServeHTTP(rec,
		authedRequest(t, http.MethodGet, "/maintenance/report", nil, userID))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp service.MaintenanceReport
	decodeBody(t, rec, &resp)
	assert.Equal(t, 10, resp.TotalRems)
	assert.Equal(t, 2, resp.DueRems)
	assert.Equal(t, []string{"island"}, resp.Orphans)
}

func TestSystemHandler_Export(t *testing.T) {
	userID := uuid.New()

	t.Run("returns the export result", func(t *testing.T) {
		export := &stubExportService{
			exportFn: func(ctx context.Context, gotUser uuid.UUID) (*service.ExportResult, error) {
				return &service.ExportResult{
					Dir:        "/kb/.review",
					RemCount:   7,
					ExportedAt: time.Now().UTC(),
				}, nil
			},
		}

		rec := httptest.NewRecorder()
		newSystemRouter(nil, nil, export).ServeHTTP(rec,
			authedRequest(t, http.MethodPost, "/export", nil, userID))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp service.ExportResult
		decodeBody(t, rec, &resp)
		assert.Equal(t, 7, resp.RemCount)
	})

	t.Run("concurrent export responds 409", func(t *testing.T) {
		export := &stubExportService{
			exportFn: func(ctx context.Context, userID uuid.UUID) (*service.ExportResult, error) {
				return nil, service.ErrExportInProgress
			},
		}

		rec := httptest.NewRecorder()
		newSystemRouter(nil, nil, export).ServeHTTP(rec,
			authedRequest(t, http.MethodPost, "/export", nil, userID))

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}
