package api

import (
	"log/slog"
	"net/http"

	"github.com/remvault/remvault/internal/api/shared"
	"github.com/remvault/remvault/internal/platform/logger"
	"github.com/remvault/remvault/internal/service"
)

// SystemHandler handles knowledge-base wide operations: filesystem sync,
// maintenance reports, and review-state exports.
type SystemHandler struct {
	syncService        service.SyncService
	maintenanceService service.MaintenanceService
	exportService      service.ExportService
	logger             *slog.Logger
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(
	syncService service.SyncService,
	maintenanceService service.MaintenanceService,
	exportService service.ExportService,
	logger *slog.Logger,
) *SystemHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for SystemHandler")
	}

	return &SystemHandler{
		syncService:        syncService,
		maintenanceService: maintenanceService,
		exportService:      exportService,
		logger:             logger.With(slog.String("component", "system_handler")),
	}
}

// Sync handles POST /sync requests. It reconciles the markdown tree with the
// catalog and returns the change report.
func (h *SystemHandler) Sync(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	report, err := h.syncService.Sync(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to sync knowledge base")
		return
	}

	log.Info("knowledge base synced",
		slog.String("user_id", userID.String()),
		slog.Int("created", report.Created),
		slog.Int("updated", report.Updated),
		slog.Int("deleted", report.Deleted))
	shared.RespondWithJSON(w, r, http.StatusOK, report)
}

// MaintenanceReport handles GET /maintenance/report requests.
func (h *SystemHandler) MaintenanceReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	report, err := h.maintenanceService.Report(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to build maintenance report")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, report)
}

// Export handles POST /export requests. Responds 409 when another export is
// running.
func (h *SystemHandler) Export(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	result, err := h.exportService.Export(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to export review state")
		return
	}

	log.Info("review state exported",
		slog.String("user_id", userID.String()),
		slog.String("dir", result.Dir),
		slog.Int("rem_count", result.RemCount))
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}
