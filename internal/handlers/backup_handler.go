package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cable-backend/internal/backup"
	"cable-backend/internal/middleware"
	"cable-backend/internal/services"
	"cable-backend/pkg/utils"
)

type BackupHandler struct {
	Scheduler *backup.Scheduler
	Audit     *services.AuditService
}

func NewBackupHandler(scheduler *backup.Scheduler, audit *services.AuditService) *BackupHandler {
	return &BackupHandler{Scheduler: scheduler, Audit: audit}
}

// TriggerBackup runs a backup right now (admin)
// POST /api/backup/run
func (h *BackupHandler) TriggerBackup(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if h.Scheduler == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "Backups are not configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	key, size, err := h.Scheduler.Run(ctx)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("Backup failed: %v", err))
		return
	}

	h.Audit.RecordAction(actor, "BACKUP", "database", 0,
		fmt.Sprintf("Manual backup uploaded as %s", key), getIPAddress(r))

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"key":        key,
		"size_bytes": size,
	})
}

// BackupStatus reports the last backup outcome (admin)
// GET /api/backup/status
func (h *BackupHandler) BackupStatus(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil {
		utils.JSON(w, http.StatusOK, map[string]interface{}{"running": false, "configured": false})
		return
	}

	utils.JSON(w, http.StatusOK, h.Scheduler.Status())
}
