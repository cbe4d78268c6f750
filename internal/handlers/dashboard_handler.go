package handlers

import (
	"net/http"

	"cable-backend/internal/services"
	"cable-backend/pkg/utils"
)

type DashboardHandler struct {
	Service *services.DashboardService
}

func NewDashboardHandler(s *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{Service: s}
}

// GetStats returns the dashboard snapshot, cached for a few minutes
// GET /api/dashboard/stats
func (h *DashboardHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Stats(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "Failed to compute dashboard stats")
		return
	}

	utils.JSON(w, http.StatusOK, stats)
}
