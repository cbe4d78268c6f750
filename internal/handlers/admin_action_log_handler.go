package handlers

import (
	"net/http"
	"strconv"

	"cable-backend/internal/middleware"
	"cable-backend/internal/models"
	"cable-backend/internal/services"
	"cable-backend/internal/timeutil"
	"cable-backend/pkg/utils"
)

type AdminActionLogHandler struct {
	Service *services.AuditService
}

func NewAdminActionLogHandler(s *services.AuditService) *AdminActionLogHandler {
	return &AdminActionLogHandler{Service: s}
}

// ListActionLogs returns the admin action trail (admin)
// GET /api/action-logs?admin_user_id=&action_type=&target_type=&start_date=&end_date=&limit=&offset=
func (h *AdminActionLogHandler) ListActionLogs(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	filter := models.AdminActionLogFilter{
		ActionType: r.URL.Query().Get("action_type"),
		TargetType: r.URL.Query().Get("target_type"),
		Limit:      100,
	}
	if u := r.URL.Query().Get("admin_user_id"); u != "" {
		if n, err := strconv.Atoi(u); err == nil && n > 0 {
			filter.AdminUserID = n
		}
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			filter.Offset = n
		}
	}
	if s := r.URL.Query().Get("start_date"); s != "" {
		if t, err := timeutil.ParseInIST(timeutil.DateLayout, s); err == nil {
			filter.StartDate = &t
		}
	}
	if e := r.URL.Query().Get("end_date"); e != "" {
		if t, err := timeutil.ParseInIST(timeutil.DateLayout, e); err == nil {
			endOfDay := timeutil.EndOfDay(t)
			filter.EndDate = &endOfDay
		}
	}

	logs, err := h.Service.List(r.Context(), actor, filter)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, logs)
}
