package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"cable-backend/internal/middleware"
	"cable-backend/internal/models"
	"cable-backend/internal/services"
	"cable-backend/pkg/utils"
)

type SystemSettingHandler struct {
	Service *services.SystemSettingService
	Audit   *services.AuditService
}

func NewSystemSettingHandler(s *services.SystemSettingService, audit *services.AuditService) *SystemSettingHandler {
	return &SystemSettingHandler{Service: s, Audit: audit}
}

// secretSettings never leave the API unmasked.
var secretSettings = map[string]bool{
	models.SettingRazorpayKeySecret:     true,
	models.SettingRazorpayWebhookSecret: true,
}

func maskSetting(s *models.SystemSetting) *models.SystemSetting {
	if s == nil || !secretSettings[s.SettingKey] || s.SettingValue == "" {
		return s
	}
	masked := *s
	masked.SettingValue = "********"
	return &masked
}

// GetSetting returns one setting
// GET /api/settings/{key}
func (h *SystemSettingHandler) GetSetting(w http.ResponseWriter, r *http.Request) {
	setting, err := h.Service.Get(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, maskSetting(setting))
}

// ListSettings returns all settings (admin)
// GET /api/settings
func (h *SystemSettingHandler) ListSettings(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	settings, err := h.Service.List(r.Context(), actor)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	masked := make([]*models.SystemSetting, len(settings))
	for i, s := range settings {
		masked[i] = maskSetting(s)
	}

	utils.JSON(w, http.StatusOK, masked)
}

// UpdateSetting creates or updates a setting (admin)
// PUT /api/settings/{key}
func (h *SystemSettingHandler) UpdateSetting(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	key := mux.Vars(r)["key"]

	var req struct {
		SettingValue string `json:"setting_value"`
		Description  string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.Service.Set(r.Context(), actor, key, req.SettingValue, req.Description); err != nil {
		utils.ServiceError(w, err)
		return
	}

	// The audit trail records the key only, never the value.
	h.Audit.RecordAction(actor, "UPDATE", "system_setting", 0,
		fmt.Sprintf("Changed setting %s", key), getIPAddress(r))

	utils.JSON(w, http.StatusOK, map[string]string{"setting_key": key, "message": "setting updated"})
}
