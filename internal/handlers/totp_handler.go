package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"cable-backend/internal/middleware"
	"cable-backend/internal/models"
	"cable-backend/internal/services"
	"cable-backend/pkg/utils"
)

type TOTPHandler struct {
	Service *services.TOTPService
	Audit   *services.AuditService
}

func NewTOTPHandler(s *services.TOTPService, audit *services.AuditService) *TOTPHandler {
	return &TOTPHandler{Service: s, Audit: audit}
}

// Setup provisions a TOTP secret and returns the otpauth URL (admin)
// POST /api/totp/setup
func (h *TOTPHandler) Setup(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	resp, err := h.Service.Setup(r.Context(), actor)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, resp)
}

// Enable turns 2FA on after the first valid code (admin)
// POST /api/totp/enable
func (h *TOTPHandler) Enable(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Code == "" {
		utils.RespondError(w, http.StatusBadRequest, "Verification code is required")
		return
	}

	if err := h.Service.Enable(r.Context(), actor, req.Code); err != nil {
		totpError(w, err)
		return
	}

	h.Audit.RecordAction(actor, "UPDATE", "user", actor.UserID, "Enabled two-factor authentication", getIPAddress(r))

	utils.JSON(w, http.StatusOK, map[string]string{"message": "2FA enabled"})
}

// Disable turns 2FA off; requires the password and a current code
// POST /api/totp/disable
func (h *TOTPHandler) Disable(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.TOTPDisableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.Service.Disable(r.Context(), actor, &req); err != nil {
		totpError(w, err)
		return
	}

	h.Audit.RecordAction(actor, "UPDATE", "user", actor.UserID, "Disabled two-factor authentication", getIPAddress(r))

	utils.JSON(w, http.StatusOK, map[string]string{"message": "2FA disabled"})
}

// Status reports whether the caller has 2FA enabled
// GET /api/totp/status
func (h *TOTPHandler) Status(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	status, err := h.Service.Status(r.Context(), actor)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, status)
}

// totpError keeps the verification failures at 400 instead of the sentinel
// mapping; a wrong code is the caller's mistake, not a missing record.
func totpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidTOTPCode),
		errors.Is(err, services.ErrInvalidPassword),
		errors.Is(err, services.ErrNoTOTPSecret),
		errors.Is(err, services.ErrTOTPNotEnabled):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		utils.ServiceError(w, err)
	}
}
