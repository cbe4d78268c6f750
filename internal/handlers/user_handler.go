package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"cable-backend/internal/middleware"
	"cable-backend/internal/models"
	"cable-backend/internal/services"
	"cable-backend/pkg/utils"
)

type UserHandler struct {
	Service *services.UserService
	Audit   *services.AuditService
}

func NewUserHandler(s *services.UserService, audit *services.AuditService) *UserHandler {
	return &UserHandler{Service: s, Audit: audit}
}

// CreateUser adds a collector or admin account (admin)
// POST /api/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.Service.CreateUser(r.Context(), actor, &req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	h.Audit.RecordAction(actor, "CREATE", "user", user.ID,
		fmt.Sprintf("Created %s account %s", user.Role, user.Email), getIPAddress(r))

	utils.JSON(w, http.StatusCreated, user)
}

// GetUser returns one user (admin, or the user themselves)
// GET /api/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	user, err := h.Service.GetUser(r.Context(), actor, id)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, user)
}

// ListUsers returns all accounts (admin)
// GET /api/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	users, err := h.Service.ListUsers(r.Context(), actor)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, users)
}

// UpdateUser edits an account: name, email, phone, role, areas, password (admin)
// PUT /api/users/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	var req models.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.Service.UpdateUser(r.Context(), actor, id, &req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	h.Audit.RecordAction(actor, "UPDATE", "user", user.ID,
		fmt.Sprintf("Updated account %s", user.Email), getIPAddress(r))

	utils.JSON(w, http.StatusOK, user)
}

// SetActive suspends or restores an account (admin)
// POST /api/users/{id}/active
func (h *UserHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	var req struct {
		IsActive bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.Service.SetUserActive(r.Context(), actor, id, req.IsActive); err != nil {
		utils.ServiceError(w, err)
		return
	}

	verb := "Suspended"
	if req.IsActive {
		verb = "Restored"
	}
	h.Audit.RecordAction(actor, "UPDATE", "user", id, fmt.Sprintf("%s account #%d", verb, id), getIPAddress(r))

	utils.JSON(w, http.StatusOK, map[string]interface{}{"id": id, "is_active": req.IsActive})
}

// DeleteUser removes an account (admin)
// DELETE /api/users/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	if err := h.Service.DeleteUser(r.Context(), actor, id); err != nil {
		utils.ServiceError(w, err)
		return
	}

	h.Audit.RecordAction(actor, "DELETE", "user", id, fmt.Sprintf("Deleted account #%d", id), getIPAddress(r))

	w.WriteHeader(http.StatusNoContent)
}
