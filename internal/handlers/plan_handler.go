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

type PlanHandler struct {
	Service *services.PlanService
	Audit   *services.AuditService
}

func NewPlanHandler(s *services.PlanService, audit *services.AuditService) *PlanHandler {
	return &PlanHandler{Service: s, Audit: audit}
}

// CreatePlan adds a plan to the catalogue (admin)
// POST /api/plans
func (h *PlanHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	plan, err := h.Service.CreatePlan(r.Context(), actor, &req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	h.Audit.RecordAction(actor, "CREATE", "plan", plan.ID,
		fmt.Sprintf("Created plan %s at Rs. %.2f", plan.Name, plan.Price), getIPAddress(r))

	utils.JSON(w, http.StatusCreated, plan)
}

// GetPlan returns one plan
// GET /api/plans/{id}
func (h *PlanHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid plan id")
		return
	}

	plan, err := h.Service.GetPlan(r.Context(), id)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, plan)
}

// ListPlans returns the plan catalogue
// GET /api/plans?include_inactive=true
func (h *PlanHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	plans, err := h.Service.ListPlans(r.Context(), actor, includeInactive)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, plans)
}

// UpdatePlan edits a catalogue plan (admin); existing connections keep their
// copied price until changed through an approval
// PUT /api/plans/{id}
func (h *PlanHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid plan id")
		return
	}

	var req models.UpdatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	plan, err := h.Service.UpdatePlan(r.Context(), actor, id, &req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	h.Audit.RecordAction(actor, "UPDATE", "plan", plan.ID,
		fmt.Sprintf("Updated plan %s", plan.Name), getIPAddress(r))

	utils.JSON(w, http.StatusOK, plan)
}

// DeletePlan removes a plan from the catalogue (admin)
// DELETE /api/plans/{id}
func (h *PlanHandler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid plan id")
		return
	}

	if err := h.Service.DeletePlan(r.Context(), actor, id); err != nil {
		utils.ServiceError(w, err)
		return
	}

	h.Audit.RecordAction(actor, "DELETE", "plan", id, fmt.Sprintf("Deleted plan #%d", id), getIPAddress(r))

	w.WriteHeader(http.StatusNoContent)
}
