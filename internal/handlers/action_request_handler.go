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

type ActionRequestHandler struct {
	Service *services.ActionRequestService
	Audit   *services.AuditService
}

func NewActionRequestHandler(s *services.ActionRequestService, audit *services.AuditService) *ActionRequestHandler {
	return &ActionRequestHandler{Service: s, Audit: audit}
}

// Submit raises a status-change or plan-change request for a connection
// POST /api/action-requests
func (h *ActionRequestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.SubmitActionRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ar, err := h.Service.Submit(r.Context(), actor, &req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusCreated, ar)
}

// List returns action requests matching the filter
// GET /api/action-requests?status=&customer_id=&area=&limit=&offset=
func (h *ActionRequestHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	filter := models.ActionRequestFilter{
		Status: r.URL.Query().Get("status"),
		Area:   r.URL.Query().Get("area"),
	}
	if c := r.URL.Query().Get("customer_id"); c != "" {
		if n, err := strconv.Atoi(c); err == nil && n > 0 {
			filter.CustomerID = n
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

	requests, err := h.Service.List(r.Context(), actor, filter)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, requests)
}

// ListPending returns the open requests awaiting an admin decision
// GET /api/action-requests/pending
func (h *ActionRequestHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	requests, err := h.Service.List(r.Context(), actor, models.ActionRequestFilter{Status: string(models.ActionRequestStatusPending)})
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, requests)
}

// Get returns one action request
// GET /api/action-requests/{id}
func (h *ActionRequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request id")
		return
	}

	ar, err := h.Service.Get(r.Context(), actor, id)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, ar)
}

// Approve applies the requested change and closes the request (admin)
// POST /api/action-requests/{id}/approve
func (h *ActionRequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, true)
}

// Reject closes the request without applying anything (admin)
// POST /api/action-requests/{id}/reject
func (h *ActionRequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, false)
}

func (h *ActionRequestHandler) resolve(w http.ResponseWriter, r *http.Request, approve bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request id")
		return
	}

	var req models.ResolveActionRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var ar *models.ActionRequest
	if approve {
		ar, err = h.Service.Approve(r.Context(), actor, id, &req)
	} else {
		ar, err = h.Service.Reject(r.Context(), actor, id, &req)
	}
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	action, verb := "REJECT", "Rejected"
	if approve {
		action, verb = "APPROVE", "Approved"
	}
	h.Audit.RecordAction(actor, action, "action_request", ar.ID,
		fmt.Sprintf("%s %s request #%d for %s (VC %s)", verb, ar.ActionType, ar.ID, ar.CustomerName, ar.VCNumber),
		getIPAddress(r))

	utils.JSON(w, http.StatusOK, ar)
}
