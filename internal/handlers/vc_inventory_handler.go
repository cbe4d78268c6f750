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

type VCInventoryHandler struct {
	Service *services.VCInventoryService
	Audit   *services.AuditService
}

func NewVCInventoryHandler(s *services.VCInventoryService, audit *services.AuditService) *VCInventoryHandler {
	return &VCInventoryHandler{Service: s, Audit: audit}
}

// CreateItem adds a VC card to stock (admin)
// POST /api/vc-inventory
func (h *VCInventoryHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.CreateVCItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := h.Service.CreateItem(r.Context(), actor, &req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	h.Audit.RecordAction(actor, "CREATE", "vc_inventory", item.ID,
		fmt.Sprintf("Added VC %s to stock", item.VCNumber), getIPAddress(r))

	utils.JSON(w, http.StatusCreated, item)
}

// ListItems returns inventory entries matching the filter
// GET /api/vc-inventory?status=&customer_id=&package=&search=&limit=&offset=
func (h *VCInventoryHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	filter := models.VCFilter{
		Status:  r.URL.Query().Get("status"),
		Package: r.URL.Query().Get("package"),
		Search:  r.URL.Query().Get("search"),
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

	items, err := h.Service.ListItems(r.Context(), filter)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, items)
}

// StatusCounts returns inventory totals per status for the dashboard
// GET /api/vc-inventory/status-counts
func (h *VCInventoryHandler) StatusCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Service.StatusCounts(r.Context())
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, counts)
}

// GetItem returns one VC with its status and ownership history
// GET /api/vc-inventory/{id}
func (h *VCInventoryHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid inventory id")
		return
	}

	item, err := h.Service.GetItem(r.Context(), id)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, item)
}

// GetByNumber looks an item up by its VC number
// GET /api/vc-inventory/by-number/{vc}
func (h *VCInventoryHandler) GetByNumber(w http.ResponseWriter, r *http.Request) {
	item, err := h.Service.GetByNumber(r.Context(), mux.Vars(r)["vc"])
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, item)
}

// ChangeStatus appends to the VC's status trail (admin)
// POST /api/vc-inventory/{id}/status
func (h *VCInventoryHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid inventory id")
		return
	}

	var req models.ChangeVCStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := h.Service.ChangeStatus(r.Context(), actor, id, &req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	h.Audit.RecordAction(actor, "UPDATE", "vc_inventory", item.ID,
		fmt.Sprintf("Changed VC %s status to %s", item.VCNumber, item.Status), getIPAddress(r))

	utils.JSON(w, http.StatusOK, item)
}

// Reassign moves the VC to another customer (admin)
// POST /api/vc-inventory/{id}/reassign
func (h *VCInventoryHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid inventory id")
		return
	}

	var req models.ReassignVCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := h.Service.Reassign(r.Context(), actor, id, &req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	h.Audit.RecordAction(actor, "REASSIGN", "vc_inventory", item.ID,
		fmt.Sprintf("Reassigned VC %s to %s", item.VCNumber, req.CustomerName), getIPAddress(r))

	utils.JSON(w, http.StatusOK, item)
}

// Release returns the VC to stock (admin)
// POST /api/vc-inventory/{id}/release
func (h *VCInventoryHandler) Release(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid inventory id")
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	// An empty body is fine, the service fills in a default reason.
	json.NewDecoder(r.Body).Decode(&req)

	item, err := h.Service.Release(r.Context(), actor, id, req.Reason)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	h.Audit.RecordAction(actor, "RELEASE", "vc_inventory", item.ID,
		fmt.Sprintf("Released VC %s to stock", item.VCNumber), getIPAddress(r))

	utils.JSON(w, http.StatusOK, item)
}

// UpdatePackage changes the package recorded against the VC (admin)
// PUT /api/vc-inventory/{id}/package
func (h *VCInventoryHandler) UpdatePackage(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid inventory id")
		return
	}

	var req models.UpdateVCPackageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := h.Service.UpdatePackage(r.Context(), actor, id, &req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, item)
}

// DeleteItem removes an unowned VC from stock (admin)
// DELETE /api/vc-inventory/{id}
func (h *VCInventoryHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid inventory id")
		return
	}

	if err := h.Service.DeleteItem(r.Context(), actor, id); err != nil {
		utils.ServiceError(w, err)
		return
	}

	h.Audit.RecordAction(actor, "DELETE", "vc_inventory", id,
		fmt.Sprintf("Deleted VC inventory item #%d", id), getIPAddress(r))

	w.WriteHeader(http.StatusNoContent)
}
