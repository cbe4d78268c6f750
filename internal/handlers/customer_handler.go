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

type CustomerHandler struct {
	Service *services.CustomerService
	Audit   *services.AuditService
}

func NewCustomerHandler(s *services.CustomerService, audit *services.AuditService) *CustomerHandler {
	return &CustomerHandler{Service: s, Audit: audit}
}

// CreateCustomer creates a customer with their connections
// POST /api/customers
func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.CreateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	customer, err := h.Service.CreateCustomer(r.Context(), actor, &req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	h.Audit.RecordAction(actor, "CREATE", "customer", customer.ID,
		fmt.Sprintf("Created customer %s in %s with %d connection(s)", customer.Name, customer.Area, len(customer.Connections)),
		getIPAddress(r))

	utils.JSON(w, http.StatusCreated, customer)
}

// GetCustomer returns one customer with connections
// GET /api/customers/{id}
func (h *CustomerHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid customer id")
		return
	}

	customer, err := h.Service.GetCustomer(r.Context(), actor, id)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, customer)
}

// SearchByVC finds the customer holding a VC number
// GET /api/customers/search?vc=...
func (h *CustomerHandler) SearchByVC(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	vc := r.URL.Query().Get("vc")
	if vc != "" {
		customer, err := h.Service.SearchByVC(r.Context(), actor, vc)
		if err != nil {
			utils.ServiceError(w, err)
			return
		}
		utils.JSON(w, http.StatusOK, customer)
		return
	}

	phone := r.URL.Query().Get("phone")
	if phone == "" {
		utils.RespondError(w, http.StatusBadRequest, "vc or phone parameter is required")
		return
	}

	customer, err := h.Service.SearchByPhone(r.Context(), actor, phone)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, customer)
}

// ListCustomers returns customers, scoped to the caller's areas
// GET /api/customers?status=&area=&search=&due_day=&limit=&offset=
func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	filter := models.CustomerFilter{
		Status: r.URL.Query().Get("status"),
		Area:   r.URL.Query().Get("area"),
		Search: r.URL.Query().Get("search"),
	}
	if d := r.URL.Query().Get("due_day"); d != "" {
		if n, err := strconv.Atoi(d); err == nil && n >= 1 && n <= 31 {
			filter.DueDay = n
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

	customers, err := h.Service.ListCustomers(r.Context(), actor, filter)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, customers)
}

// UpdateCustomer rewrites a customer and reconciles their connections
// PUT /api/customers/{id}
func (h *CustomerHandler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid customer id")
		return
	}

	var req models.UpdateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	customer, err := h.Service.UpdateCustomer(r.Context(), actor, id, &req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	h.Audit.RecordAction(actor, "UPDATE", "customer", customer.ID,
		fmt.Sprintf("Updated customer %s", customer.Name), getIPAddress(r))

	utils.JSON(w, http.StatusOK, customer)
}

// DeleteCustomer removes a customer and their connections (admin)
// DELETE /api/customers/{id}
func (h *CustomerHandler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid customer id")
		return
	}

	if err := h.Service.DeleteCustomer(r.Context(), actor, id); err != nil {
		utils.ServiceError(w, err)
		return
	}

	h.Audit.RecordAction(actor, "DELETE", "customer", id, fmt.Sprintf("Deleted customer #%d", id), getIPAddress(r))

	w.WriteHeader(http.StatusNoContent)
}

// ListAreas returns the distinct collection areas for form dropdowns
// GET /api/customers/areas
func (h *CustomerHandler) ListAreas(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	areas, err := h.Service.ListAreas(r.Context(), actor)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, areas)
}
