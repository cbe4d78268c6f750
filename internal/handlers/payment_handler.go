package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"cable-backend/internal/middleware"
	"cable-backend/internal/models"
	"cable-backend/internal/services"
	"cable-backend/internal/timeutil"
	"cable-backend/pkg/utils"
)

type PaymentHandler struct {
	Service *services.PaymentService
	Audit   *services.AuditService
}

func NewPaymentHandler(s *services.PaymentService, audit *services.AuditService) *PaymentHandler {
	return &PaymentHandler{Service: s, Audit: audit}
}

// RecordPayment books a cash/UPI collection against a customer's connection
// POST /api/payments
func (h *PaymentHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	payment, err := h.Service.RecordPayment(r.Context(), actor, &req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusCreated, payment)
}

// GetPayment returns one payment
// GET /api/payments/{id}
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid payment id")
		return
	}

	payment, err := h.Service.GetPayment(r.Context(), actor, id)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, payment)
}

// GetByReceipt returns the payment behind a receipt number
// GET /api/payments/receipt/{receipt}
func (h *PaymentHandler) GetByReceipt(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	payment, err := h.Service.GetByReceiptNumber(r.Context(), actor, mux.Vars(r)["receipt"])
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, payment)
}

// ListPayments returns payments, scoped to the caller's areas
// GET /api/payments?customer_id=&collected_by=&area=&mode=&start_date=&end_date=&limit=&offset=
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	filter := models.PaymentFilter{
		Area: r.URL.Query().Get("area"),
		Mode: r.URL.Query().Get("mode"),
	}
	if c := r.URL.Query().Get("customer_id"); c != "" {
		if n, err := strconv.Atoi(c); err == nil && n > 0 {
			filter.CustomerID = n
		}
	}
	if c := r.URL.Query().Get("collected_by"); c != "" {
		if n, err := strconv.Atoi(c); err == nil && n > 0 {
			filter.CollectedBy = n
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

	payments, err := h.Service.ListPayments(r.Context(), actor, filter)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, payments)
}

// CollectionSummary returns per-collector takings for a date range (admin)
// GET /api/payments/summary?start_date=&end_date=
func (h *PaymentHandler) CollectionSummary(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	start, end := collectionRange(r)
	summaries, err := h.Service.CollectionSummaries(r.Context(), actor, start, end)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, summaries)
}

// PostMonthlyCharges opens a billing period, charging every active connection
// its plan price (admin)
// POST /api/payments/monthly-charges
func (h *PaymentHandler) PostMonthlyCharges(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Month string `json:"month"` // YYYY-MM, defaults to the current month
	}
	json.NewDecoder(r.Body).Decode(&req)

	period := timeutil.Now()
	if req.Month != "" {
		parsed, err := timeutil.ParseInIST("2006-01", req.Month)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid month, expected YYYY-MM")
			return
		}
		period = parsed
	}

	charged, err := h.Service.PostMonthlyCharges(r.Context(), actor, period)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	h.Audit.RecordAction(actor, "BILL", "payment", 0,
		fmt.Sprintf("Posted monthly charges for %s: %d connection(s)", timeutil.BillingPeriodLabel(period), charged),
		getIPAddress(r))

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"period":  timeutil.MonthKey(period),
		"charged": charged,
	})
}

// CustomerLedger returns a customer's charge/payment trail with totals
// GET /api/customers/{id}/ledger?limit=&offset=
func (h *PaymentHandler) CustomerLedger(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	customerID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid customer id")
		return
	}

	var filter models.LedgerFilter
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

	entries, summary, err := h.Service.CustomerLedger(r.Context(), actor, customerID, filter)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"summary": summary,
	})
}

// collectionRange reads start_date/end_date query params, defaulting to today.
func collectionRange(r *http.Request) (time.Time, time.Time) {
	now := timeutil.Now()
	start := timeutil.StartOfDay(now)
	end := timeutil.EndOfDay(now)

	if s := r.URL.Query().Get("start_date"); s != "" {
		if t, err := timeutil.ParseInIST(timeutil.DateLayout, s); err == nil {
			start = timeutil.StartOfDay(t)
		}
	}
	if e := r.URL.Query().Get("end_date"); e != "" {
		if t, err := timeutil.ParseInIST(timeutil.DateLayout, e); err == nil {
			end = timeutil.EndOfDay(t)
		}
	}
	return start, end
}
