package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"

	"cable-backend/internal/middleware"
	"cable-backend/internal/models"
	"cable-backend/internal/services"
	"cable-backend/internal/timeutil"
	"cable-backend/pkg/utils"
)

type RazorpayHandler struct {
	Service *services.RazorpayService
}

func NewRazorpayHandler(service *services.RazorpayService) *RazorpayHandler {
	return &RazorpayHandler{Service: service}
}

// CheckPaymentStatus returns whether online payments are enabled and fee info
// GET /api/payment/status
func (h *RazorpayHandler) CheckPaymentStatus(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, h.Service.PaymentStatus(r.Context()))
}

// CreateOrder creates a Razorpay order against a customer's VC
// POST /api/payment/create-order
func (h *RazorpayHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOnlinePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	response, err := h.Service.CreateOrder(r.Context(), &req)
	if err != nil {
		log.Printf("[Razorpay] CreateOrder error: %v", err)
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, response)
}

// VerifyPayment settles the order after the Razorpay checkout callback
// POST /api/payment/verify
func (h *RazorpayHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.RazorpayOrderID == "" || req.RazorpayPaymentID == "" || req.RazorpaySignature == "" {
		utils.RespondError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	tx, err := h.Service.VerifyPayment(r.Context(), &req)
	if err != nil {
		log.Printf("[Razorpay] VerifyPayment error for order %s: %v", req.RazorpayOrderID, err)
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"message":     "Payment verified successfully",
		"transaction": tx,
	})
}

// HandleWebhook processes Razorpay webhook events
// POST /api/payment/webhook
func (h *RazorpayHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("[Razorpay] Failed to read webhook body: %v", err)
		utils.RespondError(w, http.StatusBadRequest, "Failed to read body")
		return
	}

	signature := r.Header.Get("X-Razorpay-Signature")
	if !h.Service.VerifyWebhookSignature(r.Context(), body, signature) {
		log.Printf("[Razorpay] Invalid webhook signature")
		utils.RespondError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("[Razorpay] Failed to parse webhook: %v", err)
		utils.RespondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	event, _ := payload["event"].(string)
	payloadData, _ := payload["payload"].(map[string]interface{})

	log.Printf("[Razorpay] Received webhook: %s", event)

	if err := h.Service.ProcessWebhook(r.Context(), event, payloadData); err != nil {
		log.Printf("[Razorpay] Webhook processing error: %v", err)
		// Return 200 anyway so Razorpay does not retry known failures.
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// ListTransactions returns online transactions (admin)
// GET /api/online-transactions?customer_id=&phone=&status=&start_date=&end_date=&limit=&offset=
func (h *RazorpayHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	filter := &models.OnlineTransactionFilter{
		CustomerPhone: r.URL.Query().Get("phone"),
		Status:        r.URL.Query().Get("status"),
		Limit:         50,
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

	transactions, total, err := h.Service.ListTransactions(r.Context(), actor, filter)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"total":        total,
		"limit":        filter.Limit,
		"offset":       filter.Offset,
	})
}

// TransactionSummary returns online collection totals for a range (admin)
// GET /api/online-transactions/summary?start_date=&end_date=
func (h *RazorpayHandler) TransactionSummary(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	start, end := collectionRange(r)
	summary, err := h.Service.TransactionSummary(r.Context(), actor, start, end)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, summary)
}
