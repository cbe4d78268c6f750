package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"cable-backend/internal/middleware"
	"cable-backend/internal/services"
	"cable-backend/internal/timeutil"
	"cable-backend/pkg/utils"
)

type ReportHandler struct {
	Service *services.ReportService
}

func NewReportHandler(service *services.ReportService) *ReportHandler {
	return &ReportHandler{Service: service}
}

// GetCollectionPDF handles GET /api/reports/collection/pdf
// Query params: start_date, end_date (YYYY-MM-DD, default today)
func (h *ReportHandler) GetCollectionPDF(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	start, end := collectionRange(r)
	pdfData, err := h.Service.CollectionReportPDF(ctx, actor, start, end)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("collection_%s.pdf", start.Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Write(pdfData)
}

// GetCollectionCSV handles GET /api/reports/collection/csv
// Query params: start_date, end_date (YYYY-MM-DD, default today)
func (h *ReportHandler) GetCollectionCSV(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	start, end := collectionRange(r)
	csvData, err := h.Service.CollectionReportCSV(ctx, actor, start, end)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("collection_%s.csv", start.Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Write(csvData)
}

// GetCustomerStatement handles GET /api/reports/customers/{id}/statement
// Returns the customer's ledger as a PDF with a running balance.
func (h *ReportHandler) GetCustomerStatement(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	pdfData, err := h.Service.CustomerStatementPDF(ctx, actor, customerID)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("statement_%d_%s.pdf", customerID, timeutil.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Write(pdfData)
}

// GetReceiptPDF handles GET /api/reports/receipt/{receipt}
func (h *ReportHandler) GetReceiptPDF(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	receipt := mux.Vars(r)["receipt"]

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	pdfData, err := h.Service.ReceiptPDF(ctx, actor, receipt)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("receipt_%s.pdf", receipt)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Write(pdfData)
}

// GetOutstandingCSV handles GET /api/reports/outstanding/csv
// Per-area outstanding totals, scoped to the caller's areas.
func (h *ReportHandler) GetOutstandingCSV(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	csvData, err := h.Service.OutstandingCSV(ctx, actor)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("outstanding_%s.csv", timeutil.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Write(csvData)
}
