package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf/v2"

	"cable-backend/internal/models"
	"cable-backend/internal/timeutil"
)

type reportPaymentStore interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error)
	CollectionSummaries(ctx context.Context, start, end time.Time) ([]*models.CollectionSummary, error)
	GetByReceiptNumber(ctx context.Context, receiptNumber string) (*models.Payment, error)
}

type reportLedgerStore interface {
	List(ctx context.Context, filter models.LedgerFilter) ([]*models.LedgerEntry, error)
	Summary(ctx context.Context, customerID int) (*models.LedgerSummary, error)
}

type reportCustomerStore interface {
	Get(ctx context.Context, id int) (*models.Customer, error)
	List(ctx context.Context, filter models.CustomerFilter) ([]*models.Customer, error)
}

// ReportService renders the printable side of the business: collection
// reports for settlement, customer statements, receipts and outstanding
// lists. PDFs go out to collectors on paper, CSVs into spreadsheets.
type ReportService struct {
	Payments  reportPaymentStore
	Ledger    reportLedgerStore
	Customers reportCustomerStore
	Settings  settingsReader
}

func NewReportService(payments reportPaymentStore, ledger reportLedgerStore, customers reportCustomerStore, settings settingsReader) *ReportService {
	return &ReportService{
		Payments:  payments,
		Ledger:    ledger,
		Customers: customers,
		Settings:  settings,
	}
}

// operatorName heads every report. Falls back when the setting is unset.
func (s *ReportService) operatorName(ctx context.Context) string {
	setting, err := s.Settings.Get(ctx, models.SettingOperatorName)
	if err != nil || setting == nil || setting.SettingValue == "" {
		return "Cable Network"
	}
	return setting.SettingValue
}

func (s *ReportService) receiptFooter(ctx context.Context) string {
	setting, err := s.Settings.Get(ctx, models.SettingReceiptFooter)
	if err != nil || setting == nil {
		return ""
	}
	return setting.SettingValue
}

// CollectionReportPDF renders the per-collector settlement sheet for a date
// range. Admin only; it covers every collector's takings.
func (s *ReportService) CollectionReportPDF(ctx context.Context, actor models.Actor, start, end time.Time) ([]byte, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	summaries, err := s.Payments.CollectionSummaries(ctx, start, end)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, fmt.Sprintf("%s - Collection Report", s.operatorName(ctx)), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Period: %s to %s",
		start.Format("02-Jan-2006"), end.Format("02-Jan-2006")), "", 1, "C", false, 0, "")
	pdf.CellFormat(190, 6, fmt.Sprintf("Generated: %s", timeutil.Now().Format("02-Jan-2006 03:04 PM")), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Table header
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(55, 7, "Collector", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 7, "Count", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Cash", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "UPI", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "Online", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Total", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	var grandCount int
	var grandCash, grandUPI, grandOnline, grandTotal float64
	for i, sum := range summaries {
		if i%2 == 0 {
			pdf.SetFillColor(255, 255, 255)
		} else {
			pdf.SetFillColor(245, 245, 245)
		}
		name := sum.CollectorName
		if len(name) > 26 {
			name = name[:23] + "..."
		}
		pdf.CellFormat(55, 6, name, "1", 0, "L", true, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", sum.PaymentCount), "1", 0, "C", true, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("Rs. %.2f", sum.CashTotal), "1", 0, "R", true, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("Rs. %.2f", sum.UPITotal), "1", 0, "R", true, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("Rs. %.2f", sum.OnlineTotal), "1", 0, "R", true, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("Rs. %.2f", sum.Total), "1", 1, "R", true, 0, "")

		grandCount += sum.PaymentCount
		grandCash += sum.CashTotal
		grandUPI += sum.UPITotal
		grandOnline += sum.OnlineTotal
		grandTotal += sum.Total
	}

	// Grand total row
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(220, 220, 220)
	pdf.CellFormat(55, 7, "TOTAL", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 7, fmt.Sprintf("%d", grandCount), "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, fmt.Sprintf("Rs. %.2f", grandCash), "1", 0, "R", true, 0, "")
	pdf.CellFormat(30, 7, fmt.Sprintf("Rs. %.2f", grandUPI), "1", 0, "R", true, 0, "")
	pdf.CellFormat(25, 7, fmt.Sprintf("Rs. %.2f", grandOnline), "1", 0, "R", true, 0, "")
	pdf.CellFormat(30, 7, fmt.Sprintf("Rs. %.2f", grandTotal), "1", 1, "R", true, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CollectionReportCSV lists every payment in the range, one row each, for
// spreadsheet reconciliation.
func (s *ReportService) CollectionReportCSV(ctx context.Context, actor models.Actor, start, end time.Time) ([]byte, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	payments, err := s.Payments.List(ctx, models.PaymentFilter{
		StartDate: &start,
		EndDate:   &end,
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	w.Write([]string{"Collection Report", start.Format("02-Jan-2006") + " to " + end.Format("02-Jan-2006")})
	w.Write([]string{""})
	w.Write([]string{"#", "Receipt", "Date", "Customer", "VC", "Amount", "Previous", "Current", "Mode", "Collector"})

	for i, p := range payments {
		w.Write([]string{
			fmt.Sprintf("%d", i+1),
			p.ReceiptNumber,
			timeutil.ToIST(p.PaymentDate).Format("02-Jan-2006 03:04 PM"),
			p.CustomerName,
			p.VCNumber,
			fmt.Sprintf("%.2f", p.Amount),
			fmt.Sprintf("%.2f", p.PreviousCleared),
			fmt.Sprintf("%.2f", p.CurrentCleared),
			p.Mode,
			p.CollectedByName,
		})
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CustomerStatementPDF renders a customer's ledger slice with the running
// balance, newest period first capped at 100 rows.
func (s *ReportService) CustomerStatementPDF(ctx context.Context, actor models.Actor, customerID int) ([]byte, error) {
	customer, err := s.Customers.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessArea(customer.Area) {
		return nil, models.ErrForbidden
	}

	entries, err := s.Ledger.List(ctx, models.LedgerFilter{CustomerID: customerID, Limit: 100})
	if err != nil {
		return nil, err
	}
	summary, err := s.Ledger.Summary(ctx, customerID)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, fmt.Sprintf("%s - Customer Statement", s.operatorName(ctx)), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Generated: %s", timeutil.Now().Format("02-Jan-2006 03:04 PM")), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Customer box
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Customer", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, fmt.Sprintf("Name: %s", customer.Name), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Phone: %s", customer.Phone), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Area: %s", customer.Area), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("VC: %s", customer.VCNumber), "RB", 1, "L", false, 0, "")
	pdf.Ln(5)

	// Ledger table
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(25, 7, "Date", "1", 0, "C", true, 0, "")
	pdf.CellFormat(75, 7, "Description", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Debit", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Credit", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Balance", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for i, e := range entries {
		if i%2 == 0 {
			pdf.SetFillColor(255, 255, 255)
		} else {
			pdf.SetFillColor(245, 245, 245)
		}
		desc := e.Description
		if len(desc) > 42 {
			desc = desc[:39] + "..."
		}
		pdf.CellFormat(25, 6, timeutil.ToIST(e.CreatedAt).Format("02-Jan-06"), "1", 0, "C", true, 0, "")
		pdf.CellFormat(75, 6, desc, "1", 0, "L", true, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", e.Debit), "1", 0, "R", true, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", e.Credit), "1", 0, "R", true, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", e.RunningBalance), "1", 1, "R", true, 0, "")
	}
	pdf.Ln(5)

	// Balance box
	if summary.CurrentBalance > 0 {
		pdf.SetFillColor(255, 200, 200)
	} else {
		pdf.SetFillColor(200, 255, 200)
	}
	pdf.SetFont("Arial", "B", 14)
	balanceText := fmt.Sprintf("Balance Due: Rs. %.2f", summary.CurrentBalance)
	if summary.CurrentBalance <= 0 {
		balanceText = "NO DUES"
	}
	pdf.CellFormat(190, 10, balanceText, "1", 1, "C", true, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReceiptPDF renders a single payment receipt the collector can hand over.
func (s *ReportService) ReceiptPDF(ctx context.Context, actor models.Actor, receiptNumber string) ([]byte, error) {
	payment, err := s.Payments.GetByReceiptNumber(ctx, receiptNumber)
	if err != nil {
		return nil, err
	}
	customer, err := s.Customers.Get(ctx, payment.CustomerID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && payment.CollectedBy != actor.UserID && !actor.CanAccessArea(customer.Area) {
		return nil, models.ErrForbidden
	}

	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(128, 9, s.operatorName(ctx), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(128, 7, "Payment Receipt", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(128, 5, fmt.Sprintf("Receipt No: %s", payment.ReceiptNumber), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	rows := [][2]string{
		{"Date", timeutil.ToIST(payment.PaymentDate).Format("02-Jan-2006 03:04 PM")},
		{"Customer", customer.Name},
		{"VC Number", payment.VCNumber},
		{"Mode", payment.Mode},
		{"Against previous dues", fmt.Sprintf("Rs. %.2f", payment.PreviousCleared)},
		{"Against current dues", fmt.Sprintf("Rs. %.2f", payment.CurrentCleared)},
		{"Collected by", payment.CollectedByName},
	}
	for _, row := range rows {
		pdf.CellFormat(50, 7, row[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(78, 7, row[1], "1", 1, "L", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.SetFillColor(220, 220, 220)
	pdf.CellFormat(50, 9, "Amount Paid", "1", 0, "L", true, 0, "")
	pdf.CellFormat(78, 9, fmt.Sprintf("Rs. %.2f", payment.Amount), "1", 1, "R", true, 0, "")

	if footer := s.receiptFooter(ctx); footer != "" {
		pdf.Ln(4)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(128, 5, footer, "", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// areaOutstanding is one row of the outstanding report.
type areaOutstanding struct {
	Area          string
	CustomerCount int
	Previous      float64
	Current       float64
	Total         float64
}

// OutstandingCSV breaks outstanding balances down per area with the
// previous/current split. Employees get their assigned areas only.
func (s *ReportService) OutstandingCSV(ctx context.Context, actor models.Actor) ([]byte, error) {
	filter := models.CustomerFilter{}
	if !actor.IsAdmin() {
		if len(actor.Areas) == 0 {
			return nil, models.ErrForbidden
		}
		filter.Areas = actor.Areas
	}
	customers, err := s.Customers.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	byArea := map[string]*areaOutstanding{}
	for _, c := range customers {
		row, ok := byArea[c.Area]
		if !ok {
			row = &areaOutstanding{Area: c.Area}
			byArea[c.Area] = row
		}
		row.CustomerCount++
		for _, conn := range c.Connections {
			row.Previous += conn.PreviousOutstanding
			row.Current += conn.CurrentOutstanding
		}
	}

	areas := make([]*areaOutstanding, 0, len(byArea))
	for _, row := range byArea {
		row.Total = row.Previous + row.Current
		areas = append(areas, row)
	}
	sort.Slice(areas, func(i, j int) bool { return areas[i].Total > areas[j].Total })

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	w.Write([]string{"Outstanding Report", timeutil.Now().Format("02-Jan-2006")})
	w.Write([]string{""})
	w.Write([]string{"Area", "Customers", "Previous Outstanding", "Current Outstanding", "Total"})

	var totalPrev, totalCurr float64
	for _, row := range areas {
		w.Write([]string{
			row.Area,
			fmt.Sprintf("%d", row.CustomerCount),
			fmt.Sprintf("%.2f", row.Previous),
			fmt.Sprintf("%.2f", row.Current),
			fmt.Sprintf("%.2f", row.Total),
		})
		totalPrev += row.Previous
		totalCurr += row.Current
	}
	w.Write([]string{"TOTAL", fmt.Sprintf("%d", len(customers)),
		fmt.Sprintf("%.2f", totalPrev), fmt.Sprintf("%.2f", totalCurr),
		fmt.Sprintf("%.2f", totalPrev+totalCurr)})

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
