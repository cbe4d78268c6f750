package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cable-backend/internal/cache"
	"cable-backend/internal/metrics"
	"cable-backend/internal/models"
)

type paymentStore interface {
	Record(ctx context.Context, payment *models.Payment, app *models.PaymentApplication) error
	Get(ctx context.Context, id int) (*models.Payment, error)
	GetByReceiptNumber(ctx context.Context, receiptNumber string) (*models.Payment, error)
	List(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error)
	CollectionSummaries(ctx context.Context, start, end time.Time) ([]*models.CollectionSummary, error)
	PostMonthlyCharges(ctx context.Context, period time.Time) (int, error)
}

type paymentCustomerStore interface {
	Get(ctx context.Context, id int) (*models.Customer, error)
}

type paymentLedgerStore interface {
	List(ctx context.Context, filter models.LedgerFilter) ([]*models.LedgerEntry, error)
	Summary(ctx context.Context, customerID int) (*models.LedgerSummary, error)
}

// PaymentService books collector payments. The split across previous and
// current outstanding is computed here; the repository applies it atomically.
type PaymentService struct {
	Repo      paymentStore
	Customers paymentCustomerStore
	Ledger    paymentLedgerStore
}

func NewPaymentService(repo paymentStore, customers paymentCustomerStore, ledger paymentLedgerStore) *PaymentService {
	return &PaymentService{Repo: repo, Customers: customers, Ledger: ledger}
}

// RecordPayment books a cash or UPI payment against a customer's connection.
// Online payments come in through the Razorpay flow, never through here.
func (s *PaymentService) RecordPayment(ctx context.Context, actor models.Actor, req *models.CreatePaymentRequest) (*models.Payment, error) {
	if req.CustomerID <= 0 {
		return nil, errors.New("customer_id is required")
	}
	if req.Amount <= 0 {
		return nil, errors.New("amount must be greater than zero")
	}
	switch req.Mode {
	case models.PaymentModeCash, models.PaymentModeUPI:
	case models.PaymentModeOnline:
		return nil, errors.New("online payments are recorded by the payment gateway flow")
	default:
		return nil, fmt.Errorf("unknown payment mode: %s", req.Mode)
	}

	customer, err := s.Customers.Get(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessArea(customer.Area) {
		return nil, models.ErrForbidden
	}

	var conn *models.Connection
	if req.VCNumber != "" {
		conn = customer.ConnectionByVC(req.VCNumber)
		if conn == nil {
			return nil, fmt.Errorf("VC %s does not belong to customer %d", req.VCNumber, req.CustomerID)
		}
	} else {
		conn = customer.PrimaryConnection()
		if conn == nil {
			return nil, errors.New("customer has no connections to collect against")
		}
	}

	prevCleared, currCleared, newPrev, newCurr := models.SplitPayment(
		req.Amount, conn.PreviousOutstanding, conn.CurrentOutstanding)

	payment := &models.Payment{
		CustomerID:      req.CustomerID,
		VCNumber:        conn.VCNumber,
		Amount:          req.Amount,
		PreviousCleared: prevCleared,
		CurrentCleared:  currCleared,
		Mode:            req.Mode,
		CollectedBy:     actor.UserID,
		Notes:           req.Notes,
	}
	app := &models.PaymentApplication{
		ConnectionID: conn.ID,
		CustomerID:   customer.ID,
		NewPrevious:  newPrev,
		NewCurrent:   newCurr,
	}

	if err := s.Repo.Record(ctx, payment, app); err != nil {
		return nil, err
	}

	metrics.PaymentsRecorded.WithLabelValues(string(req.Mode)).Inc()
	metrics.PaymentAmountCollected.WithLabelValues(string(req.Mode)).Add(req.Amount)
	cache.InvalidateDashboardCache(ctx)

	payment.CollectedByName = actor.Name
	payment.CustomerName = customer.Name
	return payment, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, actor models.Actor, id int) (*models.Payment, error) {
	payment, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkPaymentAccess(ctx, actor, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) GetByReceiptNumber(ctx context.Context, actor models.Actor, receiptNumber string) (*models.Payment, error) {
	if receiptNumber == "" {
		return nil, errors.New("receipt_number is required")
	}
	payment, err := s.Repo.GetByReceiptNumber(ctx, receiptNumber)
	if err != nil {
		return nil, err
	}
	if err := s.checkPaymentAccess(ctx, actor, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) checkPaymentAccess(ctx context.Context, actor models.Actor, payment *models.Payment) error {
	if actor.IsAdmin() || payment.CollectedBy == actor.UserID {
		return nil
	}
	customer, err := s.Customers.Get(ctx, payment.CustomerID)
	if err != nil {
		return err
	}
	if !actor.CanAccessArea(customer.Area) {
		return models.ErrForbidden
	}
	return nil
}

// ListPayments scopes employees to their assigned areas.
func (s *PaymentService) ListPayments(ctx context.Context, actor models.Actor, filter models.PaymentFilter) ([]*models.Payment, error) {
	if !actor.IsAdmin() {
		filter.Areas = actor.Areas
		if len(filter.Areas) == 0 {
			filter.CollectedBy = actor.UserID
		}
		if filter.Area != "" && !actor.CanAccessArea(filter.Area) {
			return nil, models.ErrForbidden
		}
	}
	return s.Repo.List(ctx, filter)
}

// CollectionSummaries reports per-collector takings over a range. Admin only.
func (s *PaymentService) CollectionSummaries(ctx context.Context, actor models.Actor, start, end time.Time) ([]*models.CollectionSummary, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	return s.Repo.CollectionSummaries(ctx, start, end)
}

// PostMonthlyCharges opens the billing period: current dues roll into
// previous and each active connection is charged its effective plan price.
// Safe to re-run within a month; already-charged connections are skipped.
func (s *PaymentService) PostMonthlyCharges(ctx context.Context, actor models.Actor, period time.Time) (int, error) {
	if !actor.IsAdmin() {
		return 0, models.ErrForbidden
	}
	charged, err := s.Repo.PostMonthlyCharges(ctx, period)
	if err != nil {
		return 0, err
	}
	if charged > 0 {
		cache.InvalidateDashboardCache(ctx)
	}
	return charged, nil
}

// CustomerLedger returns a customer's charge and payment trail with totals.
// Employees only see customers inside their assigned areas.
func (s *PaymentService) CustomerLedger(ctx context.Context, actor models.Actor, customerID int, filter models.LedgerFilter) ([]*models.LedgerEntry, *models.LedgerSummary, error) {
	customer, err := s.Customers.Get(ctx, customerID)
	if err != nil {
		return nil, nil, err
	}
	if !actor.CanAccessArea(customer.Area) {
		return nil, nil, models.ErrForbidden
	}

	filter.CustomerID = customerID
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	entries, err := s.Ledger.List(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	summary, err := s.Ledger.Summary(ctx, customerID)
	if err != nil {
		return nil, nil, err
	}
	return entries, summary, nil
}
