package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cable-backend/internal/models"
)

type OnlineTransactionRepository struct {
	DB *pgxpool.Pool
}

func NewOnlineTransactionRepository(db *pgxpool.Pool) *OnlineTransactionRepository {
	return &OnlineTransactionRepository{DB: db}
}

// Create records a new pending transaction for a Razorpay order.
func (r *OnlineTransactionRepository) Create(ctx context.Context, otx *models.OnlineTransaction) error {
	query := `
		INSERT INTO online_transactions (
			razorpay_order_id, customer_id, customer_phone, customer_name,
			vc_number, amount, fee_amount, total_amount, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := r.DB.QueryRow(ctx, query,
		otx.RazorpayOrderID,
		otx.CustomerID,
		otx.CustomerPhone,
		otx.CustomerName,
		otx.VCNumber,
		otx.Amount,
		otx.FeeAmount,
		otx.TotalAmount,
		models.OnlineTxStatusPending,
	).Scan(&otx.ID, &otx.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create online transaction: %w", err)
	}

	otx.Status = models.OnlineTxStatusPending
	return nil
}

const onlineTxColumns = `id, razorpay_order_id, razorpay_payment_id, razorpay_signature,
	customer_id, customer_phone, customer_name, vc_number,
	amount, fee_amount, total_amount,
	utr_number, payment_method, bank, vpa, card_last4, card_network,
	status, failure_reason, payment_id, ledger_entry_id,
	created_at, completed_at`

func scanOnlineTx(row pgx.Row) (*models.OnlineTransaction, error) {
	otx := &models.OnlineTransaction{}
	err := row.Scan(
		&otx.ID, &otx.RazorpayOrderID, &otx.RazorpayPaymentID, &otx.RazorpaySignature,
		&otx.CustomerID, &otx.CustomerPhone, &otx.CustomerName, &otx.VCNumber,
		&otx.Amount, &otx.FeeAmount, &otx.TotalAmount,
		&otx.UTRNumber, &otx.PaymentMethod, &otx.Bank, &otx.VPA, &otx.CardLast4, &otx.CardNetwork,
		&otx.Status, &otx.FailureReason, &otx.PaymentID, &otx.LedgerEntryID,
		&otx.CreatedAt, &otx.CompletedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return otx, nil
}

// GetByOrderID retrieves a transaction by Razorpay order ID.
func (r *OnlineTransactionRepository) GetByOrderID(ctx context.Context, orderID string) (*models.OnlineTransaction, error) {
	return scanOnlineTx(r.DB.QueryRow(ctx,
		`SELECT `+onlineTxColumns+` FROM online_transactions WHERE razorpay_order_id = $1`, orderID))
}

// GetByPaymentID retrieves a transaction by Razorpay payment ID.
func (r *OnlineTransactionRepository) GetByPaymentID(ctx context.Context, paymentID string) (*models.OnlineTransaction, error) {
	return scanOnlineTx(r.DB.QueryRow(ctx,
		`SELECT `+onlineTxColumns+` FROM online_transactions WHERE razorpay_payment_id = $1`, paymentID))
}

// Settle finalizes a verified online payment in one transaction: the order
// row flips from pending to success, a payment row is booked against the
// connection, balances and the ledger are updated, and the transaction is
// linked to the created records. The conditional status flip makes the
// checkout callback and the webhook race-safe; whichever lands second gets
// ErrNotPending.
func (r *OnlineTransactionRepository) Settle(ctx context.Context, orderID string, details *models.OnlineSettlement, payment *models.Payment, app *models.PaymentApplication) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	result, err := tx.Exec(ctx,
		`UPDATE online_transactions
         SET razorpay_payment_id = $2, razorpay_signature = $3,
             utr_number = $4, payment_method = $5, bank = $6, vpa = $7,
             card_last4 = $8, card_network = $9,
             status = $10, completed_at = $11
         WHERE razorpay_order_id = $1 AND status = $12`,
		orderID,
		details.RazorpayPaymentID, details.RazorpaySignature,
		details.UTRNumber, details.PaymentMethod, details.Bank, details.VPA,
		details.CardLast4, details.CardNetwork,
		models.OnlineTxStatusSuccess, now,
		models.OnlineTxStatusPending)
	if err != nil {
		return fmt.Errorf("failed to update online transaction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotPending
	}

	var seq int
	if err := tx.QueryRow(ctx, "SELECT nextval('receipt_number_seq')").Scan(&seq); err != nil {
		return fmt.Errorf("failed to get next receipt number: %w", err)
	}
	receiptNumber := fmt.Sprintf("RCP-%06d", seq)

	err = tx.QueryRow(ctx,
		`INSERT INTO payments (receipt_number, customer_id, vc_number, amount,
		 previous_cleared, current_cleared, mode, collected_by, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, payment_date, created_at`,
		receiptNumber,
		payment.CustomerID,
		payment.VCNumber,
		payment.Amount,
		payment.PreviousCleared,
		payment.CurrentCleared,
		models.PaymentModeOnline,
		payment.CollectedBy,
		payment.Notes,
	).Scan(&payment.ID, &payment.PaymentDate, &payment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	payment.ReceiptNumber = receiptNumber
	payment.Mode = models.PaymentModeOnline

	result, err = tx.Exec(ctx,
		`UPDATE connections SET previous_outstanding=$1, current_outstanding=$2,
		 version=version+1, updated_at=CURRENT_TIMESTAMP
         WHERE id=$3 AND customer_id=$4`,
		app.NewPrevious, app.NewCurrent, app.ConnectionID, app.CustomerID)
	if err != nil {
		return fmt.Errorf("failed to update connection balances: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("connection %d: %w", app.ConnectionID, models.ErrNotFound)
	}

	if err := syncCustomerDerived(ctx, tx, app.CustomerID); err != nil {
		return err
	}

	entry, err := createLedgerEntry(ctx, tx, &models.CreateLedgerEntryRequest{
		CustomerID:    payment.CustomerID,
		VCNumber:      payment.VCNumber,
		EntryType:     models.LedgerEntryTypeOnlinePayment,
		Description:   fmt.Sprintf("Online payment via Razorpay, receipt %s", receiptNumber),
		Credit:        payment.Amount,
		ReferenceID:   &payment.ID,
		ReferenceType: "payment",
	})
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE online_transactions SET payment_id = $2, ledger_entry_id = $3
         WHERE razorpay_order_id = $1`,
		orderID, payment.ID, entry.ID)
	if err != nil {
		return fmt.Errorf("failed to link online transaction: %w", err)
	}

	return tx.Commit(ctx)
}

// MarkFailed records a failed payment attempt. Transactions that already
// settled are left untouched so late webhook retries cannot clobber them.
func (r *OnlineTransactionRepository) MarkFailed(ctx context.Context, orderID, reason string) error {
	now := time.Now()
	_, err := r.DB.Exec(ctx,
		`UPDATE online_transactions
         SET status = $2, failure_reason = $3, completed_at = $4
         WHERE razorpay_order_id = $1 AND status = $5`,
		orderID, models.OnlineTxStatusFailed, reason, now, models.OnlineTxStatusPending)
	return err
}

// List returns transactions matching the filter plus the unpaged total.
func (r *OnlineTransactionRepository) List(ctx context.Context, filter *models.OnlineTransactionFilter) ([]*models.OnlineTransaction, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}

	whereClause := "WHERE 1=1"
	args := []interface{}{}
	argNum := 1

	if filter.CustomerPhone != "" {
		whereClause += fmt.Sprintf(" AND customer_phone = $%d", argNum)
		args = append(args, filter.CustomerPhone)
		argNum++
	}
	if filter.CustomerID > 0 {
		whereClause += fmt.Sprintf(" AND customer_id = $%d", argNum)
		args = append(args, filter.CustomerID)
		argNum++
	}
	if filter.Status != "" {
		whereClause += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, filter.Status)
		argNum++
	}
	if filter.StartDate != nil {
		whereClause += fmt.Sprintf(" AND created_at >= $%d", argNum)
		args = append(args, *filter.StartDate)
		argNum++
	}
	if filter.EndDate != nil {
		whereClause += fmt.Sprintf(" AND created_at <= $%d", argNum)
		args = append(args, *filter.EndDate)
		argNum++
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM online_transactions %s", whereClause)
	var total int
	if err := r.DB.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM online_transactions %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		onlineTxColumns, whereClause, argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var transactions []*models.OnlineTransaction
	for rows.Next() {
		otx := &models.OnlineTransaction{}
		err := rows.Scan(
			&otx.ID, &otx.RazorpayOrderID, &otx.RazorpayPaymentID, &otx.RazorpaySignature,
			&otx.CustomerID, &otx.CustomerPhone, &otx.CustomerName, &otx.VCNumber,
			&otx.Amount, &otx.FeeAmount, &otx.TotalAmount,
			&otx.UTRNumber, &otx.PaymentMethod, &otx.Bank, &otx.VPA, &otx.CardLast4, &otx.CardNetwork,
			&otx.Status, &otx.FailureReason, &otx.PaymentID, &otx.LedgerEntryID,
			&otx.CreatedAt, &otx.CompletedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		transactions = append(transactions, otx)
	}
	return transactions, total, rows.Err()
}

// Summary aggregates online payment stats over a date range.
func (r *OnlineTransactionRepository) Summary(ctx context.Context, start, end time.Time) (*models.OnlinePaymentSummary, error) {
	var s models.OnlinePaymentSummary
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = 'success'),
		        COUNT(*) FILTER (WHERE status = 'failed'),
		        COUNT(*) FILTER (WHERE status = 'pending'),
		        COALESCE(SUM(amount) FILTER (WHERE status = 'success'), 0),
		        COALESCE(SUM(fee_amount) FILTER (WHERE status = 'success'), 0),
		        COALESCE(SUM(total_amount) FILTER (WHERE status = 'success'), 0)
         FROM online_transactions
         WHERE created_at >= $1 AND created_at <= $2`,
		start, end).Scan(
		&s.TotalTransactions, &s.SuccessfulPayments, &s.FailedTransactions, &s.PendingTransactions,
		&s.TotalAmount, &s.TotalFees, &s.TotalCollected)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
