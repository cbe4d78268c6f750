package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"cable-backend/internal/models"
	"cable-backend/internal/timeutil"
)

type PaymentRepository struct {
	DB *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{DB: db}
}

func (r *PaymentRepository) GenerateReceiptNumber(ctx context.Context) (string, error) {
	// Use database sequence instead of COUNT for O(1) performance
	var nextNum int
	err := r.DB.QueryRow(ctx, "SELECT nextval('receipt_number_seq')").Scan(&nextNum)
	if err != nil {
		return "", fmt.Errorf("failed to get next receipt number: %w", err)
	}

	return fmt.Sprintf("RCP-%06d", nextNum), nil
}

// CheckDuplicatePayment checks if a similar payment was made within the last 10 seconds
// Returns true if a duplicate is found
func (r *PaymentRepository) CheckDuplicatePayment(ctx context.Context, customerID int, amount float64) (bool, error) {
	query := `
		SELECT COUNT(*) FROM payments
		WHERE customer_id = $1
		AND amount = $2
		AND created_at > NOW() - INTERVAL '10 seconds'
	`
	var count int
	err := r.DB.QueryRow(ctx, query, customerID, amount).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Record books the payment, moves the connection balances and writes the
// ledger entry in one transaction. The service has already split the amount;
// app carries the resulting balances.
func (r *PaymentRepository) Record(ctx context.Context, payment *models.Payment, app *models.PaymentApplication) error {
	// Check for duplicate payment (same customer, same amount within 10 seconds)
	isDuplicate, err := r.CheckDuplicatePayment(ctx, payment.CustomerID, payment.Amount)
	if err != nil {
		return fmt.Errorf("failed to check for duplicate payment: %w", err)
	}
	if isDuplicate {
		return fmt.Errorf("a payment of ₹%.2f for this customer was already processed within the last 10 seconds: %w",
			payment.Amount, models.ErrDuplicate)
	}

	receiptNumber, err := r.GenerateReceiptNumber(ctx)
	if err != nil {
		return err
	}

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

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
		payment.Mode,
		payment.CollectedBy,
		payment.Notes,
	).Scan(&payment.ID, &payment.PaymentDate, &payment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	payment.ReceiptNumber = receiptNumber

	result, err := tx.Exec(ctx,
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

	entryType := models.LedgerEntryTypePayment
	if payment.Mode == models.PaymentModeOnline {
		entryType = models.LedgerEntryTypeOnlinePayment
	}
	_, err = createLedgerEntry(ctx, tx, &models.CreateLedgerEntryRequest{
		CustomerID:      payment.CustomerID,
		VCNumber:        payment.VCNumber,
		EntryType:       entryType,
		Description:     fmt.Sprintf("Payment received (%s), receipt %s", payment.Mode, receiptNumber),
		Credit:          payment.Amount,
		ReferenceID:     &payment.ID,
		ReferenceType:   "payment",
		CreatedByUserID: payment.CollectedBy,
		Notes:           payment.Notes,
	})
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

const paymentColumns = `p.id, p.receipt_number, p.customer_id, COALESCE(c.name, '') as customer_name,
	COALESCE(c.phone, '') as customer_phone, COALESCE(p.vc_number, '') as vc_number,
	p.amount, p.previous_cleared, p.current_cleared, p.mode, p.collected_by,
	COALESCE(u.name, '') as collected_by_name, COALESCE(p.notes, '') as notes,
	p.payment_date, p.created_at`

const paymentJoins = `
	FROM payments p
	LEFT JOIN customers c ON p.customer_id = c.id
	LEFT JOIN users u ON p.collected_by = u.id`

func (r *PaymentRepository) Get(ctx context.Context, id int) (*models.Payment, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+paymentColumns+paymentJoins+` WHERE p.id=$1`, id)
	var p models.Payment
	err := row.Scan(&p.ID, &p.ReceiptNumber, &p.CustomerID, &p.CustomerName, &p.CustomerPhone,
		&p.VCNumber, &p.Amount, &p.PreviousCleared, &p.CurrentCleared, &p.Mode,
		&p.CollectedBy, &p.CollectedByName, &p.Notes, &p.PaymentDate, &p.CreatedAt)
	if err != nil {
		return nil, models.ErrNotFound
	}
	return &p, nil
}

func (r *PaymentRepository) GetByReceiptNumber(ctx context.Context, receiptNumber string) (*models.Payment, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+paymentColumns+paymentJoins+` WHERE p.receipt_number=$1`, receiptNumber)
	var p models.Payment
	err := row.Scan(&p.ID, &p.ReceiptNumber, &p.CustomerID, &p.CustomerName, &p.CustomerPhone,
		&p.VCNumber, &p.Amount, &p.PreviousCleared, &p.CurrentCleared, &p.Mode,
		&p.CollectedBy, &p.CollectedByName, &p.Notes, &p.PaymentDate, &p.CreatedAt)
	if err != nil {
		return nil, models.ErrNotFound
	}
	return &p, nil
}

func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error) {
	query := `SELECT ` + paymentColumns + paymentJoins + ` WHERE 1=1`
	var args []interface{}
	argPos := 1

	if filter.CustomerID > 0 {
		query += fmt.Sprintf(" AND p.customer_id=$%d", argPos)
		args = append(args, filter.CustomerID)
		argPos++
	}
	if filter.CollectedBy > 0 {
		query += fmt.Sprintf(" AND p.collected_by=$%d", argPos)
		args = append(args, filter.CollectedBy)
		argPos++
	}
	if filter.Area != "" {
		query += fmt.Sprintf(" AND c.area=$%d", argPos)
		args = append(args, filter.Area)
		argPos++
	}
	if len(filter.Areas) > 0 {
		query += fmt.Sprintf(" AND c.area=ANY($%d)", argPos)
		args = append(args, filter.Areas)
		argPos++
	}
	if filter.Mode != "" {
		query += fmt.Sprintf(" AND p.mode=$%d", argPos)
		args = append(args, filter.Mode)
		argPos++
	}
	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND p.payment_date >= $%d", argPos)
		args = append(args, *filter.StartDate)
		argPos++
	}
	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND p.payment_date <= $%d", argPos)
		args = append(args, *filter.EndDate)
		argPos++
	}

	query += " ORDER BY p.payment_date DESC, p.id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		var p models.Payment
		err := rows.Scan(&p.ID, &p.ReceiptNumber, &p.CustomerID, &p.CustomerName, &p.CustomerPhone,
			&p.VCNumber, &p.Amount, &p.PreviousCleared, &p.CurrentCleared, &p.Mode,
			&p.CollectedBy, &p.CollectedByName, &p.Notes, &p.PaymentDate, &p.CreatedAt)
		if err != nil {
			return nil, err
		}
		payments = append(payments, &p)
	}
	return payments, rows.Err()
}

// CollectionSummaries groups takings per collector over a date range.
func (r *PaymentRepository) CollectionSummaries(ctx context.Context, start, end time.Time) ([]*models.CollectionSummary, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT u.id, u.name, COUNT(p.id),
		        COALESCE(SUM(CASE WHEN p.mode='cash' THEN p.amount END), 0),
		        COALESCE(SUM(CASE WHEN p.mode='upi' THEN p.amount END), 0),
		        COALESCE(SUM(CASE WHEN p.mode='online' THEN p.amount END), 0),
		        COALESCE(SUM(p.amount), 0)
         FROM payments p
         JOIN users u ON p.collected_by = u.id
         WHERE p.payment_date >= $1 AND p.payment_date <= $2
         GROUP BY u.id, u.name
         ORDER BY COALESCE(SUM(p.amount), 0) DESC`,
		start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*models.CollectionSummary
	for rows.Next() {
		var s models.CollectionSummary
		err := rows.Scan(&s.CollectorID, &s.CollectorName, &s.PaymentCount,
			&s.CashTotal, &s.UPITotal, &s.OnlineTotal, &s.Total)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, &s)
	}
	return summaries, rows.Err()
}

type chargeTarget struct {
	connectionID int
	customerID   int
	vcNumber     string
	planName     string
	planPrice    float64
}

// PostMonthlyCharges rolls every active connection into the new billing
// period: the current dues move into previous outstanding and the effective
// plan price becomes the new current charge, with a CHARGE ledger entry per
// connection. Connections already charged this period are skipped, so the
// posting is safe to re-run.
func (r *PaymentRepository) PostMonthlyCharges(ctx context.Context, period time.Time) (int, error) {
	periodStart := timeutil.StartOfMonth(period)
	label := timeutil.BillingPeriodLabel(period)

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx,
		`SELECT id, customer_id, vc_number,
		        CASE WHEN custom_plan_name <> '' THEN custom_plan_name ELSE plan_name END,
		        CASE WHEN custom_plan_name <> '' THEN custom_plan_price ELSE plan_price END
         FROM connections
         WHERE status = 'active'
         AND NOT EXISTS (
             SELECT 1 FROM ledger_entries le
             WHERE le.reference_type = 'connection'
             AND le.reference_id = connections.id
             AND le.entry_type = 'CHARGE'
             AND le.created_at >= $1
         )
         ORDER BY customer_id, idx`,
		periodStart)
	if err != nil {
		return 0, err
	}

	var targets []chargeTarget
	for rows.Next() {
		var t chargeTarget
		if err := rows.Scan(&t.connectionID, &t.customerID, &t.vcNumber, &t.planName, &t.planPrice); err != nil {
			rows.Close()
			return 0, err
		}
		targets = append(targets, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	charged := 0
	touched := make(map[int]bool)
	for _, t := range targets {
		if t.planPrice <= 0 {
			continue
		}

		_, err := tx.Exec(ctx,
			`UPDATE connections
             SET previous_outstanding = previous_outstanding + current_outstanding,
                 current_outstanding = $1,
                 version = version + 1, updated_at = CURRENT_TIMESTAMP
             WHERE id = $2`,
			t.planPrice, t.connectionID)
		if err != nil {
			return 0, fmt.Errorf("failed to charge connection %s: %w", t.vcNumber, err)
		}

		connID := t.connectionID
		_, err = createLedgerEntry(ctx, tx, &models.CreateLedgerEntryRequest{
			CustomerID:    t.customerID,
			VCNumber:      t.vcNumber,
			EntryType:     models.LedgerEntryTypeCharge,
			Description:   fmt.Sprintf("Monthly charge %s - %s", label, t.planName),
			Debit:         t.planPrice,
			ReferenceID:   &connID,
			ReferenceType: "connection",
		})
		if err != nil {
			return 0, err
		}

		charged++
		touched[t.customerID] = true
	}

	for customerID := range touched {
		if err := syncCustomerDerived(ctx, tx, customerID); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return charged, nil
}
