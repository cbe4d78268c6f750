package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cable-backend/internal/models"
)

type LedgerRepository struct {
	DB *pgxpool.Pool
}

func NewLedgerRepository(db *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{DB: db}
}

// Create creates a new ledger entry and calculates running balance
func (r *LedgerRepository) Create(ctx context.Context, entry *models.CreateLedgerEntryRequest) (*models.LedgerEntry, error) {
	return createLedgerEntry(ctx, r.DB, entry)
}

// queryRower is satisfied by both *pgxpool.Pool and pgx.Tx, so payment and
// approval transactions can book ledger entries atomically.
type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func createLedgerEntry(ctx context.Context, q queryRower, entry *models.CreateLedgerEntryRequest) (*models.LedgerEntry, error) {
	// Running balance continues from the customer's latest entry.
	var currentBalance float64
	err := q.QueryRow(ctx,
		`SELECT COALESCE(
			(SELECT running_balance FROM ledger_entries
			 WHERE customer_id=$1 ORDER BY id DESC LIMIT 1), 0)`,
		entry.CustomerID).Scan(&currentBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to read current balance: %w", err)
	}

	runningBalance := currentBalance + entry.Debit - entry.Credit

	// User ID 0 = System for automated entries like charges and online payments
	var createdByName string
	if entry.CreatedByUserID == 0 {
		createdByName = "System"
	} else {
		err = q.QueryRow(ctx, "SELECT name FROM users WHERE id = $1", entry.CreatedByUserID).Scan(&createdByName)
		if err != nil {
			createdByName = "Unknown"
		}
	}

	var id int
	var createdAt time.Time
	err = q.QueryRow(ctx,
		`INSERT INTO ledger_entries (
			customer_id, vc_number, entry_type, description,
			debit, credit, running_balance, reference_id, reference_type,
			created_by_user_id, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`,
		entry.CustomerID,
		entry.VCNumber,
		entry.EntryType,
		entry.Description,
		entry.Debit,
		entry.Credit,
		runningBalance,
		entry.ReferenceID,
		entry.ReferenceType,
		entry.CreatedByUserID,
		entry.Notes,
	).Scan(&id, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger entry: %w", err)
	}

	return &models.LedgerEntry{
		ID:              id,
		CustomerID:      entry.CustomerID,
		CustomerName:    entry.CustomerName,
		VCNumber:        entry.VCNumber,
		EntryType:       entry.EntryType,
		Description:     entry.Description,
		Debit:           entry.Debit,
		Credit:          entry.Credit,
		RunningBalance:  runningBalance,
		ReferenceID:     entry.ReferenceID,
		ReferenceType:   entry.ReferenceType,
		CreatedByUserID: entry.CreatedByUserID,
		CreatedByName:   createdByName,
		CreatedAt:       createdAt,
		Notes:           entry.Notes,
	}, nil
}

// GetBalance returns the customer's latest running balance.
func (r *LedgerRepository) GetBalance(ctx context.Context, customerID int) (float64, error) {
	var balance float64
	err := r.DB.QueryRow(ctx,
		`SELECT COALESCE(
			(SELECT running_balance FROM ledger_entries
			 WHERE customer_id=$1 ORDER BY id DESC LIMIT 1), 0)`,
		customerID).Scan(&balance)
	return balance, err
}

const ledgerColumns = `l.id, l.customer_id, COALESCE(c.name, '') as customer_name,
	COALESCE(l.vc_number, '') as vc_number, l.entry_type,
	COALESCE(l.description, '') as description, l.debit, l.credit, l.running_balance,
	l.reference_id, COALESCE(l.reference_type, '') as reference_type,
	l.created_by_user_id,
	CASE WHEN l.created_by_user_id = 0 THEN 'System' ELSE COALESCE(u.name, 'Unknown') END as created_by_name,
	l.created_at, COALESCE(l.notes, '') as notes`

func (r *LedgerRepository) List(ctx context.Context, filter models.LedgerFilter) ([]*models.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + `
	          FROM ledger_entries l
	          LEFT JOIN customers c ON l.customer_id = c.id
	          LEFT JOIN users u ON l.created_by_user_id = u.id
	          WHERE 1=1`
	var args []interface{}
	argPos := 1

	if filter.CustomerID > 0 {
		query += fmt.Sprintf(" AND l.customer_id=$%d", argPos)
		args = append(args, filter.CustomerID)
		argPos++
	}
	if filter.EntryType != "" {
		query += fmt.Sprintf(" AND l.entry_type=$%d", argPos)
		args = append(args, filter.EntryType)
		argPos++
	}
	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND l.created_at >= $%d", argPos)
		args = append(args, *filter.StartDate)
		argPos++
	}
	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND l.created_at <= $%d", argPos)
		args = append(args, *filter.EndDate)
		argPos++
	}

	query += " ORDER BY l.id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		err := rows.Scan(&e.ID, &e.CustomerID, &e.CustomerName, &e.VCNumber,
			&e.EntryType, &e.Description, &e.Debit, &e.Credit, &e.RunningBalance,
			&e.ReferenceID, &e.ReferenceType, &e.CreatedByUserID, &e.CreatedByName,
			&e.CreatedAt, &e.Notes)
		if err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Summary aggregates a customer's ledger totals.
func (r *LedgerRepository) Summary(ctx context.Context, customerID int) (*models.LedgerSummary, error) {
	summary := &models.LedgerSummary{CustomerID: customerID}
	err := r.DB.QueryRow(ctx,
		`SELECT COALESCE(c.name, ''),
		        COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0), COUNT(l.id)
         FROM customers c
         LEFT JOIN ledger_entries l ON l.customer_id = c.id
         WHERE c.id=$1
         GROUP BY c.name`,
		customerID).Scan(&summary.CustomerName, &summary.TotalDebit, &summary.TotalCredit, &summary.EntryCount)
	if err != nil {
		return nil, err
	}
	summary.CurrentBalance = summary.TotalDebit - summary.TotalCredit
	return summary, nil
}
