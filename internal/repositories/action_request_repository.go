package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cable-backend/internal/models"
)

type ActionRequestRepository struct {
	DB *pgxpool.Pool
}

func NewActionRequestRepository(db *pgxpool.Pool) *ActionRequestRepository {
	return &ActionRequestRepository{DB: db}
}

const actionRequestColumns = `ar.id, ar.customer_id, COALESCE(c.name, '') as customer_name, ar.vc_number,
	ar.requested_by, COALESCE(u1.name, '') as requested_by_name,
	ar.action_type, COALESCE(ar.current_status, ''), COALESCE(ar.current_plan, ''),
	COALESCE(ar.requested_plan, ''), ar.reason, ar.status, ar.request_date,
	ar.reviewed_by, COALESCE(u2.name, '') as reviewed_by_name, ar.review_date,
	COALESCE(ar.admin_notes, '')`

const actionRequestJoins = `
	FROM action_requests ar
	LEFT JOIN customers c ON ar.customer_id = c.id
	LEFT JOIN users u1 ON ar.requested_by = u1.id
	LEFT JOIN users u2 ON ar.reviewed_by = u2.id`

func scanActionRequest(row pgx.Row) (*models.ActionRequest, error) {
	var ar models.ActionRequest
	err := row.Scan(&ar.ID, &ar.CustomerID, &ar.CustomerName, &ar.VCNumber,
		&ar.RequestedBy, &ar.RequestedByName,
		&ar.ActionType, &ar.CurrentStatus, &ar.CurrentPlan,
		&ar.RequestedPlan, &ar.Reason, &ar.Status, &ar.RequestDate,
		&ar.ReviewedBy, &ar.ReviewedByName, &ar.ReviewDate, &ar.AdminNotes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ar, nil
}

func (r *ActionRequestRepository) Create(ctx context.Context, ar *models.ActionRequest) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO action_requests(customer_id, vc_number, requested_by, action_type,
		 current_status, current_plan, requested_plan, reason)
         VALUES($1, $2, $3, $4, $5, $6, $7, $8)
         RETURNING id, status, request_date`,
		ar.CustomerID, ar.VCNumber, ar.RequestedBy, ar.ActionType,
		ar.CurrentStatus, ar.CurrentPlan, ar.RequestedPlan, ar.Reason,
	).Scan(&ar.ID, &ar.Status, &ar.RequestDate)
	if err != nil {
		return fmt.Errorf("failed to create action request: %w", err)
	}
	return nil
}

func (r *ActionRequestRepository) Get(ctx context.Context, id int) (*models.ActionRequest, error) {
	return scanActionRequest(r.DB.QueryRow(ctx,
		`SELECT `+actionRequestColumns+actionRequestJoins+` WHERE ar.id=$1`, id))
}

func (r *ActionRequestRepository) List(ctx context.Context, filter models.ActionRequestFilter) ([]*models.ActionRequest, error) {
	query := `SELECT ` + actionRequestColumns + actionRequestJoins + ` WHERE 1=1`
	var args []interface{}
	argPos := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND ar.status=$%d", argPos)
		args = append(args, filter.Status)
		argPos++
	}
	if filter.CustomerID > 0 {
		query += fmt.Sprintf(" AND ar.customer_id=$%d", argPos)
		args = append(args, filter.CustomerID)
		argPos++
	}
	if filter.RequestedBy > 0 {
		query += fmt.Sprintf(" AND ar.requested_by=$%d", argPos)
		args = append(args, filter.RequestedBy)
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

	// Pending first, newest within each bucket.
	query += ` ORDER BY (ar.status = 'pending') DESC, ar.request_date DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*models.ActionRequest
	for rows.Next() {
		ar, err := scanActionRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, ar)
	}
	return requests, rows.Err()
}

func (r *ActionRequestRepository) PendingCount(ctx context.Context) (int, error) {
	var count int
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM action_requests WHERE status='pending'`).Scan(&count)
	return count, err
}

// HasPendingForVC reports whether an open request already exists for the
// customer's VC. Used to stop duplicate submissions.
func (r *ActionRequestRepository) HasPendingForVC(ctx context.Context, customerID int, vcNumber string) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM action_requests
		 WHERE customer_id=$1 AND vc_number=$2 AND status='pending')`,
		customerID, vcNumber).Scan(&exists)
	return exists, err
}

// Reject marks a pending request as rejected. The conditional update makes
// concurrent resolutions race-safe: the second admin gets ErrNotPending.
func (r *ActionRequestRepository) Reject(ctx context.Context, id int, adminID int, notes string) error {
	result, err := r.DB.Exec(ctx,
		`UPDATE action_requests
         SET status='rejected', reviewed_by=$2, review_date=NOW(), admin_notes=$3
         WHERE id=$1 AND status='pending'`,
		id, adminID, notes)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotPending
	}
	return nil
}

// ApproveWithEffect flips the request to approved and applies the computed
// side effect to the target connection in the same transaction. If the
// connection has disappeared the whole transaction rolls back and the request
// stays pending, so an admin can reject it with an explanation instead of the
// system half-applying it.
func (r *ActionRequestRepository) ApproveWithEffect(ctx context.Context, id int, adminID int, notes string, effect *models.ApprovalEffect) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx,
		`UPDATE action_requests
         SET status='approved', reviewed_by=$2, review_date=NOW(), admin_notes=$3
         WHERE id=$1 AND status='pending'`,
		id, adminID, notes)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotPending
	}

	// Apply the side effect to the connection.
	if effect.NewStatus != "" {
		result, err = tx.Exec(ctx,
			`UPDATE connections SET status=$1, version=version+1, updated_at=CURRENT_TIMESTAMP
             WHERE id=$2 AND customer_id=$3`,
			effect.NewStatus, effect.ConnectionID, effect.CustomerID)
	} else {
		result, err = tx.Exec(ctx,
			`UPDATE connections SET plan_name=$1, plan_price=$2,
			 custom_plan_name='', custom_plan_price=0,
			 version=version+1, updated_at=CURRENT_TIMESTAMP
             WHERE id=$3 AND customer_id=$4`,
			effect.NewPlanName, effect.NewPlanPrice, effect.ConnectionID, effect.CustomerID)
	}
	if err != nil {
		return fmt.Errorf("failed to apply approval to connection: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("connection for vc %s: %w", effect.VCNumber, models.ErrNotFound)
	}

	// Keep the customer's derived fields in step.
	if err := syncCustomerDerived(ctx, tx, effect.CustomerID); err != nil {
		return err
	}

	// Mirror the change onto the VC stock record when we track it. Status
	// approvals update the stock status; plan changes keep the status and only
	// leave a trail entry.
	var vcID int
	var vcStatus string
	if effect.NewStatus != "" {
		vcStatus = string(effect.NewStatus)
		err = tx.QueryRow(ctx,
			`UPDATE vc_inventory SET status=$1, version=version+1, updated_at=CURRENT_TIMESTAMP
             WHERE vc_number=$2 RETURNING id`,
			effect.NewStatus, effect.VCNumber).Scan(&vcID)
	} else {
		err = tx.QueryRow(ctx,
			`SELECT id, status FROM vc_inventory WHERE vc_number=$1`,
			effect.VCNumber).Scan(&vcID, &vcStatus)
	}
	if err == nil {
		_, err = tx.Exec(ctx,
			`INSERT INTO vc_status_history(vc_id, status, changed_by, reason) VALUES($1, $2, $3, $4)`,
			vcID, vcStatus, adminID, effect.HistoryReason)
		if err != nil {
			return fmt.Errorf("failed to append vc status history: %w", err)
		}
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to mirror approval to vc inventory: %w", err)
	}

	// A plan change moves the customer's dues, so book the difference on the
	// ledger in the same transaction as the approval.
	if effect.NewStatus == "" {
		delta := effect.NewPlanPrice - effect.OldPlanPrice
		if delta != 0 {
			entry := &models.CreateLedgerEntryRequest{
				CustomerID:      effect.CustomerID,
				VCNumber:        effect.VCNumber,
				Description:     fmt.Sprintf("Plan changed from %s to %s", effect.OldPlanName, effect.NewPlanName),
				ReferenceID:     &id,
				ReferenceType:   "action_request",
				CreatedByUserID: adminID,
			}
			if delta > 0 {
				entry.EntryType = models.LedgerEntryTypeCharge
				entry.Debit = delta
			} else {
				entry.EntryType = models.LedgerEntryTypeCredit
				entry.Credit = -delta
			}
			if _, err := createLedgerEntry(ctx, tx, entry); err != nil {
				return fmt.Errorf("failed to book plan change adjustment: %w", err)
			}
		}
	}

	return tx.Commit(ctx)
}
