package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"cable-backend/internal/models"
)

type VCInventoryRepository struct {
	DB *pgxpool.Pool
}

func NewVCInventoryRepository(db *pgxpool.Pool) *VCInventoryRepository {
	return &VCInventoryRepository{DB: db}
}

const vcColumns = `v.id, v.vc_number, v.customer_id, COALESCE(c.name, '') as customer_name,
	v.package_id, COALESCE(v.package_name, '') as package_name, v.package_amount,
	v.status, v.version, v.created_at, v.updated_at`

func scanVCItem(row pgx.Row) (*models.VCInventoryItem, error) {
	var item models.VCInventoryItem
	err := row.Scan(&item.ID, &item.VCNumber, &item.CustomerID, &item.CustomerName,
		&item.PackageID, &item.PackageName, &item.PackageAmount,
		&item.Status, &item.Version, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *VCInventoryRepository) Create(ctx context.Context, item *models.VCInventoryItem) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO vc_inventory(vc_number, package_id, package_name, package_amount, status)
         VALUES($1, $2, $3, $4, $5)
         RETURNING id, version, created_at, updated_at`,
		item.VCNumber, item.PackageID, item.PackageName, item.PackageAmount, item.Status,
	).Scan(&item.ID, &item.Version, &item.CreatedAt, &item.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("vc %s: %w", item.VCNumber, models.ErrDuplicate)
	}
	return err
}

func (r *VCInventoryRepository) Get(ctx context.Context, id int) (*models.VCInventoryItem, error) {
	item, err := scanVCItem(r.DB.QueryRow(ctx,
		`SELECT `+vcColumns+`
         FROM vc_inventory v
         LEFT JOIN customers c ON v.customer_id = c.id
         WHERE v.id=$1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadHistories(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (r *VCInventoryRepository) GetByNumber(ctx context.Context, vcNumber string) (*models.VCInventoryItem, error) {
	item, err := scanVCItem(r.DB.QueryRow(ctx,
		`SELECT `+vcColumns+`
         FROM vc_inventory v
         LEFT JOIN customers c ON v.customer_id = c.id
         WHERE v.vc_number=$1`, vcNumber))
	if err != nil {
		return nil, err
	}
	if err := r.loadHistories(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (r *VCInventoryRepository) loadHistories(ctx context.Context, item *models.VCInventoryItem) error {
	rows, err := r.DB.Query(ctx,
		`SELECT h.id, h.vc_id, h.status, h.changed_at, h.changed_by,
		 COALESCE(u.name, '') as changed_by_name, COALESCE(h.reason, '')
         FROM vc_status_history h
         LEFT JOIN users u ON h.changed_by = u.id
         WHERE h.vc_id=$1 ORDER BY h.changed_at DESC, h.id DESC`, item.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var entry models.VCStatusHistoryEntry
		err := rows.Scan(&entry.ID, &entry.VCID, &entry.Status, &entry.ChangedAt,
			&entry.ChangedBy, &entry.ChangedByName, &entry.Reason)
		if err != nil {
			return err
		}
		item.StatusHistory = append(item.StatusHistory, &entry)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	ownRows, err := r.DB.Query(ctx,
		`SELECT id, vc_id, customer_id, COALESCE(customer_name, ''), start_date, end_date
         FROM vc_ownership_history WHERE vc_id=$1 ORDER BY start_date DESC, id DESC`, item.ID)
	if err != nil {
		return err
	}
	defer ownRows.Close()

	for ownRows.Next() {
		var entry models.VCOwnershipEntry
		err := ownRows.Scan(&entry.ID, &entry.VCID, &entry.CustomerID, &entry.CustomerName,
			&entry.StartDate, &entry.EndDate)
		if err != nil {
			return err
		}
		item.OwnershipHistory = append(item.OwnershipHistory, &entry)
	}
	return ownRows.Err()
}

func (r *VCInventoryRepository) List(ctx context.Context, filter models.VCFilter) ([]*models.VCInventoryItem, error) {
	query := `SELECT ` + vcColumns + `
	          FROM vc_inventory v
	          LEFT JOIN customers c ON v.customer_id = c.id
	          WHERE 1=1`
	var args []interface{}
	argPos := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND v.status=$%d", argPos)
		args = append(args, filter.Status)
		argPos++
	}
	if filter.CustomerID > 0 {
		query += fmt.Sprintf(" AND v.customer_id=$%d", argPos)
		args = append(args, filter.CustomerID)
		argPos++
	}
	if filter.Package != "" {
		query += fmt.Sprintf(" AND v.package_name=$%d", argPos)
		args = append(args, filter.Package)
		argPos++
	}
	if filter.Search != "" {
		query += fmt.Sprintf(" AND (v.vc_number ILIKE $%d OR c.name ILIKE $%d)", argPos, argPos)
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}

	query += " ORDER BY v.vc_number ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.VCInventoryItem
	for rows.Next() {
		item, err := scanVCItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ChangeStatus flips the VC's status and appends the status trail entry in
// one transaction, guarded by the version column.
func (r *VCInventoryRepository) ChangeStatus(ctx context.Context, id int, status models.VCStatus, changedBy int, reason string, expectedVersion int) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := changeStatusTx(ctx, tx, id, status, changedBy, reason, expectedVersion); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func changeStatusTx(ctx context.Context, tx pgx.Tx, id int, status models.VCStatus, changedBy int, reason string, expectedVersion int) error {
	result, err := tx.Exec(ctx,
		`UPDATE vc_inventory SET status=$1, version=version+1, updated_at=CURRENT_TIMESTAMP
         WHERE id=$2 AND version=$3`,
		status, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update vc status: %w", err)
	}
	if result.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM vc_inventory WHERE id=$1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return models.ErrNotFound
		}
		return models.ErrVersionConflict
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO vc_status_history(vc_id, status, changed_by, reason) VALUES($1, $2, $3, $4)`,
		id, status, changedBy, reason)
	if err != nil {
		return fmt.Errorf("failed to append status history: %w", err)
	}
	return nil
}

// Reassign moves the VC to another customer: every open ownership entry is
// closed and a new one opened, in one transaction. Status is untouched;
// ChangeStatus and Release are the only status writers.
func (r *VCInventoryRepository) Reassign(ctx context.Context, id int, customerID int, customerName string, changedBy int, expectedVersion int) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx,
		`UPDATE vc_inventory SET customer_id=$1, version=version+1, updated_at=CURRENT_TIMESTAMP
         WHERE id=$2 AND version=$3`,
		customerID, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to reassign vc: %w", err)
	}
	if result.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM vc_inventory WHERE id=$1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return models.ErrNotFound
		}
		return models.ErrVersionConflict
	}

	// Close every open ownership entry, not just the newest one.
	_, err = tx.Exec(ctx,
		`UPDATE vc_ownership_history SET end_date=NOW() WHERE vc_id=$1 AND end_date IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to close ownership entries: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO vc_ownership_history(vc_id, customer_id, customer_name) VALUES($1, $2, $3)`,
		id, customerID, customerName)
	if err != nil {
		return fmt.Errorf("failed to open ownership entry: %w", err)
	}

	return tx.Commit(ctx)
}

// Release detaches the VC from its customer and returns it to stock.
func (r *VCInventoryRepository) Release(ctx context.Context, id int, changedBy int, reason string, expectedVersion int) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx,
		`UPDATE vc_inventory SET customer_id=NULL, status='available', version=version+1, updated_at=CURRENT_TIMESTAMP
         WHERE id=$1 AND version=$2`,
		id, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to release vc: %w", err)
	}
	if result.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM vc_inventory WHERE id=$1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return models.ErrNotFound
		}
		return models.ErrVersionConflict
	}

	_, err = tx.Exec(ctx,
		`UPDATE vc_ownership_history SET end_date=NOW() WHERE vc_id=$1 AND end_date IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to close ownership entries: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO vc_status_history(vc_id, status, changed_by, reason) VALUES($1, 'available', $2, $3)`,
		id, changedBy, reason)
	if err != nil {
		return fmt.Errorf("failed to append status history: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *VCInventoryRepository) UpdatePackage(ctx context.Context, id int, packageID *int, packageName string, packageAmount float64, expectedVersion int) error {
	result, err := r.DB.Exec(ctx,
		`UPDATE vc_inventory SET package_id=$1, package_name=$2, package_amount=$3,
		 version=version+1, updated_at=CURRENT_TIMESTAMP
         WHERE id=$4 AND version=$5`,
		packageID, packageName, packageAmount, id, expectedVersion)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		var exists bool
		if err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM vc_inventory WHERE id=$1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return models.ErrNotFound
		}
		return models.ErrVersionConflict
	}
	return nil
}

func (r *VCInventoryRepository) Delete(ctx context.Context, id int) error {
	result, err := r.DB.Exec(ctx, `DELETE FROM vc_inventory WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// StatusCounts returns the stock breakdown used on the dashboard.
func (r *VCInventoryRepository) StatusCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT status, COUNT(*) FROM vc_inventory GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
