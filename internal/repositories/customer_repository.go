package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cable-backend/internal/models"
)

type CustomerRepository struct {
	DB *pgxpool.Pool
}

func NewCustomerRepository(db *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{DB: db}
}

const customerColumns = `id, name, COALESCE(phone, '') as phone, COALESCE(address, '') as address,
	COALESCE(area, '') as area, join_date, bill_due_day, status, is_active,
	COALESCE(vc_number, '') as vc_number, COALESCE(package_name, '') as package_name,
	package_amount, previous_outstanding, current_outstanding, version, created_at, updated_at`

const connectionColumns = `id, customer_id, vc_number, COALESCE(plan_name, '') as plan_name, plan_price,
	COALESCE(custom_plan_name, '') as custom_plan_name, custom_plan_price, status,
	previous_outstanding, current_outstanding, is_primary, idx, version, created_at, updated_at`

func scanCustomer(row pgx.Row) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.Area, &c.JoinDate, &c.BillDueDay,
		&c.Status, &c.IsActive, &c.VCNumber, &c.PackageName, &c.PackageAmount,
		&c.PreviousOutstanding, &c.CurrentOutstanding, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanConnection(row pgx.Row) (*models.Connection, error) {
	var conn models.Connection
	err := row.Scan(&conn.ID, &conn.CustomerID, &conn.VCNumber, &conn.PlanName, &conn.PlanPrice,
		&conn.CustomPlanName, &conn.CustomPlanPrice, &conn.Status,
		&conn.PreviousOutstanding, &conn.CurrentOutstanding, &conn.IsPrimary, &conn.Idx,
		&conn.Version, &conn.CreatedAt, &conn.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// Create inserts the customer and all its connections in one transaction.
// The caller must have normalized connections and derived the legacy fields.
func (r *CustomerRepository) Create(ctx context.Context, c *models.Customer, actorID int) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO customers(name, phone, address, area, join_date, bill_due_day, status, is_active,
		 vc_number, package_name, package_amount, previous_outstanding, current_outstanding)
         VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
         RETURNING id, version, created_at, updated_at`,
		c.Name, c.Phone, c.Address, c.Area, c.JoinDate, c.BillDueDay, c.Status, c.IsActive,
		c.VCNumber, c.PackageName, c.PackageAmount, c.PreviousOutstanding, c.CurrentOutstanding,
	).Scan(&c.ID, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert customer: %w", err)
	}

	for _, conn := range c.Connections {
		conn.CustomerID = c.ID
		if err := insertConnection(ctx, tx, conn); err != nil {
			return err
		}
		if err := claimVC(ctx, tx, conn, c.ID, c.Name, actorID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// claimVC points a stocked VC at the connection's customer: open ownership
// rows are closed, a fresh one is opened and the item mirrors the
// connection's status. VCs not tracked in inventory are ignored.
func claimVC(ctx context.Context, tx pgx.Tx, conn *models.Connection, customerID int, customerName string, actorID int) error {
	var itemID int
	var ownerID *int
	var itemStatus string
	err := tx.QueryRow(ctx,
		`SELECT id, customer_id, status FROM vc_inventory WHERE vc_number=$1`,
		conn.VCNumber).Scan(&itemID, &ownerID, &itemStatus)
	if err == pgx.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	if ownerID == nil || *ownerID != customerID {
		_, err = tx.Exec(ctx,
			`UPDATE vc_ownership_history SET end_date=NOW() WHERE vc_id=$1 AND end_date IS NULL`, itemID)
		if err != nil {
			return fmt.Errorf("failed to close ownership for VC %s: %w", conn.VCNumber, err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO vc_ownership_history (vc_id, customer_id, customer_name) VALUES ($1, $2, $3)`,
			itemID, customerID, customerName)
		if err != nil {
			return fmt.Errorf("failed to open ownership for VC %s: %w", conn.VCNumber, err)
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE vc_inventory SET customer_id=$1, status=$2, version=version+1, updated_at=CURRENT_TIMESTAMP
         WHERE id=$3`,
		customerID, string(conn.Status), itemID)
	if err != nil {
		return fmt.Errorf("failed to update inventory for VC %s: %w", conn.VCNumber, err)
	}

	if itemStatus != string(conn.Status) && actorID > 0 {
		_, err = tx.Exec(ctx,
			`INSERT INTO vc_status_history (vc_id, status, changed_by, reason) VALUES ($1, $2, $3, $4)`,
			itemID, string(conn.Status), actorID, "connection assigned")
		if err != nil {
			return fmt.Errorf("failed to record status for VC %s: %w", conn.VCNumber, err)
		}
	}
	return nil
}

// releaseVC returns a stocked VC whose connection was removed back to the
// available pool.
func releaseVC(ctx context.Context, tx pgx.Tx, vcNumber string, actorID int) error {
	var itemID int
	err := tx.QueryRow(ctx,
		`SELECT id FROM vc_inventory WHERE vc_number=$1`, vcNumber).Scan(&itemID)
	if err == pgx.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE vc_ownership_history SET end_date=NOW() WHERE vc_id=$1 AND end_date IS NULL`, itemID)
	if err != nil {
		return fmt.Errorf("failed to close ownership for VC %s: %w", vcNumber, err)
	}
	_, err = tx.Exec(ctx,
		`UPDATE vc_inventory SET customer_id=NULL, status='available', version=version+1,
		 updated_at=CURRENT_TIMESTAMP WHERE id=$1`, itemID)
	if err != nil {
		return fmt.Errorf("failed to release VC %s: %w", vcNumber, err)
	}
	if actorID > 0 {
		_, err = tx.Exec(ctx,
			`INSERT INTO vc_status_history (vc_id, status, changed_by, reason) VALUES ($1, 'available', $2, 'connection removed')`,
			itemID, actorID)
		if err != nil {
			return fmt.Errorf("failed to record status for VC %s: %w", vcNumber, err)
		}
	}
	return nil
}

func insertConnection(ctx context.Context, tx pgx.Tx, conn *models.Connection) error {
	err := tx.QueryRow(ctx,
		`INSERT INTO connections(customer_id, vc_number, plan_name, plan_price,
		 custom_plan_name, custom_plan_price, status, previous_outstanding, current_outstanding,
		 is_primary, idx)
         VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
         RETURNING id, version, created_at, updated_at`,
		conn.CustomerID, conn.VCNumber, conn.PlanName, conn.PlanPrice,
		conn.CustomPlanName, conn.CustomPlanPrice, conn.Status,
		conn.PreviousOutstanding, conn.CurrentOutstanding, conn.IsPrimary, conn.Idx,
	).Scan(&conn.ID, &conn.Version, &conn.CreatedAt, &conn.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert connection %s: %w", conn.VCNumber, err)
	}
	return nil
}

func (r *CustomerRepository) Get(ctx context.Context, id int) (*models.Customer, error) {
	customer, err := scanCustomer(r.DB.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id=$1`, id))
	if err != nil {
		return nil, err
	}

	customer.Connections, err = r.loadConnections(ctx, customer.ID)
	if err != nil {
		return nil, err
	}
	return customer, nil
}

// GetByVC resolves a customer through any of its connections' VC numbers.
func (r *CustomerRepository) GetByVC(ctx context.Context, vcNumber string) (*models.Customer, error) {
	var customerID int
	err := r.DB.QueryRow(ctx,
		`SELECT customer_id FROM connections WHERE vc_number=$1`, vcNumber).Scan(&customerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, customerID)
}

func (r *CustomerRepository) GetByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	customer, err := scanCustomer(r.DB.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE phone=$1 ORDER BY id LIMIT 1`, phone))
	if err != nil {
		return nil, err
	}
	customer.Connections, err = r.loadConnections(ctx, customer.ID)
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func (r *CustomerRepository) loadConnections(ctx context.Context, customerID int) ([]*models.Connection, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+connectionColumns+` FROM connections WHERE customer_id=$1 ORDER BY idx ASC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []*models.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, conn)
	}
	return conns, rows.Err()
}

// List returns customers matching the filter, connections included.
func (r *CustomerRepository) List(ctx context.Context, filter models.CustomerFilter) ([]*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE 1=1`
	var args []interface{}
	argPos := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, filter.Status)
		argPos++
	}
	if filter.Area != "" {
		query += fmt.Sprintf(" AND area=$%d", argPos)
		args = append(args, filter.Area)
		argPos++
	}
	if len(filter.Areas) > 0 {
		query += fmt.Sprintf(" AND area=ANY($%d)", argPos)
		args = append(args, filter.Areas)
		argPos++
	}
	if filter.DueDay > 0 {
		query += fmt.Sprintf(" AND bill_due_day=$%d", argPos)
		args = append(args, filter.DueDay)
		argPos++
	}
	if filter.Search != "" {
		query += fmt.Sprintf(
			` AND (name ILIKE $%d OR phone ILIKE $%d
			   OR id IN (SELECT customer_id FROM connections WHERE vc_number ILIKE $%d))`,
			argPos, argPos, argPos)
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}

	query += " ORDER BY name ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []*models.Customer
	byID := make(map[int]*models.Customer)
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, customer)
		byID[customer.ID] = customer
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(customers) == 0 {
		return customers, nil
	}

	ids := make([]int, 0, len(customers))
	for _, c := range customers {
		ids = append(ids, c.ID)
	}

	connRows, err := r.DB.Query(ctx,
		`SELECT `+connectionColumns+` FROM connections WHERE customer_id=ANY($1) ORDER BY customer_id, idx ASC`, ids)
	if err != nil {
		return nil, err
	}
	defer connRows.Close()

	for connRows.Next() {
		conn, err := scanConnection(connRows)
		if err != nil {
			return nil, err
		}
		if customer, ok := byID[conn.CustomerID]; ok {
			customer.Connections = append(customer.Connections, conn)
		}
	}
	return customers, connRows.Err()
}

// Update writes the customer and reconciles its connections in one
// transaction. The row version must match expectedVersion or the write fails
// with ErrVersionConflict. Connections absent from c.Connections are deleted,
// entries with ID 0 are inserted, the rest are updated in place.
func (r *CustomerRepository) Update(ctx context.Context, c *models.Customer, expectedVersion int, actorID int) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx,
		`UPDATE customers SET name=$1, phone=$2, address=$3, area=$4, bill_due_day=$5,
		 status=$6, is_active=$7, vc_number=$8, package_name=$9, package_amount=$10,
		 previous_outstanding=$11, current_outstanding=$12,
		 version=version+1, updated_at=CURRENT_TIMESTAMP
         WHERE id=$13 AND version=$14`,
		c.Name, c.Phone, c.Address, c.Area, c.BillDueDay, c.Status, c.IsActive,
		c.VCNumber, c.PackageName, c.PackageAmount,
		c.PreviousOutstanding, c.CurrentOutstanding, c.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	if result.RowsAffected() == 0 {
		// Either the row is gone or someone else bumped the version.
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM customers WHERE id=$1)`, c.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return models.ErrNotFound
		}
		return models.ErrVersionConflict
	}
	c.Version = expectedVersion + 1

	// Delete connections that are no longer present, releasing their VCs.
	keepIDs := make([]int, 0, len(c.Connections))
	for _, conn := range c.Connections {
		if conn.ID > 0 {
			keepIDs = append(keepIDs, conn.ID)
		}
	}
	var pruneRows pgx.Rows
	if len(keepIDs) > 0 {
		pruneRows, err = tx.Query(ctx,
			`SELECT vc_number FROM connections WHERE customer_id=$1 AND NOT (id=ANY($2))`, c.ID, keepIDs)
	} else {
		pruneRows, err = tx.Query(ctx, `SELECT vc_number FROM connections WHERE customer_id=$1`, c.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to find removed connections: %w", err)
	}
	var removedVCs []string
	for pruneRows.Next() {
		var vc string
		if err := pruneRows.Scan(&vc); err != nil {
			pruneRows.Close()
			return err
		}
		removedVCs = append(removedVCs, vc)
	}
	pruneRows.Close()
	if err := pruneRows.Err(); err != nil {
		return err
	}

	if len(keepIDs) > 0 {
		_, err = tx.Exec(ctx,
			`DELETE FROM connections WHERE customer_id=$1 AND NOT (id=ANY($2))`, c.ID, keepIDs)
	} else {
		_, err = tx.Exec(ctx, `DELETE FROM connections WHERE customer_id=$1`, c.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to prune connections: %w", err)
	}
	for _, vc := range removedVCs {
		if err := releaseVC(ctx, tx, vc, actorID); err != nil {
			return err
		}
	}

	for _, conn := range c.Connections {
		conn.CustomerID = c.ID
		if conn.ID == 0 {
			if err := insertConnection(ctx, tx, conn); err != nil {
				return err
			}
			if err := claimVC(ctx, tx, conn, c.ID, c.Name, actorID); err != nil {
				return err
			}
			continue
		}
		result, err := tx.Exec(ctx,
			`UPDATE connections SET vc_number=$1, plan_name=$2, plan_price=$3,
			 custom_plan_name=$4, custom_plan_price=$5, status=$6,
			 previous_outstanding=$7, current_outstanding=$8, is_primary=$9, idx=$10,
			 version=version+1, updated_at=CURRENT_TIMESTAMP
             WHERE id=$11 AND customer_id=$12`,
			conn.VCNumber, conn.PlanName, conn.PlanPrice,
			conn.CustomPlanName, conn.CustomPlanPrice, conn.Status,
			conn.PreviousOutstanding, conn.CurrentOutstanding, conn.IsPrimary, conn.Idx,
			conn.ID, c.ID)
		if err != nil {
			return fmt.Errorf("failed to update connection %s: %w", conn.VCNumber, err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("connection %d does not belong to customer %d: %w", conn.ID, c.ID, models.ErrNotFound)
		}
		if err := claimVC(ctx, tx, conn, c.ID, c.Name, actorID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// syncCustomerDerived reloads the customer's connections inside the given
// transaction, reruns the canonical derivation and persists the mirror
// columns. Every write that touches a connection goes through this, so the
// stored legacy fields never drift from the connections.
func syncCustomerDerived(ctx context.Context, tx pgx.Tx, customerID int) error {
	customer, err := scanCustomer(tx.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id=$1 FOR UPDATE`, customerID))
	if err != nil {
		return err
	}

	rows, err := tx.Query(ctx,
		`SELECT `+connectionColumns+` FROM connections WHERE customer_id=$1 ORDER BY idx ASC`, customerID)
	if err != nil {
		return err
	}
	defer rows.Close()

	var conns []*models.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return err
		}
		conns = append(conns, conn)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	customer.Connections = conns
	models.DeriveLegacyFields(customer)

	_, err = tx.Exec(ctx,
		`UPDATE customers SET status=$1, is_active=$2, vc_number=$3, package_name=$4,
		 package_amount=$5, previous_outstanding=$6, current_outstanding=$7,
		 version=version+1, updated_at=CURRENT_TIMESTAMP
         WHERE id=$8`,
		customer.Status, customer.IsActive, customer.VCNumber, customer.PackageName,
		customer.PackageAmount, customer.PreviousOutstanding, customer.CurrentOutstanding,
		customer.ID)
	if err != nil {
		return fmt.Errorf("failed to sync derived customer fields: %w", err)
	}
	return nil
}

func (r *CustomerRepository) Delete(ctx context.Context, id int, actorID int) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `SELECT vc_number FROM connections WHERE customer_id=$1`, id)
	if err != nil {
		return err
	}
	var vcs []string
	for rows.Next() {
		var vc string
		if err := rows.Scan(&vc); err != nil {
			rows.Close()
			return err
		}
		vcs = append(vcs, vc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, vc := range vcs {
		if err := releaseVC(ctx, tx, vc, actorID); err != nil {
			return err
		}
	}

	result, err := tx.Exec(ctx, `DELETE FROM customers WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return tx.Commit(ctx)
}

// Areas returns the distinct collection areas currently in use.
func (r *CustomerRepository) Areas(ctx context.Context) ([]string, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT DISTINCT area FROM customers WHERE area <> '' ORDER BY area ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var areas []string
	for rows.Next() {
		var area string
		if err := rows.Scan(&area); err != nil {
			return nil, err
		}
		areas = append(areas, area)
	}
	return areas, rows.Err()
}
