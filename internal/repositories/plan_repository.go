package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cable-backend/internal/models"
)

type PlanRepository struct {
	DB *pgxpool.Pool
}

func NewPlanRepository(db *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{DB: db}
}

func (r *PlanRepository) Create(ctx context.Context, p *models.Plan) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO plans(name, price, channel_count, is_active)
         VALUES($1, $2, $3, TRUE)
         RETURNING id, is_active, created_at, updated_at`,
		p.Name, p.Price, p.ChannelCount,
	).Scan(&p.ID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("plan %s already exists: %w", p.Name, models.ErrDuplicate)
	}
	return err
}

func (r *PlanRepository) Get(ctx context.Context, id int) (*models.Plan, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT id, name, price, channel_count, is_active, created_at, updated_at
         FROM plans WHERE id=$1`, id)

	var plan models.Plan
	err := row.Scan(&plan.ID, &plan.Name, &plan.Price, &plan.ChannelCount,
		&plan.IsActive, &plan.CreatedAt, &plan.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *PlanRepository) GetByName(ctx context.Context, name string) (*models.Plan, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT id, name, price, channel_count, is_active, created_at, updated_at
         FROM plans WHERE name=$1`, name)

	var plan models.Plan
	err := row.Scan(&plan.ID, &plan.Name, &plan.Price, &plan.ChannelCount,
		&plan.IsActive, &plan.CreatedAt, &plan.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// List returns plans, active ones first, then by price.
func (r *PlanRepository) List(ctx context.Context, includeInactive bool) ([]*models.Plan, error) {
	query := `SELECT id, name, price, channel_count, is_active, created_at, updated_at
              FROM plans`
	if !includeInactive {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY is_active DESC, price ASC`

	rows, err := r.DB.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []*models.Plan
	for rows.Next() {
		var plan models.Plan
		err := rows.Scan(&plan.ID, &plan.Name, &plan.Price, &plan.ChannelCount,
			&plan.IsActive, &plan.CreatedAt, &plan.UpdatedAt)
		if err != nil {
			return nil, err
		}
		plans = append(plans, &plan)
	}
	return plans, rows.Err()
}

func (r *PlanRepository) Update(ctx context.Context, p *models.Plan) error {
	result, err := r.DB.Exec(ctx,
		`UPDATE plans SET name=$1, price=$2, channel_count=$3, is_active=$4, updated_at=CURRENT_TIMESTAMP
         WHERE id=$5`,
		p.Name, p.Price, p.ChannelCount, p.IsActive, p.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("plan %s already exists: %w", p.Name, models.ErrDuplicate)
	}
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Delete removes a plan from the catalogue. Connections keep their copied
// plan name and price, so historic billing is unaffected.
func (r *PlanRepository) Delete(ctx context.Context, id int) error {
	result, err := r.DB.Exec(ctx, `DELETE FROM plans WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
