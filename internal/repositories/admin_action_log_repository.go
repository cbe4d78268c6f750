package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"cable-backend/internal/models"
)

type AdminActionLogRepository struct {
	DB *pgxpool.Pool
}

func NewAdminActionLogRepository(db *pgxpool.Pool) *AdminActionLogRepository {
	return &AdminActionLogRepository{DB: db}
}

func (r *AdminActionLogRepository) Create(ctx context.Context, log *models.AdminActionLog) error {
	query := `
		INSERT INTO admin_action_logs (
			admin_user_id, action_type, target_type, target_id,
			description, old_value, new_value, ip_address, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`

	_, err := r.DB.Exec(ctx, query,
		log.AdminUserID, log.ActionType, log.TargetType, log.TargetID,
		log.Description, log.OldValue, log.NewValue, log.IPAddress,
	)
	return err
}

func (r *AdminActionLogRepository) List(ctx context.Context, filter models.AdminActionLogFilter) ([]*models.AdminActionLog, error) {
	query := `
		SELECT al.id, al.admin_user_id, u.name, u.email,
		       al.action_type, al.target_type, al.target_id,
		       al.description, al.old_value, al.new_value, al.ip_address, al.created_at
		FROM admin_action_logs al
		JOIN users u ON al.admin_user_id = u.id
		WHERE 1=1`
	var args []interface{}
	argPos := 1

	if filter.AdminUserID > 0 {
		query += fmt.Sprintf(" AND al.admin_user_id = $%d", argPos)
		args = append(args, filter.AdminUserID)
		argPos++
	}
	if filter.ActionType != "" {
		query += fmt.Sprintf(" AND al.action_type = $%d", argPos)
		args = append(args, filter.ActionType)
		argPos++
	}
	if filter.TargetType != "" {
		query += fmt.Sprintf(" AND al.target_type = $%d", argPos)
		args = append(args, filter.TargetType)
		argPos++
	}
	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND al.created_at >= $%d", argPos)
		args = append(args, *filter.StartDate)
		argPos++
	}
	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND al.created_at <= $%d", argPos)
		args = append(args, *filter.EndDate)
		argPos++
	}

	query += " ORDER BY al.created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.AdminActionLog
	for rows.Next() {
		log := &models.AdminActionLog{}
		err := rows.Scan(
			&log.ID, &log.AdminUserID, &log.AdminName, &log.AdminEmail,
			&log.ActionType, &log.TargetType, &log.TargetID,
			&log.Description, &log.OldValue, &log.NewValue, &log.IPAddress, &log.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}

	return logs, rows.Err()
}
