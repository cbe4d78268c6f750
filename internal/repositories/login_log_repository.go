package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"cable-backend/internal/models"
)

type LoginLogRepository struct {
	DB *pgxpool.Pool
}

func NewLoginLogRepository(db *pgxpool.Pool) *LoginLogRepository {
	return &LoginLogRepository{DB: db}
}

// Create records a new login event
func (r *LoginLogRepository) Create(ctx context.Context, userID int, ipAddress, userAgent string) (int, error) {
	query := `
		INSERT INTO login_logs (user_id, login_time, ip_address, user_agent)
		VALUES ($1, NOW(), $2, $3)
		RETURNING id
	`

	var logID int
	err := r.DB.QueryRow(ctx, query, userID, ipAddress, userAgent).Scan(&logID)
	if err != nil {
		return 0, err
	}

	return logID, nil
}

// MarkLogout records logout for the most recent open login of a user
func (r *LoginLogRepository) MarkLogout(ctx context.Context, userID int) error {
	query := `
		UPDATE login_logs
		SET logout_time = NOW()
		WHERE id = (
			SELECT id FROM login_logs
			WHERE user_id = $1 AND logout_time IS NULL
			ORDER BY login_time DESC
			LIMIT 1
		)
	`

	_, err := r.DB.Exec(ctx, query, userID)
	return err
}

// List retrieves login/logout history with user details, newest first.
func (r *LoginLogRepository) List(ctx context.Context, limit, offset int) ([]*models.LoginLog, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ll.id, ll.user_id, u.name, u.email, u.role,
		       ll.login_time, ll.logout_time, ll.ip_address, ll.user_agent, ll.created_at
		FROM login_logs ll
		JOIN users u ON ll.user_id = u.id
		ORDER BY ll.login_time DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.DB.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.LoginLog
	for rows.Next() {
		log := &models.LoginLog{}
		err := rows.Scan(
			&log.ID, &log.UserID, &log.UserName, &log.UserEmail, &log.UserRole,
			&log.LoginTime, &log.LogoutTime, &log.IPAddress, &log.UserAgent, &log.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}

	return logs, rows.Err()
}
