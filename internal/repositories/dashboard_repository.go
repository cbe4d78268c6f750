package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"cable-backend/internal/models"
	"cable-backend/internal/timeutil"
)

type DashboardRepository struct {
	DB *pgxpool.Pool
}

func NewDashboardRepository(db *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{DB: db}
}

// Stats gathers the dashboard aggregates. Callers cache the result; every
// query here runs against live tables.
func (r *DashboardRepository) Stats(ctx context.Context) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}

	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = 'active'),
		        COUNT(*) FILTER (WHERE status = 'inactive'),
		        COUNT(*) FILTER (WHERE status = 'demo')
         FROM customers`).Scan(
		&stats.TotalCustomers, &stats.ActiveCustomers,
		&stats.InactiveCustomers, &stats.DemoCustomers)
	if err != nil {
		return nil, err
	}

	err = r.DB.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = 'active'),
		        COALESCE(SUM(previous_outstanding), 0),
		        COALESCE(SUM(current_outstanding), 0)
         FROM connections`).Scan(
		&stats.TotalConnections, &stats.ActiveConnections,
		&stats.PreviousOutstanding, &stats.CurrentOutstanding)
	if err != nil {
		return nil, err
	}
	stats.TotalOutstanding = stats.PreviousOutstanding + stats.CurrentOutstanding

	err = r.DB.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = 'active'),
		        COUNT(*) FILTER (WHERE status = 'inactive'),
		        COUNT(*) FILTER (WHERE status = 'available')
         FROM vc_inventory`).Scan(
		&stats.VCTotal, &stats.VCActive, &stats.VCInactive, &stats.VCAvailable)
	if err != nil {
		return nil, err
	}

	err = r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM action_requests WHERE status = 'pending'`).Scan(&stats.PendingRequests)
	if err != nil {
		return nil, err
	}

	now := timeutil.Now()
	dayStart := timeutil.StartOfDay(now)
	monthStart := timeutil.StartOfMonth(now)

	err = r.DB.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0), COUNT(*)
         FROM payments WHERE payment_date >= $1`, dayStart).Scan(
		&stats.TodayCollection, &stats.TodayPaymentCount)
	if err != nil {
		return nil, err
	}

	err = r.DB.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0)
         FROM payments WHERE payment_date >= $1`, monthStart).Scan(&stats.MonthCollection)
	if err != nil {
		return nil, err
	}

	areas, err := r.areaSummaries(ctx, monthStart)
	if err != nil {
		return nil, err
	}
	stats.AreaSummaries = areas

	return stats, nil
}

func (r *DashboardRepository) areaSummaries(ctx context.Context, monthStart time.Time) ([]models.AreaSummary, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT c.area,
		        COUNT(DISTINCT c.id),
		        COUNT(DISTINCT c.id) FILTER (WHERE c.status = 'active'),
		        COALESCE(SUM(cn.previous_outstanding + cn.current_outstanding), 0),
		        COALESCE((SELECT SUM(p.amount) FROM payments p
		                  JOIN customers pc ON p.customer_id = pc.id
		                  WHERE pc.area = c.area AND p.payment_date >= $1), 0)
         FROM customers c
         LEFT JOIN connections cn ON cn.customer_id = c.id
         WHERE c.area <> ''
         GROUP BY c.area
         ORDER BY c.area`,
		monthStart)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []models.AreaSummary
	for rows.Next() {
		var s models.AreaSummary
		err := rows.Scan(&s.Area, &s.CustomerCount, &s.ActiveCount, &s.Outstanding, &s.MonthCollection)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
