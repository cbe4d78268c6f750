package health

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"cable-backend/internal/cache"
)

type Checker struct {
	db      *pgxpool.Pool
	started time.Time
}

type Status struct {
	Status        string      `json:"status"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	Database      CheckResult `json:"database"`
	Cache         CheckResult `json:"cache"`
}

type CheckResult struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`
}

func NewChecker(db *pgxpool.Pool) *Checker {
	return &Checker{db: db, started: time.Now()}
}

// Check pings the database and redis. The service is unhealthy only when the
// database is down; redis is optional and degrades to "disabled".
func (c *Checker) Check() Status {
	dbResult := c.checkDatabase()
	cacheResult := c.checkCache()

	status := "healthy"
	if dbResult.Status != "healthy" {
		status = "unhealthy"
	}

	return Status{
		Status:        status,
		UptimeSeconds: int64(time.Since(c.started).Seconds()),
		Database:      dbResult,
		Cache:         cacheResult,
	}
}

func (c *Checker) checkDatabase() CheckResult {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := c.db.Ping(ctx)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		return CheckResult{Status: "unhealthy", ResponseTime: elapsed}
	}
	return CheckResult{Status: "healthy", ResponseTime: elapsed}
}

func (c *Checker) checkCache() CheckResult {
	rdb := cache.GetClient()
	if rdb == nil {
		return CheckResult{Status: "disabled"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := rdb.Ping(ctx).Err()
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		return CheckResult{Status: "unhealthy", ResponseTime: elapsed}
	}
	return CheckResult{Status: "healthy", ResponseTime: elapsed}
}
